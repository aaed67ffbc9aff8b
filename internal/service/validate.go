package service

import (
	"strings"

	"github.com/go-faster/errors"
)

// ToolSpec is the wire contract of one tool.
type ToolSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  InputSchema `json:"parameters"`
}

// InputSchema describes a tool's arguments.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes a single argument.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ValidateArgs checks args against schema: required keys must be present
// and non-empty, declared keys must carry the declared JSON type. Unknown
// keys pass through.
func ValidateArgs(schema InputSchema, args map[string]any) (map[string]any, error) {
	if args == nil {
		args = make(map[string]any)
	}

	var missing []string
	for _, key := range schema.Required {
		val, ok := args[key]
		if !ok || val == nil {
			missing = append(missing, key)
			continue
		}
		if s, ok := val.(string); ok && strings.TrimSpace(s) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Errorf("missing required parameter(s): %s", strings.Join(missing, ", "))
	}

	for key, val := range args {
		prop, declared := schema.Properties[key]
		if !declared || val == nil {
			continue
		}
		if err := checkType(key, val, prop.Type); err != nil {
			return nil, err
		}
	}
	return args, nil
}

func checkType(key string, val any, expected string) error {
	switch expected {
	case "string":
		if _, ok := val.(string); !ok {
			return errors.Errorf("parameter %q: expected string, got %T", key, val)
		}
	case "integer":
		f, ok := toFloat(val)
		if !ok {
			return errors.Errorf("parameter %q: expected integer, got %T", key, val)
		}
		if f != float64(int64(f)) {
			return errors.Errorf("parameter %q: expected integer, got %v", key, f)
		}
	case "number":
		if _, ok := toFloat(val); !ok {
			return errors.Errorf("parameter %q: expected number, got %T", key, val)
		}
	case "boolean":
		if _, ok := val.(bool); !ok {
			return errors.Errorf("parameter %q: expected boolean, got %T", key, val)
		}
	}
	return nil
}

// toFloat accepts the numeric shapes engines produce (JSON float64 or Go ints).
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

// intArg reads a numeric argument, clamped to [lo, hi]; def when absent.
func intArg(args map[string]any, key string, def, lo, hi int) int {
	n := def
	if f, ok := toFloat(args[key]); ok {
		n = int(f)
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
