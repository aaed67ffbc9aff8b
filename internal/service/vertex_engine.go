package service

import (
	"context"
	"log"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/go-faster/errors"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ahmednasr/recruiter-bot/internal/models"
)

// VertexConfig selects the Gemini deployment behind VertexEngine.
type VertexConfig struct {
	ProjectID       string
	Location        string
	Model           string
	CredentialsFile string
	Temperature     float32
}

// VertexEngine implements Engine with Gemini function calling on Vertex AI.
type VertexEngine struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewVertexEngine creates the Vertex AI client.
func NewVertexEngine(ctx context.Context, cfg VertexConfig) (*VertexEngine, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Location, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create Vertex AI client")
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.4
	}
	log.Printf("[Vertex Engine] using %s in %s/%s", cfg.Model, cfg.ProjectID, cfg.Location)
	return &VertexEngine{client: client, model: cfg.Model, temperature: cfg.Temperature}, nil
}

// Respond sends the whole history as a chat and maps the first candidate
// back to text or tool calls.
func (e *VertexEngine) Respond(ctx context.Context, req EngineRequest) (EngineReply, error) {
	contents := toGenaiContents(req.History)
	if len(contents) == 0 {
		return EngineReply{}, errors.New("empty history")
	}

	m := e.client.GenerativeModel(e.model)
	m.SetTemperature(e.temperature)
	if req.Preamble != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.Preamble)}}
	}
	if len(req.Tools) > 0 {
		m.Tools = toGenaiTools(req.Tools)
	}

	cs := m.StartChat()
	cs.History = contents[:len(contents)-1]
	resp, err := cs.SendMessage(ctx, contents[len(contents)-1].Parts...)
	if err != nil {
		return EngineReply{}, errors.Wrap(err, "generate content")
	}
	return fromGenaiResponse(resp)
}

// Close closes the Vertex AI client.
func (e *VertexEngine) Close() error {
	return e.client.Close()
}

func toGenaiTools(specs []ToolSpec) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, s := range specs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  toGenaiSchema(s.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func toGenaiSchema(in InputSchema) *genai.Schema {
	out := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(in.Properties)),
		Required:   in.Required,
	}
	for name, p := range in.Properties {
		out.Properties[name] = &genai.Schema{Type: schemaType(p.Type), Description: p.Description}
	}
	return out
}

func schemaType(t string) genai.Type {
	switch t {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeString
	}
}

// toGenaiContents maps turns onto Gemini roles. Consecutive tool turns are
// folded into one user content of function responses, which is how Gemini
// expects the answers to a round of calls.
func toGenaiContents(turns []models.Turn) []*genai.Content {
	var out []*genai.Content
	for _, t := range turns {
		switch t.Role {
		case models.RoleUser:
			out = append(out, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(t.Content)}})

		case models.RoleModel:
			c := &genai.Content{Role: "model"}
			if t.Content != "" {
				c.Parts = append(c.Parts, genai.Text(t.Content))
			}
			for _, call := range t.ToolCalls {
				c.Parts = append(c.Parts, genai.FunctionCall{Name: call.Name, Args: call.Arguments})
			}
			if len(c.Parts) > 0 {
				out = append(out, c)
			}

		case models.RoleTool:
			part := toolResponse(t)
			if n := len(out); n > 0 && out[n-1].Role == "user" && isFunctionResponses(out[n-1]) {
				out[n-1].Parts = append(out[n-1].Parts, part)
				continue
			}
			out = append(out, &genai.Content{Role: "user", Parts: []genai.Part{part}})
		}
	}
	return out
}

func toolResponse(t models.Turn) genai.FunctionResponse {
	name, isErr := "", false
	if t.Result != nil {
		name, isErr = t.Result.Name, t.Result.IsError
	}
	resp := map[string]any{"content": t.Content}
	if isErr {
		resp["error"] = true
	}
	return genai.FunctionResponse{Name: name, Response: resp}
}

func isFunctionResponses(c *genai.Content) bool {
	for _, p := range c.Parts {
		if _, ok := p.(genai.FunctionResponse); !ok {
			return false
		}
	}
	return len(c.Parts) > 0
}

func fromGenaiResponse(resp *genai.GenerateContentResponse) (EngineReply, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return EngineReply{}, errors.New("no response generated")
	}

	var (
		reply EngineReply
		text  []string
	)
	for _, p := range resp.Candidates[0].Content.Parts {
		switch v := p.(type) {
		case genai.Text:
			text = append(text, string(v))
		case genai.FunctionCall:
			call, err := toToolCall(v)
			if err != nil {
				return EngineReply{}, err
			}
			reply.Calls = append(reply.Calls, call)
		case *genai.FunctionCall:
			call, err := toToolCall(*v)
			if err != nil {
				return EngineReply{}, err
			}
			reply.Calls = append(reply.Calls, call)
		}
	}
	reply.Text = strings.TrimSpace(strings.Join(text, ""))
	return reply, nil
}

// toToolCall normalises the engine's arguments to plain JSON value types.
func toToolCall(fc genai.FunctionCall) (models.ToolCall, error) {
	args := map[string]any{}
	if len(fc.Args) > 0 {
		st, err := structpb.NewStruct(fc.Args)
		if err != nil {
			return models.ToolCall{}, errors.Wrapf(err, "arguments of %s", fc.Name)
		}
		args = st.AsMap()
	}
	return models.ToolCall{Name: fc.Name, Arguments: args}, nil
}
