package github

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Aggregator failures. Callers match them with errors.Is.
var (
	ErrNotFound            = errors.New("github: not found")
	ErrRateLimited         = errors.New("github: rate limit exhausted")
	ErrUpstreamUnavailable = errors.New("github: upstream unavailable")
	ErrTooLarge            = errors.New("github: file exceeds size ceiling")
	ErrNotAFile            = errors.New("github: path is not a file")
)

// ResolutionKind classifies why a piece of user text is not a handle.
type ResolutionKind string

const (
	ResolutionEmpty             ResolutionKind = "empty"
	ResolutionInvalidCharacters ResolutionKind = "invalid_characters"
	ResolutionAmbiguousTarget   ResolutionKind = "ambiguous_target"
)

// ResolutionError reports a failed handle normalisation. For
// AmbiguousTarget, Handle and Repository carry what was recognised so the
// caller can decide whether to use them.
type ResolutionError struct {
	Kind       ResolutionKind
	Input      string
	Handle     string
	Repository string
}

func (e *ResolutionError) Error() string {
	switch e.Kind {
	case ResolutionEmpty:
		return "resolve handle: empty input"
	case ResolutionAmbiguousTarget:
		return fmt.Sprintf("resolve handle: %q points below the account (%s/%s)", e.Input, e.Handle, e.Repository)
	default:
		return fmt.Sprintf("resolve handle: %q contains invalid characters", e.Input)
	}
}

// IsResolution reports whether err is a ResolutionError of the given kind.
func IsResolution(err error, kind ResolutionKind) bool {
	var re *ResolutionError
	return errors.As(err, &re) && re.Kind == kind
}
