package service

import (
	"context"
	"log"
	"strings"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahmednasr/recruiter-bot/internal/github"
	"github.com/ahmednasr/recruiter-bot/internal/models"
	"github.com/ahmednasr/recruiter-bot/internal/telemetry"
)

// Tool names form the stable function-calling contract.
const (
	ToolGetProfile        = "get_profile"
	ToolListRepositories  = "list_repositories"
	ToolGetFileTree       = "get_file_tree"
	ToolGetFileSnippet    = "get_file_snippet"
	ToolInspectRepository = "inspect_repository"
)

// ---- Aggregator contract ---------------------------------------------------

// Aggregator is the GitHub data source behind the tools.
type Aggregator interface {
	FetchProfile(ctx context.Context, handle models.Handle) (models.ProfileSummary, error)
	ListRepositories(ctx context.Context, handle models.Handle, maxCount int) ([]models.RepositorySummary, error)
	FetchTree(ctx context.Context, ref models.RepoRef, maxDepth, maxEntries int) (models.FileTree, error)
	FetchSnippet(ctx context.Context, ref models.RepoRef, path string, maxChars int) (models.Snippet, error)
	InspectRepository(ctx context.Context, ref models.RepoRef, opts github.InspectOptions) (models.Inspection, error)
}

// ---- Errors ----------------------------------------------------------------

// ToolErrorKind classifies a failed dispatch.
type ToolErrorKind string

const (
	ToolInvalidArguments ToolErrorKind = "invalid_arguments"
	ToolUnknown          ToolErrorKind = "unknown_tool"
	ToolFailed           ToolErrorKind = "failed"
)

// ToolError is a failed dispatch. Message is the short text the engine sees;
// Err keeps the underlying cause for logs and errors.Is.
type ToolError struct {
	Kind    ToolErrorKind
	Message string
	Err     error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *ToolError) Unwrap() error { return e.Err }

// ---- Registry --------------------------------------------------------------

type toolHandler func(ctx context.Context, args map[string]any) (string, error)

type toolEntry struct {
	spec    ToolSpec
	handler toolHandler
}

// ToolRegistry is the fixed catalog of tools exposed to the engine.
type ToolRegistry struct {
	agg    Aggregator
	limits github.Limits
	tools  []toolEntry
	byName map[string]int
}

// NewToolRegistry builds the catalog around agg.
func NewToolRegistry(agg Aggregator, limits github.Limits) *ToolRegistry {
	r := &ToolRegistry{agg: agg, limits: limits, byName: map[string]int{}}
	r.register(profileSpec(), r.getProfile)
	r.register(listRepositoriesSpec(limits), r.listRepositories)
	r.register(fileTreeSpec(limits), r.getFileTree)
	r.register(fileSnippetSpec(limits), r.getFileSnippet)
	r.register(inspectSpec(limits), r.inspectRepository)
	return r
}

func (r *ToolRegistry) register(spec ToolSpec, h toolHandler) {
	r.byName[spec.Name] = len(r.tools)
	r.tools = append(r.tools, toolEntry{spec: spec, handler: h})
}

// Specs returns the catalog in registration order.
func (r *ToolRegistry) Specs() []ToolSpec {
	out := make([]ToolSpec, len(r.tools))
	for i, t := range r.tools {
		out[i] = t.spec
	}
	return out
}

// Dispatch validates and runs one call. The returned result is always
// suitable to hand back to the engine; on failure its content is a short
// message and the returned error explains the cause to the caller.
func (r *ToolRegistry) Dispatch(ctx context.Context, call models.ToolCall) (models.ToolResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "tool."+call.Name,
		trace.WithAttributes(attribute.String("tool", call.Name)))

	res := models.ToolResult{CallID: call.ID, Name: call.Name}
	content, err := r.run(ctx, call)
	if err != nil {
		var te *ToolError
		if !errors.As(err, &te) {
			te = &ToolError{Kind: ToolFailed, Message: describeFailure(err), Err: err}
		}
		res.Content, res.IsError = te.Message, true
		log.Printf("[Tool Registry] %s failed: %v", call.Name, te)
		telemetry.RecordToolCall(ctx, call.Name, string(te.Kind))
		telemetry.EndSpan(span, te)
		return res, te
	}

	res.Content = content
	log.Printf("[Tool Registry] %s ok (%d chars)", call.Name, len(content))
	telemetry.RecordToolCall(ctx, call.Name, "ok")
	telemetry.EndSpan(span, nil)
	return res, nil
}

func (r *ToolRegistry) run(ctx context.Context, call models.ToolCall) (string, error) {
	idx, ok := r.byName[call.Name]
	if !ok {
		return "", &ToolError{Kind: ToolUnknown, Message: "unknown operation " + call.Name}
	}
	entry := r.tools[idx]
	log.Printf("[Tool Registry] dispatching %s args=%v", call.Name, call.Arguments)

	args, err := ValidateArgs(entry.spec.Parameters, call.Arguments)
	if err != nil {
		return "", &ToolError{Kind: ToolInvalidArguments, Message: "invalid arguments: " + err.Error(), Err: err}
	}
	return entry.handler(ctx, args)
}

// describeFailure maps aggregator failures onto short engine-readable text.
func describeFailure(err error) string {
	switch {
	case errors.Is(err, github.ErrRateLimited):
		return "rate limited, try later"
	case errors.Is(err, github.ErrNotFound):
		return "not found"
	case errors.Is(err, github.ErrTooLarge):
		return "file too large to read"
	case errors.Is(err, github.ErrNotAFile):
		return "path is a directory, not a file"
	case errors.Is(err, github.ErrUpstreamUnavailable):
		return "GitHub is temporarily unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "request timed out"
	default:
		return "request failed"
	}
}

// ---- Argument helpers ------------------------------------------------------

func (r *ToolRegistry) handleArg(args map[string]any) (models.Handle, error) {
	h, err := github.ResolveHandle(stringArg(args, "username"))
	if err == nil {
		return h, nil
	}
	var re *github.ResolutionError
	if errors.As(err, &re) && re.Kind == github.ResolutionAmbiguousTarget {
		// a repository URL still names its owner
		return models.Handle(re.Handle), nil
	}
	return "", invalidArgs(err)
}

func (r *ToolRegistry) repoArg(args map[string]any) (models.RepoRef, error) {
	var owner models.Handle
	if u := stringArg(args, "username"); u != "" {
		h, err := r.handleArg(args)
		if err != nil {
			return models.RepoRef{}, err
		}
		owner = h
	}
	ref, err := github.ResolveRepository(stringArg(args, "repository"), owner)
	if err != nil {
		return models.RepoRef{}, invalidArgs(err)
	}
	return ref, nil
}

func invalidArgs(err error) *ToolError {
	msg := err.Error()
	var re *github.ResolutionError
	if errors.As(err, &re) {
		switch re.Kind {
		case github.ResolutionEmpty:
			msg = "value is empty"
		case github.ResolutionInvalidCharacters:
			msg = "not a valid GitHub name: " + strings.TrimSpace(re.Input)
		}
	}
	return &ToolError{Kind: ToolInvalidArguments, Message: "invalid arguments: " + msg, Err: err}
}

// accountFailure rewords NotFound for account lookups.
func accountFailure(err error) error {
	if errors.Is(err, github.ErrNotFound) {
		return &ToolError{Kind: ToolFailed, Message: "account not found", Err: err}
	}
	return err
}

// repoFailure rewords NotFound for repository lookups.
func repoFailure(err error) error {
	if errors.Is(err, github.ErrNotFound) {
		return &ToolError{Kind: ToolFailed, Message: "repository or path not found", Err: err}
	}
	return err
}

// ---- Handlers --------------------------------------------------------------

// portfolioSample is how many ranked repositories back the profile overview.
const portfolioSample = 10

// Defaults for omitted arguments; intArg clamps them to the configured limits.
const (
	defaultRepoCount    = 10
	defaultInspectChars = 1500
	minInspectChars     = 100
)

func (r *ToolRegistry) getProfile(ctx context.Context, args map[string]any) (string, error) {
	h, err := r.handleArg(args)
	if err != nil {
		return "", err
	}
	p, err := r.agg.FetchProfile(ctx, h)
	if err != nil {
		return "", accountFailure(err)
	}
	repos, err := r.agg.ListRepositories(ctx, h, portfolioSample)
	if err != nil {
		return "", accountFailure(err)
	}
	return formatProfile(p, repos), nil
}

func (r *ToolRegistry) listRepositories(ctx context.Context, args map[string]any) (string, error) {
	h, err := r.handleArg(args)
	if err != nil {
		return "", err
	}
	maxCount := intArg(args, "max_count", defaultRepoCount, 1, r.limits.MaxRepos)
	repos, err := r.agg.ListRepositories(ctx, h, maxCount)
	if err != nil {
		return "", accountFailure(err)
	}
	return formatRepositories(h, repos), nil
}

func (r *ToolRegistry) getFileTree(ctx context.Context, args map[string]any) (string, error) {
	ref, err := r.repoArg(args)
	if err != nil {
		return "", err
	}
	depth := intArg(args, "max_depth", r.limits.TreeMaxDepth, 0, r.limits.TreeMaxDepth)
	entries := intArg(args, "max_entries", r.limits.TreeMaxEntries, 1, r.limits.TreeMaxEntries)
	tree, err := r.agg.FetchTree(ctx, ref, depth, entries)
	if err != nil {
		return "", repoFailure(err)
	}
	return formatTree(tree, depth, entries), nil
}

func (r *ToolRegistry) getFileSnippet(ctx context.Context, args map[string]any) (string, error) {
	ref, err := r.repoArg(args)
	if err != nil {
		return "", err
	}
	maxChars := intArg(args, "max_chars", r.limits.SnippetMaxChars, 1, r.limits.SnippetMaxChars)
	s, err := r.agg.FetchSnippet(ctx, ref, strings.Trim(stringArg(args, "path"), "/"), maxChars)
	if err != nil {
		return "", repoFailure(err)
	}
	return formatSnippet(s), nil
}

func (r *ToolRegistry) inspectRepository(ctx context.Context, args map[string]any) (string, error) {
	ref, err := r.repoArg(args)
	if err != nil {
		return "", err
	}
	opts := github.InspectOptions{
		MaxFiles:   intArg(args, "max_files", 10, 1, 30),
		MaxChars:   intArg(args, "max_chars", defaultInspectChars, minInspectChars, r.limits.SnippetMaxChars),
		PathFilter: stringArg(args, "path_filter"),
	}
	ins, err := r.agg.InspectRepository(ctx, ref, opts)
	if err != nil {
		return "", repoFailure(err)
	}
	return formatInspection(ins), nil
}
