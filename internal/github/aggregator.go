package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"log"
	"path"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahmednasr/recruiter-bot/internal/models"
	"github.com/ahmednasr/recruiter-bot/internal/telemetry"
)

// TruncationMarker is appended to snippets that were cut at maxChars.
const TruncationMarker = "\n… [truncated]"

// Limits bounds every aggregator result.
type Limits struct {
	ScanRepos       int   // repositories read from the listing before ranking
	MaxRepos        int   // default maxCount for ListRepositories
	TreeMaxDepth    int   // default maxDepth for FetchTree
	TreeMaxEntries  int   // default maxEntries for FetchTree
	TreeMaxRequests int   // directory listings one tree walk may request
	SnippetMaxChars int   // default maxChars for FetchSnippet
	SnippetCeiling  int64 // raw file size above which content is never fetched
}

// DefaultLimits returns the limits used when configuration leaves them unset.
func DefaultLimits() Limits {
	return Limits{
		ScanRepos:       300,
		MaxRepos:        30,
		TreeMaxDepth:    3,
		TreeMaxEntries:  500,
		TreeMaxRequests: 20,
		SnippetMaxChars: 2000,
		SnippetCeiling:  1 << 20,
	}
}

// Aggregator condenses GitHub API responses into bounded summaries.
type Aggregator struct {
	client *Client
	limits Limits
	now    func() time.Time
}

// NewAggregator wires the client. Zero fields in limits take defaults.
func NewAggregator(client *Client, limits Limits) *Aggregator {
	def := DefaultLimits()
	if limits.ScanRepos <= 0 {
		limits.ScanRepos = def.ScanRepos
	}
	if limits.MaxRepos <= 0 {
		limits.MaxRepos = def.MaxRepos
	}
	if limits.TreeMaxDepth <= 0 {
		limits.TreeMaxDepth = def.TreeMaxDepth
	}
	if limits.TreeMaxEntries <= 0 {
		limits.TreeMaxEntries = def.TreeMaxEntries
	}
	if limits.TreeMaxRequests <= 0 {
		limits.TreeMaxRequests = def.TreeMaxRequests
	}
	if limits.SnippetMaxChars <= 0 {
		limits.SnippetMaxChars = def.SnippetMaxChars
	}
	if limits.SnippetCeiling <= 0 {
		limits.SnippetCeiling = def.SnippetCeiling
	}
	return &Aggregator{client: client, limits: limits, now: time.Now}
}

// Limits returns the effective limits.
func (a *Aggregator) Limits() Limits { return a.limits }

// FetchProfile returns the account snapshot in a single request.
func (a *Aggregator) FetchProfile(ctx context.Context, handle models.Handle) (p models.ProfileSummary, err error) {
	ctx, span := a.span(ctx, "github.fetch_profile", attribute.String("handle", string(handle)))
	defer func() { telemetry.EndSpan(span, err) }()

	u, err := a.client.GetUser(ctx, handle)
	if err != nil {
		return models.ProfileSummary{}, err
	}

	p = models.ProfileSummary{
		Handle:      models.Handle(strings.ToLower(u.Login)),
		DisplayName: u.Name,
		Bio:         strings.TrimSpace(u.Bio),
		Company:     u.Company,
		Location:    u.Location,
		Blog:        u.Blog,
		ProfileURL:  u.HTMLURL,
		PublicRepos: u.PublicRepos,
		Followers:   u.Followers,
		Following:   u.Following,
		CreatedAt:   u.CreatedAt,
	}
	if !u.CreatedAt.IsZero() {
		p.AccountAge = a.now().Sub(u.CreatedAt)
	}
	log.Printf("[Aggregator] profile %s: %d public repos, %d followers", p.Handle, p.PublicRepos, p.Followers)
	return p, nil
}

// ListRepositories returns at most maxCount repositories ranked by
// recency, then stars, then forks.
func (a *Aggregator) ListRepositories(ctx context.Context, handle models.Handle, maxCount int) (repos []models.RepositorySummary, err error) {
	if maxCount <= 0 {
		maxCount = a.limits.MaxRepos
	}
	ctx, span := a.span(ctx, "github.list_repositories",
		attribute.String("handle", string(handle)), attribute.Int("max_count", maxCount))
	defer func() { telemetry.EndSpan(span, err) }()

	raw, err := a.client.ListUserRepos(ctx, handle, max(a.limits.ScanRepos, maxCount))
	if err != nil {
		return nil, err
	}

	all := make([]models.RepositorySummary, 0, len(raw))
	for _, r := range raw {
		all = append(all, models.RepositorySummary{
			Name:        r.Name,
			FullName:    r.FullName,
			Language:    r.Language,
			Stars:       r.Stars,
			Forks:       r.Forks,
			PushedAt:    r.PushedAt,
			Description: strings.TrimSpace(r.Description),
			Fork:        r.Fork,
		})
	}

	ranked := Rank(all, a.now())
	if len(ranked) > maxCount {
		ranked = ranked[:maxCount]
	}
	log.Printf("[Aggregator] ranked %d of %d repositories for %s", len(ranked), len(all), handle)
	return ranked, nil
}

// FetchTree walks the repository breadth first. It never descends below
// maxDepth (root entries have depth 0) and stops after maxEntries nodes.
// File contents are never fetched.
func (a *Aggregator) FetchTree(ctx context.Context, ref models.RepoRef, maxDepth, maxEntries int) (tree models.FileTree, err error) {
	if maxDepth < 0 {
		maxDepth = a.limits.TreeMaxDepth
	}
	if maxEntries <= 0 {
		maxEntries = a.limits.TreeMaxEntries
	}
	ctx, span := a.span(ctx, "github.fetch_tree", attribute.String("repo", ref.String()),
		attribute.Int("max_depth", maxDepth), attribute.Int("max_entries", maxEntries))
	defer func() { telemetry.EndSpan(span, err) }()

	tree = models.FileTree{Repo: ref}
	exhausted, err := a.walk(ctx, ref, maxDepth, func(n models.FileTreeNode) bool {
		if len(tree.Nodes) >= maxEntries {
			tree.Truncated = true
			return false
		}
		tree.Nodes = append(tree.Nodes, n)
		return true
	})
	if err != nil {
		return models.FileTree{}, err
	}
	if exhausted {
		tree.Truncated = true
	}
	log.Printf("[Aggregator] tree %s: %d nodes (truncated=%t)", ref, len(tree.Nodes), tree.Truncated)
	return tree, nil
}

// FetchSnippet returns the text of a file cut to maxChars runes, followed by
// TruncationMarker when anything was cut. Files larger than the configured
// ceiling fail with ErrTooLarge before their content is decoded.
func (a *Aggregator) FetchSnippet(ctx context.Context, ref models.RepoRef, filePath string, maxChars int) (s models.Snippet, err error) {
	if maxChars <= 0 {
		maxChars = a.limits.SnippetMaxChars
	}
	ctx, span := a.span(ctx, "github.fetch_snippet",
		attribute.String("repo", ref.String()), attribute.String("path", filePath))
	defer func() { telemetry.EndSpan(span, err) }()

	_, file, dir, err := a.client.GetContents(ctx, ref, filePath)
	if err != nil {
		return models.Snippet{}, err
	}
	if dir || file.Type != "file" {
		return models.Snippet{}, errors.Wrapf(ErrNotAFile, "%s/%s", ref, filePath)
	}
	if file.Size > a.limits.SnippetCeiling {
		return models.Snippet{}, errors.Wrapf(ErrTooLarge, "%s/%s is %d bytes", ref, filePath, file.Size)
	}
	if file.Encoding != "base64" {
		// GitHub omits inline content for blobs it considers large.
		return models.Snippet{}, errors.Wrapf(ErrTooLarge, "%s/%s has no inline content", ref, filePath)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(file.Content, "\n", ""))
	if err != nil {
		return models.Snippet{}, errors.Wrapf(ErrUpstreamUnavailable, "decode %s: %v", filePath, err)
	}

	s = models.Snippet{Repo: ref, Path: file.Path, Size: file.Size}
	if s.Path == "" {
		s.Path = filePath
	}
	if bytes.IndexByte(raw, 0) >= 0 {
		s.Binary = true
		return s, nil
	}
	s.Content, s.Truncated = Truncate(strings.ToValidUTF8(string(raw), "�"), maxChars)
	return s, nil
}

// InspectOptions bounds InspectRepository.
type InspectOptions struct {
	MaxFiles   int
	MaxChars   int
	PathFilter string
}

// InspectRepository samples source files breadth first and returns their
// snippets. Files whose size exceeds four times MaxChars are skipped, as are
// files without a recognised source extension.
func (a *Aggregator) InspectRepository(ctx context.Context, ref models.RepoRef, opts InspectOptions) (ins models.Inspection, err error) {
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = 10
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = 1500
	}
	filter := strings.ToLower(opts.PathFilter)
	ctx, span := a.span(ctx, "github.inspect_repository",
		attribute.String("repo", ref.String()), attribute.Int("max_files", opts.MaxFiles))
	defer func() { telemetry.EndSpan(span, err) }()

	ins = models.Inspection{Repo: ref}
	var candidates []models.FileTreeNode
	_, err = a.walk(ctx, ref, a.limits.TreeMaxDepth, func(n models.FileTreeNode) bool {
		ins.Visited++
		if ins.Visited > a.limits.TreeMaxEntries || len(candidates) >= opts.MaxFiles {
			return false
		}
		if n.Kind != models.NodeFile || n.Size > int64(opts.MaxChars*4) || !isSourceFile(n.Path) {
			return true
		}
		if filter != "" && !strings.Contains(strings.ToLower(n.Path), filter) {
			return true
		}
		candidates = append(candidates, n)
		return true
	})
	if err != nil {
		return models.Inspection{}, err
	}

	for _, n := range candidates {
		s, err := a.FetchSnippet(ctx, ref, n.Path, opts.MaxChars)
		switch {
		case err == nil:
			if !s.Binary {
				ins.Snippets = append(ins.Snippets, s)
			}
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotAFile), errors.Is(err, ErrTooLarge):
			continue
		default:
			return models.Inspection{}, err
		}
	}
	log.Printf("[Aggregator] inspected %s: %d snippets from %d nodes", ref, len(ins.Snippets), ins.Visited)
	return ins, nil
}

// walk visits tree nodes breadth first, directories before files within a
// level, until visit returns false. One request is made per directory and at
// most TreeMaxRequests per walk; exhausted reports that directories were left
// unlisted because of that budget.
func (a *Aggregator) walk(ctx context.Context, ref models.RepoRef, maxDepth int, visit func(models.FileTreeNode) bool) (exhausted bool, err error) {
	queue := []string{""}
	requests := 0
	for len(queue) > 0 {
		if requests >= a.limits.TreeMaxRequests {
			log.Printf("[Aggregator] walk %s: request budget %d spent, %d directories unlisted", ref, requests, len(queue))
			return true, nil
		}
		dir := queue[0]
		queue = queue[1:]

		requests++
		entries, _, isDir, err := a.client.GetContents(ctx, ref, dir)
		if err != nil {
			if dir != "" && errors.Is(err, ErrNotFound) {
				continue
			}
			return false, err
		}
		if !isDir {
			if dir == "" {
				return false, errors.Wrapf(ErrNotFound, "%s has no root directory", ref)
			}
			continue
		}

		sort.Slice(entries, func(i, j int) bool {
			if (entries[i].Type == "dir") != (entries[j].Type == "dir") {
				return entries[i].Type == "dir"
			}
			return entries[i].Path < entries[j].Path
		})

		for _, e := range entries {
			depth := strings.Count(e.Path, "/")
			if depth > maxDepth {
				continue
			}
			kind := models.NodeFile
			if e.Type == "dir" {
				kind = models.NodeDir
			}
			if !visit(models.FileTreeNode{Path: e.Path, Kind: kind, Size: e.Size, Depth: depth}) {
				return false, nil
			}
			if kind == models.NodeDir && depth < maxDepth {
				queue = append(queue, e.Path)
			}
		}
	}
	return false, nil
}

func (a *Aggregator) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return telemetry.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// Truncate cuts s to maxChars runes and appends TruncationMarker if it cut.
func Truncate(s string, maxChars int) (string, bool) {
	if maxChars < 0 {
		maxChars = 0
	}
	if utf8.RuneCountInString(s) <= maxChars {
		return s, false
	}
	n := 0
	for i := range s {
		if n == maxChars {
			return s[:i] + TruncationMarker, true
		}
		n++
	}
	return s, false
}

var sourceExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".tsx": true, ".jsx": true,
	".java": true, ".go": true, ".rs": true, ".rb": true, ".php": true,
	".cs": true, ".cpp": true, ".cc": true, ".c": true, ".h": true, ".hpp": true,
	".scala": true, ".kt": true, ".swift": true, ".dart": true,
	".sh": true, ".ps1": true, ".bash": true,
	".sql": true,
	".yaml": true, ".yml": true, ".toml": true, ".ini": true,
	".ipynb": true,
}

func isSourceFile(p string) bool {
	return sourceExtensions[strings.ToLower(path.Ext(p))]
}
