package service

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/ahmednasr/recruiter-bot/internal/github"
	"github.com/ahmednasr/recruiter-bot/internal/models"
)

// scriptedEngine replays a fixed list of replies and records every request.
type scriptedEngine struct {
	mu       sync.Mutex
	replies  []EngineReply
	err      error
	requests []EngineRequest
	// block, when set, makes Respond wait until ctx is done.
	block bool
}

func (e *scriptedEngine) Respond(ctx context.Context, req EngineRequest) (EngineReply, error) {
	e.mu.Lock()
	req.History = append([]models.Turn(nil), req.History...)
	e.requests = append(e.requests, req)
	e.mu.Unlock()

	if e.block {
		<-ctx.Done()
		return EngineReply{}, ctx.Err()
	}
	if e.err != nil {
		return EngineReply{}, e.err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.replies) == 0 {
		return EngineReply{Text: "done"}, nil
	}
	r := e.replies[0]
	e.replies = e.replies[1:]
	return r, nil
}

func (e *scriptedEngine) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.requests)
}

func call(name string, args map[string]any) models.ToolCall {
	return models.ToolCall{Name: name, Arguments: args}
}

// fakeAggregator answers from fixed data and logs each operation.
type fakeAggregator struct {
	mu    sync.Mutex
	log   []string
	err   error // returned by every operation when set
	repos []models.RepositorySummary

	lastMaxCount int
	lastInspect  github.InspectOptions
}

func (f *fakeAggregator) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, op)
	return f.err
}

func (f *fakeAggregator) FetchProfile(_ context.Context, h models.Handle) (models.ProfileSummary, error) {
	if err := f.record("profile:" + h.String()); err != nil {
		return models.ProfileSummary{}, err
	}
	if h != "octocat" {
		return models.ProfileSummary{}, errors.Wrap(github.ErrNotFound, h.String())
	}
	return models.ProfileSummary{
		Handle:      h,
		DisplayName: "The Octocat",
		PublicRepos: 8,
		Followers:   1000,
		CreatedAt:   time.Date(2011, 1, 25, 0, 0, 0, 0, time.UTC),
		AccountAge:  5 * 365 * 24 * time.Hour,
	}, nil
}

func (f *fakeAggregator) ListRepositories(_ context.Context, h models.Handle, maxCount int) ([]models.RepositorySummary, error) {
	if err := f.record("repos:" + h.String()); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.lastMaxCount = maxCount
	f.mu.Unlock()
	if h != "octocat" {
		return nil, errors.Wrap(github.ErrNotFound, h.String())
	}
	if maxCount < len(f.repos) {
		return f.repos[:maxCount], nil
	}
	return f.repos, nil
}

func (f *fakeAggregator) FetchTree(_ context.Context, ref models.RepoRef, _, _ int) (models.FileTree, error) {
	if err := f.record("tree:" + ref.String()); err != nil {
		return models.FileTree{}, err
	}
	return models.FileTree{Repo: ref, Nodes: []models.FileTreeNode{
		{Path: "src", Kind: models.NodeDir},
		{Path: "README.md", Kind: models.NodeFile, Size: 12},
		{Path: "src/main.go", Kind: models.NodeFile, Size: 40, Depth: 1},
	}}, nil
}

func (f *fakeAggregator) FetchSnippet(_ context.Context, ref models.RepoRef, path string, _ int) (models.Snippet, error) {
	if err := f.record("snippet:" + ref.String() + "/" + path); err != nil {
		return models.Snippet{}, err
	}
	if path == "src" {
		return models.Snippet{}, errors.Wrap(github.ErrNotAFile, path)
	}
	return models.Snippet{Repo: ref, Path: path, Size: 12, Content: "# Hello World"}, nil
}

func (f *fakeAggregator) InspectRepository(_ context.Context, ref models.RepoRef, opts github.InspectOptions) (models.Inspection, error) {
	if err := f.record("inspect:" + ref.String()); err != nil {
		return models.Inspection{}, err
	}
	f.mu.Lock()
	f.lastInspect = opts
	f.mu.Unlock()
	return models.Inspection{Repo: ref, Visited: 3, Snippets: []models.Snippet{
		{Repo: ref, Path: "src/main.go", Size: 40, Content: "package main"},
	}}, nil
}

func (f *fakeAggregator) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.log...)
}

func octocatRepos() []models.RepositorySummary {
	now := time.Now()
	return []models.RepositorySummary{
		{Name: "hello-world", FullName: "octocat/hello-world", Language: "Go", Stars: 10, PushedAt: now},
		{Name: "spoon-knife", FullName: "octocat/spoon-knife", Language: "HTML", Stars: 5, PushedAt: now.Add(-time.Hour)},
		{Name: "linguist", FullName: "octocat/linguist", Language: "Ruby", Stars: 3, Fork: true, PushedAt: now.Add(-2 * time.Hour)},
		{Name: "git-consortium", FullName: "octocat/git-consortium", Language: "Go", PushedAt: now.Add(-3 * time.Hour)},
		{Name: "test-repo1", FullName: "octocat/test-repo1", PushedAt: now.Add(-4 * time.Hour)},
		{Name: "boysenberry", FullName: "octocat/boysenberry", PushedAt: now.Add(-5 * time.Hour)},
	}
}

func newTestService(engine Engine, agg Aggregator, opts ChatOptions) (ChatService, SessionStore) {
	store := NewMemorySessionStore(BuildPreamble("English"), 0)
	reg := NewToolRegistry(agg, github.DefaultLimits())
	return NewChatService(engine, reg, store, opts), store
}
