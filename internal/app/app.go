// Package app assembles the core from configuration. Both the HTTP server
// and the terminal CLI start through it.
package app

import (
	"context"
	"io"
	"log"

	"github.com/go-faster/errors"

	"github.com/ahmednasr/recruiter-bot/internal/config"
	"github.com/ahmednasr/recruiter-bot/internal/database"
	"github.com/ahmednasr/recruiter-bot/internal/github"
	"github.com/ahmednasr/recruiter-bot/internal/handler"
	"github.com/ahmednasr/recruiter-bot/internal/repository"
	"github.com/ahmednasr/recruiter-bot/internal/service"
)

// App is the wired core plus what has to be closed on shutdown.
type App struct {
	Quota      *github.Quota
	Aggregator *github.Aggregator
	Tools      *service.ToolRegistry
	Store      service.SessionStore
	Chat       service.ChatService

	// StorePinger is nil for the in-memory store.
	StorePinger handler.Pinger

	closers []io.Closer
}

// Limits converts configuration into aggregator limits.
func Limits(cfg config.Config) github.Limits {
	return github.Limits{
		MaxRepos:        cfg.MaxRepos,
		TreeMaxDepth:    cfg.TreeMaxDepth,
		TreeMaxEntries:  cfg.TreeMaxEntries,
		TreeMaxRequests: cfg.TreeMaxRequests,
		SnippetMaxChars: cfg.SnippetMaxChars,
		SnippetCeiling:  int64(cfg.SnippetCeilingBytes),
	}
}

// NewAggregator builds the GitHub side only; it needs no engine or store.
func NewAggregator(cfg config.Config) (*github.Aggregator, *github.Quota) {
	quota := github.NewQuota()
	client := github.NewClient(cfg.GitHubAPIURL, cfg.GitHubToken, quota)
	return github.NewAggregator(client, Limits(cfg)), quota
}

// New wires every component. The engine is supplied by the caller so tests
// and tools can substitute it.
func New(ctx context.Context, cfg config.Config, engine service.Engine) (*App, error) {
	a := &App{}
	a.Aggregator, a.Quota = NewAggregator(cfg)
	a.Tools = service.NewToolRegistry(a.Aggregator, a.Aggregator.Limits())

	preamble := service.BuildPreamble(cfg.Language)
	if err := a.openStore(ctx, cfg, preamble); err != nil {
		return nil, err
	}

	a.Chat = service.NewChatService(engine, a.Tools, a.Store, service.ChatOptions{
		MaxToolRounds:      cfg.MaxToolRounds,
		MaxConcurrentTurns: int64(cfg.MaxConcurrentTurns),
	})
	return a, nil
}

// NewVertex creates the Vertex engine from configuration.
func NewVertex(ctx context.Context, cfg config.Config) (*service.VertexEngine, error) {
	cfg.RequireEngine()
	return service.NewVertexEngine(ctx, service.VertexConfig{
		ProjectID:       cfg.ProjectID,
		Location:        cfg.Location,
		Model:           cfg.Model,
		CredentialsFile: cfg.CredentialsFile,
	})
}

func (a *App) openStore(ctx context.Context, cfg config.Config, preamble string) error {
	switch cfg.SessionBackend {
	case config.BackendMongo:
		client, err := database.NewMongo(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, closerFunc(func() error {
			return client.Disconnect(context.Background())
		}))
		store := repository.NewSessionMongo(client.Database(cfg.DBName), preamble)
		a.Store, a.StorePinger = store, store

	case config.BackendSQLite:
		store, err := repository.OpenSessionSQLite(ctx, cfg.SQLitePath, preamble)
		if err != nil {
			return errors.Wrap(err, "open session store")
		}
		a.closers = append(a.closers, store)
		a.Store, a.StorePinger = store, store

	default:
		a.Store = service.NewMemorySessionStore(preamble, cfg.MaxSessions)
	}
	log.Printf("[App] session backend: %s", cfg.SessionBackend)
	return nil
}

// Close releases the session backend.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
