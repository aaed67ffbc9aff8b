package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"

	"github.com/ahmednasr/recruiter-bot/internal/github"
	"github.com/ahmednasr/recruiter-bot/internal/models"
	"github.com/ahmednasr/recruiter-bot/internal/telemetry"
)

// DefaultApology is the user-facing text for turns that cannot complete.
const DefaultApology = "Sorry, I was unable to complete the analysis right now. Please try again a bit later."

var (
	// ErrEmptyMessage rejects blank user input before any work is done.
	ErrEmptyMessage = errors.New("empty message")
	// ErrToolLoopExceeded means the engine kept asking for tools past the round limit.
	ErrToolLoopExceeded = errors.New("tool loop exceeded")
	// ErrUpstreamUnavailable means GitHub kept failing within a single turn.
	ErrUpstreamUnavailable = errors.New("upstream repeatedly unavailable")
	errEmptyReply          = errors.New("engine returned an empty answer")
)

// upstreamFailureLimit is how many consecutive UpstreamUnavailable tool
// results end a turn.
const upstreamFailureLimit = 3

// TurnState is where a turn is in its lifecycle.
type TurnState string

const (
	StateAwaitingEngine TurnState = "awaiting_engine"
	StateExecutingTools TurnState = "executing_tools"
	StateFinalized      TurnState = "finalized"
	StateFailed         TurnState = "failed"
)

// Answer is the outcome of one turn.
type Answer struct {
	Text     string
	Subject  models.Handle // handle detected in the user text, if any
	State    TurnState
	Rounds   int  // tool-call rounds executed
	Replayed bool // served from an earlier delivery of the same message
}

// ToolCallContext is one pending call and the history slot its result fills.
type ToolCallContext struct {
	Call models.ToolCall
	Slot int
}

// Toolset is the catalog the orchestrator hands to the engine.
type Toolset interface {
	Specs() []ToolSpec
	Dispatch(ctx context.Context, call models.ToolCall) (models.ToolResult, error)
}

// ChatService drives conversation turns.
type ChatService interface {
	// Ask runs one turn. On ErrToolLoopExceeded, repeated upstream failures
	// or an engine failure the returned Answer carries the apology and the
	// error explains why. A cancelled turn commits nothing.
	Ask(ctx context.Context, conversationID, messageID, text string) (Answer, error)
	// Reset forgets the conversation.
	Reset(ctx context.Context, conversationID string) error
	// History returns the user-visible turns of the conversation.
	History(ctx context.Context, conversationID string) ([]models.HistoryEntry, error)
}

// ChatOptions tunes the orchestrator. Zero values select defaults.
type ChatOptions struct {
	MaxToolRounds      int
	MaxConcurrentTurns int64
	Apology            string
}

type chatService struct {
	engine Engine
	tools  Toolset
	store  SessionStore
	opts   ChatOptions
	turns  *semaphore.Weighted
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*conversationLock
}

type conversationLock struct {
	ch   chan struct{}
	refs int
}

// NewChatService wires dependencies and returns ChatService.
func NewChatService(engine Engine, tools Toolset, store SessionStore, opts ChatOptions) ChatService {
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = 10
	}
	if opts.MaxConcurrentTurns <= 0 {
		opts.MaxConcurrentTurns = 16
	}
	if opts.Apology == "" {
		opts.Apology = DefaultApology
	}
	return &chatService{
		engine: engine,
		tools:  tools,
		store:  store,
		opts:   opts,
		turns:  semaphore.NewWeighted(opts.MaxConcurrentTurns),
		now:    time.Now,
		locks:  make(map[string]*conversationLock),
	}
}

func (s *chatService) Ask(ctx context.Context, conversationID, messageID, text string) (ans Answer, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Answer{}, ErrEmptyMessage
	}
	ans.Subject, _ = github.FindHandle(text)

	ctx, span := telemetry.Tracer().Start(ctx, "chat.turn")
	span.SetAttributes(attribute.String("conversation", conversationID))
	defer func() {
		span.SetAttributes(attribute.String("state", string(ans.State)), attribute.Int("rounds", ans.Rounds))
		telemetry.RecordTurn(ctx, string(ans.State))
		telemetry.EndSpan(span, err)
	}()

	// queued turns of one conversation must not hold a turn slot
	unlock, err := s.lock(ctx, conversationID)
	if err != nil {
		return ans, errors.Wrap(err, "wait for conversation")
	}
	defer unlock()

	if err := s.turns.Acquire(ctx, 1); err != nil {
		return ans, errors.Wrap(err, "wait for turn slot")
	}
	defer s.turns.Release(1)

	sess, err := s.store.GetOrCreate(ctx, conversationID)
	if err != nil {
		return ans, errors.Wrap(err, "load session")
	}
	if cached, ok := sess.AnswerFor(messageID); ok {
		log.Printf("[Orchestrator] %s: message %s already answered, replaying", conversationID, messageID)
		ans.Text, ans.State, ans.Replayed = cached, StateFinalized, true
		return ans, nil
	}

	if ans.Subject != "" {
		log.Printf("[Orchestrator] %s: turn about %s", conversationID, ans.Subject)
	}
	user := models.Turn{Role: models.RoleUser, Content: text, MessageID: messageID, CreatedAt: s.now()}
	history := append(append([]models.Turn(nil), sess.Turns...), user)
	base := len(sess.Turns)

	history, err = s.run(ctx, sess.Preamble, history, &ans)
	if err != nil {
		if ctx.Err() != nil {
			log.Printf("[Orchestrator] %s: turn abandoned after %d rounds: %v", conversationID, ans.Rounds, err)
			ans.State = StateFailed
			return ans, err
		}
		log.Printf("[Orchestrator] %s: turn failed after %d rounds: %v", conversationID, ans.Rounds, err)
		apology := models.Turn{Role: models.RoleModel, Content: s.opts.Apology, CreatedAt: s.now()}
		if cerr := s.store.Append(context.WithoutCancel(ctx), conversationID, user, apology); cerr != nil {
			log.Printf("[Orchestrator] %s: commit apology: %v", conversationID, cerr)
		}
		ans.Text, ans.State = s.opts.Apology, StateFailed
		return ans, err
	}

	final := history[len(history)-1]
	// the turn is complete; a late cancellation must not lose it
	if err := s.store.Append(context.WithoutCancel(ctx), conversationID, history[base:]...); err != nil {
		ans.State = StateFailed
		return ans, errors.Wrap(err, "commit turn")
	}
	ans.Text, ans.State = final.Content, StateFinalized
	log.Printf("[Orchestrator] %s: finalized after %d rounds (%d chars)", conversationID, ans.Rounds, len(final.Content))
	return ans, nil
}

// run alternates engine calls and tool rounds until the engine answers in
// text. The returned history ends with the final model turn.
func (s *chatService) run(ctx context.Context, preamble string, history []models.Turn, ans *Answer) ([]models.Turn, error) {
	specs := s.tools.Specs()
	upstreamFailures := 0

	for {
		ans.State = StateAwaitingEngine
		reply, err := s.respond(ctx, EngineRequest{Preamble: preamble, History: history, Tools: specs})
		if err != nil {
			return nil, err
		}
		if len(reply.Calls) == 0 {
			if strings.TrimSpace(reply.Text) == "" {
				return nil, errEmptyReply
			}
			return append(history, models.Turn{Role: models.RoleModel, Content: reply.Text, CreatedAt: s.now()}), nil
		}
		if ans.Rounds >= s.opts.MaxToolRounds {
			return nil, errors.Wrapf(ErrToolLoopExceeded, "limit %d", s.opts.MaxToolRounds)
		}

		ans.Rounds++
		ans.State = StateExecutingTools
		calls := make([]models.ToolCall, len(reply.Calls))
		for i, c := range reply.Calls {
			if c.ID == "" {
				c.ID = fmt.Sprintf("call_%d_%d", ans.Rounds, i+1)
			}
			calls[i] = c
		}
		history = append(history, models.Turn{Role: models.RoleModel, Content: reply.Text, ToolCalls: calls, CreatedAt: s.now()})

		pending := make([]ToolCallContext, len(calls))
		for i, c := range calls {
			history = append(history, models.Turn{Role: models.RoleTool})
			pending[i] = ToolCallContext{Call: c, Slot: len(history) - 1}
		}

		// sequential, in the order the engine asked
		for _, p := range pending {
			res, derr := s.tools.Dispatch(ctx, p.Call)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			history[p.Slot] = models.Turn{Role: models.RoleTool, Content: res.Content, Result: &res, CreatedAt: s.now()}

			if errors.Is(derr, github.ErrUpstreamUnavailable) {
				upstreamFailures++
				if upstreamFailures >= upstreamFailureLimit {
					return nil, errors.Wrapf(ErrUpstreamUnavailable, "%d consecutive failures", upstreamFailures)
				}
				continue
			}
			upstreamFailures = 0
		}
	}
}

func (s *chatService) respond(ctx context.Context, req EngineRequest) (reply EngineReply, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "chat.engine")
	defer func() { telemetry.EndSpan(span, err) }()

	reply, err = s.engine.Respond(ctx, req)
	if err != nil {
		return EngineReply{}, errors.Wrap(err, "engine")
	}
	return reply, nil
}

func (s *chatService) Reset(ctx context.Context, conversationID string) error {
	unlock, err := s.lock(ctx, conversationID)
	if err != nil {
		return err
	}
	defer unlock()
	log.Printf("[Orchestrator] %s: reset", conversationID)
	return s.store.Reset(ctx, conversationID)
}

func (s *chatService) History(ctx context.Context, conversationID string) ([]models.HistoryEntry, error) {
	sess, err := s.store.GetOrCreate(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	out := make([]models.HistoryEntry, 0, len(sess.Turns))
	for _, t := range sess.Turns {
		if t.Role == models.RoleTool || len(t.ToolCalls) > 0 {
			continue
		}
		out = append(out, models.HistoryEntry{Role: t.Role, Content: t.Content})
	}
	return out, nil
}

// lock serialises turns of one conversation. Waiting honours ctx.
func (s *chatService) lock(ctx context.Context, id string) (func(), error) {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &conversationLock{ch: make(chan struct{}, 1)}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			s.release(id, l)
		}, nil
	case <-ctx.Done():
		s.release(id, l)
		return nil, ctx.Err()
	}
}

func (s *chatService) release(id string, l *conversationLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, id)
	}
}
