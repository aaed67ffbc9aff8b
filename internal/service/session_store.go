package service

import (
	"container/list"
	"context"
	"log"
	"sync"
	"time"

	"github.com/ahmednasr/recruiter-bot/internal/models"
)

// SessionStore owns conversation state. Implementations must be safe for
// concurrent use; the orchestrator serialises turns per conversation.
type SessionStore interface {
	// GetOrCreate returns a snapshot of the session, creating it with the
	// store's preamble on first use.
	GetOrCreate(ctx context.Context, conversationID string) (models.Session, error)
	// Append adds turns to the end of the session, in order.
	Append(ctx context.Context, conversationID string, turns ...models.Turn) error
	// Reset drops the session; the next GetOrCreate starts afresh.
	Reset(ctx context.Context, conversationID string) error
}

// memorySessionStore keeps sessions for the process lifetime. With
// maxSessions > 0 the least recently used session is evicted.
type memorySessionStore struct {
	mu          sync.Mutex
	preamble    string
	maxSessions int
	sessions    map[string]*list.Element // value: *models.Session
	lru         *list.List               // front = most recent
	now         func() time.Time
}

// NewMemorySessionStore returns the in-process store.
func NewMemorySessionStore(preamble string, maxSessions int) SessionStore {
	return &memorySessionStore{
		preamble:    preamble,
		maxSessions: maxSessions,
		sessions:    make(map[string]*list.Element),
		lru:         list.New(),
		now:         time.Now,
	}
}

func (s *memorySessionStore) GetOrCreate(_ context.Context, id string) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.touch(id)), nil
}

func (s *memorySessionStore) Append(_ context.Context, id string, turns ...models.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.touch(id)
	sess.Turns = append(sess.Turns, turns...)
	sess.UpdatedAt = s.now()
	return nil
}

func (s *memorySessionStore) Reset(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.sessions[id]; ok {
		s.lru.Remove(el)
		delete(s.sessions, id)
	}
	return nil
}

// touch returns the live session, creating it and evicting as needed.
// Callers hold s.mu.
func (s *memorySessionStore) touch(id string) *models.Session {
	if el, ok := s.sessions[id]; ok {
		s.lru.MoveToFront(el)
		return el.Value.(*models.Session)
	}
	now := s.now()
	sess := &models.Session{ID: id, Preamble: s.preamble, CreatedAt: now, UpdatedAt: now}
	s.sessions[id] = s.lru.PushFront(sess)

	for s.maxSessions > 0 && s.lru.Len() > s.maxSessions {
		oldest := s.lru.Back()
		evicted := s.lru.Remove(oldest).(*models.Session)
		delete(s.sessions, evicted.ID)
		log.Printf("[Session Store] evicted %s (idle since %s)", evicted.ID, evicted.UpdatedAt.Format(time.RFC3339))
	}
	return sess
}

// snapshot copies the turn slice so callers never alias store memory.
func snapshot(s *models.Session) models.Session {
	out := *s
	out.Turns = append([]models.Turn(nil), s.Turns...)
	return out
}
