package github

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Quota tracks GitHub's remaining request budget for the whole process.
// Every client request reserves one unit first; once the upstream reports
// the budget as spent, reservations fail fast until the reset time passes.
type Quota struct {
	mu        sync.Mutex
	known     bool
	limit     int
	remaining int
	reset     time.Time
	now       func() time.Time
}

// QuotaState is a point-in-time copy of Quota for logging and health output.
type QuotaState struct {
	Known     bool      `json:"known"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

// NewQuota returns a Quota with no upstream information yet.
func NewQuota() *Quota {
	return &Quota{now: time.Now}
}

// Reserve takes one request from the budget, or returns ErrRateLimited
// without touching the network when the budget is exhausted.
func (q *Quota) Reserve() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.known {
		return nil
	}
	if !q.now().Before(q.reset) {
		// window rolled over; wait for the next response to learn the new budget
		q.known = false
		return nil
	}
	if q.remaining <= 0 {
		return ErrRateLimited
	}
	q.remaining--
	return nil
}

// Update records the X-RateLimit-* headers of a response.
func (q *Quota) Update(h http.Header) {
	remaining, err := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	if err != nil {
		return
	}
	resetUnix, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return
	}
	limit, _ := strconv.Atoi(h.Get("X-RateLimit-Limit"))

	q.mu.Lock()
	defer q.mu.Unlock()
	q.known = true
	q.limit = limit
	q.remaining = remaining
	q.reset = time.Unix(resetUnix, 0)
}

// Exhaust marks the budget as spent until reset.
func (q *Quota) Exhaust(reset time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.known = true
	q.remaining = 0
	q.reset = reset
}

// Snapshot returns the current state.
func (q *Quota) Snapshot() QuotaState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QuotaState{Known: q.known, Limit: q.limit, Remaining: q.remaining, Reset: q.reset}
}
