package github

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/go-faster/errors"

	"github.com/ahmednasr/recruiter-bot/internal/telemetry"
	"github.com/ahmednasr/recruiter-bot/internal/telemetry/telemetrytest"
)

func TestQuota_ReserveAndUpdate(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	q := &Quota{now: func() time.Time { return now }}

	if err := q.Reserve(); err != nil {
		t.Fatalf("unknown quota should allow requests: %v", err)
	}

	h := http.Header{}
	h.Set("X-RateLimit-Limit", "60")
	h.Set("X-RateLimit-Remaining", "2")
	h.Set("X-RateLimit-Reset", strconv.FormatInt(now.Add(time.Hour).Unix(), 10))
	q.Update(h)

	for i := 0; i < 2; i++ {
		if err := q.Reserve(); err != nil {
			t.Fatalf("reserve %d: %v", i, err)
		}
	}
	if err := q.Reserve(); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	now = now.Add(2 * time.Hour)
	if err := q.Reserve(); err != nil {
		t.Errorf("quota should reopen after reset: %v", err)
	}
}

func TestQuota_ExhaustedFailsWithoutNetwork(t *testing.T) {
	f := newFakeGitHub()
	f.users["octocat"] = apiUser{Login: "octocat"}
	_, agg := f.start(t)
	agg.client.Quota().Exhaust(time.Now().Add(time.Hour))
	capture := telemetrytest.Start(t)

	ctx := context.Background()
	if _, err := agg.FetchProfile(ctx, "octocat"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("FetchProfile: expected ErrRateLimited, got %v", err)
	}
	if _, err := agg.ListRepositories(ctx, "octocat", 5); !errors.Is(err, ErrRateLimited) {
		t.Errorf("ListRepositories: expected ErrRateLimited, got %v", err)
	}
	if got := f.hits.Load(); got != 0 {
		t.Errorf("expected no upstream requests, got %d", got)
	}
	if got := capture.Count(telemetry.MetricRateLimited); got != 2 {
		t.Errorf("rate-limited counter = %d, want 2", got)
	}
}

func TestClient_ZeroRemainingBlocksNextRequest(t *testing.T) {
	f := newFakeGitHub()
	f.rateHeaders = map[string]string{
		"X-RateLimit-Limit":     "60",
		"X-RateLimit-Remaining": "0",
		"X-RateLimit-Reset":     strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10),
	}
	srv, _ := f.start(t)

	f.users["octocat"] = apiUser{Login: "octocat"}
	client := NewClient(srv.URL, "", NewQuota())
	forbidden := &http.Response{StatusCode: http.StatusForbidden, Header: http.Header{}}
	forbidden.Header.Set("X-RateLimit-Remaining", "0")
	if !isRateLimitResponse(forbidden) {
		t.Fatal("403 with zero remaining should be a rate-limit response")
	}

	// the first request succeeds and reports remaining=0; the next is refused locally
	if _, err := client.GetUser(context.Background(), "octocat"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	before := f.hits.Load()
	if _, err := client.GetUser(context.Background(), "octocat"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if f.hits.Load() != before {
		t.Error("rate-limited request reached the server")
	}
}
