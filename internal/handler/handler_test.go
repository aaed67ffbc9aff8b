package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/gofiber/fiber/v2"

	"github.com/ahmednasr/recruiter-bot/internal/github"
	"github.com/ahmednasr/recruiter-bot/internal/models"
	"github.com/ahmednasr/recruiter-bot/internal/service"
)

// stubChat answers with a fixed result and records the last call.
type stubChat struct {
	ans      service.Answer
	err      error
	lastConv string
	lastMsg  string
	lastID   string
	resets   []string
	history  []models.HistoryEntry
}

func (s *stubChat) Ask(_ context.Context, conv, messageID, text string) (service.Answer, error) {
	s.lastConv, s.lastID, s.lastMsg = conv, messageID, text
	return s.ans, s.err
}

func (s *stubChat) Reset(_ context.Context, conv string) error {
	s.resets = append(s.resets, conv)
	return nil
}

func (s *stubChat) History(context.Context, string) ([]models.HistoryEntry, error) {
	return s.history, nil
}

type stubCatalog struct{}

func (stubCatalog) Specs() []service.ToolSpec {
	return []service.ToolSpec{{Name: "get_profile", Parameters: service.InputSchema{Type: "object"}}}
}

func newApp(chat service.ChatService) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app, chat, stubCatalog{}, time.Second)
	NewHealthHandler(github.NewQuota(), nil).Register(app)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestChatHandler(t *testing.T) {
	tests := []struct {
		name       string
		ans        service.Answer
		err        error
		path       string
		body       string
		wantStatus int
		wantAnswer string
	}{
		{
			name:       "answer",
			ans:        service.Answer{Text: "**octocat** is _senior_", Subject: "octocat", State: service.StateFinalized},
			path:       "/api/v1/chat",
			body:       `{"conversation_id":"c1","message":"analyze octocat","message_id":"7"}`,
			wantStatus: http.StatusOK,
			wantAnswer: "**octocat** is _senior_",
		},
		{
			name:       "plain format",
			ans:        service.Answer{Text: "**octocat** uses `go`"},
			path:       "/api/v1/chat?format=plain",
			body:       `{"conversation_id":"c1","message":"hi"}`,
			wantStatus: http.StatusOK,
			wantAnswer: "octocat uses go",
		},
		{
			name:       "apology is still an answer",
			ans:        service.Answer{Text: service.DefaultApology, State: service.StateFailed},
			err:        service.ErrToolLoopExceeded,
			path:       "/api/v1/chat",
			body:       `{"conversation_id":"c1","message":"hi"}`,
			wantStatus: http.StatusOK,
			wantAnswer: service.DefaultApology,
		},
		{
			name:       "missing conversation",
			path:       "/api/v1/chat",
			body:       `{"message":"hi"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "blank message",
			path:       "/api/v1/chat",
			body:       `{"conversation_id":"c1","message":"  "}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad json",
			path:       "/api/v1/chat",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "timeout",
			err:        errors.Wrap(context.DeadlineExceeded, "engine"),
			path:       "/api/v1/chat",
			body:       `{"conversation_id":"c1","message":"hi"}`,
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:       "store failure",
			err:        errors.New("disk full"),
			path:       "/api/v1/chat",
			body:       `{"conversation_id":"c1","message":"hi"}`,
			wantStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &stubChat{ans: tt.ans, err: tt.err}
			status, body := do(t, newApp(chat), http.MethodPost, tt.path, tt.body)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", status, tt.wantStatus, body)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if body["answer"] != tt.wantAnswer {
				t.Errorf("answer = %v, want %q", body["answer"], tt.wantAnswer)
			}
			if body["conversation_id"] != "c1" || chat.lastConv != "c1" {
				t.Errorf("conversation = %v / %q", body["conversation_id"], chat.lastConv)
			}
		})
	}
}

func TestChatHandler_PassesMessageID(t *testing.T) {
	chat := &stubChat{ans: service.Answer{Text: "ok", Subject: "octocat"}}
	_, body := do(t, newApp(chat), http.MethodPost, "/api/v1/chat",
		`{"conversation_id":"c1","message":"analyze octocat","message_id":"m-9"}`)
	if chat.lastID != "m-9" || chat.lastMsg != "analyze octocat" {
		t.Errorf("Ask got id %q message %q", chat.lastID, chat.lastMsg)
	}
	if body["subject"] != "octocat" {
		t.Errorf("subject = %v", body["subject"])
	}
}

func TestSessionEndpoints(t *testing.T) {
	chat := &stubChat{history: []models.HistoryEntry{
		{Role: models.RoleUser, Content: "analyze octocat"},
		{Role: models.RoleModel, Content: "done"},
	}}
	app := newApp(chat)

	status, body := do(t, app, http.MethodGet, "/api/v1/sessions/c1", "")
	if status != http.StatusOK {
		t.Fatalf("history status = %d", status)
	}
	turns, _ := body["turns"].([]any)
	if len(turns) != 2 {
		t.Errorf("turns = %v", body["turns"])
	}

	status, _ = do(t, app, http.MethodDelete, "/api/v1/sessions/c1", "")
	if status != http.StatusNoContent {
		t.Errorf("reset status = %d", status)
	}
	if len(chat.resets) != 1 || chat.resets[0] != "c1" {
		t.Errorf("resets = %v", chat.resets)
	}
}

func TestToolsAndHealth(t *testing.T) {
	app := newApp(&stubChat{})

	status, body := do(t, app, http.MethodGet, "/api/v1/tools", "")
	if status != http.StatusOK {
		t.Fatalf("tools status = %d", status)
	}
	if tools, _ := body["tools"].([]any); len(tools) != 1 {
		t.Errorf("tools = %v", body["tools"])
	}

	status, body = do(t, app, http.MethodGet, "/health", "")
	if status != http.StatusOK || body["status"] != "ok" || body["sessions"] != "memory" {
		t.Errorf("health = %d %v", status, body)
	}
	if _, ok := body["github_quota"]; !ok {
		t.Error("health lacks quota state")
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct{ in, want string }{
		{"**bold** and _it_", "bold and it"},
		{"`code`", "code"},
		{"no markup", "no markup"},
	}
	for _, tt := range tests {
		if got := PlainText(tt.in); got != tt.want {
			t.Errorf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
