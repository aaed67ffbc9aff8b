package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ahmednasr/recruiter-bot/internal/database"
	"github.com/ahmednasr/recruiter-bot/internal/models"
	"github.com/ahmednasr/recruiter-bot/internal/service"
)

var (
	_ service.SessionStore = (*SessionSQLite)(nil)
	_ service.SessionStore = (*SessionMongo)(nil)
)

// exerciseStore checks the SessionStore contract against any backend.
func exerciseStore(t *testing.T, store service.SessionStore, id string) {
	t.Helper()
	ctx := context.Background()

	sess, err := store.GetOrCreate(ctx, id)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if sess.ID != id || sess.Preamble != "rules" || len(sess.Turns) != 0 {
		t.Fatalf("new session = %+v", sess)
	}

	turns := []models.Turn{
		{Role: models.RoleUser, Content: "analyze octocat", MessageID: "m-1", CreatedAt: time.Now()},
		{Role: models.RoleModel, ToolCalls: []models.ToolCall{
			{ID: "call_1_1", Name: "get_profile", Arguments: map[string]any{"username": "octocat"}},
		}},
		{Role: models.RoleTool, Content: "Profile: octocat", Result: &models.ToolResult{
			CallID: "call_1_1", Name: "get_profile", Content: "Profile: octocat",
		}},
		{Role: models.RoleModel, Content: "A solid engineer."},
	}
	if err := store.Append(ctx, id, turns[:2]...); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(ctx, id, turns[2:]...); err != nil {
		t.Fatalf("Append: %v", err)
	}

	sess, err = store.GetOrCreate(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(sess.Turns) != len(turns) {
		t.Fatalf("got %d turns, want %d", len(sess.Turns), len(turns))
	}
	for i, want := range turns {
		got := sess.Turns[i]
		if got.Role != want.Role || got.Content != want.Content || got.MessageID != want.MessageID {
			t.Errorf("turn %d = %+v, want %+v", i, got, want)
		}
	}
	call := sess.Turns[1].ToolCalls
	if len(call) != 1 || call[0].Name != "get_profile" || call[0].Arguments["username"] != "octocat" {
		t.Errorf("tool calls = %+v", call)
	}
	if r := sess.Turns[2].Result; r == nil || r.CallID != "call_1_1" {
		t.Errorf("tool result = %+v", r)
	}
	if answer, ok := sess.AnswerFor("m-1"); !ok || answer != "A solid engineer." {
		t.Errorf("AnswerFor = %q, %v", answer, ok)
	}

	if err := store.Reset(ctx, id); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	sess, _ = store.GetOrCreate(ctx, id)
	if len(sess.Turns) != 0 {
		t.Errorf("reset session has %d turns", len(sess.Turns))
	}
}

func TestSessionSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sessions.db")
	store, err := OpenSessionSQLite(context.Background(), path, "rules")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	exerciseStore(t, store, "chat-42")

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestSessionSQLite_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	store, err := OpenSessionSQLite(ctx, path, "rules")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Append(ctx, "c", models.Turn{Role: models.RoleUser, Content: "hi"}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	store, err = OpenSessionSQLite(ctx, path, "other rules")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	sess, err := store.GetOrCreate(ctx, "c")
	if err != nil {
		t.Fatal(err)
	}
	if len(sess.Turns) != 1 || sess.Preamble != "rules" {
		t.Errorf("reopened session = %+v", sess)
	}
}

func TestSessionMongo(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}
	ctx := context.Background()
	client, err := database.NewMongo(ctx, uri)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database("recruiter_bot_test")
	defer db.Drop(ctx)

	id := "test-" + strings.ReplaceAll(time.Now().Format("150405.000000"), ".", "")
	exerciseStore(t, NewSessionMongo(db, "rules"), id)
}
