package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/go-faster/errors"

	"github.com/ahmednasr/recruiter-bot/internal/database"
	"github.com/ahmednasr/recruiter-bot/internal/models"
)

var sessionMigrations = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		preamble TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		message_id TEXT NULL,
		payload_json TEXT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);`,
	`CREATE INDEX IF NOT EXISTS turns_session ON turns(session_id, id);`,
}

// SessionSQLite keeps sessions in an embedded SQLite file so they survive
// restarts without a database server.
type SessionSQLite struct {
	db       *sql.DB
	preamble string
	now      func() time.Time
}

// turnPayload holds the structured parts of a turn.
type turnPayload struct {
	ToolCalls []models.ToolCall  `json:"tool_calls,omitempty"`
	Result    *models.ToolResult `json:"result,omitempty"`
}

// OpenSessionSQLite opens the store at path and migrates it.
func OpenSessionSQLite(ctx context.Context, path, preamble string) (*SessionSQLite, error) {
	db, err := database.OpenSQLite(ctx, path, sessionMigrations)
	if err != nil {
		return nil, err
	}
	return &SessionSQLite{db: db, preamble: preamble, now: time.Now}, nil
}

// Close releases the database.
func (r *SessionSQLite) Close() error {
	return r.db.Close()
}

// Ping reports whether the database answers.
func (r *SessionSQLite) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SessionSQLite) GetOrCreate(ctx context.Context, id string) (models.Session, error) {
	if err := r.ensure(ctx, r.db, id); err != nil {
		return models.Session{}, err
	}

	s := models.Session{ID: id}
	var created, updated string
	err := r.db.QueryRowContext(ctx,
		`SELECT preamble, created_at, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&s.Preamble, &created, &updated)
	if err != nil {
		return models.Session{}, errors.Wrapf(err, "load session %s", id)
	}
	s.CreatedAt, s.UpdatedAt = parseTimestamp(created), parseTimestamp(updated)

	rows, err := r.db.QueryContext(ctx,
		`SELECT role, content, message_id, payload_json, created_at
		 FROM turns WHERE session_id = ? ORDER BY id`, id)
	if err != nil {
		return models.Session{}, errors.Wrapf(err, "load turns of %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return models.Session{}, err
		}
		s.Turns = append(s.Turns, t)
	}
	if err := rows.Err(); err != nil {
		return models.Session{}, errors.Wrapf(err, "load turns of %s", id)
	}
	return s, nil
}

func (r *SessionSQLite) Append(ctx context.Context, id string, turns ...models.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := r.ensure(ctx, tx, id); err != nil {
		return err
	}
	for _, t := range turns {
		payload, err := encodePayload(t)
		if err != nil {
			return err
		}
		created := t.CreatedAt
		if created.IsZero() {
			created = r.now()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO turns(session_id, role, content, message_id, payload_json, created_at)
			 VALUES(?, ?, ?, ?, ?, ?)`,
			id, string(t.Role), t.Content, nullableText(t.MessageID), payload, timestamp(created),
		); err != nil {
			return errors.Wrapf(err, "append to session %s", id)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`, timestamp(r.now()), id,
	); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit turns")
	}
	log.Printf("[Session Repository] Appended %d turns to %s", len(turns), id)
	return nil
}

func (r *SessionSQLite) Reset(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, id); err != nil {
		return errors.Wrapf(err, "reset session %s", id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return errors.Wrapf(err, "reset session %s", id)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("[Session Repository] Reset session %s", id)
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *SessionSQLite) ensure(ctx context.Context, ex execer, id string) error {
	now := timestamp(r.now())
	_, err := ex.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions(id, preamble, created_at, updated_at) VALUES(?, ?, ?, ?)`,
		id, r.preamble, now, now)
	if err != nil {
		return errors.Wrapf(err, "create session %s", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTurn(scanner rowScanner) (models.Turn, error) {
	var (
		t         models.Turn
		role      string
		messageID sql.NullString
		payload   sql.NullString
		created   string
	)
	if err := scanner.Scan(&role, &t.Content, &messageID, &payload, &created); err != nil {
		return models.Turn{}, errors.Wrap(err, "scan turn")
	}
	t.Role = models.Role(role)
	t.MessageID = messageID.String
	t.CreatedAt = parseTimestamp(created)
	if payload.Valid && payload.String != "" {
		var p turnPayload
		if err := json.Unmarshal([]byte(payload.String), &p); err != nil {
			return models.Turn{}, errors.Wrap(err, "decode turn payload")
		}
		t.ToolCalls, t.Result = p.ToolCalls, p.Result
	}
	return t, nil
}

func encodePayload(t models.Turn) (any, error) {
	if len(t.ToolCalls) == 0 && t.Result == nil {
		return nil, nil
	}
	raw, err := json.Marshal(turnPayload{ToolCalls: t.ToolCalls, Result: t.Result})
	if err != nil {
		return nil, errors.Wrap(err, "encode turn payload")
	}
	return string(raw), nil
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullableText(value string) any {
	if value == "" {
		return nil
	}
	return value
}
