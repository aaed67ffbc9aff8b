package database

import (
	"context"
	"database/sql"
	"log"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	_ "modernc.org/sqlite"
)

// OpenSQLite opens (creating if needed) the database file at path and
// applies the given statements in order. One connection is kept so writes
// never contend on the file lock.
func OpenSQLite(ctx context.Context, path string, migrations []string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "create db directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite db")
	}
	db.SetMaxOpenConns(1)

	statements := append([]string{
		`PRAGMA foreign_keys = ON;`,
		`PRAGMA journal_mode = WAL;`,
	}, migrations...)
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, errors.Wrapf(err, "migrate: %.40s", stmt)
		}
	}
	log.Printf("[Database] opened SQLite at %s", path)
	return db, nil
}
