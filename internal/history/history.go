// Package history keeps a local journal of save submissions in SQLite. Every
// attempted save is recorded with the exact content that went over the wire,
// so a previously transmitted version can always be recovered even after the
// server state moved on.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound means no journal row has the requested id.
var ErrNotFound = errors.New("save not found")

// Save outcomes.
const (
	OutcomeSaved  = "saved"
	OutcomeFailed = "failed"
)

// Save is one journal row, content omitted (see Show).
type Save struct {
	ID      int64
	App     string
	Item    string
	Outcome string
	// Detail carries the error text for failed saves.
	Detail  string
	Bytes   int64
	SHA256  string
	SavedAt time.Time
}

// Journal is an append-mostly log over one SQLite file.
type Journal struct {
	db *sql.DB
}

const journalFileName = "history.sqlite"

// Open opens (creating if needed) the journal under dir.
func Open(ctx context.Context, dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", filepath.Join(dir, journalFileName))
	if err != nil {
		return nil, err
	}
	// WAL enables one writer + many readers; busy_timeout avoids "database is
	// locked" flakiness when a one-shot command races the TUI.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS saves (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			app TEXT NOT NULL,
			item TEXT NOT NULL,
			outcome TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			content_bytes INTEGER NOT NULL,
			content_sha256 TEXT NOT NULL,
			saved_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_saves_app_item ON saves(app, item, saved_at_unixms);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (j *Journal) Close() error { return j.db.Close() }

// Record appends one row and returns its id. content is the exact string that
// was (or would have been) transmitted for the item.
func (j *Journal) Record(ctx context.Context, app, item, outcome, detail, content string) (int64, error) {
	sum := sha256.Sum256([]byte(content))
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO saves(app, item, outcome, detail, content, content_bytes, content_sha256, saved_at_unixms)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		app, item, outcome, detail, content, int64(len(content)),
		hex.EncodeToString(sum[:]), time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// List returns journal rows newest first, optionally filtered by app, capped
// at limit (or 50 when limit <= 0).
func (j *Journal) List(ctx context.Context, app string, limit int) ([]Save, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, app, item, outcome, detail, content_bytes, content_sha256, saved_at_unixms
		FROM saves`
	args := []any{}
	if app != "" {
		query += ` WHERE app = ?`
		args = append(args, app)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Save
	for rows.Next() {
		var s Save
		var unixms int64
		if err := rows.Scan(&s.ID, &s.App, &s.Item, &s.Outcome, &s.Detail,
			&s.Bytes, &s.SHA256, &unixms); err != nil {
			return nil, err
		}
		s.SavedAt = time.UnixMilli(unixms)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Show returns one row and its stored content.
func (j *Journal) Show(ctx context.Context, id int64) (Save, string, error) {
	var s Save
	var content string
	var unixms int64
	err := j.db.QueryRowContext(ctx,
		`SELECT id, app, item, outcome, detail, content, content_bytes, content_sha256, saved_at_unixms
		 FROM saves WHERE id = ?`, id).
		Scan(&s.ID, &s.App, &s.Item, &s.Outcome, &s.Detail, &content,
			&s.Bytes, &s.SHA256, &unixms)
	if errors.Is(err, sql.ErrNoRows) {
		return Save{}, "", ErrNotFound
	}
	if err != nil {
		return Save{}, "", err
	}
	s.SavedAt = time.UnixMilli(unixms)
	return s, content, nil
}
