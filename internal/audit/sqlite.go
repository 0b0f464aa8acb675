package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store persists audit events in SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	server     TEXT NOT NULL,
	username   TEXT NOT NULL,
	action     TEXT NOT NULL,
	detail     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
`

// New opens (or creates) the audit database at dbPath and applies the
// schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one event, assigning its id and timestamp, and returns
// the stored value.
func (s *Store) Record(ctx context.Context, serverName, username string, action Action, detail string) (Event, error) {
	evt := Event{
		ID:         uuid.NewString(),
		ServerName: serverName,
		Username:   username,
		Action:     action,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}

	query := `
		INSERT INTO audit_events (id, server, username, action, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		evt.ID, evt.ServerName, evt.Username, string(evt.Action), evt.Detail, evt.CreatedAt); err != nil {
		return Event{}, fmt.Errorf("insert audit event: %w", err)
	}
	return evt, nil
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, server, username, action, detail, created_at
		FROM audit_events
		ORDER BY seq DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var evt Event
		var action string
		if err := rows.Scan(&evt.ID, &evt.ServerName, &evt.Username, &action, &evt.Detail, &evt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		evt.Action = Action(action)
		events = append(events, evt)
	}
	return events, rows.Err()
}
