// Package sqlite persists attempt history in a local SQLite database,
// capped per client so the table never grows unbounded.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // driver: sqlite

	"quiz-player-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS quiz_history (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    client_id   TEXT NOT NULL,
    subject     TEXT NOT NULL,
    total       INTEGER NOT NULL,
    answered    INTEGER NOT NULL,
    correct     INTEGER NOT NULL,
    wrong       INTEGER NOT NULL,
    seconds     INTEGER NOT NULL,
    percentage  INTEGER NOT NULL,
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quiz_history_client ON quiz_history (client_id, created_at DESC);
`

// HistoryStore appends finished attempts and lists them newest first,
// pruning each client's history to a fixed cap.
type HistoryStore struct {
	db  *sql.DB
	cap int
}

// Open opens (or creates) the history database at path and ensures the
// schema exists.
func Open(ctx context.Context, path string, cap int) (*HistoryStore, error) {
	if path == "" {
		path = "file:quiz-history.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
	}
	if cap <= 0 {
		cap = 50
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure history schema: %w", err)
	}
	return &HistoryStore{db: db, cap: cap}, nil
}

// Close releases the underlying database handle.
func (s *HistoryStore) Close() error { return s.db.Close() }

func (s *HistoryStore) Append(ctx context.Context, clientID string, entry domain.HistoryEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quiz_history
		 (client_id, subject, total, answered, correct, wrong, seconds, percentage, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		clientID, entry.Subject, entry.Total, entry.Answered, entry.Correct,
		entry.Wrong, entry.Seconds, entry.Percentage, entry.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	// Keep only the newest rows per client.
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM quiz_history WHERE client_id = ? AND id NOT IN (
		     SELECT id FROM quiz_history WHERE client_id = ?
		     ORDER BY created_at DESC, id DESC LIMIT ?)`,
		clientID, clientID, s.cap)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}

func (s *HistoryStore) List(ctx context.Context, clientID string, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 || limit > s.cap {
		limit = s.cap
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject, total, answered, correct, wrong, seconds, percentage, created_at
		 FROM quiz_history WHERE client_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		var createdAt int64
		if err := rows.Scan(&e.Subject, &e.Total, &e.Answered, &e.Correct, &e.Wrong, &e.Seconds, &e.Percentage, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Timestamp = time.UnixMilli(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
