// Package history persists completed conversation turns to SQLite so
// conversations survive process restarts. It is append-only; the
// in-memory conversation window stays the source of truth for prompts.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	memory_id  TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_history_memory_id ON chat_history (memory_id);
`

// Entry is one persisted turn.
type Entry struct {
	ID        int64
	MemoryID  string
	Role      string
	Content   string
	CreatedAt time.Time
}

// Store appends and reads chat history rows.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the history database at path.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Append writes one turn for the conversation.
func (s *Store) Append(ctx context.Context, memoryID, role, content string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_history (memory_id, role, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		memoryID, role, content, now, now,
	)
	if err != nil {
		return fmt.Errorf("appending chat history: %w", err)
	}
	return nil
}

// List returns the persisted turns for a conversation, oldest first.
func (s *Store) List(ctx context.Context, memoryID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, memory_id, role, content, created_at FROM chat_history WHERE memory_id = ? ORDER BY id`,
		memoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing chat history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.MemoryID, &e.Role, &e.Content, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }
