package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteStore persists conversation state across restarts. Each thread
// is one row; the message log is stored as a JSON document, matching
// the commit-the-whole-value contract of [Store].
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the session database at path.
// The caller is responsible for importing a database/sql sqlite driver
// registered under the name "sqlite" (modernc.org/sqlite).
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewSQLiteStoreWithDB creates a session store on an existing connection.
func NewSQLiteStoreWithDB(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			thread_id    TEXT PRIMARY KEY,
			summary      TEXT NOT NULL DEFAULT '',
			messages     TEXT NOT NULL,
			last_message TEXT NOT NULL,
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_updated
			ON conversations(updated_at DESC);
	`)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads a thread's conversation, or returns a fresh empty one if
// the thread has no row yet.
func (s *SQLiteStore) Load(ctx context.Context, threadID string) (*Conversation, error) {
	var (
		summary, messagesJSON             string
		lastMessage, createdAt, updatedAt string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT summary, messages, last_message, created_at, updated_at
		FROM conversations WHERE thread_id = ?
	`, threadID).Scan(&summary, &messagesJSON, &lastMessage, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return New(threadID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation %q: %w", threadID, err)
	}

	var messages []Message
	if err := json.Unmarshal([]byte(messagesJSON), &messages); err != nil {
		return nil, fmt.Errorf("decode messages for %q: %w", threadID, err)
	}

	conv := &Conversation{
		ThreadID:    threadID,
		Messages:    messages,
		Summary:     summary,
		LastMessage: parseTime(lastMessage),
		CreatedAt:   parseTime(createdAt),
		UpdatedAt:   parseTime(updatedAt),
	}
	return conv, nil
}

// Commit upserts the full conversation state for a thread.
func (s *SQLiteStore) Commit(ctx context.Context, conv *Conversation) error {
	messagesJSON, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("encode messages for %q: %w", conv.ThreadID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (thread_id, summary, messages, last_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			summary      = excluded.summary,
			messages     = excluded.messages,
			last_message = excluded.last_message,
			updated_at   = excluded.updated_at
	`, conv.ThreadID, conv.Summary, string(messagesJSON),
		formatTime(conv.LastMessage), formatTime(conv.CreatedAt), formatTime(conv.UpdatedAt))
	if err != nil {
		return fmt.Errorf("commit conversation %q: %w", conv.ThreadID, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
