// Package lyrics provides the song lyrics content cache backing the
// get_lyrics tool.
package lyrics

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Store manages cached lyrics persistence. Lookups are normalized so
// "Johnny Cash" and "johnny cash " hit the same row.
type Store struct {
	db *sql.DB
}

// NewStore creates a lyrics store using the given database path.
// The caller must import a sqlite driver registered as "sqlite".
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewStoreWithDB creates a lyrics store using an existing connection.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS lyrics (
			artist     TEXT NOT NULL,
			song       TEXT NOT NULL,
			body       TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (artist, song)
		);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// normalize lowercases and collapses surrounding whitespace for lookup keys.
func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// Put stores or replaces the lyrics for a song.
func (s *Store) Put(artist, song, body string) error {
	if normalize(artist) == "" || normalize(song) == "" {
		return fmt.Errorf("artist and song are required")
	}
	_, err := s.db.Exec(`
		INSERT INTO lyrics (artist, song, body, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(artist, song) DO UPDATE SET
			body = excluded.body
	`, normalize(artist), normalize(song), body, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("put lyrics: %w", err)
	}
	return nil
}

// Get returns the cached lyrics for a song. The second return is false
// on a cache miss; a miss is not an error.
func (s *Store) Get(artist, song string) (string, bool, error) {
	var body string
	err := s.db.QueryRow(`
		SELECT body FROM lyrics WHERE artist = ? AND song = ?
	`, normalize(artist), normalize(song)).Scan(&body)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get lyrics: %w", err)
	}
	return body, true, nil
}

// Count returns the number of cached songs.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM lyrics`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count lyrics: %w", err)
	}
	return n, nil
}
