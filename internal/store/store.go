// Package store provides the SQLite-backed trim log: one row per trim served
// by the HTTP API, so operators can see how hard prompts are being cut.
// Prompts themselves are never stored, only their SHA-256 digest.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Entry is a single recorded trim.
type Entry struct {
	// ID is a random UUID assigned on Record.
	ID string `json:"id"`
	// PromptSHA256 is the hex digest of the original prompt.
	PromptSHA256 string `json:"promptSha256"`
	// Budget is the token budget the prompt was trimmed to.
	Budget int `json:"budget"`
	// TokensBefore and TokensAfter are the counts around the trim.
	TokensBefore int `json:"tokensBefore"`
	TokensAfter  int `json:"tokensAfter"`
	// Iterations is the number of reduction steps taken.
	Iterations int `json:"iterations"`
	// HardCut is true when the result came from a raw character cut.
	HardCut bool `json:"hardCut"`
	// CreatedAt is when the entry was persisted.
	CreatedAt time.Time `json:"createdAt"`
}

// TrimLog persists and retrieves trim entries.
// Implementations must be safe for concurrent use.
type TrimLog interface {
	// Record persists e, filling in ID and CreatedAt, and returns the stored entry.
	Record(ctx context.Context, e Entry) (Entry, error)
	// Recent returns up to n entries, newest first.
	Recent(ctx context.Context, n int) ([]Entry, error)
	// Ping checks the database is reachable.
	Ping(ctx context.Context) error
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a TrimLog backed by a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ TrimLog = (*SQLiteStore)(nil)

// HashPrompt returns the hex SHA-256 digest stored in place of a prompt.
func HashPrompt(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// DefaultDBPath returns ~/.promptfit/trims.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".promptfit")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "trims.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Single connection: avoids SQLITE_BUSY and keeps ":memory:" on one database.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS trims (
    seq           INTEGER PRIMARY KEY AUTOINCREMENT,
    id            TEXT    NOT NULL UNIQUE,
    prompt_sha256 TEXT    NOT NULL,
    budget        INTEGER NOT NULL,
    tokens_before INTEGER NOT NULL,
    tokens_after  INTEGER NOT NULL,
    iterations    INTEGER NOT NULL,
    hard_cut      INTEGER NOT NULL CHECK(hard_cut IN (0,1)),
    created_at    INTEGER NOT NULL  -- Unix milliseconds
);
CREATE INDEX IF NOT EXISTS idx_trims_created ON trims (created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Record persists a single trim entry.
func (s *SQLiteStore) Record(ctx context.Context, e Entry) (Entry, error) {
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	const q = `INSERT INTO trims (id, prompt_sha256, budget, tokens_before, tokens_after, iterations, hard_cut, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q,
		e.ID, e.PromptSHA256, e.Budget, e.TokensBefore, e.TokensAfter, e.Iterations, e.HardCut, e.CreatedAt.UnixMilli(),
	); err != nil {
		return Entry{}, fmt.Errorf("store: record: %w", err)
	}
	return e, nil
}

// Recent returns up to n entries ordered newest first.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]Entry, error) {
	const q = `
SELECT id, prompt_sha256, budget, tokens_before, tokens_after, iterations, hard_cut, created_at
FROM   trims
ORDER  BY created_at DESC, seq DESC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ms int64
		if err := rows.Scan(&e.ID, &e.PromptSHA256, &e.Budget, &e.TokensBefore, &e.TokensAfter, &e.Iterations, &e.HardCut, &ms); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		e.CreatedAt = time.UnixMilli(ms).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return entries, nil
}

// Ping checks the database connection. It satisfies the server's readiness
// Pinger together with Name.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Name labels the store in readiness responses.
func (s *SQLiteStore) Name() string { return "trimlog" }

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
