package llm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteCache persists entries in a single-file SQLite database. Suitable when
// several pipeline runs (or processes on the same host) share one cache.
//
// The connection pool is capped at one open connection: SQLite supports a
// single writer, and funnelling all access through one connection keeps the
// write path serialized without additional locking.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens (creating if missing) a SQLite cache at path.
// Use ":memory:" for an ephemeral database.
func NewSQLiteCache(path string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	// WAL keeps readers unblocked while a Put is in flight.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS llm_cache (
			fingerprint TEXT PRIMARY KEY,
			response TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create llm_cache table: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

// Get returns the cached response for a fingerprint, if present.
func (c *SQLiteCache) Get(ctx context.Context, fingerprint string) (string, bool, error) {
	var text string
	err := c.db.QueryRowContext(ctx,
		"SELECT response FROM llm_cache WHERE fingerprint = ?", fingerprint,
	).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query cache: %w", err)
	}
	return text, true, nil
}

// Put stores a response under a fingerprint. Writes are idempotent: replaying
// the same fingerprint replaces the row with the same value.
func (c *SQLiteCache) Put(ctx context.Context, fingerprint, text string) error {
	_, err := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO llm_cache (fingerprint, response) VALUES (?, ?)",
		fingerprint, text,
	)
	if err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

// Len returns the number of cached entries.
func (c *SQLiteCache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM llm_cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("count cache: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
