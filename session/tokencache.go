package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Token cache keys
const (
	KeyClientToken = "client_token"
	KeySessionID   = "session_id"
)

// TokenCache persists the identity client token and active session id
// between runs
type TokenCache struct {
	db *sql.DB
}

// OpenTokenCache opens or creates the SQLite cache at path
func OpenTokenCache(path string) (*TokenCache, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("token cache path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o700); err != nil {
		return nil, fmt.Errorf("create token cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", cleanPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS tokens (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tokens table: %w", err)
	}

	return &TokenCache{db: db}, nil
}

// Get returns the value stored under key
func (c *TokenCache) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM tokens WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get token %q: %w", key, err)
	}
	return value, true, nil
}

// Save stores value under key, replacing any previous value
func (c *TokenCache) Save(ctx context.Context, key, value string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO tokens (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("save token %q: %w", key, err)
	}
	return nil
}

// Delete removes key
func (c *TokenCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM tokens WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete token %q: %w", key, err)
	}
	return nil
}

// Clear removes every cached token
func (c *TokenCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM tokens`); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}

// Close closes the SQLite handle
func (c *TokenCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}
