// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides user/token/prompt/article persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id                TEXT PRIMARY KEY,
			email             TEXT NOT NULL UNIQUE,
			password_hash     TEXT,
			first_name        TEXT,
			last_name         TEXT,
			auth_provider     TEXT NOT NULL DEFAULT 'local',
			subscription_tier TEXT NOT NULL DEFAULT 'free',
			is_active         INTEGER NOT NULL DEFAULT 1,
			is_admin          INTEGER NOT NULL DEFAULT 0,
			created_at        TEXT NOT NULL,
			updated_at        TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

		CREATE TABLE IF NOT EXISTS tokens (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			description  TEXT,
			token_hash   TEXT NOT NULL UNIQUE,
			user_id      TEXT NOT NULL,
			permissions  TEXT NOT NULL DEFAULT '[]',
			is_active    INTEGER NOT NULL DEFAULT 1,
			last_used_at TEXT,
			usage_count  INTEGER NOT NULL DEFAULT 0,
			expires_at   TEXT,
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL,

			FOREIGN KEY (user_id) REFERENCES users(id)
		);

		CREATE INDEX IF NOT EXISTS idx_tokens_user ON tokens(user_id);
		CREATE INDEX IF NOT EXISTS idx_tokens_hash ON tokens(token_hash);

		CREATE TABLE IF NOT EXISTS prompts (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT,
			content     TEXT NOT NULL,
			tags        TEXT NOT NULL DEFAULT '[]',
			category    TEXT,
			is_public   INTEGER NOT NULL DEFAULT 0,
			version     INTEGER NOT NULL DEFAULT 1,
			variables   TEXT NOT NULL DEFAULT '[]',
			user_id     TEXT NOT NULL,
			word_count  INTEGER NOT NULL DEFAULT 0,
			char_count  INTEGER NOT NULL DEFAULT 0,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL,

			FOREIGN KEY (user_id) REFERENCES users(id)
		);

		CREATE INDEX IF NOT EXISTS idx_prompts_user ON prompts(user_id);
		CREATE INDEX IF NOT EXISTS idx_prompts_public ON prompts(is_public);

		CREATE TABLE IF NOT EXISTS articles (
			id           TEXT PRIMARY KEY,
			title        TEXT NOT NULL,
			content      TEXT NOT NULL,
			category     TEXT,
			tags         TEXT NOT NULL DEFAULT '[]',
			prompt_id    TEXT,
			prompt_title TEXT,
			is_public    INTEGER NOT NULL DEFAULT 0,
			user_id      TEXT NOT NULL,
			word_count   INTEGER NOT NULL DEFAULT 0,
			char_count   INTEGER NOT NULL DEFAULT 0,
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL,

			FOREIGN KEY (user_id) REFERENCES users(id)
		);

		CREATE INDEX IF NOT EXISTS idx_articles_user ON articles(user_id);
		CREATE INDEX IF NOT EXISTS idx_articles_public ON articles(is_public);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// nullString returns nil for empty strings, otherwise the string
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullTime returns nil for nil times, otherwise the RFC3339 string
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses an RFC3339 timestamp, logging instead of failing on
// malformed values so one bad row doesn't break a listing.
func (s *SQLiteStore) parseTime(field, id, value string) time.Time {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		s.logger.Warn("failed to parse timestamp", "field", field, "id", id, "error", err)
		return time.Time{}
	}
	return parsed
}

// parseNullTime parses an optional RFC3339 timestamp column.
func (s *SQLiteStore) parseNullTime(field, id string, value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, value.String)
	if err != nil {
		s.logger.Warn("failed to parse timestamp", "field", field, "id", id, "error", err)
		return nil
	}
	return &parsed
}

// encodeJSON marshals a string slice for storage in a TEXT column.
func encodeJSON(values []string) string {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// decodeJSON unmarshals a TEXT column into a string slice.
func decodeJSON(data string) []string {
	if data == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
