// ABOUTME: SQLite API token store methods for bearer credential persistence
// ABOUTME: Only hashes are stored; lookups by hash back the validation path

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const tokenColumns = `id, name, description, token_hash, user_id, permissions,
	is_active, last_used_at, usage_count, expires_at, created_at, updated_at`

// CreateToken inserts a new API token record.
func (s *SQLiteStore) CreateToken(ctx context.Context, token *APIToken) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if token.CreatedAt.IsZero() {
		token.CreatedAt = now
	}
	if token.UpdatedAt.IsZero() {
		token.UpdatedAt = now
	}

	query := `
		INSERT INTO tokens (id, name, description, token_hash, user_id, permissions,
			is_active, last_used_at, usage_count, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		token.ID,
		token.Name,
		nullString(token.Description),
		token.TokenHash,
		token.UserID,
		encodeJSON(token.Permissions),
		token.IsActive,
		nullTime(token.LastUsedAt),
		token.UsageCount,
		nullTime(token.ExpiresAt),
		token.CreatedAt.Format(time.RFC3339),
		token.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting token: %w", err)
	}

	s.logger.Debug("created token", "id", token.ID, "user_id", token.UserID, "name", token.Name)
	return nil
}

// GetToken retrieves a token by ID, scoped to its owner.
// Returns ErrNotFound if the token doesn't exist or belongs to another user.
func (s *SQLiteStore) GetToken(ctx context.Context, userID, id string) (*APIToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE id = ? AND user_id = ?`
	return s.scanToken(s.db.QueryRowContext(ctx, query, id, userID))
}

// GetTokenByHash retrieves a token by its secret hash.
// Returns ErrNotFound if no token matches.
func (s *SQLiteStore) GetTokenByHash(ctx context.Context, hash string) (*APIToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE token_hash = ?`
	return s.scanToken(s.db.QueryRowContext(ctx, query, hash))
}

// ListTokens returns all tokens owned by a user, newest first.
func (s *SQLiteStore) ListTokens(ctx context.Context, userID string) ([]*APIToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE user_id = ? ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying tokens: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tokens []*APIToken
	for rows.Next() {
		token, err := s.scanTokenRow(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating token rows: %w", err)
	}
	return tokens, nil
}

// CountActiveTokens returns the number of active tokens owned by a user.
func (s *SQLiteStore) CountActiveTokens(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM tokens WHERE user_id = ? AND is_active = 1`

	var count int
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting active tokens: %w", err)
	}
	return count, nil
}

// UpdateToken persists changes to name, description, permissions, and the
// active flag. The update is scoped to the token's owner.
// Returns ErrNotFound if the token doesn't exist or belongs to another user.
func (s *SQLiteStore) UpdateToken(ctx context.Context, token *APIToken) error {
	token.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE tokens
		SET name = ?, description = ?, permissions = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		token.Name,
		nullString(token.Description),
		encodeJSON(token.Permissions),
		token.IsActive,
		token.UpdatedAt.Format(time.RFC3339),
		token.ID,
		token.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated token", "id", token.ID, "user_id", token.UserID)
	return nil
}

// DeleteToken hard-deletes a token, scoped to its owner.
// Returns ErrNotFound if the token doesn't exist or belongs to another user.
func (s *SQLiteStore) DeleteToken(ctx context.Context, userID, id string) error {
	query := `DELETE FROM tokens WHERE id = ? AND user_id = ?`

	result, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("deleting token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted token", "id", id, "user_id", userID)
	return nil
}

// TouchToken records a successful validation: sets last_used_at and bumps
// the usage counter. Concurrent touches are last-write-wins; nothing depends
// on their ordering.
func (s *SQLiteStore) TouchToken(ctx context.Context, id string, usedAt time.Time) error {
	query := `UPDATE tokens SET last_used_at = ?, usage_count = usage_count + 1 WHERE id = ?`

	if _, err := s.db.ExecContext(ctx, query, usedAt.UTC().Format(time.RFC3339), id); err != nil {
		return fmt.Errorf("touching token: %w", err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for token scanning.
type scanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanToken(row *sql.Row) (*APIToken, error) {
	token, err := s.scanTokenRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return token, err
}

func (s *SQLiteStore) scanTokenRow(row scanner) (*APIToken, error) {
	var token APIToken
	var description sql.NullString
	var permissions string
	var lastUsedAt, expiresAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&token.ID,
		&token.Name,
		&description,
		&token.TokenHash,
		&token.UserID,
		&permissions,
		&token.IsActive,
		&lastUsedAt,
		&token.UsageCount,
		&expiresAt,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning token row: %w", err)
	}

	token.Description = description.String
	token.Permissions = decodeJSON(permissions)
	token.LastUsedAt = s.parseNullTime("last_used_at", token.ID, lastUsedAt)
	token.ExpiresAt = s.parseNullTime("expires_at", token.ID, expiresAt)
	token.CreatedAt = s.parseTime("created_at", token.ID, createdAt)
	token.UpdatedAt = s.parseTime("updated_at", token.ID, updatedAt)
	return &token, nil
}
