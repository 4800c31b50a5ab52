// ABOUTME: SQLite prompt store methods for prompt template persistence
// ABOUTME: Listings show public prompts plus the viewer's own private ones

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const promptColumns = `id, title, description, content, tags, category, is_public,
	version, variables, user_id, word_count, char_count, created_at, updated_at`

// CreatePrompt inserts a new prompt.
func (s *SQLiteStore) CreatePrompt(ctx context.Context, prompt *Prompt) error {
	if prompt.ID == "" {
		prompt.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if prompt.CreatedAt.IsZero() {
		prompt.CreatedAt = now
	}
	if prompt.UpdatedAt.IsZero() {
		prompt.UpdatedAt = now
	}
	if prompt.Version == 0 {
		prompt.Version = 1
	}

	query := `
		INSERT INTO prompts (id, title, description, content, tags, category, is_public,
			version, variables, user_id, word_count, char_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		prompt.ID,
		prompt.Title,
		nullString(prompt.Description),
		prompt.Content,
		encodeJSON(prompt.Tags),
		nullString(prompt.Category),
		prompt.IsPublic,
		prompt.Version,
		encodeJSON(prompt.Variables),
		prompt.UserID,
		prompt.WordCount,
		prompt.CharCount,
		prompt.CreatedAt.Format(time.RFC3339),
		prompt.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting prompt: %w", err)
	}

	s.logger.Debug("created prompt", "id", prompt.ID, "user_id", prompt.UserID, "title", prompt.Title)
	return nil
}

// GetPrompt retrieves a prompt by ID.
// Returns ErrNotFound if the prompt doesn't exist.
func (s *SQLiteStore) GetPrompt(ctx context.Context, id string) (*Prompt, error) {
	query := `SELECT ` + promptColumns + ` FROM prompts WHERE id = ?`

	prompt, err := s.scanPromptRow(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return prompt, err
}

// ListPrompts returns prompts visible to the viewer: public prompts plus the
// viewer's own. Newest first, with optional category/tag filters and paging.
func (s *SQLiteStore) ListPrompts(ctx context.Context, viewerID string, filter ListFilter) ([]*Prompt, error) {
	query := `SELECT ` + promptColumns + ` FROM prompts WHERE (is_public = 1 OR user_id = ?)`
	args := []any{viewerID}

	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.Tag != "" {
		// Tags are stored as a JSON array; match the quoted element.
		query += ` AND tags LIKE ?`
		args = append(args, `%"`+filter.Tag+`"%`)
	}

	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying prompts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var prompts []*Prompt
	for rows.Next() {
		prompt, err := s.scanPromptRow(rows)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, prompt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating prompt rows: %w", err)
	}
	return prompts, nil
}

// UpdatePrompt persists changes to a prompt and bumps its version.
// Returns ErrNotFound if the prompt doesn't exist.
func (s *SQLiteStore) UpdatePrompt(ctx context.Context, prompt *Prompt) error {
	prompt.UpdatedAt = time.Now().UTC()
	prompt.Version++

	query := `
		UPDATE prompts
		SET title = ?, description = ?, content = ?, tags = ?, category = ?,
			is_public = ?, version = ?, variables = ?, word_count = ?, char_count = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		prompt.Title,
		nullString(prompt.Description),
		prompt.Content,
		encodeJSON(prompt.Tags),
		nullString(prompt.Category),
		prompt.IsPublic,
		prompt.Version,
		encodeJSON(prompt.Variables),
		prompt.WordCount,
		prompt.CharCount,
		prompt.UpdatedAt.Format(time.RFC3339),
		prompt.ID,
	)
	if err != nil {
		return fmt.Errorf("updating prompt: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated prompt", "id", prompt.ID, "version", prompt.Version)
	return nil
}

// DeletePrompt removes a prompt by ID.
// Returns ErrNotFound if the prompt doesn't exist.
func (s *SQLiteStore) DeletePrompt(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM prompts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting prompt: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted prompt", "id", id)
	return nil
}

func (s *SQLiteStore) scanPromptRow(row scanner) (*Prompt, error) {
	var prompt Prompt
	var description, category sql.NullString
	var tags, variables string
	var createdAt, updatedAt string

	err := row.Scan(
		&prompt.ID,
		&prompt.Title,
		&description,
		&prompt.Content,
		&tags,
		&category,
		&prompt.IsPublic,
		&prompt.Version,
		&variables,
		&prompt.UserID,
		&prompt.WordCount,
		&prompt.CharCount,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning prompt row: %w", err)
	}

	prompt.Description = description.String
	prompt.Category = category.String
	prompt.Tags = decodeJSON(tags)
	prompt.Variables = decodeJSON(variables)
	prompt.CreatedAt = s.parseTime("created_at", prompt.ID, createdAt)
	prompt.UpdatedAt = s.parseTime("updated_at", prompt.ID, updatedAt)
	return &prompt, nil
}
