// ABOUTME: SQLite article store methods for markdown document persistence
// ABOUTME: Articles optionally reference the prompt that produced them

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const articleColumns = `id, title, content, category, tags, prompt_id, prompt_title,
	is_public, user_id, word_count, char_count, created_at, updated_at`

// CreateArticle inserts a new article.
func (s *SQLiteStore) CreateArticle(ctx context.Context, article *Article) error {
	if article.ID == "" {
		article.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if article.CreatedAt.IsZero() {
		article.CreatedAt = now
	}
	if article.UpdatedAt.IsZero() {
		article.UpdatedAt = now
	}

	query := `
		INSERT INTO articles (id, title, content, category, tags, prompt_id, prompt_title,
			is_public, user_id, word_count, char_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		article.ID,
		article.Title,
		article.Content,
		nullString(article.Category),
		encodeJSON(article.Tags),
		nullString(article.PromptID),
		nullString(article.PromptTitle),
		article.IsPublic,
		article.UserID,
		article.WordCount,
		article.CharCount,
		article.CreatedAt.Format(time.RFC3339),
		article.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting article: %w", err)
	}

	s.logger.Debug("created article", "id", article.ID, "user_id", article.UserID, "title", article.Title)
	return nil
}

// GetArticle retrieves an article by ID.
// Returns ErrNotFound if the article doesn't exist.
func (s *SQLiteStore) GetArticle(ctx context.Context, id string) (*Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = ?`

	article, err := s.scanArticleRow(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return article, err
}

// ListArticles returns articles visible to the viewer: public articles plus
// the viewer's own. Newest first, with optional category filter and paging.
func (s *SQLiteStore) ListArticles(ctx context.Context, viewerID string, filter ListFilter) ([]*Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE (is_public = 1 OR user_id = ?)`
	args := []any{viewerID}

	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.Tag != "" {
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
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var articles []*Article
	for rows.Next() {
		article, err := s.scanArticleRow(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating article rows: %w", err)
	}
	return articles, nil
}

// UpdateArticle persists changes to an article.
// Returns ErrNotFound if the article doesn't exist.
func (s *SQLiteStore) UpdateArticle(ctx context.Context, article *Article) error {
	article.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE articles
		SET title = ?, content = ?, category = ?, tags = ?, prompt_id = ?,
			prompt_title = ?, is_public = ?, word_count = ?, char_count = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		article.Title,
		article.Content,
		nullString(article.Category),
		encodeJSON(article.Tags),
		nullString(article.PromptID),
		nullString(article.PromptTitle),
		article.IsPublic,
		article.WordCount,
		article.CharCount,
		article.UpdatedAt.Format(time.RFC3339),
		article.ID,
	)
	if err != nil {
		return fmt.Errorf("updating article: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated article", "id", article.ID)
	return nil
}

// DeleteArticle removes an article by ID.
// Returns ErrNotFound if the article doesn't exist.
func (s *SQLiteStore) DeleteArticle(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting article: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted article", "id", id)
	return nil
}

func (s *SQLiteStore) scanArticleRow(row scanner) (*Article, error) {
	var article Article
	var category, promptID, promptTitle sql.NullString
	var tags string
	var createdAt, updatedAt string

	err := row.Scan(
		&article.ID,
		&article.Title,
		&article.Content,
		&category,
		&tags,
		&promptID,
		&promptTitle,
		&article.IsPublic,
		&article.UserID,
		&article.WordCount,
		&article.CharCount,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning article row: %w", err)
	}

	article.Category = category.String
	article.Tags = decodeJSON(tags)
	article.PromptID = promptID.String
	article.PromptTitle = promptTitle.String
	article.CreatedAt = s.parseTime("created_at", article.ID, createdAt)
	article.UpdatedAt = s.parseTime("updated_at", article.ID, updatedAt)
	return &article, nil
}
