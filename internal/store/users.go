// ABOUTME: SQLite user store methods for account persistence
// ABOUTME: Users are created at signup/bootstrap and read on every authenticated request

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const userColumns = `id, email, password_hash, first_name, last_name, auth_provider,
	subscription_tier, is_active, is_admin, created_at, updated_at`

// CreateUser inserts a new user.
// Returns ErrDuplicateEmail if the email is already registered.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	if user.AuthProvider == "" {
		user.AuthProvider = "local"
	}
	if user.SubscriptionTier == "" {
		user.SubscriptionTier = "free"
	}

	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, auth_provider,
			subscription_tier, is_active, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		nullString(user.PasswordHash),
		nullString(user.FirstName),
		nullString(user.LastName),
		user.AuthProvider,
		user.SubscriptionTier,
		user.IsActive,
		user.IsAdmin,
		user.CreatedAt.Format(time.RFC3339),
		user.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Debug("created user", "id", user.ID, "email", user.Email)
	return nil
}

// GetUser retrieves a user by ID.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail retrieves a user by email address.
// Returns ErrNotFound if no user has the email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

// CountUsers returns the total number of users.
func (s *SQLiteStore) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*User, error) {
	var user User
	var passwordHash, firstName, lastName sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&user.ID,
		&user.Email,
		&passwordHash,
		&firstName,
		&lastName,
		&user.AuthProvider,
		&user.SubscriptionTier,
		&user.IsActive,
		&user.IsAdmin,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	user.PasswordHash = passwordHash.String
	user.FirstName = firstName.String
	user.LastName = lastName.String
	user.CreatedAt = s.parseTime("created_at", user.ID, createdAt)
	user.UpdatedAt = s.parseTime("updated_at", user.ID, updatedAt)
	return &user, nil
}
