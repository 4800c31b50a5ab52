// ABOUTME: Store interface and data types for promptgate persistence
// ABOUTME: Defines User, APIToken, Prompt, Article structs and store interfaces

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when creating a user with an email that is taken
var ErrDuplicateEmail = errors.New("email already registered")

// User represents an authenticated account. Users are created by the
// identity layer (local signup or bootstrap); this core mostly reads them.
type User struct {
	ID               string
	Email            string
	PasswordHash     string // bcrypt hash, empty for OAuth-only accounts
	FirstName        string
	LastName         string
	AuthProvider     string // "local" | "google"
	SubscriptionTier string // opaque here, e.g. "free", "premium"
	IsActive         bool
	IsAdmin          bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// APIToken represents a long-lived bearer credential. Only the SHA-256 hash
// of the secret is persisted; the plaintext exists once, at creation time.
type APIToken struct {
	ID          string
	Name        string
	Description string
	TokenHash   string // hex-encoded SHA-256 of the plaintext secret
	UserID      string
	Permissions []string // subset of {"read", "write", "admin"}
	IsActive    bool
	LastUsedAt  *time.Time
	UsageCount  int
	ExpiresAt   *time.Time // nil = never expires
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Prompt is a stored prompt template with owner and visibility.
type Prompt struct {
	ID          string
	Title       string
	Description string
	Content     string
	Tags        []string
	Category    string
	IsPublic    bool
	Version     int
	Variables   []string // {{placeholder}} names extracted from content
	UserID      string
	WordCount   int
	CharCount   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Article is a stored markdown document, optionally linked to the prompt
// that produced it.
type Article struct {
	ID          string
	Title       string
	Content     string // markdown
	Category    string
	Tags        []string
	PromptID    string // optional backlink to the source prompt
	PromptTitle string
	IsPublic    bool
	UserID      string
	WordCount   int
	CharCount   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ListFilter narrows prompt/article listings. Zero values mean "no filter".
type ListFilter struct {
	Category string
	Tag      string
	Limit    int // 0 = no limit
	Offset   int
}

// UserStore defines user persistence operations.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CountUsers(ctx context.Context) (int, error)
}

// TokenStore defines API token persistence operations. Mutating methods are
// scoped by owner: a token that exists but belongs to someone else behaves
// as if it did not exist.
type TokenStore interface {
	CreateToken(ctx context.Context, token *APIToken) error
	GetToken(ctx context.Context, userID, id string) (*APIToken, error)
	GetTokenByHash(ctx context.Context, hash string) (*APIToken, error)
	ListTokens(ctx context.Context, userID string) ([]*APIToken, error)
	CountActiveTokens(ctx context.Context, userID string) (int, error)
	UpdateToken(ctx context.Context, token *APIToken) error
	DeleteToken(ctx context.Context, userID, id string) error
	TouchToken(ctx context.Context, id string, usedAt time.Time) error
}

// PromptStore defines prompt persistence operations.
type PromptStore interface {
	CreatePrompt(ctx context.Context, prompt *Prompt) error
	GetPrompt(ctx context.Context, id string) (*Prompt, error)
	ListPrompts(ctx context.Context, viewerID string, filter ListFilter) ([]*Prompt, error)
	UpdatePrompt(ctx context.Context, prompt *Prompt) error
	DeletePrompt(ctx context.Context, id string) error
}

// ArticleStore defines article persistence operations.
type ArticleStore interface {
	CreateArticle(ctx context.Context, article *Article) error
	GetArticle(ctx context.Context, id string) (*Article, error)
	ListArticles(ctx context.Context, viewerID string, filter ListFilter) ([]*Article, error)
	UpdateArticle(ctx context.Context, article *Article) error
	DeleteArticle(ctx context.Context, id string) error
}

// Store combines all persistence interfaces.
type Store interface {
	UserStore
	TokenStore
	PromptStore
	ArticleStore

	// Ping verifies database connectivity (used by the health endpoint)
	Ping(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}
