// ABOUTME: API token lifecycle service: issue, validate, update, revoke
// ABOUTME: Secrets are high-entropy pgt_ strings; only SHA-256 hashes persist

package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prompthouse/promptgate/internal/auth"
	"github.com/prompthouse/promptgate/internal/store"
)

// Token service errors
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenInactive = errors.New("token is inactive")
	ErrTokenExpired  = errors.New("token expired")
	// ErrActorInactive is shared with the dispatcher so it can report a
	// deactivated account distinctly from a bad token.
	ErrActorInactive      = auth.ErrActorInactive
	ErrTokenLimit         = errors.New("active token limit reached")
	ErrInvalidPermissions = errors.New("invalid permission")
)

// MaxActiveTokens is the per-user cap on active tokens.
const MaxActiveTokens = 10

// secretBytes is the entropy of a generated secret (256 bits).
const secretBytes = 32

// validPermissions is the fixed set of grantable permission labels.
var validPermissions = map[string]bool{
	"read":  true,
	"write": true,
	"admin": true,
}

// Store is the persistence surface the token service needs.
type Store interface {
	store.TokenStore
	GetUser(ctx context.Context, id string) (*store.User, error)
}

// Service manages the full lifecycle of API tokens.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a token service backed by the given store.
func NewService(s Store) *Service {
	return &Service{
		store:  s,
		logger: slog.Default().With("component", "token"),
	}
}

// IssueRequest describes a new token.
type IssueRequest struct {
	Name          string
	Description   string
	Permissions   []string
	ExpiresInDays int // 0 = never expires
}

// Issued is returned from Issue. Secret is the plaintext token value; this
// is the only time it is ever disclosed.
type Issued struct {
	Token  *store.APIToken
	Secret string
}

// Issue creates a new API token for owner and returns the plaintext secret
// exactly once. Fails with ErrTokenLimit when the owner already has
// MaxActiveTokens active tokens, and with ErrInvalidPermissions when a
// requested label is outside the fixed set.
//
// The cap is enforced as count-then-insert: two concurrent Issue calls can
// let an owner end up one over the limit. That race is accepted; the cap is
// a guardrail, not a correctness invariant.
func (s *Service) Issue(ctx context.Context, ownerID string, req IssueRequest) (*Issued, error) {
	perms := req.Permissions
	if len(perms) == 0 {
		perms = []string{"read"}
	}
	for _, p := range perms {
		if !validPermissions[p] {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPermissions, p)
		}
	}

	count, err := s.store.CountActiveTokens(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("counting active tokens: %w", err)
	}
	if count >= MaxActiveTokens {
		return nil, ErrTokenLimit
	}

	secret, err := generateSecret()
	if err != nil {
		return nil, fmt.Errorf("generating secret: %w", err)
	}

	token := &store.APIToken{
		Name:        req.Name,
		Description: req.Description,
		TokenHash:   HashSecret(secret),
		UserID:      ownerID,
		Permissions: perms,
		IsActive:    true,
	}
	if req.ExpiresInDays > 0 {
		expiresAt := time.Now().UTC().AddDate(0, 0, req.ExpiresInDays)
		token.ExpiresAt = &expiresAt
	}

	if err := s.store.CreateToken(ctx, token); err != nil {
		return nil, fmt.Errorf("persisting token: %w", err)
	}

	s.logger.Info("issued token", "id", token.ID, "user_id", ownerID, "name", token.Name)
	return &Issued{Token: token, Secret: secret}, nil
}

// Validate checks a presented secret and returns the owning user and token
// metadata. On success the token's last-used timestamp and usage counter
// are updated; that write is best-effort and last-write-wins under
// concurrent validations.
func (s *Service) Validate(ctx context.Context, secret string) (*store.User, *store.APIToken, error) {
	token, err := s.store.GetTokenByHash(ctx, HashSecret(secret))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, ErrInvalidToken
	}
	if err != nil {
		return nil, nil, fmt.Errorf("looking up token: %w", err)
	}

	if !token.IsActive {
		return nil, nil, ErrTokenInactive
	}
	if token.ExpiresAt != nil && token.ExpiresAt.Before(time.Now()) {
		return nil, nil, ErrTokenExpired
	}

	user, err := s.store.GetUser(ctx, token.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("looking up token owner: %w", err)
	}
	if !user.IsActive {
		return nil, nil, ErrActorInactive
	}

	if err := s.store.TouchToken(ctx, token.ID, time.Now()); err != nil {
		s.logger.Warn("failed to record token usage", "id", token.ID, "error", err)
	}

	return user, token, nil
}

// UpdateRequest carries the mutable token fields. Nil pointers leave the
// field unchanged.
type UpdateRequest struct {
	Name        *string
	Description *string
	Permissions []string
	IsActive    *bool
}

// Update mutates a token's name, description, permissions, or active flag.
// Returns store.ErrNotFound when the token does not exist or belongs to a
// different owner.
func (s *Service) Update(ctx context.Context, ownerID, tokenID string, req UpdateRequest) (*store.APIToken, error) {
	token, err := s.store.GetToken(ctx, ownerID, tokenID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		token.Name = *req.Name
	}
	if req.Description != nil {
		token.Description = *req.Description
	}
	if req.Permissions != nil {
		for _, p := range req.Permissions {
			if !validPermissions[p] {
				return nil, fmt.Errorf("%w: %q", ErrInvalidPermissions, p)
			}
		}
		token.Permissions = req.Permissions
	}
	if req.IsActive != nil {
		token.IsActive = *req.IsActive
	}

	if err := s.store.UpdateToken(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// Revoke hard-deletes a token. Returns store.ErrNotFound when the token
// does not exist or belongs to a different owner.
func (s *Service) Revoke(ctx context.Context, ownerID, tokenID string) error {
	if err := s.store.DeleteToken(ctx, ownerID, tokenID); err != nil {
		return err
	}
	s.logger.Info("revoked token", "id", tokenID, "user_id", ownerID)
	return nil
}

// List returns the owner's token metadata, newest first. Secrets are not
// recoverable; use MaskedPreview for display.
func (s *Service) List(ctx context.Context, ownerID string) ([]*store.APIToken, error) {
	return s.store.ListTokens(ctx, ownerID)
}

// MaskedPreview returns a display-safe stand-in for a token's secret: the
// prefix plus the first characters of the stored hash. The plaintext cannot
// be reconstructed from it.
func MaskedPreview(t *store.APIToken) string {
	tail := t.TokenHash
	if len(tail) > 6 {
		tail = tail[:6]
	}
	return auth.APITokenPrefix + "..." + tail
}

// HashSecret returns the hex-encoded SHA-256 digest of a secret. Lookup by
// digest gives constant-time comparison for free.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// generateSecret produces a new plaintext token value: the fixed prefix
// plus 256 bits of randomness, base64url-encoded.
func generateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return auth.APITokenPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// Ensure Service satisfies the dispatcher's validator interface.
var _ auth.APITokenValidator = (*Service)(nil)
