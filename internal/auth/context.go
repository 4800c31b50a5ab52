// ABOUTME: Authenticated identity for tracking the caller through request handlers
// ABOUTME: Provides WithIdentity/FromContext for propagating identity via context

package auth

import (
	"context"
)

// Identity holds the normalized caller information extracted from a request.
// Both credential schemes (session token and API token) converge on this
// shape; handlers never need to know which scheme authenticated the caller.
type Identity struct {
	UserID           string
	Email            string
	IsAdmin          bool
	IsActive         bool
	SubscriptionTier string

	// TokenID and Permissions are set only when the request was
	// authenticated with an API token.
	TokenID     string
	Permissions []string
}

// HasPermission returns true if the identity carries the given permission
// label. Session-authenticated identities carry no token permissions and
// are treated as fully permitted.
func (id *Identity) HasPermission(perm string) bool {
	if id.TokenID == "" {
		return true
	}
	for _, p := range id.Permissions {
		if p == perm || p == "admin" {
			return true
		}
	}
	return false
}

// identityKey is the key type for storing Identity in context.Context.
type identityKey struct{}

// WithIdentity returns a new context with the Identity attached.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext retrieves the Identity from the context, returning nil if not present.
func FromContext(ctx context.Context) *Identity {
	val := ctx.Value(identityKey{})
	if val == nil {
		return nil
	}
	id, ok := val.(*Identity)
	if !ok {
		return nil
	}
	return id
}

// MustFromContext retrieves the Identity from the context, panicking if not present.
func MustFromContext(ctx context.Context) *Identity {
	id := FromContext(ctx)
	if id == nil {
		panic("auth: Identity not found in context")
	}
	return id
}
