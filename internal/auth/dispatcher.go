// ABOUTME: HTTP middleware that selects the credential scheme for each request
// ABOUTME: Routes API tokens and session JWTs to their validators, yielding one Identity

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/prompthouse/promptgate/internal/store"
)

// ErrActorInactive marks a credential whose owning account is deactivated.
// Token validators return it (wrapped or bare) so the dispatcher can answer
// with the same message the session path uses.
var ErrActorInactive = errors.New("account is deactivated")

// APITokenPrefix is the fixed structural prefix of API token secrets. A
// bearer value carrying it is routed to API token validation; anything else
// is treated as a session JWT.
const APITokenPrefix = "pgt_"

// Credential carriers, checked in order. The order is load-bearing for
// backward compatibility with existing clients.
const (
	// HeaderAPIKey is the explicit API token header.
	HeaderAPIKey = "X-API-Key"
	// QueryAPIKey is the query-string fallback used by clients that cannot
	// set headers.
	QueryAPIKey = "api_key"
	// BodyAPIKey is the JSON body field fallback used by clients that can
	// set neither headers nor query parameters.
	BodyAPIKey = "token"
)

// bodyTokenLimit bounds the request bodies the dispatcher is willing to
// buffer while looking for a token field. Larger bodies skip the carrier
// rather than be truncated for the handler.
const bodyTokenLimit = 1 << 20

// scheme identifies which credential kind a request presented.
type scheme int

const (
	schemeNone scheme = iota
	schemeAPIToken
	schemeSession
)

// APITokenValidator validates presented API token secrets.
type APITokenValidator interface {
	Validate(ctx context.Context, secret string) (*store.User, *store.APIToken, error)
}

// UserLookup loads users for the session path.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*store.User, error)
}

// extractCredential pulls the credential value out of a request and decides
// which scheme governs it. Carrier precedence: X-API-Key header, api_key
// query parameter, a body token field, then the Authorization bearer value.
// A bearer value is classified by shape: the pgt_ prefix marks an API token,
// everything else is assumed to be a session JWT.
func extractCredential(r *http.Request) (string, scheme) {
	if v := r.Header.Get(HeaderAPIKey); v != "" {
		return v, schemeAPIToken
	}
	if v := r.URL.Query().Get(QueryAPIKey); v != "" {
		return v, schemeAPIToken
	}
	if v := tokenFromBody(r); v != "" {
		return v, schemeAPIToken
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", schemeNone
	}
	value := strings.TrimPrefix(authHeader, "Bearer ")
	if value == authHeader || value == "" {
		return "", schemeNone
	}
	if strings.HasPrefix(value, APITokenPrefix) {
		return value, schemeAPIToken
	}
	return value, schemeSession
}

// tokenFromBody reads the token field out of a small JSON request body,
// restoring the body so the handler still sees every byte. Non-JSON,
// unparseable, empty, and oversized bodies all yield no credential.
func tokenFromBody(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	if r.ContentLength <= 0 || r.ContentLength > bodyTokenLimit {
		return ""
	}
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		return ""
	}

	buf, err := io.ReadAll(io.LimitReader(r.Body, bodyTokenLimit))
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(buf))
	if err != nil {
		return ""
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(buf, &payload); err != nil {
		return ""
	}
	raw, ok := payload[BodyAPIKey]
	if !ok {
		return ""
	}
	var token string
	if err := json.Unmarshal(raw, &token); err != nil {
		return ""
	}
	return token
}

// identityFromUser builds the normalized identity shared by both schemes.
func identityFromUser(user *store.User) *Identity {
	return &Identity{
		UserID:           user.ID,
		Email:            user.Email,
		IsAdmin:          user.IsAdmin,
		IsActive:         user.IsActive,
		SubscriptionTier: user.SubscriptionTier,
	}
}

// Middleware creates an HTTP middleware that authenticates each request and
// attaches the resulting Identity to the request context. Requests without
// a usable credential are rejected with 401.
func Middleware(tokens APITokenValidator, sessions SessionVerifier, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			value, credScheme := extractCredential(r)

			switch credScheme {
			case schemeNone:
				unauthorized(w, "authentication required")
				return

			case schemeAPIToken:
				user, token, err := tokens.Validate(r.Context(), value)
				if err != nil {
					if errors.Is(err, ErrActorInactive) {
						unauthorized(w, "account deactivated")
						return
					}
					unauthorized(w, "invalid token")
					return
				}
				id := identityFromUser(user)
				id.TokenID = token.ID
				id.Permissions = token.Permissions
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))

			case schemeSession:
				userID, err := sessions.Verify(value)
				if err != nil {
					unauthorized(w, "invalid session")
					return
				}
				user, err := users.GetUser(r.Context(), userID)
				if err != nil {
					unauthorized(w, "unknown user")
					return
				}
				if !user.IsActive {
					unauthorized(w, "account deactivated")
					return
				}
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identityFromUser(user))))
			}
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, `{"error":"`+msg+`"}`, http.StatusUnauthorized)
}
