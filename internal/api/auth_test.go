// ABOUTME: Tests for the login and credential-validation endpoints
// ABOUTME: Covers bcrypt verification, session issuance, and both validate paths

package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prompthouse/promptgate/internal/store"
)

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "s3cret", false)

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{
		Email:    "alice@example.com",
		Password: "s3cret",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body LoginResponse
	decode(t, rec, &body)
	assert.Equal(t, "bearer", body.TokenType)
	assert.Equal(t, user.ID, body.User.ID)
	assert.NotEmpty(t, body.AccessToken)

	// The issued token must round-trip through the verifier
	userID, err := env.sessions.Verify(body.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice@example.com", "s3cret", false)

	tests := []struct {
		name string
		req  LoginRequest
	}{
		{"wrong password", LoginRequest{Email: "alice@example.com", Password: "wrong"}},
		{"unknown email", LoginRequest{Email: "nobody@example.com", Password: "s3cret"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/auth/login", "", tt.req)
			require.Equal(t, http.StatusUnauthorized, rec.Code)

			// Both failures must be indistinguishable
			var body map[string]string
			decode(t, rec, &body)
			assert.Equal(t, "invalid credentials", body["error"])
		})
	}
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	env := newTestEnv(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, env.store.CreateUser(context.Background(), &store.User{
		ID:           uuid.New().String(),
		Email:        "inactive@example.com",
		PasswordHash: string(hash),
		IsActive:     false,
	}))

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{
		Email:    "inactive@example.com",
		Password: "pw",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "account deactivated", body["error"])
}

func TestLoginValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/auth/login", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestValidateWithSession(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "s3cret", true)
	session := env.sessionFor(t, user.ID)

	rec := env.do(t, http.MethodGet, "/api/auth/validate", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body ValidateResponse
	decode(t, rec, &body)
	assert.True(t, body.Valid)
	assert.Equal(t, user.ID, body.User.ID)
	assert.Equal(t, "alice@example.com", body.User.Email)
	assert.True(t, body.User.IsAdmin)
	assert.Empty(t, body.TokenID, "session auth carries no token id")
	assert.Empty(t, body.Permissions)
}

func TestValidateWithAPIToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "s3cret", false)
	secret := env.apiTokenFor(t, user.ID, "read", "write")

	rec := env.do(t, http.MethodGet, "/api/auth/validate", secret, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body ValidateResponse
	decode(t, rec, &body)
	assert.True(t, body.Valid)
	assert.Equal(t, user.ID, body.User.ID)
	assert.NotEmpty(t, body.TokenID)
	assert.ElementsMatch(t, []string{"read", "write"}, body.Permissions)
}

func TestValidateRejectsGarbageCredentials(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/auth/validate", "pgt_not_a_real_token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/auth/validate", "not.a.jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
