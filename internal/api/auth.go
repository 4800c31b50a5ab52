// ABOUTME: Login and credential-validation endpoints
// ABOUTME: Local email+password login issues session JWTs; validate echoes the normalized identity

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/prompthouse/promptgate/internal/auth"
	"github.com/prompthouse/promptgate/internal/store"
)

// LoginRequest is the JSON request body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the JSON response for a successful login.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"` // seconds
	User        UserResponse `json:"user"`
}

// UserResponse is the public shape of a user account.
type UserResponse struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
	IsAdmin          bool   `json:"is_admin"`
	SubscriptionTier string `json:"subscription_tier"`
}

// ValidateResponse is the JSON response for GET /api/auth/validate.
type ValidateResponse struct {
	Valid       bool         `json:"valid"`
	User        UserResponse `json:"user"`
	Permissions []string     `json:"permissions,omitempty"`
	TokenID     string       `json:"token_id,omitempty"`
}

// handleLogin handles POST /api/auth/login requests.
// Verifies email+password against the stored bcrypt hash and issues a
// session JWT. Lookup failures and password mismatches produce the same
// response so the endpoint does not leak which emails exist.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		s.sendJSONError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		s.sendJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		s.logger.Error("failed to look up user", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if user.PasswordHash == "" {
		// OAuth-only account, no local password to check
		s.sendJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.sendJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !user.IsActive {
		s.sendJSONError(w, http.StatusUnauthorized, "account deactivated")
		return
	}

	sessionToken, err := s.sessions.Generate(user.ID, s.sessionTTL)
	if err != nil {
		s.logger.Error("failed to generate session token", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.logger.Info("user logged in", "user_id", user.ID)

	s.sendJSON(w, http.StatusOK, LoginResponse{
		AccessToken: sessionToken,
		TokenType:   "bearer",
		ExpiresIn:   int(s.sessionTTL.Seconds()),
		User:        toUserResponse(user),
	})
}

// handleValidate handles GET /api/auth/validate requests.
// The auth middleware has already resolved the credential; this endpoint
// just echoes the resulting identity.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := auth.MustFromContext(r.Context())

	s.sendJSON(w, http.StatusOK, ValidateResponse{
		Valid: true,
		User: UserResponse{
			ID:               id.UserID,
			Email:            id.Email,
			IsAdmin:          id.IsAdmin,
			SubscriptionTier: id.SubscriptionTier,
		},
		Permissions: id.Permissions,
		TokenID:     id.TokenID,
	})
}

func toUserResponse(u *store.User) UserResponse {
	return UserResponse{
		ID:               u.ID,
		Email:            u.Email,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		IsAdmin:          u.IsAdmin,
		SubscriptionTier: u.SubscriptionTier,
	}
}
