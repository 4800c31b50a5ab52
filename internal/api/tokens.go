// ABOUTME: API token management endpoints (create, list, update, revoke)
// ABOUTME: The plaintext secret appears exactly once, in the create response

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prompthouse/promptgate/internal/auth"
	"github.com/prompthouse/promptgate/internal/store"
	"github.com/prompthouse/promptgate/internal/token"
)

// CreateTokenRequest is the JSON request body for POST /api/tokens.
type CreateTokenRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Permissions   []string `json:"permissions,omitempty"`
	ExpiresInDays int      `json:"expires_in_days,omitempty"`
}

// UpdateTokenRequest is the JSON request body for PUT /api/tokens/{id}.
// Omitted fields are left unchanged.
type UpdateTokenRequest struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

// TokenResponse is the metadata shape for token listings and updates.
// It never carries the secret or its hash.
type TokenResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	TokenPreview string   `json:"token_preview"`
	Permissions  []string `json:"permissions"`
	IsActive     bool     `json:"is_active"`
	LastUsedAt   *string  `json:"last_used_at"`
	UsageCount   int      `json:"usage_count"`
	ExpiresAt    *string  `json:"expires_at"`
	CreatedAt    string   `json:"created_at"`
}

// CreateTokenResponse is the JSON response for POST /api/tokens. Token is the
// plaintext secret; it is not recoverable after this response.
type CreateTokenResponse struct {
	TokenResponse
	Token string `json:"token"`
}

// handleTokens routes /api/tokens requests by HTTP method.
func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListTokens(w, r)
	case http.MethodPost:
		s.handleCreateToken(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleListTokens handles GET /api/tokens.
func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	id := auth.MustFromContext(r.Context())

	tokens, err := s.tokens.List(r.Context(), id.UserID)
	if err != nil {
		s.logger.Error("failed to list tokens", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := make([]TokenResponse, len(tokens))
	for i, t := range tokens {
		response[i] = toTokenResponse(t)
	}
	s.sendJSON(w, http.StatusOK, response)
}

// handleCreateToken handles POST /api/tokens.
func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	id := auth.MustFromContext(r.Context())

	var req CreateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		s.sendJSONError(w, http.StatusBadRequest, "name is required")
		return
	}

	issued, err := s.tokens.Issue(r.Context(), id.UserID, token.IssueRequest{
		Name:          req.Name,
		Description:   req.Description,
		Permissions:   req.Permissions,
		ExpiresInDays: req.ExpiresInDays,
	})
	switch {
	case errors.Is(err, token.ErrTokenLimit):
		s.sendJSONError(w, http.StatusBadRequest, "active token limit reached")
		return
	case errors.Is(err, token.ErrInvalidPermissions):
		s.sendJSONError(w, http.StatusBadRequest, "permissions must be a subset of read, write, admin")
		return
	case err != nil:
		s.logger.Error("failed to issue token", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.sendJSON(w, http.StatusCreated, CreateTokenResponse{
		TokenResponse: toTokenResponse(issued.Token),
		Token:         issued.Secret,
	})
}

// handleTokenByID routes /api/tokens/{id} requests by HTTP method.
func (s *Server) handleTokenByID(w http.ResponseWriter, r *http.Request) {
	tokenID := strings.TrimPrefix(r.URL.Path, "/api/tokens/")
	if tokenID == "" || strings.Contains(tokenID, "/") {
		s.sendJSONError(w, http.StatusBadRequest, "invalid path")
		return
	}

	id := auth.MustFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		t, err := s.store.GetToken(r.Context(), id.UserID, tokenID)
		if errors.Is(err, store.ErrNotFound) {
			s.sendJSONError(w, http.StatusNotFound, "token not found")
			return
		}
		if err != nil {
			s.logger.Error("failed to get token", "error", err)
			s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		s.sendJSON(w, http.StatusOK, toTokenResponse(t))

	case http.MethodPut:
		var req UpdateTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		updated, err := s.tokens.Update(r.Context(), id.UserID, tokenID, token.UpdateRequest{
			Name:        req.Name,
			Description: req.Description,
			Permissions: req.Permissions,
			IsActive:    req.IsActive,
		})
		switch {
		case errors.Is(err, store.ErrNotFound):
			s.sendJSONError(w, http.StatusNotFound, "token not found")
			return
		case errors.Is(err, token.ErrInvalidPermissions):
			s.sendJSONError(w, http.StatusBadRequest, "permissions must be a subset of read, write, admin")
			return
		case err != nil:
			s.logger.Error("failed to update token", "error", err)
			s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		s.sendJSON(w, http.StatusOK, toTokenResponse(updated))

	case http.MethodDelete:
		err := s.tokens.Revoke(r.Context(), id.UserID, tokenID)
		if errors.Is(err, store.ErrNotFound) {
			s.sendJSONError(w, http.StatusNotFound, "token not found")
			return
		}
		if err != nil {
			s.logger.Error("failed to revoke token", "error", err)
			s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func toTokenResponse(t *store.APIToken) TokenResponse {
	return TokenResponse{
		ID:           t.ID,
		Name:         t.Name,
		Description:  t.Description,
		TokenPreview: token.MaskedPreview(t),
		Permissions:  t.Permissions,
		IsActive:     t.IsActive,
		LastUsedAt:   formatTimePtr(t.LastUsedAt),
		UsageCount:   t.UsageCount,
		ExpiresAt:    formatTimePtr(t.ExpiresAt),
		CreatedAt:    t.CreatedAt.Format(time.RFC3339),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
