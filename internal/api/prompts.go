// ABOUTME: Prompt CRUD endpoints with ownership-aware visibility
// ABOUTME: Every mutation runs the authorization predicate before touching the store

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prompthouse/promptgate/internal/auth"
	"github.com/prompthouse/promptgate/internal/authz"
	"github.com/prompthouse/promptgate/internal/store"
	"github.com/prompthouse/promptgate/internal/template"
)

// CreatePromptRequest is the JSON request body for POST /api/prompts.
type CreatePromptRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags,omitempty"`
	Category    string   `json:"category,omitempty"`
	IsPublic    bool     `json:"is_public"`
}

// UpdatePromptRequest is the JSON request body for PUT /api/prompts/{id}.
// Omitted fields are left unchanged.
type UpdatePromptRequest struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Content     *string  `json:"content,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Category    *string  `json:"category,omitempty"`
	IsPublic    *bool    `json:"is_public,omitempty"`
}

// PromptResponse is the JSON shape of a prompt.
type PromptResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`
	Category    string   `json:"category,omitempty"`
	IsPublic    bool     `json:"is_public"`
	Version     int      `json:"version"`
	Variables   []string `json:"variables"`
	UserID      string   `json:"user_id"`
	WordCount   int      `json:"word_count"`
	CharCount   int      `json:"char_count"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// handlePrompts routes /api/prompts requests by HTTP method.
func (s *Server) handlePrompts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListPrompts(w, r)
	case http.MethodPost:
		s.handleCreatePrompt(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleListPrompts handles GET /api/prompts.
// Returns prompts visible to the caller: public ones plus their own.
// Supports ?category=X, ?tag=Y, ?limit=N, ?offset=N.
func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	id := auth.MustFromContext(r.Context())

	filter, err := parseListFilter(r)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	prompts, err := s.store.ListPrompts(r.Context(), id.UserID, filter)
	if err != nil {
		s.logger.Error("failed to list prompts", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := make([]PromptResponse, len(prompts))
	for i, p := range prompts {
		response[i] = toPromptResponse(p)
	}
	s.sendJSON(w, http.StatusOK, response)
}

// handleCreatePrompt handles POST /api/prompts.
func (s *Server) handleCreatePrompt(w http.ResponseWriter, r *http.Request) {
	id := auth.MustFromContext(r.Context())
	if !id.HasPermission("write") {
		s.sendJSONError(w, http.StatusForbidden, "write permission required")
		return
	}

	var req CreatePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title == "" {
		s.sendJSONError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Content == "" {
		s.sendJSONError(w, http.StatusBadRequest, "content is required")
		return
	}

	now := time.Now().UTC()
	prompt := &store.Prompt{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Tags:        req.Tags,
		Category:    req.Category,
		IsPublic:    req.IsPublic,
		Version:     1,
		Variables:   template.ExtractVariables(req.Content),
		UserID:      id.UserID,
		WordCount:   template.CountWords(req.Content),
		CharCount:   template.CountChars(req.Content),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreatePrompt(r.Context(), prompt); err != nil {
		s.logger.Error("failed to create prompt", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.logger.Info("created prompt", "id", prompt.ID, "user_id", id.UserID)
	s.sendJSON(w, http.StatusCreated, toPromptResponse(prompt))
}

// handlePromptByID routes /api/prompts/{id} requests by HTTP method.
func (s *Server) handlePromptByID(w http.ResponseWriter, r *http.Request) {
	promptID := strings.TrimPrefix(r.URL.Path, "/api/prompts/")
	if promptID == "" || strings.Contains(promptID, "/") {
		s.sendJSONError(w, http.StatusBadRequest, "invalid path")
		return
	}

	id := auth.MustFromContext(r.Context())

	prompt, err := s.store.GetPrompt(r.Context(), promptID)
	if errors.Is(err, store.ErrNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "prompt not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get prompt", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch r.Method {
	case http.MethodGet:
		// Private prompts are invisible to everyone but their owner. Reads
		// do not get the admin carve-out that public mutations do.
		if !prompt.IsPublic && prompt.UserID != id.UserID {
			s.sendJSONError(w, http.StatusNotFound, "prompt not found")
			return
		}
		s.sendJSON(w, http.StatusOK, toPromptResponse(prompt))

	case http.MethodPut:
		if !id.HasPermission("write") {
			s.sendJSONError(w, http.StatusForbidden, "write permission required")
			return
		}
		if d := authz.Decide(actorFrom(id), prompt.UserID, prompt.IsPublic); !d.Allowed {
			s.sendDenial(w, d)
			return
		}

		var req UpdatePromptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		applyPromptUpdate(prompt, &req)

		if err := s.store.UpdatePrompt(r.Context(), prompt); err != nil {
			s.logger.Error("failed to update prompt", "error", err)
			s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		s.sendJSON(w, http.StatusOK, toPromptResponse(prompt))

	case http.MethodDelete:
		if !id.HasPermission("write") {
			s.sendJSONError(w, http.StatusForbidden, "write permission required")
			return
		}
		if d := authz.Decide(actorFrom(id), prompt.UserID, prompt.IsPublic); !d.Allowed {
			s.sendDenial(w, d)
			return
		}

		if err := s.store.DeletePrompt(r.Context(), promptID); err != nil {
			s.logger.Error("failed to delete prompt", "error", err)
			s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		s.logger.Info("deleted prompt", "id", promptID, "user_id", id.UserID)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// applyPromptUpdate copies the provided fields onto the prompt. A content
// change recomputes the derived variables and counts; the store bumps the
// version on write.
func applyPromptUpdate(p *store.Prompt, req *UpdatePromptRequest) {
	if req.Title != nil {
		p.Title = *req.Title
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Content != nil {
		p.Content = *req.Content
		p.Variables = template.ExtractVariables(p.Content)
		p.WordCount = template.CountWords(p.Content)
		p.CharCount = template.CountChars(p.Content)
	}
	if req.Tags != nil {
		p.Tags = req.Tags
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.IsPublic != nil {
		p.IsPublic = *req.IsPublic
	}
	p.UpdatedAt = time.Now().UTC()
}

// actorFrom projects an authenticated identity onto the authorization
// predicate's actor view.
func actorFrom(id *auth.Identity) authz.Actor {
	return authz.Actor{ID: id.UserID, IsAdmin: id.IsAdmin}
}

// sendDenial writes a 403 carrying both the human message and the stable
// reason code.
func (s *Server) sendDenial(w http.ResponseWriter, d authz.Decision) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(map[string]string{
		"error":  authz.DenialMessage(d.Reason),
		"reason": d.Reason,
	})
}

// parseListFilter extracts category/tag/limit/offset query parameters.
// Limit defaults to 50 and is capped at 200.
func parseListFilter(r *http.Request) (store.ListFilter, error) {
	filter := store.ListFilter{
		Category: r.URL.Query().Get("category"),
		Tag:      r.URL.Query().Get("tag"),
		Limit:    50,
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			return filter, errors.New("limit must be a positive integer")
		}
		filter.Limit = parsed
		if filter.Limit > 200 {
			filter.Limit = 200
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		parsed, err := strconv.Atoi(offsetStr)
		if err != nil || parsed < 0 {
			return filter, errors.New("offset must be a non-negative integer")
		}
		filter.Offset = parsed
	}

	return filter, nil
}

func toPromptResponse(p *store.Prompt) PromptResponse {
	return PromptResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Content:     p.Content,
		Tags:        emptyIfNil(p.Tags),
		Category:    p.Category,
		IsPublic:    p.IsPublic,
		Version:     p.Version,
		Variables:   emptyIfNil(p.Variables),
		UserID:      p.UserID,
		WordCount:   p.WordCount,
		CharCount:   p.CharCount,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
}

// emptyIfNil keeps JSON arrays as [] instead of null.
func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
