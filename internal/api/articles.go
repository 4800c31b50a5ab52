// ABOUTME: Article CRUD endpoints plus markdown-to-HTML rendering
// ABOUTME: Mutations run the same authorization predicate as prompts

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"github.com/prompthouse/promptgate/internal/auth"
	"github.com/prompthouse/promptgate/internal/authz"
	"github.com/prompthouse/promptgate/internal/store"
	"github.com/prompthouse/promptgate/internal/template"
)

// CreateArticleRequest is the JSON request body for POST /api/articles.
type CreateArticleRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	PromptID string   `json:"prompt_id,omitempty"`
	IsPublic bool     `json:"is_public"`
}

// UpdateArticleRequest is the JSON request body for PUT /api/articles/{id}.
// Omitted fields are left unchanged.
type UpdateArticleRequest struct {
	Title    *string  `json:"title,omitempty"`
	Content  *string  `json:"content,omitempty"`
	Category *string  `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	IsPublic *bool    `json:"is_public,omitempty"`
}

// ArticleResponse is the JSON shape of an article.
type ArticleResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags"`
	PromptID    string   `json:"prompt_id,omitempty"`
	PromptTitle string   `json:"prompt_title,omitempty"`
	IsPublic    bool     `json:"is_public"`
	UserID      string   `json:"user_id"`
	WordCount   int      `json:"word_count"`
	CharCount   int      `json:"char_count"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// ArticleHTMLResponse is the JSON response for GET /api/articles/{id}/html.
type ArticleHTMLResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}

// handleArticles routes /api/articles requests by HTTP method.
func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListArticles(w, r)
	case http.MethodPost:
		s.handleCreateArticle(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleListArticles handles GET /api/articles.
func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	id := auth.MustFromContext(r.Context())

	filter, err := parseListFilter(r)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	articles, err := s.store.ListArticles(r.Context(), id.UserID, filter)
	if err != nil {
		s.logger.Error("failed to list articles", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := make([]ArticleResponse, len(articles))
	for i, a := range articles {
		response[i] = toArticleResponse(a)
	}
	s.sendJSON(w, http.StatusOK, response)
}

// handleCreateArticle handles POST /api/articles.
// When prompt_id is set, the linked prompt must be visible to the caller and
// its title is denormalized onto the article.
func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	id := auth.MustFromContext(r.Context())
	if !id.HasPermission("write") {
		s.sendJSONError(w, http.StatusForbidden, "write permission required")
		return
	}

	var req CreateArticleRequest
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

	var promptTitle string
	if req.PromptID != "" {
		prompt, err := s.store.GetPrompt(r.Context(), req.PromptID)
		if errors.Is(err, store.ErrNotFound) {
			s.sendJSONError(w, http.StatusBadRequest, "linked prompt not found")
			return
		}
		if err != nil {
			s.logger.Error("failed to get linked prompt", "error", err)
			s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if !prompt.IsPublic && prompt.UserID != id.UserID {
			s.sendJSONError(w, http.StatusBadRequest, "linked prompt not found")
			return
		}
		promptTitle = prompt.Title
	}

	now := time.Now().UTC()
	article := &store.Article{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Content:     req.Content,
		Category:    req.Category,
		Tags:        req.Tags,
		PromptID:    req.PromptID,
		PromptTitle: promptTitle,
		IsPublic:    req.IsPublic,
		UserID:      id.UserID,
		WordCount:   template.CountWords(req.Content),
		CharCount:   template.CountChars(req.Content),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateArticle(r.Context(), article); err != nil {
		s.logger.Error("failed to create article", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.logger.Info("created article", "id", article.ID, "user_id", id.UserID)
	s.sendJSON(w, http.StatusCreated, toArticleResponse(article))
}

// handleArticleByID routes /api/articles/{id} and /api/articles/{id}/html
// requests by HTTP method.
func (s *Server) handleArticleByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/articles/")
	articleID, wantHTML := strings.CutSuffix(rest, "/html")
	if articleID == "" || strings.Contains(articleID, "/") {
		s.sendJSONError(w, http.StatusBadRequest, "invalid path")
		return
	}

	id := auth.MustFromContext(r.Context())

	article, err := s.store.GetArticle(r.Context(), articleID)
	if errors.Is(err, store.ErrNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "article not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get article", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// Private articles are invisible to everyone but their owner on the
	// read paths; mutations fall through to the predicate so denials carry
	// a reason.
	invisible := !article.IsPublic && article.UserID != id.UserID

	if wantHTML {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if invisible {
			s.sendJSONError(w, http.StatusNotFound, "article not found")
			return
		}
		s.handleArticleHTML(w, article)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if invisible {
			s.sendJSONError(w, http.StatusNotFound, "article not found")
			return
		}
		s.sendJSON(w, http.StatusOK, toArticleResponse(article))

	case http.MethodPut:
		if !id.HasPermission("write") {
			s.sendJSONError(w, http.StatusForbidden, "write permission required")
			return
		}
		if d := authz.Decide(actorFrom(id), article.UserID, article.IsPublic); !d.Allowed {
			s.sendDenial(w, d)
			return
		}

		var req UpdateArticleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		applyArticleUpdate(article, &req)

		if err := s.store.UpdateArticle(r.Context(), article); err != nil {
			s.logger.Error("failed to update article", "error", err)
			s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		s.sendJSON(w, http.StatusOK, toArticleResponse(article))

	case http.MethodDelete:
		if !id.HasPermission("write") {
			s.sendJSONError(w, http.StatusForbidden, "write permission required")
			return
		}
		if d := authz.Decide(actorFrom(id), article.UserID, article.IsPublic); !d.Allowed {
			s.sendDenial(w, d)
			return
		}

		if err := s.store.DeleteArticle(r.Context(), articleID); err != nil {
			s.logger.Error("failed to delete article", "error", err)
			s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		s.logger.Info("deleted article", "id", articleID, "user_id", id.UserID)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleArticleHTML renders the article's markdown content to HTML.
func (s *Server) handleArticleHTML(w http.ResponseWriter, article *store.Article) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(article.Content), &buf); err != nil {
		s.logger.Error("failed to render article", "error", err, "id", article.ID)
		s.sendJSONError(w, http.StatusInternalServerError, "failed to render article")
		return
	}

	s.sendJSON(w, http.StatusOK, ArticleHTMLResponse{
		ID:    article.ID,
		Title: article.Title,
		HTML:  buf.String(),
	})
}

// applyArticleUpdate copies the provided fields onto the article and
// recomputes the derived counts on a content change.
func applyArticleUpdate(a *store.Article, req *UpdateArticleRequest) {
	if req.Title != nil {
		a.Title = *req.Title
	}
	if req.Content != nil {
		a.Content = *req.Content
		a.WordCount = template.CountWords(a.Content)
		a.CharCount = template.CountChars(a.Content)
	}
	if req.Category != nil {
		a.Category = *req.Category
	}
	if req.Tags != nil {
		a.Tags = req.Tags
	}
	if req.IsPublic != nil {
		a.IsPublic = *req.IsPublic
	}
	a.UpdatedAt = time.Now().UTC()
}

func toArticleResponse(a *store.Article) ArticleResponse {
	return ArticleResponse{
		ID:          a.ID,
		Title:       a.Title,
		Content:     a.Content,
		Category:    a.Category,
		Tags:        emptyIfNil(a.Tags),
		PromptID:    a.PromptID,
		PromptTitle: a.PromptTitle,
		IsPublic:    a.IsPublic,
		UserID:      a.UserID,
		WordCount:   a.WordCount,
		CharCount:   a.CharCount,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   a.UpdatedAt.Format(time.RFC3339),
	}
}
