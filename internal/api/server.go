// ABOUTME: HTTP API server wiring routes, middleware, and JSON helpers
// ABOUTME: All authenticated routes pass through the credential dispatcher

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prompthouse/promptgate/internal/auth"
	"github.com/prompthouse/promptgate/internal/store"
	"github.com/prompthouse/promptgate/internal/token"
)

// Server holds the dependencies for the HTTP API handlers.
type Server struct {
	store      store.Store
	tokens     *token.Service
	sessions   *auth.JWTVerifier
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewServer creates an API server backed by the given store and credential
// validators.
func NewServer(st store.Store, tokens *token.Service, sessions *auth.JWTVerifier, sessionTTL time.Duration) *Server {
	return &Server{
		store:      st,
		tokens:     tokens,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		logger:     slog.Default().With("component", "api"),
	}
}

// Handler builds the route table. Login and health are public; everything
// else requires a credential and goes through the auth middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/auth/login", s.handleLogin)

	authed := auth.Middleware(s.tokens, s.sessions, s.store)

	mux.Handle("/api/auth/validate", authed(http.HandlerFunc(s.handleValidate)))
	mux.Handle("/api/tokens", authed(http.HandlerFunc(s.handleTokens)))
	mux.Handle("/api/tokens/", authed(http.HandlerFunc(s.handleTokenByID)))
	mux.Handle("/api/prompts", authed(http.HandlerFunc(s.handlePrompts)))
	mux.Handle("/api/prompts/", authed(http.HandlerFunc(s.handlePromptByID)))
	mux.Handle("/api/articles", authed(http.HandlerFunc(s.handleArticles)))
	mux.Handle("/api/articles/", authed(http.HandlerFunc(s.handleArticleByID)))

	return mux
}

// handleHealth handles GET /health requests.
// Reports database connectivity alongside the status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		s.sendJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "unhealthy",
			"database": "unreachable",
		})
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"database": "connected",
	})
}

// sendJSON writes a JSON response with the given status code.
func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
