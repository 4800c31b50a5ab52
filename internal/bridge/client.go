// ABOUTME: Authenticated REST client used by the MCP bridge
// ABOUTME: Wraps the promptgate HTTP API with bearer auth, timeouts, and error envelope parsing

package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrUpstreamTimeout marks a call that exceeded the client timeout. Callers
// surface it as retryable.
var ErrUpstreamTimeout = errors.New("upstream request timed out")

// UpstreamError carries a non-2xx response from the API server.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// Client is an HTTP client for the promptgate API, authenticated with a
// single bearer credential (normally an API token).
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client for the API at baseURL. Every request carries
// the token as a bearer credential and is bounded by the timeout.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  slog.Default().With("component", "bridge-client"),
	}
}

// Identity is the validated caller identity returned by the API.
type Identity struct {
	Valid bool `json:"valid"`
	User  struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		IsAdmin bool   `json:"is_admin"`
	} `json:"user"`
	Permissions []string `json:"permissions"`
	TokenID     string   `json:"token_id"`
}

// ValidateCredential checks the configured credential against the API.
// The bridge calls this once at startup and treats failure as fatal.
func (c *Client) ValidateCredential(ctx context.Context) (*Identity, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/auth/validate", nil, nil)
	if err != nil {
		return nil, err
	}

	var identity Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("decoding identity: %w", err)
	}
	if !identity.Valid {
		return nil, errors.New("credential rejected by server")
	}
	return &identity, nil
}

// ListOptions narrows prompt and article listings.
type ListOptions struct {
	Category string
	Tag      string
	Limit    int
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.Category != "" {
		q.Set("category", o.Category)
	}
	if o.Tag != "" {
		q.Set("tag", o.Tag)
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	return q
}

// ListPrompts fetches prompts visible to the credential's owner.
func (c *Client) ListPrompts(ctx context.Context, opts ListOptions) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/api/prompts", opts.query(), nil)
}

// GetPrompt fetches one prompt by ID.
func (c *Client) GetPrompt(ctx context.Context, id string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/api/prompts/"+url.PathEscape(id), nil, nil)
}

// CreatePrompt creates a prompt from the given fields.
func (c *Client) CreatePrompt(ctx context.Context, fields map[string]interface{}) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/api/prompts", nil, fields)
}

// UpdatePrompt applies a partial update to a prompt.
func (c *Client) UpdatePrompt(ctx context.Context, id string, fields map[string]interface{}) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, "/api/prompts/"+url.PathEscape(id), nil, fields)
}

// DeletePrompt removes a prompt.
func (c *Client) DeletePrompt(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/prompts/"+url.PathEscape(id), nil, nil)
	return err
}

// ListArticles fetches articles visible to the credential's owner.
func (c *Client) ListArticles(ctx context.Context, opts ListOptions) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/api/articles", opts.query(), nil)
}

// GetArticle fetches one article by ID.
func (c *Client) GetArticle(ctx context.Context, id string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/api/articles/"+url.PathEscape(id), nil, nil)
}

// CreateArticle creates an article from the given fields.
func (c *Client) CreateArticle(ctx context.Context, fields map[string]interface{}) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/api/articles", nil, fields)
}

// do sends one request and returns the raw response body. Non-2xx responses
// become an *UpstreamError carrying the server's error message when the body
// has one, or a generic status line when it does not.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) (json.RawMessage, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w after %s; the request may succeed on retry", ErrUpstreamTimeout, c.http.Timeout)
		}
		return nil, fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("upstream error", "method", method, "path", path, "status", resp.StatusCode)
		return nil, &UpstreamError{
			Status:  resp.StatusCode,
			Message: extractErrorMessage(data, resp.StatusCode),
		}
	}

	return data, nil
}

// extractErrorMessage pulls the error field out of a JSON error envelope,
// falling back to a generic status line for non-JSON bodies.
func extractErrorMessage(body []byte, status int) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return fmt.Sprintf("request failed (status %d)", status)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
