// ABOUTME: MCP stdio server exposing prompt and article tools to editors
// ABOUTME: Validates the configured credential once at startup, then serves until stdin closes or the context ends

package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const serverName = "promptgate-mcp"

// Bridge translates MCP tool calls into authenticated REST calls against the
// promptgate API.
type Bridge struct {
	client   *Client
	server   *server.MCPServer
	logger   *slog.Logger
	identity *Identity
}

// New creates a bridge over the given API client with all tools registered.
func New(client *Client, version string) *Bridge {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithPromptCapabilities(false),
	)

	b := &Bridge{
		client: client,
		server: s,
		logger: slog.Default().With("component", "bridge"),
	}
	b.registerTools()
	return b
}

// Run validates the configured credential, then serves MCP over stdio until
// the client disconnects or ctx is cancelled. A credential failure is the
// only fatal startup path; the cached identity is not re-validated
// afterwards.
func (b *Bridge) Run(ctx context.Context) error {
	identity, err := b.client.ValidateCredential(ctx)
	if err != nil {
		return fmt.Errorf("validating credential: %w", err)
	}
	b.identity = identity

	b.logger.Info("credential validated",
		"user_id", identity.User.ID,
		"email", identity.User.Email,
		"permissions", identity.Permissions,
	)

	return server.NewStdioServer(b.server).Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools declares the static tool registry. Argument schemas are
// enforced here; handlers re-check required strings and answer with tool
// errors, never transport faults.
func (b *Bridge) registerTools() {
	b.server.AddTool(mcp.NewTool("list_prompts",
		mcp.WithDescription("List prompts visible to you: public prompts plus your own. Supports optional filters."),
		mcp.WithString("category", mcp.Description("Only prompts in this category")),
		mcp.WithString("tag", mcp.Description("Only prompts carrying this tag")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of prompts to return")),
	), b.handleListPrompts)

	b.server.AddTool(mcp.NewTool("get_prompt",
		mcp.WithDescription("Fetch a single prompt by ID, including its content and template variables"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Prompt ID")),
	), b.handleGetPrompt)

	b.server.AddTool(mcp.NewTool("create_prompt",
		mcp.WithDescription("Create a new prompt. Template variables like {{topic}} are extracted automatically."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Prompt title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Prompt text, may contain {{variable}} placeholders")),
		mcp.WithString("description", mcp.Description("Short description of what the prompt does")),
		mcp.WithString("category", mcp.Description("Category label")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
		mcp.WithBoolean("is_public", mcp.Description("Whether the prompt is visible to other users (default false)")),
	), b.handleCreatePrompt)

	b.server.AddTool(mcp.NewTool("update_prompt",
		mcp.WithDescription("Update an existing prompt. Only the provided fields change; each update bumps the version."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Prompt ID")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("content", mcp.Description("New prompt text")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("category", mcp.Description("New category")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags, replacing the existing set")),
		mcp.WithBoolean("is_public", mcp.Description("New visibility")),
	), b.handleUpdatePrompt)

	b.server.AddTool(mcp.NewTool("delete_prompt",
		mcp.WithDescription("Delete a prompt by ID"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Prompt ID")),
	), b.handleDeletePrompt)

	b.server.AddTool(mcp.NewTool("list_articles",
		mcp.WithDescription("List articles visible to you: public articles plus your own. Supports optional filters."),
		mcp.WithString("category", mcp.Description("Only articles in this category")),
		mcp.WithString("tag", mcp.Description("Only articles carrying this tag")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of articles to return")),
	), b.handleListArticles)

	b.server.AddTool(mcp.NewTool("get_article",
		mcp.WithDescription("Fetch a single article by ID, including its markdown content"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Article ID")),
	), b.handleGetArticle)

	b.server.AddTool(mcp.NewTool("create_article",
		mcp.WithDescription("Save a markdown article, optionally linked to the prompt that produced it"),
		mcp.WithString("title", mcp.Required(), mcp.Description("Article title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Article body in markdown")),
		mcp.WithString("category", mcp.Description("Category label")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
		mcp.WithString("prompt_id", mcp.Description("ID of the prompt this article was generated from")),
		mcp.WithBoolean("is_public", mcp.Description("Whether the article is visible to other users (default false)")),
	), b.handleCreateArticle)

	b.server.AddTool(mcp.NewTool("get_prompt_variables",
		mcp.WithDescription("List the {{variable}} placeholders of a prompt, in order of first appearance"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Prompt ID")),
	), b.handleGetPromptVariables)
}
