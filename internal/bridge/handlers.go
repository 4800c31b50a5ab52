// ABOUTME: Tool handlers translating MCP calls into REST requests
// ABOUTME: Argument problems and upstream failures become tool errors, never protocol faults

package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/prompthouse/promptgate/internal/template"
)

// handleListPrompts handles the list_prompts tool.
func (b *Bridge) handleListPrompts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := b.client.ListPrompts(ctx, listOptionsFrom(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return summarizedList("prompt", data)
}

// handleGetPrompt handles the get_prompt tool.
func (b *Bridge) handleGetPrompt(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required"), nil
	}

	data, err := b.client.GetPrompt(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return summarizedItem("Prompt", data)
}

// handleCreatePrompt handles the create_prompt tool.
func (b *Bridge) handleCreatePrompt(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("title argument is required"), nil
	}
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("content argument is required"), nil
	}

	fields := map[string]interface{}{
		"title":   title,
		"content": content,
	}
	copyOptionalFields(request.GetArguments(), fields, "description", "category", "is_public")
	if tags := tagsFrom(request); tags != nil {
		fields["tags"] = tags
	}

	data, err := b.client.CreatePrompt(ctx, fields)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return summarizedItem("Created prompt", data)
}

// handleUpdatePrompt handles the update_prompt tool.
func (b *Bridge) handleUpdatePrompt(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required"), nil
	}

	fields := map[string]interface{}{}
	copyOptionalFields(request.GetArguments(), fields, "title", "content", "description", "category", "is_public")
	if tags := tagsFrom(request); tags != nil {
		fields["tags"] = tags
	}
	if len(fields) == 0 {
		return mcp.NewToolResultError("nothing to update: provide at least one field"), nil
	}

	data, err := b.client.UpdatePrompt(ctx, id, fields)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return summarizedItem("Updated prompt", data)
}

// handleDeletePrompt handles the delete_prompt tool.
func (b *Bridge) handleDeletePrompt(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required"), nil
	}

	if err := b.client.DeletePrompt(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted prompt %s", id)), nil
}

// handleListArticles handles the list_articles tool.
func (b *Bridge) handleListArticles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := b.client.ListArticles(ctx, listOptionsFrom(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return summarizedList("article", data)
}

// handleGetArticle handles the get_article tool.
func (b *Bridge) handleGetArticle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required"), nil
	}

	data, err := b.client.GetArticle(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return summarizedItem("Article", data)
}

// handleCreateArticle handles the create_article tool.
func (b *Bridge) handleCreateArticle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("title argument is required"), nil
	}
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("content argument is required"), nil
	}

	fields := map[string]interface{}{
		"title":   title,
		"content": content,
	}
	copyOptionalFields(request.GetArguments(), fields, "category", "prompt_id", "is_public")
	if tags := tagsFrom(request); tags != nil {
		fields["tags"] = tags
	}

	data, err := b.client.CreateArticle(ctx, fields)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return summarizedItem("Created article", data)
}

// handleGetPromptVariables handles the get_prompt_variables tool. Variables
// are re-extracted from the live content rather than trusting the stored
// list, so the answer is correct even for rows written by older versions.
func (b *Bridge) handleGetPromptVariables(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required"), nil
	}

	data, err := b.client.GetPrompt(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var prompt struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &prompt); err != nil {
		return mcp.NewToolResultError("unexpected response from server"), nil
	}

	variables := template.ExtractVariables(prompt.Content)
	payload, err := json.Marshal(map[string]interface{}{
		"id":        id,
		"title":     prompt.Title,
		"variables": variables,
	})
	if err != nil {
		return mcp.NewToolResultError("failed to encode variables"), nil
	}

	summary := fmt.Sprintf("Prompt %q has %d variable(s)", prompt.Title, len(variables))
	if len(variables) > 0 {
		summary += ": " + strings.Join(variables, ", ")
	}
	return mcp.NewToolResultText(summary + "\n\n" + string(payload)), nil
}

// listOptionsFrom reads the shared optional list filters.
func listOptionsFrom(request mcp.CallToolRequest) ListOptions {
	args := request.GetArguments()
	opts := ListOptions{}
	if v, ok := args["category"].(string); ok {
		opts.Category = v
	}
	if v, ok := args["tag"].(string); ok {
		opts.Tag = v
	}
	// JSON numbers decode as float64
	if v, ok := args["limit"].(float64); ok && v > 0 {
		opts.Limit = int(v)
	}
	return opts
}

// copyOptionalFields copies the named arguments into fields when present.
func copyOptionalFields(args map[string]interface{}, fields map[string]interface{}, names ...string) {
	for _, name := range names {
		if v, ok := args[name]; ok && v != nil {
			fields[name] = v
		}
	}
}

// tagsFrom splits the comma-separated tags argument. Returns nil when the
// argument is absent so callers can tell "not provided" from "empty".
func tagsFrom(request mcp.CallToolRequest) []string {
	raw, ok := request.GetArguments()["tags"].(string)
	if !ok {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	if tags == nil {
		tags = []string{}
	}
	return tags
}

// summarizedList builds the standard list result: a count line followed by
// the raw JSON payload.
func summarizedList(noun string, data json.RawMessage) (*mcp.CallToolResult, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return mcp.NewToolResultError("unexpected response from server"), nil
	}

	plural := noun + "s"
	if len(items) == 1 {
		plural = noun
	}
	return mcp.NewToolResultText(fmt.Sprintf("Found %d %s\n\n%s", len(items), plural, data)), nil
}

// summarizedItem builds the standard single-item result: a one-line summary
// followed by the raw JSON payload.
func summarizedItem(label string, data json.RawMessage) (*mcp.CallToolResult, error) {
	var item struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(data, &item); err != nil {
		return mcp.NewToolResultError("unexpected response from server"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s %q (%s)\n\n%s", label, item.Title, item.ID, data)), nil
}
