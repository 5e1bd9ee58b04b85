package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/outpost-cli/outpost/internal/identity"
	"github.com/outpost-cli/outpost/internal/session"
)

// SessionCreateTool handles the session_create MCP tool.
type SessionCreateTool struct {
	registry *session.Registry
}

// NewSessionCreateTool creates a SessionCreateTool with the given registry.
func NewSessionCreateTool(registry *session.Registry) *SessionCreateTool {
	return &SessionCreateTool{registry: registry}
}

// Definition returns the MCP tool definition for session_create.
func (t *SessionCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("session_create",
		mcp.WithDescription(
			"Create a new work session for a ticket and project, and make it "+
				"the current session. Call this ONCE at the start of a piece of work; "+
				"subsequent outputs go to the same session via output_add.",
		),
		mcp.WithString("ticket",
			mcp.Required(),
			mcp.Description("Ticket identifier (e.g. 'PROJ-123')"),
		),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project name"),
		),
		mcp.WithString("retention",
			mcp.Description("Retention policy: project, sprint, or temporary (default: project)"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags for later search"),
		),
	)
}

// Handle processes the session_create tool call.
func (t *SessionCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticket := req.GetString("ticket", "")
	project := req.GetString("project", "")

	if ticket == "" {
		return mcp.NewToolResultError("'ticket' is required"), nil
	}
	if project == "" {
		return mcp.NewToolResultError("'project' is required"), nil
	}

	policy := session.Policy(req.GetString("retention", string(session.PolicyProject)))

	s, err := t.registry.Create(session.CreateParams{
		Actor: identity.Resolve(),
		Context: session.WorkContext{
			Ticket:  ticket,
			Project: project,
			Branch:  identity.WorkContext(),
		},
		Policy: policy,
		Tags:   splitTags(req.GetString("tags", "")),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create session: %v", err)), nil
	}
	if err := t.registry.Use(s.Key); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to set current session: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Session created: %s\nExpires: %s",
		s.Key, s.Retention.ExpiresAt)), nil
}

// ─── SessionCurrentTool ─────────────────────────────────────────────────────

// SessionCurrentTool handles the session_current MCP tool.
type SessionCurrentTool struct {
	registry *session.Registry
}

// NewSessionCurrentTool creates a SessionCurrentTool.
func NewSessionCurrentTool(registry *session.Registry) *SessionCurrentTool {
	return &SessionCurrentTool{registry: registry}
}

// Definition returns the MCP tool definition for session_current.
func (t *SessionCurrentTool) Definition() mcp.Tool {
	return mcp.NewTool("session_current",
		mcp.WithDescription(
			"Report the current session's key, status, work context and output count. "+
				"Use this to find where new outputs should be registered.",
		),
	)
}

// Handle processes the session_current tool call.
func (t *SessionCurrentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, err := t.registry.Current()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to resolve current session: %v", err)), nil
	}
	if s == nil {
		return mcp.NewToolResultText("No current session. Create one with session_create."), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Current session: %s\nStatus: %s\nContext: %s/%s\nOutputs: %d",
		s.Key, s.Status, s.Context.Project, s.Context.Ticket, len(s.Outputs))), nil
}
