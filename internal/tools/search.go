package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/outpost-cli/outpost/internal/query"
	"github.com/outpost-cli/outpost/internal/session"
)

// SessionSearchTool handles the session_search MCP tool.
type SessionSearchTool struct {
	engine *query.Engine
}

// NewSessionSearchTool creates a SessionSearchTool with the given query engine.
func NewSessionSearchTool(engine *query.Engine) *SessionSearchTool {
	return &SessionSearchTool{engine: engine}
}

// Definition returns the MCP tool definition for session_search.
func (t *SessionSearchTool) Definition() mcp.Tool {
	return mcp.NewTool("session_search",
		mcp.WithDescription(
			"Search sessions by ticket, tag, agent, actor or status. All given "+
				"predicates must match. Ticket, tag and agent accept glob patterns "+
				"(e.g. 'AUTH-*').",
		),
		mcp.WithString("ticket",
			mcp.Description("Ticket filter, exact or glob"),
		),
		mcp.WithString("tag",
			mcp.Description("Tag filter, exact or glob"),
		),
		mcp.WithString("agent",
			mcp.Description("Match sessions with an output produced by this agent"),
		),
		mcp.WithString("actor",
			mcp.Description("Actor (sanitized user name) filter"),
		),
		mcp.WithString("status",
			mcp.Description("Status filter: active, closed, or archived"),
		),
	)
}

// Handle processes the session_search tool call.
func (t *SessionSearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	results, err := t.engine.Search(query.Filter{
		Ticket: req.GetString("ticket", ""),
		Tag:    req.GetString("tag", ""),
		Agent:  req.GetString("agent", ""),
		Actor:  req.GetString("actor", ""),
		Status: session.Status(req.GetString("status", "")),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No matching sessions."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d session(s):\n\n", len(results))
	for _, s := range results {
		fmt.Fprintf(&b, "%s  [%s]  %s/%s  %d output(s)\n",
			s.Key, s.Status, s.Context.Project, s.Context.Ticket, len(s.Outputs))
	}

	return mcp.NewToolResultText(b.String()), nil
}
