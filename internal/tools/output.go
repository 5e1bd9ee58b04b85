package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/outpost-cli/outpost/internal/promote"
	"github.com/outpost-cli/outpost/internal/session"
)

// OutputAddTool handles the output_add MCP tool.
type OutputAddTool struct {
	registry *session.Registry
}

// NewOutputAddTool creates an OutputAddTool.
func NewOutputAddTool(registry *session.Registry) *OutputAddTool {
	return &OutputAddTool{registry: registry}
}

// Definition returns the MCP tool definition for output_add.
func (t *OutputAddTool) Definition() mcp.Tool {
	return mcp.NewTool("output_add",
		mcp.WithDescription(
			"Register an artifact produced in a session. The path is relative to the "+
				"session directory. Registering the same path twice with identical agent "+
				"and category is a no-op; a different agent or category is a conflict.",
		),
		mcp.WithString("session",
			mcp.Required(),
			mcp.Description("Session key (from session_create or session_current)"),
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Session-relative artifact path (e.g. 'review/auth-changes.md')"),
		),
		mcp.WithString("agent",
			mcp.Required(),
			mcp.Description("Identifier of the producing agent"),
		),
		mcp.WithString("category",
			mcp.Required(),
			mcp.Description("Output category: architecture, analysis, review, report, or artifact"),
		),
	)
}

// Handle processes the output_add tool call.
func (t *OutputAddTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := req.GetString("session", "")
	if key == "" {
		return mcp.NewToolResultError("'session' is required"), nil
	}

	out, err := t.registry.Register(key, session.RegisterParams{
		Path:     req.GetString("path", ""),
		Agent:    req.GetString("agent", ""),
		Category: session.Category(req.GetString("category", "")),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to register output: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Registered %s (%s) in session %s", out.Path, out.Category, key)), nil
}

// ─── OutputPromoteTool ──────────────────────────────────────────────────────

// OutputPromoteTool handles the output_promote MCP tool.
type OutputPromoteTool struct {
	tracker *promote.Tracker
}

// NewOutputPromoteTool creates an OutputPromoteTool.
func NewOutputPromoteTool(tracker *promote.Tracker) *OutputPromoteTool {
	return &OutputPromoteTool{tracker: tracker}
}

// Definition returns the MCP tool definition for output_promote.
func (t *OutputPromoteTool) Definition() mcp.Tool {
	return mcp.NewTool("output_promote",
		mcp.WithDescription(
			"Publish a registered session output to an external sink. Promoting the "+
				"same output to the same sink again requires force=true and increments "+
				"the revision counter.",
		),
		mcp.WithString("session",
			mcp.Required(),
			mcp.Description("Session key"),
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Session-relative path of a registered output"),
		),
		mcp.WithString("sink",
			mcp.Required(),
			mcp.Description("Destination identifier (e.g. 'engineering/auth-redesign')"),
		),
		mcp.WithBoolean("force",
			mcp.Description("If true, update an existing promotion instead of failing"),
		),
	)
}

// Handle processes the output_promote tool call.
func (t *OutputPromoteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, err := t.tracker.Promote(promote.Params{
		SessionKey: req.GetString("session", ""),
		OutputPath: req.GetString("path", ""),
		Sink:       req.GetString("sink", ""),
		Force:      boolArg(req, "force", false),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("promotion failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Promoted %s/%s to %s (revision %d)",
		rec.SessionKey, rec.OutputPath, rec.Sink, rec.Revision)), nil
}
