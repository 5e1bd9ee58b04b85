// Package tools provides MCP tool handlers for the session workspace.
//
// Each tool handler follows the same pattern:
// - A struct with dependencies injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Automated producers use these instead of shelling out to the CLI: they
// create or resume a session, register the artifacts they emit, search
// prior sessions and promote finished outputs. Precondition failures are
// returned as tool errors, not transport errors.
package tools

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// splitTags parses a comma-separated tag list, dropping empty entries.
func splitTags(tagStr string) []string {
	if tagStr == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(tagStr, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
