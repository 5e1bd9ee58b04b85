// Outpost: session-based work-output manager
//
// Outpost isolates units of work ("sessions") produced by many
// independent actors writing into a shared hierarchy, tracks the
// artifacts each session produces, and publishes finished outputs
// to shared sinks.
//
// Usage:
//
//	outpost create --ticket PROJ-123 --project payments
//	outpost add-output --file review/auth.md --agent reviewer --type review
//	outpost search --ticket "AUTH-*"
//	outpost serve    # MCP server on stdio for automated producers
package main

import "github.com/outpost-cli/outpost/internal/cli"

func main() {
	cli.Execute()
}
