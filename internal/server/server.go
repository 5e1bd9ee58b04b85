// Package server wires the MCP surface and creates the server instance.
//
// This is the composition root: it builds the concrete store, registry,
// query engine and promotion tracker, and injects them into the tools.
// No business logic lives here, only wiring.
package server

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/outpost-cli/outpost/internal/config"
	"github.com/outpost-cli/outpost/internal/index"
	"github.com/outpost-cli/outpost/internal/promote"
	"github.com/outpost-cli/outpost/internal/query"
	"github.com/outpost-cli/outpost/internal/session"
	"github.com/outpost-cli/outpost/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server with all session tools registered against a
// store rooted at root.
//
// The returned cleanup function closes the query index and must be called
// on shutdown (typically via defer). It is always non-nil and safe to call
// even if the index failed to open.
func New(root string, cfg config.Config, log zerolog.Logger) (*server.MCPServer, func(), error) {
	store := session.NewFileStore(root)
	registry := session.NewRegistry(store, cfg, log)
	engine := query.NewEngine(store, log)
	tracker := promote.NewTracker(store, registry, log)

	// The index is an accelerator. If it cannot be opened the server still
	// works off full record scans.
	cleanup := noop
	ix, err := index.Open(root)
	if err != nil {
		log.Warn().Err(err).Msg("query index unavailable, using full scans")
	} else {
		registry.SetIndexer(ix)
		engine.SetLookup(ix)
		cleanup = func() {
			if err := ix.Close(); err != nil {
				log.Warn().Err(err).Msg("query index close")
			}
		}
	}

	s := server.NewMCPServer(
		"outpost",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	create := tools.NewSessionCreateTool(registry)
	s.AddTool(create.Definition(), create.Handle)

	current := tools.NewSessionCurrentTool(registry)
	s.AddTool(current.Definition(), current.Handle)

	outputAdd := tools.NewOutputAddTool(registry)
	s.AddTool(outputAdd.Definition(), outputAdd.Handle)

	search := tools.NewSessionSearchTool(engine)
	s.AddTool(search.Definition(), search.Handle)

	outputPromote := tools.NewOutputPromoteTool(tracker)
	s.AddTool(outputPromote.Definition(), outputPromote.Handle)

	return s, cleanup, nil
}

// noop is the default cleanup when the index is unavailable.
func noop() {}

// serverInstructions tells a connected agent how to use the session tools.
func serverInstructions() string {
	return `You have access to outpost, a session-based work-output manager.

## Workflow

1. At the start of a piece of work, call session_create with the ticket
   and project you are working on. This becomes the current session.
2. Every time you produce a durable artifact (a design note, an analysis,
   a review, a report), write the file under the session directory and
   register it with output_add. Categories: architecture, analysis,
   review, report, artifact.
3. Before starting, call session_search to find prior sessions for the
   same ticket or topic and reuse their outputs as context.
4. When an output is final and should be visible outside the session,
   call output_promote with a sink identifier. Promoting the same output
   to the same sink twice requires force=true and bumps the revision.

## Rules

- One session per unit of work. Do not mix tickets in one session.
- Register outputs as you produce them, not in a batch at the end.
- Registering the same path twice with the same agent and category is
  safe (no-op). A different agent or category for an existing path is
  rejected; pick a new path instead.
- Outputs in closed or archived sessions cannot be added to.`
}
