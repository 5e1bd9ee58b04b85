package cli

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/outpost-cli/outpost/internal/config"
	"github.com/outpost-cli/outpost/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Long: `Serve exposes session management as MCP tools over stdio so automated
producers can create sessions, register outputs, search and promote
without shelling out to the CLI. Logs go to stderr; stdout belongs to
the transport.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := config.ResolveRoot(flagRoot)
		if err != nil {
			return err
		}
		cfg, err := config.Load(root)
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		s, cleanup, err := server.New(root, cfg, log)
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}
		defer cleanup()

		log.Info().Str("root", root).Msg("serving MCP on stdio")
		return mcpserver.ServeStdio(s)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
