package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/outpost-cli/outpost/internal/session"
)

var addOutputCmd = &cobra.Command{
	Use:   "add-output [<key>]",
	Short: "Register an output artifact in a session",
	Long: `Register an artifact produced inside a session. The file path is
relative to the session directory (e.g. review/auth-review.md). Without a
key argument the current session is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAddOutput,
}

var (
	addOutputFile  string
	addOutputAgent string
	addOutputType  string
)

func init() {
	addOutputCmd.Flags().StringVar(&addOutputFile, "file", "", "Session-relative artifact path (required)")
	addOutputCmd.Flags().StringVar(&addOutputAgent, "agent", "", "Producing agent identifier (required)")
	addOutputCmd.Flags().StringVar(&addOutputType, "type", "", "Category: architecture | analysis | review | report | artifact (required)")
	_ = addOutputCmd.MarkFlagRequired("file")
	_ = addOutputCmd.MarkFlagRequired("agent")
	_ = addOutputCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(addOutputCmd)
}

func runAddOutput(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	key, err := resolveKey(e, args)
	if err != nil {
		return err
	}

	out, err := e.registry.Register(key, session.RegisterParams{
		Path:     addOutputFile,
		Agent:    addOutputAgent,
		Category: session.Category(addOutputType),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Registered %s (%s) in %s\n", out.Path, out.Category, key)
	return nil
}
