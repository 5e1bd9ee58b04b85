package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/outpost-cli/outpost/internal/config"
	"github.com/outpost-cli/outpost/internal/index"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the store root with default configuration",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := config.ResolveRoot(flagRoot)
	if err != nil {
		return err
	}

	if err := config.WriteDefault(root); err != nil {
		return err
	}

	ix, err := index.Open(root)
	if err != nil {
		return err
	}
	defer ix.Close()

	fmt.Printf("Initialized outpost store at %s\n", root)
	return nil
}
