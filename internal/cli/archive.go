package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive <key>",
	Short: "Archive a closed session (closed -> archived)",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchive,
}

func init() {
	rootCmd.AddCommand(archiveCmd)
}

func runArchive(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	s, err := e.registry.Archive(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Archived %s\n", s.Key)
	return nil
}
