package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var closeCmd = &cobra.Command{
	Use:   "close [<key>]",
	Short: "Close a session (active -> closed)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClose,
}

func init() {
	rootCmd.AddCommand(closeCmd)
}

func runClose(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	key, err := resolveKey(e, args)
	if err != nil {
		return err
	}

	s, err := e.registry.Close(key)
	if err != nil {
		return err
	}
	fmt.Printf("Closed %s (%d outputs)\n", s.Key, len(s.Outputs))
	return nil
}
