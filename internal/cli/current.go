package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Print the current session key",
	RunE:  runCurrent,
}

func init() {
	rootCmd.AddCommand(currentCmd)
}

func runCurrent(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	s, err := e.registry.Current()
	if err != nil {
		return err
	}
	if s == nil {
		fmt.Println("No current session. Run 'outpost use <key>' or 'outpost create'.")
		return nil
	}

	fmt.Printf("%s  (%s, %s/%s, %d outputs)\n",
		s.Key, s.Status, s.Context.Project, s.Context.Ticket, len(s.Outputs))
	return nil
}
