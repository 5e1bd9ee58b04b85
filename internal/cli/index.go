package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the query index",
	RunE:  runIndex,
}

var indexRebuild bool

func init() {
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "Rebuild the index from the session records")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	if e.index == nil {
		return fmt.Errorf("query index could not be opened under %s", e.root)
	}

	if !indexRebuild {
		return fmt.Errorf("nothing to do; pass --rebuild to rebuild the index")
	}

	n, err := e.index.Rebuild(e.store)
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d session(s)\n", n)
	return nil
}
