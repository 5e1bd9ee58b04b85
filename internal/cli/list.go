package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/outpost-cli/outpost/internal/query"
	"github.com/outpost-cli/outpost/internal/session"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	RunE:  runList,
}

var (
	listStatus string
	listUser   string
)

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status: active | closed | archived")
	listCmd.Flags().StringVar(&listUser, "user", "", "Filter by actor")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	eng := query.NewEngine(e.store, e.log)
	if e.index != nil {
		eng.SetLookup(e.index)
	}

	sessions, err := eng.Search(query.Filter{
		Status: session.Status(listStatus),
		Actor:  listUser,
	})
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	printSessions(sessions)
	return nil
}

func printSessions(sessions []*session.Session) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tACTOR\tTICKET\tPROJECT\tSTATUS\tOUTPUTS\tEXPIRES")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			s.Key, s.Actor.Name, s.Context.Ticket, s.Context.Project,
			s.Status, len(s.Outputs), s.Retention.ExpiresAt)
	}
	w.Flush()
}
