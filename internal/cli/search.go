package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/outpost-cli/outpost/internal/query"
	"github.com/outpost-cli/outpost/internal/session"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search sessions by predicates",
	Long: `Search sessions with conjunctive predicates. Ticket, tag and agent
accept glob patterns (e.g. --ticket 'AUTH-*').`,
	RunE: runSearch,
}

var (
	searchTicket   string
	searchProject  string
	searchTag      string
	searchAgent    string
	searchUser     string
	searchStatus   string
	searchExpiring int
)

func init() {
	searchCmd.Flags().StringVar(&searchTicket, "ticket", "", "Filter by ticket")
	searchCmd.Flags().StringVar(&searchProject, "project", "", "Filter by project")
	searchCmd.Flags().StringVar(&searchTag, "tag", "", "Filter by tag")
	searchCmd.Flags().StringVar(&searchAgent, "agent", "", "Filter by producing agent")
	searchCmd.Flags().StringVar(&searchUser, "user", "", "Filter by actor")
	searchCmd.Flags().StringVar(&searchStatus, "status", "", "Filter by status")
	searchCmd.Flags().IntVar(&searchExpiring, "expiring-within", 0, "Sessions whose retention expires within N days")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
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
		Ticket:         searchTicket,
		Project:        searchProject,
		Tag:            searchTag,
		Agent:          searchAgent,
		Actor:          searchUser,
		Status:         session.Status(searchStatus),
		ExpiringWithin: time.Duration(searchExpiring) * 24 * time.Hour,
	})
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No matching sessions found.")
		return nil
	}

	printSessions(sessions)
	return nil
}
