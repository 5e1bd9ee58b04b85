package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/outpost-cli/outpost/internal/identity"
	"github.com/outpost-cli/outpost/internal/session"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new session and make it current",
	RunE:  runCreate,
}

var (
	createTicket    string
	createProject   string
	createTeam      string
	createRetention string
	createTags      string
	createSprint    string
	createEpic      string
	createRelease   string
)

func init() {
	createCmd.Flags().StringVar(&createTicket, "ticket", "", "Ticket identifier (required)")
	createCmd.Flags().StringVar(&createProject, "project", "", "Project name (required)")
	createCmd.Flags().StringVar(&createTeam, "team", "", "Team affiliation override")
	createCmd.Flags().StringVar(&createRetention, "retention", "project", "Retention policy: project | sprint | temporary")
	createCmd.Flags().StringVar(&createTags, "tags", "", "Comma-separated tags")
	createCmd.Flags().StringVar(&createSprint, "sprint", "", "Sprint identifier")
	createCmd.Flags().StringVar(&createEpic, "epic", "", "Epic identifier")
	createCmd.Flags().StringVar(&createRelease, "release", "", "Release identifier")
	_ = createCmd.MarkFlagRequired("ticket")
	_ = createCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	actor := identity.Resolve()
	if createTeam != "" {
		actor.Team = createTeam
	}

	s, err := e.registry.Create(session.CreateParams{
		Actor: actor,
		Context: session.WorkContext{
			Branch:  identity.WorkContext(),
			Ticket:  createTicket,
			Project: createProject,
			Sprint:  createSprint,
			Epic:    createEpic,
			Release: createRelease,
		},
		Policy: session.Policy(createRetention),
		Tags:   parseTags(createTags),
	})
	if err != nil {
		return err
	}

	if err := e.registry.Use(s.Key); err != nil {
		return err
	}

	fmt.Println(s.Key)
	return nil
}

// parseTags splits a comma-separated tag string, trimming whitespace.
func parseTags(tagStr string) []string {
	if tagStr == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(tagStr, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
