package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <key>",
	Short: "Print a session report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

var reportPromotedOnly bool

func init() {
	reportCmd.Flags().BoolVar(&reportPromotedOnly, "promoted-only", false, "List only promoted outputs")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	s, err := e.registry.Get(args[0])
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Session %s\n\n", s.Key)
	fmt.Fprintf(&b, "- Actor: %s", s.Actor.Name)
	if s.Actor.Team != "" {
		fmt.Fprintf(&b, " (%s)", s.Actor.Team)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- Ticket: %s\n", s.Context.Ticket)
	fmt.Fprintf(&b, "- Project: %s\n", s.Context.Project)
	if s.Context.Branch != "" {
		fmt.Fprintf(&b, "- Branch: %s\n", s.Context.Branch)
	}
	fmt.Fprintf(&b, "- Status: %s\n", s.Status)
	fmt.Fprintf(&b, "- Retention: %s, expires %s\n", s.Retention.Policy, s.Retention.ExpiresAt)
	if len(s.Tags) > 0 {
		fmt.Fprintf(&b, "- Tags: %s\n", strings.Join(s.Tags, ", "))
	}

	b.WriteString("\n## Outputs\n\n")
	count := 0
	for _, out := range s.Outputs {
		if reportPromotedOnly && !out.Promoted {
			continue
		}
		count++
		fmt.Fprintf(&b, "- %s (%s, by %s)", out.Path, out.Category, out.Agent)
		if out.Promoted {
			fmt.Fprintf(&b, " -> promoted to %s", out.PromotionTarget)
		}
		if out.UnparsedContext {
			b.WriteString(" [unparsed context]")
		}
		b.WriteString("\n")
	}
	if count == 0 {
		b.WriteString("(none)\n")
	}

	fmt.Print(b.String())
	return nil
}
