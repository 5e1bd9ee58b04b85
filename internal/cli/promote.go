package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/outpost-cli/outpost/internal/promote"
)

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Publish a session output to an external sink",
	Long: `Copy a registered output into the shared promotion namespace and
record the publication. The sink is an opaque identifier such as
"{space}/{page}". Promoting the same output to the same sink twice
requires --force and increments the revision instead of duplicating the
record.`,
	RunE: runPromote,
}

var (
	promoteSession string
	promoteFile    string
	promoteSink    string
	promoteNotify  string
	promoteForce   bool
)

func init() {
	promoteCmd.Flags().StringVar(&promoteSession, "session", "", "Session key (default: current session)")
	promoteCmd.Flags().StringVar(&promoteFile, "file", "", "Session-relative output path (required)")
	promoteCmd.Flags().StringVar(&promoteSink, "sink", "", "External sink identifier (required)")
	promoteCmd.Flags().StringVar(&promoteNotify, "notify", "", "Comma-separated parties to record as notified")
	promoteCmd.Flags().BoolVar(&promoteForce, "force", false, "Update an existing promotion, bumping its revision")
	_ = promoteCmd.MarkFlagRequired("file")
	_ = promoteCmd.MarkFlagRequired("sink")
	rootCmd.AddCommand(promoteCmd)
}

func runPromote(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	key := promoteSession
	if key == "" {
		key, err = resolveKey(e, nil)
		if err != nil {
			return err
		}
	}

	tracker := promote.NewTracker(e.store, e.registry, e.log)
	rec, err := tracker.Promote(promote.Params{
		SessionKey: key,
		OutputPath: promoteFile,
		Sink:       promoteSink,
		Notify:     parseTags(promoteNotify),
		Force:      promoteForce,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Promoted %s/%s to %s (revision %d)\n", rec.SessionKey, rec.OutputPath, rec.Sink, rec.Revision)
	if len(rec.Notify) > 0 {
		fmt.Printf("Notify: %v\n", rec.Notify)
	}
	return nil
}
