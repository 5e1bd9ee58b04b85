package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/outpost-cli/outpost/internal/identity"
	"github.com/outpost-cli/outpost/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <legacy-root>",
	Short: "Convert a legacy flat artifact layout into sessions",
	Long: `Scan a legacy flat directory of artifacts and fold them into a
synthetic session. With --dry-run the plan is printed and nothing is
written. With --execute the legacy root is backed up in full first, then
every artifact is copied (never moved) into the session and registered
with its original timestamp. Re-running an execute skips everything
already migrated. --remove-legacy deletes the migrated source files
afterwards, as a separate cleanup step.`,
	Args: cobra.ExactArgs(1),
	RunE: runMigrate,
}

var (
	migrateDryRun       bool
	migrateExecute      bool
	migrateRemoveLegacy bool
	migrateUser         string
)

func init() {
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "Print the migration plan without writing anything")
	migrateCmd.Flags().BoolVar(&migrateExecute, "execute", false, "Perform the migration")
	migrateCmd.Flags().BoolVar(&migrateRemoveLegacy, "remove-legacy", false, "After a successful execute, remove migrated source files")
	migrateCmd.Flags().StringVar(&migrateUser, "user", "", "Actor owning the synthetic session (default: ambient identity)")
	migrateCmd.MarkFlagsOneRequired("dry-run", "execute")
	migrateCmd.MarkFlagsMutuallyExclusive("dry-run", "execute")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	var actor identity.Actor
	if migrateUser != "" {
		actor = identity.Actor{Name: identity.Sanitize(migrateUser)}
	}

	eng := migrate.NewEngine(e.store, e.registry, e.cfg, e.log)

	plan, err := eng.BuildPlan(args[0], actor)
	if err != nil {
		return err
	}

	if migrateDryRun {
		printPlan(plan)
		return nil
	}

	result, err := eng.Execute(plan)
	if err != nil {
		return err
	}

	fmt.Printf("Migrated %d artifact(s) into %s (%d skipped, %d with unparsed context)\n",
		result.Migrated, result.SessionKey, result.Skipped, result.Unparsed)
	fmt.Printf("Backup: %s\nReport: %s\n", result.BackupPath, result.ReportPath)

	if migrateRemoveLegacy {
		removed, err := eng.RemoveLegacy(plan)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d legacy source file(s)\n", removed)
	}
	return nil
}

func printPlan(plan *migrate.Plan) {
	fmt.Printf("Plan %s: %d item(s) -> session %s (actor %s)\n",
		plan.ID, len(plan.Items), plan.SessionKey, plan.Actor.Name)
	for _, item := range plan.Items {
		flag := ""
		if item.Unparsed {
			flag = "  [unparsed context]"
		}
		fmt.Printf("  %s -> %s%s\n", item.SourcePath, item.DestPath, flag)
	}
	fmt.Println("Dry run only; nothing was written.")
}
