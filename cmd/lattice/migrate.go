// Migrate command: runs the pending fixes with live progress.
package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tabletree/lattice/internal/sqlite"
	"github.com/tabletree/lattice/pkg/types"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migration fixes",
	Long: `Run every migration fix the database has not recorded yet, in order:
row_index deduplication, parent_key text-to-row_index conversion, and
grand_N_parent column removal. Progress is reported as tables complete.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		runner := sqlite.NewRunner(sqlite.NewRegistry(sqlite.DefaultFixes(cfg)...))
		run, err := runner.Start(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("Migration run %s started on %s\n", run.ID, cfg.DBPath)

		for {
			events, completion := run.Poll()
			for _, p := range events {
				printProgress(p)
			}
			if completion != nil {
				return printCompletion(completion)
			}
			time.Sleep(50 * time.Millisecond)
		}
	},
}

func printProgress(p types.Progress) {
	if p.CurrentTable != "" {
		fmt.Printf("  [%d/%d] %s\n", p.Completed+1, p.Total, p.Message)
		return
	}
	fmt.Printf("  %s\n", p.Message)
}

func printCompletion(c *types.Completion) error {
	if c.Err != nil {
		color.Red("Migration failed: %v", c.Err)
		for _, f := range c.Report.FailedTables {
			color.Red("  %s: %s", f.Table, f.Err)
		}
		return c.Err
	}

	if len(c.Report.FixesApplied) == 0 {
		color.Green("Nothing to do: all fixes already applied")
		return nil
	}
	color.Green("Migration complete: %s", c.Report.Summary())
	if c.Report.RowsBroken > 0 {
		color.Yellow("  %d broken references were left unmodified (see log)", c.Report.RowsBroken)
	}
	return nil
}
