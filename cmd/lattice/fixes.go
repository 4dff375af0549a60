// Fixes command: lists known fixes and their ledger status.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tabletree/lattice/internal/sqlite"
)

var fixesCmd = &cobra.Command{
	Use:   "fixes",
	Short: "List migration fixes and whether each has been applied",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		applied, err := sqlite.AppliedFixes(store.DB())
		if err != nil {
			return err
		}
		appliedSet := make(map[string]bool, len(applied))
		for _, id := range applied {
			appliedSet[id] = true
		}

		for _, fix := range sqlite.DefaultFixes(cfg) {
			status := color.YellowString("pending")
			if appliedSet[fix.ID()] {
				status = color.GreenString("applied")
			}
			fmt.Printf("%-50s %s\n", fix.ID(), status)
			fmt.Printf("    %s\n", fix.Description())
		}
		return nil
	},
}
