// Validate command: row_index integrity report.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tabletree/lattice/internal/sqlite"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check row_index integrity across all tables",
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

		results, err := sqlite.ValidateAll(store.DB())
		if err != nil {
			return err
		}

		broken := 0
		for _, v := range results {
			if v.Valid() {
				fmt.Println(v.String())
			} else {
				color.Red(v.String())
				broken++
			}
		}
		if broken > 0 {
			return fmt.Errorf("%d of %d tables have row_index problems", broken, len(results))
		}
		color.Green("%d tables validated, all consistent", len(results))
		return nil
	},
}
