// Lineage commands: walk a row's ancestor chain, and resolve a chain of
// display values back to a row_index.
package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tabletree/lattice/internal/sqlite"
	"github.com/tabletree/lattice/pkg/types"
)

var lineageCmd = &cobra.Command{
	Use:   "lineage <table> <row_index>",
	Short: "Show the ancestor chain of a row, root first",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		rowIndex, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("row_index must be an integer: %w", err)
		}

		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := sqlite.WalkLineage(store.DB(), args[0], rowIndex)
		if err != nil {
			return err
		}
		for i, e := range entries {
			fmt.Printf("%*s%s [%s row_index=%d]\n", i*2, "", e.DisplayValue, e.Table, e.RowIndex)
		}
		fmt.Println(types.FormatLineage(entries, " › "))
		return nil
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <table> <value>...",
	Short: "Resolve a root-first chain of display values to a row_index",
	Long: `Resolve finds the row a lineage names. The values are given root first,
one per hierarchy level: "lattice resolve Games_Platforms_Stores
'Mass Effect 3' Steam 'Valve Store'". Matching is case-insensitive.`,
	Args: cobra.MinimumNArgs(2),
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

		rowIndex, err := sqlite.ResolveRowIndex(store.DB(), args[0], args[1:])
		if err != nil {
			return err
		}
		fmt.Println(rowIndex)
		return nil
	},
}
