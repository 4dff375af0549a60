// Package main provides the lattice CLI: migration, lineage resolution,
// and integrity checks for hierarchical sheet databases.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configDir is set by the --config-dir flag.
	configDir string

	// dbPathFlag overrides the configured database path.
	dbPathFlag string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lattice",
	Short: "Lattice maintains hierarchical sheet databases",
	Long: `Lattice manages SQLite databases holding hierarchical sheets: parent
tables with nested structure tables linked through parent_key references.
It migrates legacy text-based references to stable numeric ones, removes
redundant ancestor columns, and resolves row lineage in both directions.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default: .lattice)")
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "database file path (overrides config)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(fixesCmd)
	rootCmd.AddCommand(lineageCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(validateCmd)
}
