// Init command for the lattice CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tabletree/lattice/internal/sqlite"
)

var seedFlag bool

func init() {
	initCmd.Flags().BoolVar(&seedFlag, "seed", false, "load demo hierarchy in legacy shape")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a lattice database",
	Long: `Create the database file with the global catalog and fix ledger.
With --seed, a small demo hierarchy is loaded in the legacy on-disk shape
so that "lattice migrate" has something to convert.`,
	Args: cobra.NoArgs,
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

		if err := store.InitCatalog(); err != nil {
			return err
		}
		if seedFlag {
			if err := sqlite.Seed(store.DB()); err != nil {
				return err
			}
			fmt.Printf("Initialized %s with demo data\n", cfg.DBPath)
			return nil
		}
		fmt.Printf("Initialized %s\n", cfg.DBPath)
		return nil
	},
}
