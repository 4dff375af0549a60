// Tables command: shows the catalog with hierarchy links.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tabletree/lattice/internal/sqlite"
	"github.com/tabletree/lattice/pkg/types"
)

var showHidden bool

func init() {
	tablesCmd.Flags().BoolVar(&showHidden, "hidden", false, "include hidden tables")
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List cataloged tables in display order",
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

		descs, err := sqlite.CatalogTables(store.DB())
		if err != nil {
			return err
		}
		for _, d := range descs {
			if d.Hidden && !showHidden {
				continue
			}
			n, err := sqlite.RowCount(store.DB(), d.Name)
			if err != nil {
				return err
			}
			fmt.Printf("%-40s %8d rows", d.Name, n)
			if parent := parentLabel(d); parent != "" {
				fmt.Printf("  (child of %s)", parent)
			}
			fmt.Println()
		}
		return nil
	},
}

func parentLabel(d types.TableDescriptor) string {
	if d.ParentTable != nil {
		return *d.ParentTable
	}
	if parent, ok := types.ParentTableByName(d.Name); ok && d.TableType == "structure" {
		return parent
	}
	return ""
}
