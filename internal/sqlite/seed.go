package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/tabletree/lattice/pkg/types"
)

// Seed loads a small demo hierarchy in the legacy on-disk shape: text
// parent_key values, a grand_1_parent column on the depth-two table, and
// row_index numbering that does not start at zero. Running the default
// fixes against a seeded database exercises every migration path.
//
//	Games
//	└── Games_Platforms          (parent_key holds game names)
//	    └── Games_Platforms_Stores (parent_key holds platform names)
func Seed(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS "Games" (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			row_index INTEGER,
			"Name" TEXT,
			"Genre" TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS "Games_Platforms" (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			row_index INTEGER,
			parent_key TEXT,
			"Platform" TEXT,
			UNIQUE(parent_key, row_index)
		)`,
		`CREATE TABLE IF NOT EXISTS "Games_Platforms_Stores" (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			row_index INTEGER,
			parent_key TEXT,
			grand_1_parent TEXT,
			"Store" TEXT,
			UNIQUE(parent_key, row_index)
		)`,

		`INSERT INTO "Games" (row_index, "Name", "Genre") VALUES
			(1, 'Mass Effect 3', 'RPG'),
			(2, 'Stardew Valley', 'Simulation')`,

		`INSERT INTO "Games_Platforms" (row_index, parent_key, "Platform") VALUES
			(5, 'Mass Effect 3', 'Steam'),
			(6, 'Mass Effect 3', 'Origin'),
			(7, 'Stardew Valley', 'Steam')`,

		`INSERT INTO "Games_Platforms_Stores" (row_index, parent_key, grand_1_parent, "Store") VALUES
			(9, 'Steam', 'Mass Effect 3', 'Valve Store'),
			(10, 'Origin', 'Mass Effect 3', 'EA App')`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
	}

	games := "Games"
	gamesPlatforms := "Games_Platforms"
	catalog := []types.TableDescriptor{
		{Name: "Games", DisplayOrder: 0, TableType: "sheet"},
		{Name: "Games_Platforms", DisplayOrder: 1, TableType: "structure", ParentTable: &games},
		{Name: "Games_Platforms_Stores", DisplayOrder: 2, TableType: "structure", ParentTable: &gamesPlatforms},
	}
	for _, desc := range catalog {
		if err := RegisterTable(db, desc); err != nil {
			return err
		}
	}

	sheets := map[string][]string{
		"Games":                  {"Name", "Genre"},
		"Games_Platforms":        {"Platform"},
		"Games_Platforms_Stores": {"Store", "grand_1_parent"},
	}
	for table, columns := range sheets {
		if err := CreateSheetMetadataTable(db, table, columns); err != nil {
			return err
		}
	}
	return nil
}
