package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/tabletree/lattice/pkg/types"
)

// Schema DDL for the catalog tables.
const (
	createGlobalMetadata = `CREATE TABLE IF NOT EXISTS _Metadata (
    table_name TEXT PRIMARY KEY,
    display_order INTEGER NOT NULL DEFAULT 0,
    table_type TEXT,
    parent_table TEXT,
    hidden INTEGER NOT NULL DEFAULT 0
);`

	createMigrationFixes = `CREATE TABLE IF NOT EXISTS migration_fixes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    fix_id TEXT UNIQUE NOT NULL,
    description TEXT,
    applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`
)

// InitCatalog creates the global catalog and the applied-fix ledger if they
// do not exist yet.
func (s *Store) InitCatalog() error {
	for _, ddl := range []string{createGlobalMetadata, createMigrationFixes} {
		if _, err := s.db.Exec(ddl); err != nil {
			return fmt.Errorf("initializing catalog: %w", err)
		}
	}
	return nil
}

// RegisterTable upserts a catalog entry for a sheet.
func RegisterTable(db *sql.DB, desc types.TableDescriptor) error {
	var parent sql.NullString
	if desc.ParentTable != nil {
		parent = sql.NullString{String: *desc.ParentTable, Valid: true}
	}
	hidden := 0
	if desc.Hidden {
		hidden = 1
	}
	_, err := db.Exec(`
		INSERT INTO _Metadata (table_name, display_order, table_type, parent_table, hidden)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(table_name) DO UPDATE SET
			display_order = excluded.display_order,
			table_type = excluded.table_type,
			parent_table = excluded.parent_table,
			hidden = excluded.hidden`,
		desc.Name, desc.DisplayOrder, desc.TableType, parent, hidden)
	if err != nil {
		return fmt.Errorf("registering table %q: %w", desc.Name, err)
	}
	return nil
}

// CreateSheetMetadataTable creates the per-sheet column catalog for a table,
// and fills it with the given column names in order. Technical columns are
// recorded too; callers flag them deleted/hidden as needed.
func CreateSheetMetadataTable(db *sql.DB, table string, columns []string) error {
	meta := types.MetadataTableFor(table)
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
    column_name TEXT NOT NULL,
    column_index INTEGER NOT NULL,
    display_header TEXT,
    deleted INTEGER NOT NULL DEFAULT 0
)`, meta)
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("creating metadata table %q: %w", meta, err)
	}
	for i, col := range columns {
		_, err := db.Exec(
			fmt.Sprintf("INSERT INTO %q (column_name, column_index) VALUES (?, ?)", meta),
			col, i)
		if err != nil {
			return fmt.Errorf("inserting metadata row for %q.%q: %w", table, col, err)
		}
	}
	return nil
}
