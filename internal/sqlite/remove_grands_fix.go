package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/tabletree/lattice/pkg/types"
)

// RemoveGrandParentColumns drops the legacy grand_*_parent columns from
// every structure table. With parent_key holding numeric row_index values
// the grand columns are redundant: lineage is walked through the parent
// chain instead. SQLite cannot drop a column inside a composite table
// definition cleanly, so each table is rebuilt through a create-copy-swap.
type RemoveGrandParentColumns struct {
	// beforeRecount runs between the swap and the row count verification.
	// Test hook only.
	beforeRecount func(db *sql.DB, table string)
}

func (f *RemoveGrandParentColumns) ID() string {
	return "remove_grand_parent_columns_2025_10_28_v1"
}

func (f *RemoveGrandParentColumns) Description() string {
	return "Remove redundant grand_N_parent columns from structure tables, keeping only parent_key"
}

func (f *RemoveGrandParentColumns) Apply(db *sql.DB, rep *types.MigrationReport, notify types.ProgressFunc) error {
	if notify == nil {
		notify = func(types.Progress) {}
	}

	tables, err := structureTables(db)
	if err != nil {
		return err
	}
	log.Printf("grand column removal: found %d structure tables to check", len(tables))

	for i, table := range tables {
		notify(types.Progress{
			Total:        len(tables),
			Completed:    i,
			CurrentTable: table,
			Message:      fmt.Sprintf("rebuilding %s", table),
		})

		grands, err := GrandParentColumns(db, table)
		if err != nil {
			return err
		}
		if len(grands) == 0 {
			continue
		}
		log.Printf("processing %q: removing %d grand columns %v", table, len(grands), grands)

		hasUnique, err := HasParentRowUniqueIndex(db, table)
		if err != nil {
			return err
		}
		if !hasUnique {
			log.Printf("table %q has no UNIQUE(parent_key, row_index) constraint, proceeding without it", table)
		}

		countBefore, err := RowCount(db, table)
		if err != nil {
			return err
		}

		if err := rebuildWithoutGrands(db, table, grands); err != nil {
			rep.RecordFailure(table, err)
			return fmt.Errorf("rebuilding %q: %w", table, err)
		}

		if f.beforeRecount != nil {
			f.beforeRecount(db, table)
		}

		countAfter, err := RowCount(db, table)
		if err != nil {
			return err
		}
		if countBefore != countAfter {
			err := fmt.Errorf("row count mismatch rebuilding %q: before=%d after=%d",
				table, countBefore, countAfter)
			rep.RecordFailure(table, err)
			return err
		}

		if err := removeGrandsFromMetadata(db, table, grands); err != nil {
			return err
		}

		rep.ColumnsRemoved += len(grands)
		rep.TablesProcessed++
		log.Printf("migrated %q: %d columns removed, %d rows verified", table, len(grands), countAfter)
	}
	return nil
}

// structureTables lists user tables carrying a parent_key column.
func structureTables(db *sql.DB) ([]string, error) {
	names, err := ListTables(db)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, name := range names {
		has, err := ColumnExists(db, name, types.ColumnParentKey)
		if err != nil {
			return nil, err
		}
		if has {
			out = append(out, name)
		}
	}
	return out, nil
}

// rebuildWithoutGrands performs the create-copy-swap: a temp table with the
// kept columns, an explicit column-list copy, drop, rename, and the unique
// index restored under its canonical name.
func rebuildWithoutGrands(db *sql.DB, table string, grands []string) error {
	cols, err := Columns(db, table)
	if err != nil {
		return err
	}

	dropped := make(map[string]bool, len(grands))
	for _, g := range grands {
		dropped[strings.ToLower(g)] = true
	}

	var defs []string
	var keep []string
	for _, col := range cols {
		if dropped[strings.ToLower(col.Name)] {
			continue
		}
		keep = append(keep, fmt.Sprintf("%q", col.Name))

		def := fmt.Sprintf("%q %s", col.Name, col.Type)
		if col.PrimaryKey {
			def += " PRIMARY KEY"
			if strings.EqualFold(col.Type, "INTEGER") {
				def += " AUTOINCREMENT"
			}
		}
		if col.NotNull && !col.PrimaryKey {
			def += " NOT NULL"
		}
		if col.Default != nil {
			def += " DEFAULT " + *col.Default
		}
		defs = append(defs, def)
	}
	defs = append(defs, fmt.Sprintf("UNIQUE(%s, %s)", types.ColumnParentKey, types.ColumnRowIndex))

	tempTable := table + "_temp_no_grands"
	columnList := strings.Join(keep, ", ")

	// A leftover temp table from an interrupted run must not block retry.
	if _, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %q", tempTable)); err != nil {
		return fmt.Errorf("dropping stale temp table: %w", err)
	}
	createSQL := fmt.Sprintf("CREATE TABLE %q (%s)", tempTable, strings.Join(defs, ", "))
	if _, err := db.Exec(createSQL); err != nil {
		return fmt.Errorf("creating temp table: %w", err)
	}
	copySQL := fmt.Sprintf("INSERT INTO %q (%s) SELECT %s FROM %q",
		tempTable, columnList, columnList, table)
	if _, err := db.Exec(copySQL); err != nil {
		return fmt.Errorf("copying rows: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("DROP TABLE %q", table)); err != nil {
		return fmt.Errorf("dropping old table: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("ALTER TABLE %q RENAME TO %q", tempTable, table)); err != nil {
		return fmt.Errorf("renaming temp table: %w", err)
	}

	indexName := "idx_" + strings.ReplaceAll(table, " ", "_") + "_parent_row"
	indexSQL := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %q ON %q(%s, %s)",
		indexName, table, types.ColumnParentKey, types.ColumnRowIndex)
	if _, err := db.Exec(indexSQL); err != nil {
		return fmt.Errorf("recreating unique index: %w", err)
	}
	return nil
}

// removeGrandsFromMetadata retires the grand column rows in the per-sheet
// metadata table: soft delete when the deleted flag exists, physical
// delete otherwise. A table without sheet metadata is left alone.
func removeGrandsFromMetadata(db *sql.DB, table string, grands []string) error {
	metaTable := types.MetadataTableFor(table)
	exists, err := TableExists(db, metaTable)
	if err != nil {
		return err
	}
	if !exists {
		log.Printf("no metadata table %q, skipping metadata update", metaTable)
		return nil
	}

	hasDeleted, err := ColumnExists(db, metaTable, "deleted")
	if err != nil {
		return err
	}

	for _, grand := range grands {
		var result sql.Result
		if hasDeleted {
			result, err = db.Exec(fmt.Sprintf(
				"UPDATE %q SET deleted = 1 WHERE column_name = ?", metaTable), grand)
		} else {
			result, err = db.Exec(fmt.Sprintf(
				"DELETE FROM %q WHERE column_name = ?", metaTable), grand)
		}
		if err != nil {
			return fmt.Errorf("updating metadata %q for column %q: %w", metaTable, grand, err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			log.Printf("column %q not found in %q, may have been removed already", grand, metaTable)
		}
	}
	return nil
}
