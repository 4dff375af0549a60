package sqlite

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/tabletree/lattice/pkg/types"
)

// RowIndexDeduplication reassigns row_index sequentially per table. An
// earlier import numbered child rows per parent (0, 1, 2 under each
// parent), so duplicates abound in legacy databases. The new numbering
// follows id order and starts at zero.
type RowIndexDeduplication struct{}

func (f *RowIndexDeduplication) ID() string {
	return "fix_row_index_duplicates_2025_10_12"
}

func (f *RowIndexDeduplication) Description() string {
	return "Reassign row_index sequentially to fix duplicates from per-parent numbering"
}

func (f *RowIndexDeduplication) Apply(db *sql.DB, rep *types.MigrationReport, notify types.ProgressFunc) error {
	if notify == nil {
		notify = func(types.Progress) {}
	}

	tables, err := CatalogTables(db)
	if err != nil {
		return err
	}

	for i, desc := range tables {
		table := desc.Name
		notify(types.Progress{
			Total:        len(tables),
			Completed:    i,
			CurrentTable: table,
			Message:      fmt.Sprintf("deduplicating %s", table),
		})

		hasRowIndex, err := ColumnExists(db, table, types.ColumnRowIndex)
		if err != nil {
			return err
		}
		if !hasRowIndex {
			continue
		}

		duplicates, err := duplicateRowIndexCount(db, table)
		if err != nil {
			return err
		}
		totalRows, err := RowCount(db, table)
		if err != nil {
			return err
		}
		if totalRows == 0 {
			continue
		}
		if duplicates == 0 {
			sequential, err := isSequential(db, table, totalRows)
			if err != nil {
				return err
			}
			if sequential {
				continue
			}
		}

		log.Printf("fixing %q: %d rows, %d duplicated row_index values", table, totalRows, duplicates)
		if err := renumberRowIndex(db, table); err != nil {
			rep.RecordFailure(table, err)
			return fmt.Errorf("renumbering %q: %w", table, err)
		}

		remaining, err := duplicateRowIndexCount(db, table)
		if err != nil {
			return err
		}
		if remaining > 0 {
			err := fmt.Errorf("renumbering %q left %d duplicated row_index values", table, remaining)
			rep.RecordFailure(table, err)
			return err
		}
		rep.TablesProcessed++
	}
	return nil
}

// duplicateRowIndexCount counts row_index values shared by more than one
// row.
func duplicateRowIndexCount(db *sql.DB, table string) (int, error) {
	var count int
	err := db.QueryRow(fmt.Sprintf(
		`SELECT COUNT(*) FROM (
			SELECT %s FROM %q GROUP BY %s HAVING COUNT(*) > 1
		)`, types.ColumnRowIndex, table, types.ColumnRowIndex)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting duplicates in %q: %w", table, err)
	}
	return count, nil
}

// isSequential reports whether row_index already runs 0..n-1.
func isSequential(db *sql.DB, table string, totalRows int64) (bool, error) {
	var maxIdx sql.NullInt64
	err := db.QueryRow(fmt.Sprintf(
		"SELECT MAX(%s) FROM %q", types.ColumnRowIndex, table)).Scan(&maxIdx)
	if err != nil {
		return false, fmt.Errorf("reading max row_index of %q: %w", table, err)
	}
	return maxIdx.Valid && maxIdx.Int64 == totalRows-1, nil
}

// renumberRowIndex assigns row_index by id order through a scratch column.
// SQLite checks UNIQUE(parent_key, row_index) per row during an UPDATE, so
// the copy runs in two passes: first to distinct negative values, then to
// the final numbering. Legacy indexes are non-negative, so neither pass
// collides with values not yet rewritten.
func renumberRowIndex(db *sql.DB, table string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	hasScratch, err := ColumnExists(db, table, "temp_new_row_index")
	if err != nil {
		return err
	}
	if !hasScratch {
		_, err = tx.Exec(fmt.Sprintf(
			"ALTER TABLE %q ADD COLUMN temp_new_row_index INTEGER", table))
		if err != nil {
			return fmt.Errorf("adding scratch column: %w", err)
		}
	}

	_, err = tx.Exec(fmt.Sprintf(
		`UPDATE %q SET temp_new_row_index = (
			SELECT COUNT(*) - 1 FROM %q AS t2 WHERE t2.id <= %q.id
		)`, table, table, table))
	if err != nil {
		return fmt.Errorf("computing new row numbers: %w", err)
	}

	_, err = tx.Exec(fmt.Sprintf(
		"UPDATE %q SET %s = -temp_new_row_index - 1", table, types.ColumnRowIndex))
	if err != nil {
		return fmt.Errorf("staging new row numbers: %w", err)
	}

	_, err = tx.Exec(fmt.Sprintf(
		"UPDATE %q SET %s = temp_new_row_index", table, types.ColumnRowIndex))
	if err != nil {
		return fmt.Errorf("applying new row numbers: %w", err)
	}

	_, err = tx.Exec(fmt.Sprintf(
		"ALTER TABLE %q DROP COLUMN temp_new_row_index", table))
	if err != nil {
		return fmt.Errorf("dropping scratch column: %w", err)
	}
	return tx.Commit()
}
