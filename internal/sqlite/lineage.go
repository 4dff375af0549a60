package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/tabletree/lattice/pkg/types"
)

// PrimaryDisplayColumn resolves the column holding a table's human-readable
// identity. The per-sheet metadata table wins: the first non-deleted,
// non-technical column by column_index. When no metadata exists the first
// non-technical physical column is used. Returns types.ErrColumnNotFound
// when every column is technical.
func PrimaryDisplayColumn(db *sql.DB, table string) (string, error) {
	metaTable := types.MetadataTableFor(table)
	exists, err := TableExists(db, metaTable)
	if err != nil {
		return "", err
	}
	if exists {
		// Legacy metadata tables predate the deleted column.
		hasDeleted, err := ColumnExists(db, metaTable, "deleted")
		if err != nil {
			return "", err
		}
		predicate := ""
		if hasDeleted {
			predicate = "WHERE COALESCE(deleted, 0) = 0 "
		}
		rows, err := db.Query(fmt.Sprintf(
			"SELECT column_name FROM %q %sORDER BY column_index", metaTable, predicate))
		if err != nil {
			return "", fmt.Errorf("reading sheet metadata %q: %w", metaTable, err)
		}
		defer rows.Close()
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return "", fmt.Errorf("scanning sheet metadata %q: %w", metaTable, err)
			}
			if !types.IsTechnicalColumn(name) {
				return name, nil
			}
		}
		if err := rows.Err(); err != nil {
			return "", err
		}
	}

	names, err := ColumnNames(db, table)
	if err != nil {
		return "", err
	}
	for _, name := range names {
		if !types.IsTechnicalColumn(name) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: no display column in %s", types.ErrColumnNotFound, table)
}

// DisplayValue reads the primary display value of one row, addressed by
// row_index. Returns types.ErrRowNotFound when the row does not exist.
func DisplayValue(db *sql.DB, table string, rowIndex int64) (string, error) {
	col, err := PrimaryDisplayColumn(db, table)
	if err != nil {
		return "", err
	}
	var value sql.NullString
	err = db.QueryRow(fmt.Sprintf(
		"SELECT %q FROM %q WHERE %s = ?", col, table, types.ColumnRowIndex), rowIndex).
		Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %s row_index=%d", types.ErrRowNotFound, table, rowIndex)
	}
	if err != nil {
		return "", fmt.Errorf("reading display value of %s[%d]: %w", table, rowIndex, err)
	}
	return value.String, nil
}

// WalkLineage follows parent_key references from a row up to its root,
// returning entries ordered root first. A parent row that cannot be found
// ends the walk with a warning rather than an error, so partially broken
// hierarchies still render. Exceeding types.MaxLineageDepth is a cycle and
// fails.
func WalkLineage(db *sql.DB, table string, rowIndex int64) ([]types.LineageEntry, error) {
	var entries []types.LineageEntry
	currentTable := table
	currentRow := rowIndex

	for depth := 0; ; depth++ {
		if depth >= types.MaxLineageDepth {
			return nil, fmt.Errorf("%w: walking %s from row_index=%d",
				types.ErrLineageDepthExceeded, table, rowIndex)
		}

		value, err := DisplayValue(db, currentTable, currentRow)
		if err != nil {
			if depth > 0 && errors.Is(err, types.ErrRowNotFound) {
				log.Printf("lineage walk: missing parent row %s[%d], stopping", currentTable, currentRow)
				break
			}
			return nil, err
		}
		entries = append(entries, types.LineageEntry{
			Table:        currentTable,
			DisplayValue: value,
			RowIndex:     currentRow,
		})

		parent, ok, err := ParentTableOf(db, currentTable)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		hasParentKey, err := ColumnExists(db, currentTable, types.ColumnParentKey)
		if err != nil {
			return nil, err
		}
		if !hasParentKey {
			break
		}

		var parentKey sql.NullString
		err = db.QueryRow(fmt.Sprintf(
			"SELECT %s FROM %q WHERE %s = ?",
			types.ColumnParentKey, currentTable, types.ColumnRowIndex), currentRow).
			Scan(&parentKey)
		if err == sql.ErrNoRows {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading parent_key of %s[%d]: %w", currentTable, currentRow, err)
		}
		if !parentKey.Valid || strings.TrimSpace(parentKey.String) == "" {
			break
		}
		parentRow, err := strconv.ParseInt(parentKey.String, 10, 64)
		if err != nil {
			// Legacy text reference the migration has not converted yet.
			log.Printf("lineage walk: %s[%d] has unmigrated parent_key %q, stopping",
				currentTable, currentRow, parentKey.String)
			break
		}

		currentTable = parent
		currentRow = parentRow
	}

	// Walked leaf to root; callers expect root first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// ResolveRowIndex is the inverse of WalkLineage: given a chain of display
// values ordered root first, it finds the row_index of the row the chain
// names inside the target table. The chain length must equal the table
// chain length; matching is case-insensitive; every level below the root
// is additionally constrained by its parent's resolved row_index. Returns
// types.ErrRowNotFound when any level fails to match.
func ResolveRowIndex(db *sql.DB, table string, chain []string) (int64, error) {
	tables := types.TableChain(table)
	if len(chain) != len(tables) {
		return 0, fmt.Errorf("%w: lineage %v does not fit table chain %v",
			types.ErrRowNotFound, chain, tables)
	}

	var parentRow int64
	haveParent := false
	for level, tbl := range tables {
		col, err := PrimaryDisplayColumn(db, tbl)
		if err != nil {
			return 0, err
		}

		query := fmt.Sprintf(
			"SELECT %s FROM %q WHERE LOWER(%q) = LOWER(?)", types.ColumnRowIndex, tbl, col)
		args := []any{chain[level]}
		if haveParent {
			// Legacy parent_key columns are TEXT; binding a string value
			// matches under both TEXT and INTEGER column affinity.
			query += fmt.Sprintf(" AND %s = ?", types.ColumnParentKey)
			args = append(args, strconv.FormatInt(parentRow, 10))
		}

		var rowIndex int64
		err = db.QueryRow(query, args...).Scan(&rowIndex)
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("%w: %q not found in %s at depth %d",
				types.ErrRowNotFound, chain[level], tbl, level)
		}
		if err != nil {
			return 0, fmt.Errorf("resolving %q in %s: %w", chain[level], tbl, err)
		}
		parentRow = rowIndex
		haveParent = true
	}
	return parentRow, nil
}
