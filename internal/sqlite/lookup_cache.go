package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/tabletree/lattice/pkg/types"
)

// LookupKey addresses one cached row: the ancestor table it lives in and
// its row_index.
type LookupKey struct {
	Table    string
	RowIndex int64
}

// LookupCache maps ancestor rows to their display text so that resolving a
// parent_key or grand_*_parent reference costs a map hit instead of a
// query per cell.
type LookupCache map[LookupKey]string

// Get returns the cached display text for a row, if present.
func (c LookupCache) Get(table string, rowIndex int64) (string, bool) {
	v, ok := c[LookupKey{Table: table, RowIndex: rowIndex}]
	return v, ok
}

// BuildLookupCache loads the display values of every ancestor table of the
// given structure table. Rows with an empty display value are skipped, as
// are ancestor tables that do not exist. For Games_Platforms_Stores the
// cache holds Games and Games_Platforms entries.
func BuildLookupCache(db *sql.DB, table string) (LookupCache, error) {
	cache := make(LookupCache)
	ancestors := types.TableChain(table)
	if len(ancestors) > 0 {
		ancestors = ancestors[:len(ancestors)-1]
	}

	for _, ancestor := range ancestors {
		exists, err := TableExists(db, ancestor)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}
		col, err := PrimaryDisplayColumn(db, ancestor)
		if err != nil {
			return nil, err
		}

		rows, err := db.Query(fmt.Sprintf(
			"SELECT %s, %q FROM %q", types.ColumnRowIndex, col, ancestor))
		if err != nil {
			return nil, fmt.Errorf("caching %q: %w", ancestor, err)
		}
		for rows.Next() {
			var (
				rowIndex sql.NullInt64
				value    sql.NullString
			)
			if err := rows.Scan(&rowIndex, &value); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning %q: %w", ancestor, err)
			}
			if rowIndex.Valid && value.Valid && value.String != "" {
				cache[LookupKey{Table: ancestor, RowIndex: rowIndex.Int64}] = value.String
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return cache, nil
}
