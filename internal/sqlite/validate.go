package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/tabletree/lattice/pkg/types"
)

// RowIndexValidation is the integrity report of one table's row_index
// column.
type RowIndexValidation struct {
	Table       string
	TotalRows   int64
	UniqueCount int64
	MinIndex    int64
	MaxIndex    int64
	NullCount   int64
	Duplicates  int
}

// Valid reports whether the table passes: no nulls, no duplicates, and
// indexes spanning 0..n-1 when any rows exist.
func (v RowIndexValidation) Valid() bool {
	if v.TotalRows == 0 {
		return true
	}
	return v.NullCount == 0 &&
		v.Duplicates == 0 &&
		v.MinIndex == 0 &&
		v.MaxIndex == v.TotalRows-1
}

func (v RowIndexValidation) String() string {
	status := "ok"
	if !v.Valid() {
		status = "BROKEN"
	}
	return fmt.Sprintf("%s: %d rows, %d unique, range [%d..%d], %d null, %d duplicated (%s)",
		v.Table, v.TotalRows, v.UniqueCount, v.MinIndex, v.MaxIndex, v.NullCount, v.Duplicates, status)
}

// ValidateRowIndex inspects one table. Tables without a row_index column
// yield types.ErrColumnNotFound.
func ValidateRowIndex(db *sql.DB, table string) (RowIndexValidation, error) {
	v := RowIndexValidation{Table: table}

	has, err := ColumnExists(db, table, types.ColumnRowIndex)
	if err != nil {
		return v, err
	}
	if !has {
		return v, fmt.Errorf("%w: %s.%s", types.ErrColumnNotFound, table, types.ColumnRowIndex)
	}

	var minIdx, maxIdx sql.NullInt64
	err = db.QueryRow(fmt.Sprintf(
		`SELECT COUNT(*),
		        COUNT(DISTINCT %[1]s),
		        MIN(%[1]s),
		        MAX(%[1]s),
		        COALESCE(SUM(CASE WHEN %[1]s IS NULL THEN 1 ELSE 0 END), 0)
		 FROM %[2]q`, types.ColumnRowIndex, table)).
		Scan(&v.TotalRows, &v.UniqueCount, &minIdx, &maxIdx, &v.NullCount)
	if err != nil {
		return v, fmt.Errorf("validating %q: %w", table, err)
	}
	v.MinIndex = minIdx.Int64
	v.MaxIndex = maxIdx.Int64

	v.Duplicates, err = duplicateRowIndexCount(db, table)
	if err != nil {
		return v, err
	}
	return v, nil
}

// ValidateAll runs the row_index check over every catalog table that
// carries the column.
func ValidateAll(db *sql.DB) ([]RowIndexValidation, error) {
	tables, err := CatalogTables(db)
	if err != nil {
		return nil, err
	}

	var out []RowIndexValidation
	for _, desc := range tables {
		has, err := ColumnExists(db, desc.Name, types.ColumnRowIndex)
		if err != nil {
			return nil, err
		}
		if !has {
			continue
		}
		v, err := ValidateRowIndex(db, desc.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ValidationSummary renders one line per table plus a verdict.
func ValidationSummary(results []RowIndexValidation) string {
	var b strings.Builder
	broken := 0
	for _, v := range results {
		b.WriteString(v.String())
		b.WriteString("\n")
		if !v.Valid() {
			broken++
		}
	}
	if broken == 0 {
		fmt.Fprintf(&b, "%d tables validated, all consistent", len(results))
	} else {
		fmt.Fprintf(&b, "%d tables validated, %d broken", len(results), broken)
	}
	return b.String()
}
