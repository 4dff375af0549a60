package sqlite

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/tabletree/lattice/pkg/types"
)

// This file is the schema introspector: pure reads over sqlite_master, the
// PRAGMA virtual tables, and the _Metadata catalog. No side effects.

// TableExists reports whether a table with exactly this name exists.
func TableExists(db *sql.DB, table string) (bool, error) {
	var count int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name = ?", table).
		Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking table %q: %w", table, err)
	}
	return count > 0, nil
}

// Columns returns the ordered column list of a table. Returns
// types.ErrTableNotFound when the table does not exist.
func Columns(db *sql.DB, table string) ([]types.ColumnInfo, error) {
	exists, err := TableExists(db, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", types.ErrTableNotFound, table)
	}

	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("reading columns of %q: %w", table, err)
	}
	defer rows.Close()

	var cols []types.ColumnInfo
	for rows.Next() {
		var (
			cid     int
			col     types.ColumnInfo
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scanning column of %q: %w", table, err)
		}
		col.NotNull = notNull == 1
		col.PrimaryKey = pk > 0
		if dflt.Valid {
			col.Default = &dflt.String
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

// ColumnNames returns just the column names of a table, in declared order.
func ColumnNames(db *sql.DB, table string) ([]string, error) {
	cols, err := Columns(db, table)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names, nil
}

// ColumnExists reports whether a column exists on a table. The stored name
// is compared case-insensitively. A missing table yields false, not an
// error.
func ColumnExists(db *sql.DB, table, column string) (bool, error) {
	exists, err := TableExists(db, table)
	if err != nil || !exists {
		return false, err
	}
	names, err := ColumnNames(db, table)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if strings.EqualFold(name, column) {
			return true, nil
		}
	}
	return false, nil
}

// ListTables returns every user table, excluding internal (underscore- or
// sqlite-prefixed) tables, per-sheet metadata tables, and the fix ledger.
func ListTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query(
		`SELECT name FROM sqlite_master
		 WHERE type='table'
		   AND name NOT LIKE '\_%' ESCAPE '\'
		   AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
		   AND name NOT LIKE '%\_Metadata' ESCAPE '\'
		   AND name != 'migration_fixes'
		 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CatalogTables reads the global catalog in display order. When the catalog
// table is absent (legacy database), it falls back to ListTables with
// default descriptors.
func CatalogTables(db *sql.DB) ([]types.TableDescriptor, error) {
	exists, err := TableExists(db, "_Metadata")
	if err != nil {
		return nil, err
	}
	if !exists {
		names, err := ListTables(db)
		if err != nil {
			return nil, err
		}
		descs := make([]types.TableDescriptor, len(names))
		for i, name := range names {
			descs[i] = types.TableDescriptor{Name: name, DisplayOrder: i}
		}
		return descs, nil
	}

	// Legacy catalogs carry only table_name and display_order; the newer
	// columns are selected only when present.
	tableTypeExpr, parentExpr, hiddenExpr := "''", "NULL", "0"
	if has, err := ColumnExists(db, "_Metadata", "table_type"); err != nil {
		return nil, err
	} else if has {
		tableTypeExpr = "COALESCE(table_type, '')"
	}
	if has, err := ColumnExists(db, "_Metadata", "parent_table"); err != nil {
		return nil, err
	} else if has {
		parentExpr = "parent_table"
	}
	if has, err := ColumnExists(db, "_Metadata", "hidden"); err != nil {
		return nil, err
	} else if has {
		hiddenExpr = "COALESCE(hidden, 0)"
	}

	rows, err := db.Query(fmt.Sprintf(
		`SELECT table_name, display_order, %s, %s, %s
		 FROM _Metadata ORDER BY display_order, table_name`,
		tableTypeExpr, parentExpr, hiddenExpr))
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	defer rows.Close()

	var descs []types.TableDescriptor
	for rows.Next() {
		var (
			d      types.TableDescriptor
			parent sql.NullString
			hidden int
		)
		if err := rows.Scan(&d.Name, &d.DisplayOrder, &d.TableType, &parent, &hidden); err != nil {
			return nil, fmt.Errorf("scanning catalog row: %w", err)
		}
		if parent.Valid && parent.String != "" {
			d.ParentTable = &parent.String
		}
		d.Hidden = hidden != 0
		descs = append(descs, d)
	}
	return descs, rows.Err()
}

// ParentTableOf resolves the immediate parent table of a structure table.
// The explicit parent_table link in the catalog wins; splitting the name on
// its last underscore is the legacy fallback. Returns false when the table
// is a root.
func ParentTableOf(db *sql.DB, table string) (string, bool, error) {
	// ColumnExists is false for a missing _Metadata table too, which
	// covers uncataloged legacy databases.
	hasLink, err := ColumnExists(db, "_Metadata", "parent_table")
	if err != nil {
		return "", false, err
	}
	if hasLink {
		var parent sql.NullString
		err := db.QueryRow(
			"SELECT parent_table FROM _Metadata WHERE table_name = ?", table).Scan(&parent)
		switch {
		case err == sql.ErrNoRows:
			// Not cataloged; fall through to the naming convention.
		case err != nil:
			return "", false, fmt.Errorf("reading parent link of %q: %w", table, err)
		case parent.Valid && parent.String != "":
			return parent.String, true, nil
		}
	}

	name, ok := types.ParentTableByName(table)
	return name, ok, nil
}

// GrandParentColumns returns the grand_*_parent columns of a table, sorted
// ascending by level. Columns that do not parse a numeric level sort last.
func GrandParentColumns(db *sql.DB, table string) ([]string, error) {
	names, err := ColumnNames(db, table)
	if err != nil {
		return nil, err
	}
	var grands []string
	for _, name := range names {
		lower := strings.ToLower(name)
		if strings.HasPrefix(lower, "grand_") && strings.HasSuffix(lower, "_parent") {
			grands = append(grands, name)
		}
	}
	sort.SliceStable(grands, func(i, j int) bool {
		ni, iOK := types.GrandParentLevel(grands[i])
		nj, jOK := types.GrandParentLevel(grands[j])
		if !iOK {
			return false
		}
		if !jOK {
			return true
		}
		return ni < nj
	})
	return grands, nil
}

// HasParentRowUniqueIndex reports whether the table carries a unique index
// covering both parent_key and row_index. The check accepts any unique
// index whose definition mentions both column names, regardless of the
// index name.
func HasParentRowUniqueIndex(db *sql.DB, table string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA index_list(%q)", table))
	if err != nil {
		return false, fmt.Errorf("listing indexes of %q: %w", table, err)
	}
	defer rows.Close()

	var uniqueIndexes []string
	for rows.Next() {
		var (
			seq     int
			name    string
			unique  int
			origin  string
			partial int
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return false, fmt.Errorf("scanning index of %q: %w", table, err)
		}
		if unique == 1 {
			uniqueIndexes = append(uniqueIndexes, name)
		}
	}
	if err := rows.Err(); err != nil {
		return false, err
	}

	for _, name := range uniqueIndexes {
		var ddl sql.NullString
		err := db.QueryRow(
			"SELECT sql FROM sqlite_master WHERE type='index' AND name = ?", name).Scan(&ddl)
		if err != nil && err != sql.ErrNoRows {
			return false, fmt.Errorf("reading index %q: %w", name, err)
		}
		if err == nil && ddl.Valid {
			lower := strings.ToLower(ddl.String)
			if strings.Contains(lower, types.ColumnParentKey) &&
				strings.Contains(lower, types.ColumnRowIndex) {
				return true, nil
			}
			continue
		}
		// sqlite_autoindex_* rows exist with a NULL sql column. Implicit
		// UNIQUE table constraints are only visible through their covered
		// columns.
		ok, err := indexCovers(db, name)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// indexCovers reports whether the named index includes both parent_key and
// row_index among its columns.
func indexCovers(db *sql.DB, index string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA index_info(%q)", index))
	if err != nil {
		return false, fmt.Errorf("reading index info %q: %w", index, err)
	}
	defer rows.Close()

	hasParent, hasRow := false, false
	for rows.Next() {
		var (
			seqno, cid int
			name       sql.NullString
		)
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return false, err
		}
		if !name.Valid {
			continue
		}
		switch strings.ToLower(name.String) {
		case types.ColumnParentKey:
			hasParent = true
		case types.ColumnRowIndex:
			hasRow = true
		}
	}
	return hasParent && hasRow, rows.Err()
}

// RowCount returns the number of rows in a table.
func RowCount(db *sql.DB, table string) (int64, error) {
	var count int64
	err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %q", table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting rows of %q: %w", table, err)
	}
	return count, nil
}
