package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Reserved technical column names, matched case-insensitively.
const (
	ColumnID        = "id"
	ColumnRowIndex  = "row_index"
	ColumnParentKey = "parent_key"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
)

// Schema errors.
var (
	ErrTableNotFound  = errors.New("table not found")
	ErrColumnNotFound = errors.New("column not found")
	ErrRowNotFound    = errors.New("row not found")
)

// ColumnInfo describes one column of a physical table, as reported by the
// storage engine's catalog.
type ColumnInfo struct {
	Name       string
	Type       string
	NotNull    bool
	Default    *string
	PrimaryKey bool
}

// TableDescriptor is one row of the global catalog. ParentTable is the
// explicit parent link; nil means the table is a root (or the link is
// unknown and must be derived from the naming convention).
type TableDescriptor struct {
	Name         string
	DisplayOrder int
	TableType    string
	ParentTable  *string
	Hidden       bool
}

// IsTechnicalColumn reports whether name is one of the reserved technical
// columns (row_index, parent_key, grand_N_parent, id, timestamps).
func IsTechnicalColumn(name string) bool {
	lower := strings.ToLower(name)
	switch lower {
	case ColumnID, ColumnRowIndex, ColumnParentKey, ColumnCreatedAt, ColumnUpdatedAt:
		return true
	}
	return strings.HasPrefix(lower, "grand_") && strings.HasSuffix(lower, "_parent")
}

// GrandParentLevel parses a grand_N_parent column name and returns N.
// The second return is false when name does not follow the convention.
func GrandParentLevel(name string) (int, bool) {
	lower := strings.ToLower(name)
	rest, ok := strings.CutPrefix(lower, "grand_")
	if !ok {
		return 0, false
	}
	rest, ok = strings.CutSuffix(rest, "_parent")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// GrandParentColumn returns the conventional column name for the ancestor
// n levels above the immediate parent.
func GrandParentColumn(n int) string {
	return fmt.Sprintf("grand_%d_parent", n)
}

// ParentTableByName strips the last underscore-delimited segment from a
// structure table name, yielding the immediate parent table name. This is
// the legacy naming-convention fallback; explicit catalog links take
// precedence wherever both are available. Returns false for root-like
// names with no separator.
func ParentTableByName(table string) (string, bool) {
	idx := strings.LastIndex(table, "_")
	if idx <= 0 {
		return "", false
	}
	return table[:idx], true
}

// TableChain expands a structure table name into the full ancestor chain,
// root first. For "Games_Platforms_Store" it returns
// ["Games", "Games_Platforms", "Games_Platforms_Store"].
func TableChain(table string) []string {
	parts := strings.Split(table, "_")
	chain := make([]string, 0, len(parts))
	for i := 1; i <= len(parts); i++ {
		chain = append(chain, strings.Join(parts[:i], "_"))
	}
	return chain
}

// MetadataTableFor returns the per-sheet metadata table name for a sheet.
func MetadataTableFor(table string) string {
	return table + "_Metadata"
}
