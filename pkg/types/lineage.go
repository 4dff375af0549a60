package types

import (
	"errors"
	"strings"
)

// MaxLineageDepth bounds the parent-chain walk. A chain deeper than this is
// treated as a probable cycle and reported as an error rather than silently
// truncated.
const MaxLineageDepth = 10

// ErrLineageDepthExceeded is returned when a parent-chain walk exceeds
// MaxLineageDepth hops.
var ErrLineageDepthExceeded = errors.New("lineage depth limit exceeded (possible circular reference)")

// LineageEntry is one level of an ancestor chain: the table, the row's
// human-readable display value, and the row's stable row_index.
type LineageEntry struct {
	Table        string
	DisplayValue string
	RowIndex     int64
}

// DisplayValues extracts just the display values from a lineage, preserving
// order.
func DisplayValues(lineage []LineageEntry) []string {
	values := make([]string, len(lineage))
	for i, entry := range lineage {
		values[i] = entry.DisplayValue
	}
	return values
}

// FormatLineage joins the display values of a root-to-leaf lineage with the
// given separator, e.g. "Mass Effect 3 › PC › Steam".
func FormatLineage(lineage []LineageEntry, separator string) string {
	return strings.Join(DisplayValues(lineage), separator)
}
