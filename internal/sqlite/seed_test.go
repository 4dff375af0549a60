package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed_CreatesHierarchy(t *testing.T) {
	db := seededStore(t)

	tables, err := ListTables(db)
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{"Games", "Games_Platforms", "Games_Platforms_Stores"}, tables)

	descs, err := CatalogTables(db)
	require.NoError(t, err)
	require.Len(t, descs, 3)

	// Seeded data is deliberately legacy-shaped: textual parent keys and a
	// grand_1_parent column waiting to be migrated away.
	pk := parentKeyOf(t, db, "Games_Platforms_Stores", `"Store" = 'Valve Store'`)
	assert.Equal(t, "Steam", pk)

	has, err := ColumnExists(db, "Games_Platforms_Stores", "grand_1_parent")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestSeed_SheetMetadataDrivesDisplayColumns(t *testing.T) {
	db := seededStore(t)

	for table, want := range map[string]string{
		"Games":                  "Name",
		"Games_Platforms":        "Platform",
		"Games_Platforms_Stores": "Store",
	} {
		col, err := PrimaryDisplayColumn(db, table)
		require.NoError(t, err)
		assert.Equal(t, want, col)
	}
}
