package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabletree/lattice/pkg/types"
)

func TestTableExists(t *testing.T) {
	db := seededStore(t)

	exists, err := TableExists(db, "Games")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = TableExists(db, "Nope")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestColumns(t *testing.T) {
	db := seededStore(t)

	cols, err := Columns(db, "Games_Platforms")
	require.NoError(t, err)

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"id", "row_index", "parent_key", "Platform"}, names)
	assert.True(t, cols[0].PrimaryKey)
}

func TestColumns_MissingTable(t *testing.T) {
	db := seededStore(t)

	_, err := Columns(db, "Nope")
	assert.ErrorIs(t, err, types.ErrTableNotFound)
}

func TestColumnExists_CaseInsensitive(t *testing.T) {
	db := seededStore(t)

	has, err := ColumnExists(db, "Games_Platforms", "PARENT_KEY")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = ColumnExists(db, "Games", "parent_key")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestListTables_HidesInternal(t *testing.T) {
	db := seededStore(t)

	tables, err := ListTables(db)
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{"Games", "Games_Platforms", "Games_Platforms_Stores"}, tables)
}

func TestCatalogTables_Ordered(t *testing.T) {
	db := seededStore(t)

	descs, err := CatalogTables(db)
	require.NoError(t, err)
	require.Len(t, descs, 3)
	assert.Equal(t, "Games", descs[0].Name)
	assert.Nil(t, descs[0].ParentTable)
	assert.Equal(t, "Games_Platforms_Stores", descs[2].Name)
	require.NotNil(t, descs[2].ParentTable)
	assert.Equal(t, "Games_Platforms", *descs[2].ParentTable)
}

func TestCatalogTables_LegacyCatalog(t *testing.T) {
	db := legacyStore(t)

	descs, err := CatalogTables(db)
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, "Games", descs[0].Name)
	assert.Equal(t, "Games_Platforms", descs[1].Name)
	assert.Empty(t, descs[1].TableType)
	assert.Nil(t, descs[1].ParentTable)
	assert.False(t, descs[1].Hidden)
}

func TestParentTableOf_LegacyCatalog(t *testing.T) {
	db := legacyStore(t)

	// No parent_table column, so the naming convention decides.
	parent, ok, err := ParentTableOf(db, "Games_Platforms")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Games", parent)
}

func TestParentTableOf(t *testing.T) {
	db := seededStore(t)

	parent, ok, err := ParentTableOf(db, "Games_Platforms_Stores")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Games_Platforms", parent)

	_, ok, err = ParentTableOf(db, "Games")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParentTableOf_NameFallback(t *testing.T) {
	db := seededStore(t)

	// Not cataloged, so the naming convention applies.
	_, err := db.Exec(`CREATE TABLE "Books_Chapters" (id INTEGER PRIMARY KEY, row_index INTEGER, parent_key TEXT)`)
	require.NoError(t, err)

	parent, ok, err := ParentTableOf(db, "Books_Chapters")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Books", parent)
}

func TestGrandParentColumns_SortedByLevel(t *testing.T) {
	db := seededStore(t)

	_, err := db.Exec(`CREATE TABLE "Deep" (
		id INTEGER PRIMARY KEY,
		row_index INTEGER,
		parent_key TEXT,
		grand_2_parent TEXT,
		grand_1_parent TEXT,
		"Name" TEXT
	)`)
	require.NoError(t, err)

	grands, err := GrandParentColumns(db, "Deep")
	require.NoError(t, err)
	assert.Equal(t, []string{"grand_1_parent", "grand_2_parent"}, grands)
}

func TestHasParentRowUniqueIndex(t *testing.T) {
	db := seededStore(t)

	// Implicit UNIQUE(parent_key, row_index) from the table definition.
	has, err := HasParentRowUniqueIndex(db, "Games_Platforms")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = HasParentRowUniqueIndex(db, "Games")
	require.NoError(t, err)
	assert.False(t, has)

	// Explicit named index counts too.
	_, err = db.Exec(`CREATE TABLE "Indexed" (id INTEGER PRIMARY KEY, row_index INTEGER, parent_key TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE UNIQUE INDEX idx_Indexed_parent_row ON "Indexed"(parent_key, row_index)`)
	require.NoError(t, err)

	has, err = HasParentRowUniqueIndex(db, "Indexed")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestRowCount(t *testing.T) {
	db := seededStore(t)

	n, err := RowCount(db, "Games_Platforms")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
