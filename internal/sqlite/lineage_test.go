package sqlite

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabletree/lattice/pkg/types"
)

// migratedStore returns the seeded demo hierarchy after parent_key values
// have been converted to numeric row_index references.
func migratedStore(t *testing.T) *sql.DB {
	t.Helper()
	db := seededStore(t)
	rep := types.NewMigrationReport("test")
	fix := &ParentKeyToRowIndex{}
	require.NoError(t, fix.Apply(db, rep, nil))
	return db
}

func TestPrimaryDisplayColumn_FromMetadata(t *testing.T) {
	db := seededStore(t)

	col, err := PrimaryDisplayColumn(db, "Games")
	require.NoError(t, err)
	assert.Equal(t, "Name", col)

	col, err = PrimaryDisplayColumn(db, "Games_Platforms_Stores")
	require.NoError(t, err)
	assert.Equal(t, "Store", col)
}

func TestPrimaryDisplayColumn_PhysicalFallback(t *testing.T) {
	db := seededStore(t)

	// No per-sheet metadata: first non-technical physical column wins.
	_, err := db.Exec(`CREATE TABLE "Bare" (
		id INTEGER PRIMARY KEY,
		row_index INTEGER,
		parent_key TEXT,
		"Title" TEXT,
		"Note" TEXT
	)`)
	require.NoError(t, err)

	col, err := PrimaryDisplayColumn(db, "Bare")
	require.NoError(t, err)
	assert.Equal(t, "Title", col)
}

func TestPrimaryDisplayColumn_MetadataSkipsDeleted(t *testing.T) {
	db := seededStore(t)

	_, err := db.Exec(`UPDATE "Games_Metadata" SET deleted = 1 WHERE column_name = 'Name'`)
	require.NoError(t, err)

	col, err := PrimaryDisplayColumn(db, "Games")
	require.NoError(t, err)
	assert.Equal(t, "Genre", col)
}

func TestPrimaryDisplayColumn_MetadataWithoutDeletedColumn(t *testing.T) {
	db := legacyStore(t)

	col, err := PrimaryDisplayColumn(db, "Games")
	require.NoError(t, err)
	assert.Equal(t, "Name", col)
}

func TestDisplayValue(t *testing.T) {
	db := seededStore(t)

	value, err := DisplayValue(db, "Games", 1)
	require.NoError(t, err)
	assert.Equal(t, "Mass Effect 3", value)

	_, err = DisplayValue(db, "Games", 99)
	assert.ErrorIs(t, err, types.ErrRowNotFound)
}

func TestWalkLineage_ThreeLevels(t *testing.T) {
	db := migratedStore(t)

	// Valve Store under Steam under Mass Effect 3.
	var rowIndex int64
	err := db.QueryRow(`SELECT row_index FROM "Games_Platforms_Stores" WHERE "Store" = 'Valve Store'`).
		Scan(&rowIndex)
	require.NoError(t, err)

	entries, err := WalkLineage(db, "Games_Platforms_Stores", rowIndex)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, []string{"Mass Effect 3", "Steam", "Valve Store"}, types.DisplayValues(entries))
	assert.Equal(t, "Games", entries[0].Table)
	assert.Equal(t, "Games_Platforms_Stores", entries[2].Table)
}

func TestWalkLineage_CycleHitsDepthBound(t *testing.T) {
	db := seededStore(t)

	// A self-parented table loops forever without the depth bound.
	_, err := db.Exec(`CREATE TABLE "Loop" (
		id INTEGER PRIMARY KEY,
		row_index INTEGER,
		parent_key INTEGER,
		"Name" TEXT
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO "Loop" (row_index, parent_key, "Name") VALUES (0, 0, 'self')`)
	require.NoError(t, err)
	loop := "Loop"
	require.NoError(t, RegisterTable(db, types.TableDescriptor{
		Name: "Loop", DisplayOrder: 9, ParentTable: &loop,
	}))

	_, err = WalkLineage(db, "Loop", 0)
	assert.ErrorIs(t, err, types.ErrLineageDepthExceeded)
}

func TestWalkLineage_MissingParentStopsWalk(t *testing.T) {
	db := migratedStore(t)

	// Orphan the platform row, then walk from the store row.
	_, err := db.Exec(`UPDATE "Games_Platforms" SET parent_key = 999 WHERE "Platform" = 'Steam' AND parent_key IS NOT NULL`)
	require.NoError(t, err)

	var rowIndex int64
	err = db.QueryRow(`SELECT row_index FROM "Games_Platforms_Stores" WHERE "Store" = 'Valve Store'`).
		Scan(&rowIndex)
	require.NoError(t, err)

	entries, err := WalkLineage(db, "Games_Platforms_Stores", rowIndex)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Games_Platforms", entries[0].Table)
}

func TestResolveRowIndex_RoundTrip(t *testing.T) {
	db := migratedStore(t)

	var want int64
	err := db.QueryRow(`SELECT row_index FROM "Games_Platforms_Stores" WHERE "Store" = 'EA App'`).
		Scan(&want)
	require.NoError(t, err)

	entries, err := WalkLineage(db, "Games_Platforms_Stores", want)
	require.NoError(t, err)

	got, err := ResolveRowIndex(db, "Games_Platforms_Stores", types.DisplayValues(entries))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolveRowIndex_CaseInsensitive(t *testing.T) {
	db := migratedStore(t)

	var want int64
	err := db.QueryRow(`SELECT row_index FROM "Games" WHERE "Name" = 'Mass Effect 3'`).Scan(&want)
	require.NoError(t, err)

	got, err := ResolveRowIndex(db, "Games", []string{"mass effect 3"})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolveRowIndex_LengthMismatch(t *testing.T) {
	db := migratedStore(t)

	_, err := ResolveRowIndex(db, "Games_Platforms_Stores", []string{"Mass Effect 3", "Steam"})
	assert.ErrorIs(t, err, types.ErrRowNotFound)
}

func TestResolveRowIndex_ParentConstraintDisambiguates(t *testing.T) {
	db := migratedStore(t)

	// Steam exists under two games; the root value picks the right branch.
	var me3Row, sdvRow int64
	require.NoError(t, db.QueryRow(
		`SELECT gp.row_index FROM "Games_Platforms" gp
		 JOIN "Games" g ON g.row_index = gp.parent_key
		 WHERE g."Name" = 'Mass Effect 3' AND gp."Platform" = 'Steam'`).Scan(&me3Row))
	require.NoError(t, db.QueryRow(
		`SELECT gp.row_index FROM "Games_Platforms" gp
		 JOIN "Games" g ON g.row_index = gp.parent_key
		 WHERE g."Name" = 'Stardew Valley' AND gp."Platform" = 'Steam'`).Scan(&sdvRow))
	require.NotEqual(t, me3Row, sdvRow)

	got, err := ResolveRowIndex(db, "Games_Platforms", []string{"Stardew Valley", "Steam"})
	require.NoError(t, err)
	assert.Equal(t, sdvRow, got)
}
