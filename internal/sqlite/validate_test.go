package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabletree/lattice/pkg/types"
)

func TestValidateRowIndex_FlagsDuplicatesAndGaps(t *testing.T) {
	db := seededStore(t)

	// Seed numbering starts at 1, so Games is non-sequential.
	v, err := ValidateRowIndex(db, "Games")
	require.NoError(t, err)
	assert.False(t, v.Valid())
	assert.Equal(t, int64(2), v.TotalRows)
	assert.Equal(t, int64(1), v.MinIndex)
	assert.Equal(t, int64(2), v.MaxIndex)
	assert.Zero(t, v.Duplicates)

	_, err = db.Exec(`UPDATE "Games" SET row_index = 1`)
	require.NoError(t, err)
	v, err = ValidateRowIndex(db, "Games")
	require.NoError(t, err)
	assert.Equal(t, 1, v.Duplicates)
	assert.Equal(t, int64(1), v.UniqueCount)
}

func TestValidateRowIndex_CountsNulls(t *testing.T) {
	db := seededStore(t)

	_, err := db.Exec(`UPDATE "Games" SET row_index = NULL WHERE "Name" = 'Stardew Valley'`)
	require.NoError(t, err)

	v, err := ValidateRowIndex(db, "Games")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.NullCount)
	assert.False(t, v.Valid())
}

func TestValidateRowIndex_MissingColumn(t *testing.T) {
	db := seededStore(t)

	_, err := db.Exec(`CREATE TABLE "NoIndex" (id INTEGER PRIMARY KEY, "Name" TEXT)`)
	require.NoError(t, err)

	_, err = ValidateRowIndex(db, "NoIndex")
	assert.ErrorIs(t, err, types.ErrColumnNotFound)
}

func TestValidateRowIndex_EmptyTableIsValid(t *testing.T) {
	db := seededStore(t)

	_, err := db.Exec(`DELETE FROM "Games"`)
	require.NoError(t, err)

	v, err := ValidateRowIndex(db, "Games")
	require.NoError(t, err)
	assert.True(t, v.Valid())
}

func TestValidateAll_AfterPipeline(t *testing.T) {
	db := seededStore(t)

	reg := NewRegistry(DefaultFixes(types.Config{DBPath: "x"})...)
	require.NoError(t, reg.ApplyAll(db, types.NewMigrationReport("test"), nil))

	results, err := ValidateAll(db)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, v := range results {
		assert.True(t, v.Valid(), v.String())
	}

	summary := ValidationSummary(results)
	assert.Contains(t, summary, "all consistent")
}

func TestValidationSummary_ReportsBroken(t *testing.T) {
	results := []RowIndexValidation{
		{Table: "Good", TotalRows: 2, UniqueCount: 2, MinIndex: 0, MaxIndex: 1},
		{Table: "Bad", TotalRows: 2, UniqueCount: 1, MinIndex: 0, MaxIndex: 0, Duplicates: 1},
	}
	summary := ValidationSummary(results)
	assert.Contains(t, summary, "2 tables validated, 1 broken")
	assert.Contains(t, summary, "Bad: 2 rows")
}
