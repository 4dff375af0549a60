package types

import "fmt"

// TableFailure records a table whose migration aborted, with the error text.
type TableFailure struct {
	Table string
	Err   string
}

// TableCounts holds the per-table outcome of one parent-key conversion pass.
type TableCounts struct {
	Migrated int
	Skipped  int
	Broken   int
}

// MigrationReport accumulates the outcome of one migration run. A single
// report value is threaded through every fix and batch rather than loose
// counters per loop.
type MigrationReport struct {
	RunID           string
	TablesProcessed int
	RowsMigrated    int
	RowsSkipped     int
	RowsBroken      int
	ColumnsRemoved  int
	FixesApplied    []string
	FailedTables    []TableFailure
}

// NewMigrationReport returns an empty report tagged with a run identifier.
func NewMigrationReport(runID string) *MigrationReport {
	return &MigrationReport{RunID: runID}
}

// MergeTable folds one table's counts into the report.
func (r *MigrationReport) MergeTable(c TableCounts) {
	r.TablesProcessed++
	r.RowsMigrated += c.Migrated
	r.RowsSkipped += c.Skipped
	r.RowsBroken += c.Broken
}

// RecordFailure notes a table that could not be migrated.
func (r *MigrationReport) RecordFailure(table string, err error) {
	r.FailedTables = append(r.FailedTables, TableFailure{Table: table, Err: err.Error()})
}

// Summary renders a one-line human-readable outcome.
func (r *MigrationReport) Summary() string {
	return fmt.Sprintf(
		"%d tables processed, %d rows migrated, %d skipped, %d broken, %d columns removed, %d fixes applied",
		r.TablesProcessed, r.RowsMigrated, r.RowsSkipped, r.RowsBroken,
		r.ColumnsRemoved, len(r.FixesApplied))
}

// Progress is one status message from a running migration. CurrentTable is
// empty between tables.
type Progress struct {
	Total        int
	Completed    int
	CurrentTable string
	Message      string
}

// ProgressFunc receives Progress messages from the engine. Implementations
// must not block; the runner forwards to a buffered channel and drops on
// overflow.
type ProgressFunc func(Progress)

// Completion is the single terminal message of a migration run. Err is nil
// on success; Report is always populated with whatever completed.
type Completion struct {
	Report *MigrationReport
	Err    error
}
