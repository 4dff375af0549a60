package types

import (
	"reflect"
	"testing"
)

func TestDisplayValues(t *testing.T) {
	lineage := []LineageEntry{
		{Table: "Games", DisplayValue: "Mass Effect 3", RowIndex: 0},
		{Table: "Games_Platforms", DisplayValue: "Steam", RowIndex: 1},
	}
	got := DisplayValues(lineage)
	if !reflect.DeepEqual(got, []string{"Mass Effect 3", "Steam"}) {
		t.Errorf("DisplayValues = %v", got)
	}

	if got := DisplayValues(nil); len(got) != 0 {
		t.Errorf("expected empty slice, got %v", got)
	}
}

func TestFormatLineage(t *testing.T) {
	lineage := []LineageEntry{
		{Table: "Games", DisplayValue: "Mass Effect 3"},
		{Table: "Games_Platforms", DisplayValue: "Steam"},
		{Table: "Games_Platforms_Stores", DisplayValue: "Valve Store"},
	}
	got := FormatLineage(lineage, " › ")
	want := "Mass Effect 3 › Steam › Valve Store"
	if got != want {
		t.Errorf("FormatLineage = %q, want %q", got, want)
	}
}

func TestMigrationReport_MergeAndSummary(t *testing.T) {
	rep := NewMigrationReport("run-1")
	rep.MergeTable(TableCounts{Migrated: 10, Skipped: 2, Broken: 1})
	rep.MergeTable(TableCounts{Migrated: 5})
	rep.FixesApplied = append(rep.FixesApplied, "fix_a")
	rep.RecordFailure("Bad_Table", ErrLineageDepthExceeded)

	if rep.TablesProcessed != 2 || rep.RowsMigrated != 15 || rep.RowsSkipped != 2 || rep.RowsBroken != 1 {
		t.Errorf("unexpected totals: %+v", rep)
	}
	if len(rep.FailedTables) != 1 || rep.FailedTables[0].Table != "Bad_Table" {
		t.Errorf("unexpected failures: %+v", rep.FailedTables)
	}

	summary := rep.Summary()
	want := "2 tables processed, 15 rows migrated, 2 skipped, 1 broken, 0 columns removed, 1 fixes applied"
	if summary != want {
		t.Errorf("Summary = %q, want %q", summary, want)
	}
}
