package sqlite

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/tabletree/lattice/pkg/types"
)

// Fix is one idempotent migration step. Fixes record themselves in the
// migration_fixes ledger after a successful run, but every fix must also
// tolerate re-execution: the ledger is an optimization, not the only
// guard.
type Fix interface {
	// ID is the stable ledger key for this fix. It never changes once
	// shipped; revised fixes get a new ID.
	ID() string
	// Description is a one-line human summary for the ledger and CLI.
	Description() string
	// Apply runs the fix, accumulating counts into rep and emitting
	// progress through notify. A nil notify is valid.
	Apply(db *sql.DB, rep *types.MigrationReport, notify types.ProgressFunc) error
}

// Registry holds an ordered list of fixes. Order matters: the parent key
// conversion must run before the grand column removal, since the removal
// destroys the columns the conversion reads.
type Registry struct {
	fixes []Fix
}

// NewRegistry builds a registry over the given fixes, applied in order.
func NewRegistry(fixes ...Fix) *Registry {
	return &Registry{fixes: fixes}
}

// DefaultFixes returns the standard fix sequence for a configuration.
func DefaultFixes(cfg types.Config) []Fix {
	return []Fix{
		&RowIndexDeduplication{},
		&ParentKeyToRowIndex{BatchSize: cfg.EffectiveBatchSize()},
		&RemoveGrandParentColumns{},
	}
}

// Fixes returns the registered fixes in application order.
func (r *Registry) Fixes() []Fix {
	out := make([]Fix, len(r.fixes))
	copy(out, r.fixes)
	return out
}

// ApplyAll runs every registered fix that the ledger does not already
// record, in order. A failing fix aborts the remainder. Applied fix IDs
// are accumulated into rep.FixesApplied.
func (r *Registry) ApplyAll(db *sql.DB, rep *types.MigrationReport, notify types.ProgressFunc) error {
	if notify == nil {
		notify = func(types.Progress) {}
	}
	for _, fix := range r.fixes {
		applied, err := fixApplied(db, fix.ID())
		if err != nil {
			return err
		}
		if applied {
			log.Printf("fix %s already applied, skipping", fix.ID())
			continue
		}

		log.Printf("applying fix %s: %s", fix.ID(), fix.Description())
		notify(types.Progress{Message: fmt.Sprintf("applying %s", fix.ID())})
		if err := fix.Apply(db, rep, notify); err != nil {
			return fmt.Errorf("fix %s: %w", fix.ID(), err)
		}
		if err := markApplied(db, fix.ID(), fix.Description()); err != nil {
			return err
		}
		rep.FixesApplied = append(rep.FixesApplied, fix.ID())
	}
	return nil
}

// AppliedFixes reads the ledger, returning fix IDs in application order.
// A database without a ledger yields an empty list.
func AppliedFixes(db *sql.DB) ([]string, error) {
	exists, err := TableExists(db, "migration_fixes")
	if err != nil || !exists {
		return nil, err
	}
	rows, err := db.Query("SELECT fix_id FROM migration_fixes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("reading fix ledger: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning fix ledger: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// fixApplied reports whether the ledger records a fix. A missing ledger
// table means nothing has been applied yet.
func fixApplied(db *sql.DB, fixID string) (bool, error) {
	exists, err := TableExists(db, "migration_fixes")
	if err != nil || !exists {
		return false, err
	}
	var count int
	err = db.QueryRow(
		"SELECT COUNT(*) FROM migration_fixes WHERE fix_id = ?", fixID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking fix %q: %w", fixID, err)
	}
	return count > 0, nil
}

// markApplied records a fix in the ledger, creating the ledger on first
// use. Re-recording an already present fix is a no-op.
func markApplied(db *sql.DB, fixID, description string) error {
	if _, err := db.Exec(createMigrationFixes); err != nil {
		return fmt.Errorf("creating fix ledger: %w", err)
	}
	_, err := db.Exec(
		"INSERT OR IGNORE INTO migration_fixes (fix_id, description) VALUES (?, ?)",
		fixID, description)
	if err != nil {
		return fmt.Errorf("recording fix %q: %w", fixID, err)
	}
	return nil
}
