package sqlite

import (
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/tabletree/lattice/pkg/types"
)

// Runner executes a fix registry in the background, publishing progress
// through channels so a caller can poll without blocking its own loop.
type Runner struct {
	registry *Registry
}

// Run is one in-flight migration. Progress events arrive on a buffered
// channel; exactly one Completion follows on Done when the run ends.
type Run struct {
	ID       uuid.UUID
	Progress <-chan types.Progress
	Done     <-chan types.Completion
}

// NewRunner wraps a registry for background execution.
func NewRunner(registry *Registry) *Runner {
	return &Runner{registry: registry}
}

// Start opens the database and applies all pending fixes in a goroutine.
// The returned Run owns its database handle; it closes when the run ends.
func (r *Runner) Start(cfg types.Config) (*Run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	runID := uuid.Must(uuid.NewV7())
	progress := make(chan types.Progress, 64)
	done := make(chan types.Completion, 1)

	go func() {
		defer store.Close()
		defer close(done)
		defer close(progress)

		rep := types.NewMigrationReport(runID.String())
		notify := func(p types.Progress) {
			// A full buffer drops the event rather than stalling migration.
			select {
			case progress <- p:
			default:
			}
		}

		err := r.registry.ApplyAll(store.DB(), rep, notify)
		if err != nil {
			log.Printf("migration run %s failed: %v", runID, err)
		} else {
			log.Printf("migration run %s complete: %s", runID, rep.Summary())
		}
		done <- types.Completion{Report: rep, Err: err}
	}()

	return &Run{ID: runID, Progress: progress, Done: done}, nil
}

// Poll drains pending progress events and checks for completion without
// blocking. The returned Completion is non-nil exactly once.
func (run *Run) Poll() ([]types.Progress, *types.Completion) {
	var events []types.Progress
	for {
		select {
		case p, ok := <-run.Progress:
			if !ok {
				if c, done := run.tryDone(); done {
					return events, c
				}
				return events, nil
			}
			events = append(events, p)
		default:
			if c, done := run.tryDone(); done {
				return events, c
			}
			return events, nil
		}
	}
}

// Wait blocks until the run ends, returning its report.
func (run *Run) Wait() (*types.MigrationReport, error) {
	for range run.Progress {
	}
	c, ok := <-run.Done
	if !ok {
		return nil, fmt.Errorf("migration run %s: completion already consumed", run.ID)
	}
	return c.Report, c.Err
}

func (run *Run) tryDone() (*types.Completion, bool) {
	select {
	case c, ok := <-run.Done:
		if !ok {
			return nil, false
		}
		return &c, true
	default:
		return nil, false
	}
}
