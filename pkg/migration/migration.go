// Package migration runs schema-evolution transforms over every noun
// and verb in bounded batches, with resume-safe progress tracking and
// per-entity error tolerance. Transforms are pure and must be
// idempotent, since a resumed or re-run migration may see entities it
// already touched.
package migration

import (
	"context"

	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/model"
)

// Transform maps an entity's current metadata to its migrated form, or
// returns nil to indicate no change. Must be pure and idempotent.
type Transform func(meta model.Metadata) (*model.Metadata, error)

// Migration is one named, pending schema change.
type Migration struct {
	ID        string
	Transform Transform
}

// EntityRef is one noun or verb as the migration runner sees it: an
// opaque id plus the metadata the transform operates on.
type EntityRef struct {
	ID       string
	Metadata model.Metadata
}

// EntitySource is the bounded-batch iteration and write-back surface
// the runner needs, implemented by pkg/engine over both nouns and
// verbs (the runner is called once per collection).
type EntitySource interface {
	Scan(ctx context.Context, branch string, offset, batchSize int) (entities []EntityRef, nextOffset int, hasMore bool, err error)
	SaveMetadata(ctx context.Context, branch, id string, meta model.Metadata) error
}

// ResumeState is persisted after every batch so a cancelled or crashed
// run can continue without reprocessing completed entities.
type ResumeState struct {
	MigrationID         string
	LastProcessedOffset int
	Branch              string
}

// StateRecord is the migration bookkeeping record (pkg/engine stores it
// at `_meta/migration_state.json` on the main branch): the set
// of migration IDs that have fully completed, plus the in-flight resume
// state (if a run is currently paused or was interrupted).
type StateRecord struct {
	Completed []string
	Resume    *ResumeState
}

func (s StateRecord) isCompleted(id string) bool {
	for _, c := range s.Completed {
		if c == id {
			return true
		}
	}
	return false
}

// StateStore persists the well-known migration state record.
type StateStore interface {
	GetState(ctx context.Context, branch string) (StateRecord, error)
	SetState(ctx context.Context, branch string, state StateRecord) error
}

// EntityError records one entity's transform or persist failure without
// aborting the run.
type EntityError struct {
	EntityID string
	Err      error
}

// Result summarizes one Run call.
type Result struct {
	Processed int
	Changed   int
	Errors    []EntityError
	Completed bool
}

// Runner drives one migration over one EntitySource.
type Runner struct {
	source    EntitySource
	state     StateStore
	maxErrors int
}

// New constructs a Runner. maxErrors <= 0 means unlimited.
func New(source EntitySource, state StateStore, maxErrors int) *Runner {
	return &Runner{source: source, state: state, maxErrors: maxErrors}
}

// Run applies m in bounded batches of batchSize over branch. Already-
// completed migrations are a no-op (invariant: idempotent re-run), and
// an in-progress resume state for this migration/branch resumes from
// its last offset instead of restarting at 0.
func (r *Runner) Run(ctx context.Context, m Migration, branch string, batchSize int) (Result, error) {
	state, err := r.state.GetState(ctx, branch)
	if err != nil && !engerr.Is(err, engerr.NotFound) {
		return Result{}, err
	}
	if state.isCompleted(m.ID) {
		return Result{Completed: true}, nil
	}

	offset := 0
	if state.Resume != nil && state.Resume.MigrationID == m.ID && state.Resume.Branch == branch {
		offset = state.Resume.LastProcessedOffset
	}

	var result Result
	for {
		select {
		case <-ctx.Done():
			if err := r.persistResume(ctx, branch, state, m.ID, offset); err != nil {
				return result, err
			}
			return result, engerr.Wrap("migration.Run", engerr.Cancelled, ctx.Err())
		default:
		}

		entities, nextOffset, hasMore, err := r.source.Scan(ctx, branch, offset, batchSize)
		if err != nil {
			return result, err
		}

		for _, e := range entities {
			result.Processed++
			migrated, err := m.Transform(e.Metadata)
			if err != nil {
				result.Errors = append(result.Errors, EntityError{EntityID: e.ID, Err: err})
				if r.maxErrors > 0 && len(result.Errors) > r.maxErrors {
					_ = r.persistResume(ctx, branch, state, m.ID, offset)
					return result, engerr.New("migration.Run", engerr.Exhausted, "too many entity errors")
				}
				continue
			}
			if migrated == nil {
				continue
			}
			if err := r.source.SaveMetadata(ctx, branch, e.ID, *migrated); err != nil {
				result.Errors = append(result.Errors, EntityError{EntityID: e.ID, Err: err})
				if r.maxErrors > 0 && len(result.Errors) > r.maxErrors {
					_ = r.persistResume(ctx, branch, state, m.ID, offset)
					return result, engerr.New("migration.Run", engerr.Exhausted, "too many entity errors")
				}
				continue
			}
			result.Changed++
		}

		offset = nextOffset
		if err := r.persistResume(ctx, branch, state, m.ID, offset); err != nil {
			return result, err
		}
		if !hasMore {
			break
		}
	}

	state.Completed = append(state.Completed, m.ID)
	state.Resume = nil
	if err := r.state.SetState(ctx, branch, state); err != nil {
		return result, err
	}
	result.Completed = true
	return result, nil
}

func (r *Runner) persistResume(ctx context.Context, branch string, state StateRecord, migrationID string, offset int) error {
	state.Resume = &ResumeState{MigrationID: migrationID, LastProcessedOffset: offset, Branch: branch}
	return r.state.SetState(ctx, branch, state)
}
