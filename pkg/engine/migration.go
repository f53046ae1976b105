package engine

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/events"
	"github.com/cuemby/noundb/pkg/migration"
	"github.com/cuemby/noundb/pkg/model"
)

// migrationStatePath is the well-known object-store path the migration
// runner's resume/completion bookkeeping is persisted under, alongside
// nouns/ and verbs/ on the main branch.
const migrationStatePath = "_meta/migration_state.json"

// Scan implements migration.EntitySource over the noun store, in
// deterministic ID order: the id list is sorted afresh on every call, so
// repeated Scan calls with the same offset return the same page as long
// as no noun is added in between.
func (e *Engine) Scan(ctx context.Context, branch string, offset, batchSize int) ([]migration.EntityRef, int, bool, error) {
	e.mu.RLock()
	ids := make([]string, 0, len(e.nouns))
	for id := range e.nouns {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	end := offset + batchSize
	if end > len(ids) {
		end = len(ids)
	}
	var page []string
	if offset < len(ids) {
		page = ids[offset:end]
	}

	refs := make([]migration.EntityRef, 0, len(page))
	for _, id := range page {
		refs = append(refs, migration.EntityRef{ID: id, Metadata: e.nouns[id].Metadata})
	}
	hasMore := end < len(ids)
	e.mu.RUnlock()

	return refs, end, hasMore, nil
}

// SaveMetadata implements migration.EntitySource, writing a migrated
// entity's metadata back through the normal commit-log path.
func (e *Engine) SaveMetadata(ctx context.Context, branch, id string, meta model.Metadata) error {
	return e.SetMetadata(ctx, id, meta)
}

// GetState implements migration.StateStore.
func (e *Engine) GetState(ctx context.Context, branch string) (migration.StateRecord, error) {
	e.migMu.Lock()
	defer e.migMu.Unlock()
	return e.migState, nil
}

// SetState implements migration.StateStore.
func (e *Engine) SetState(ctx context.Context, branch string, state migration.StateRecord) error {
	return e.commitLog.Apply(ctx, opSetMigration, state)
}

func (e *Engine) applySetMigrationState(rec migration.StateRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return engerr.Wrap("engine.applySetMigrationState", engerr.IO, err)
	}
	hash, err := e.blobs.Put(data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.branch.Write(migrationStatePath, string(hash))
	_, err = e.branch.Commit("engine", "update migration state")
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.migMu.Lock()
	e.migState = rec
	e.migMu.Unlock()
	return nil
}

// RunMigration drives m to completion over every noun, resuming from any
// prior interrupted run for m.ID, and publishes start/done events.
func (e *Engine) RunMigration(ctx context.Context, m migration.Migration, batchSize int, maxErrors int) (migration.Result, error) {
	e.broker.Publish(&events.Event{Type: events.EventMigrationStart, Message: m.ID})
	runner := migration.New(e, e, maxErrors)
	result, err := runner.Run(ctx, m, mainBranch, batchSize)
	e.broker.Publish(&events.Event{Type: events.EventMigrationDone, Message: m.ID})
	return result, err
}
