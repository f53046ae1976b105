package engine

import (
	"context"

	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/model"
	"github.com/cuemby/noundb/pkg/version"
)

// setMetadataPayload is the commitlog.Command payload for opSetMetadata.
type setMetadataPayload struct {
	ID   string        `json:"id"`
	Meta model.Metadata `json:"meta"`
}

// GetMetadata implements version.EntityStore, reading a noun's current
// metadata out of the in-memory store.
func (e *Engine) GetMetadata(ctx context.Context, id string) (model.Metadata, error) {
	n, err := e.Get(ctx, id)
	if err != nil {
		return model.Metadata{}, err
	}
	return n.Metadata, nil
}

// SetMetadata implements version.EntityStore: it overwrites id's metadata
// in place (used by version.Restore/Undo) without bumping CreatedAt or
// treating the write as a new logical version — the version history
// already owns that bookkeeping via its own State nouns.
func (e *Engine) SetMetadata(ctx context.Context, id string, meta model.Metadata) error {
	if _, err := e.Get(ctx, id); err != nil {
		return err
	}
	return e.commitLog.Apply(ctx, opSetMetadata, setMetadataPayload{ID: id, Meta: meta})
}

func (e *Engine) applySetMetadata(p setMetadataPayload) error {
	e.mu.Lock()
	n, ok := e.nouns[p.ID]
	if !ok {
		e.mu.Unlock()
		return engerr.New("engine.applySetMetadata", engerr.NotFound, p.ID)
	}
	n.Metadata = p.Meta
	e.mu.Unlock()
	return e.applyPutNoun(n)
}

// SaveVersion snapshots entityID's current metadata as a new version
// record on branch.
func (e *Engine) SaveVersion(ctx context.Context, entityID, branch, commitHash string, opts version.SaveOptions) (version.Record, error) {
	return e.versions.Save(ctx, entityID, branch, commitHash, opts)
}

// ListVersions returns every saved version of entityID on branch, oldest
// first.
func (e *Engine) ListVersions(ctx context.Context, entityID, branch string) ([]version.Record, error) {
	return e.versions.List(ctx, entityID, branch)
}

// RestoreVersion overwrites entityID's current metadata with version v on
// branch.
func (e *Engine) RestoreVersion(ctx context.Context, entityID, branch string, v int, opts version.RestoreOptions) error {
	return e.versions.Restore(ctx, entityID, branch, v, opts)
}

// UndoVersion restores entityID to its second-newest version on branch.
func (e *Engine) UndoVersion(ctx context.Context, entityID, branch, commitHash string) error {
	return e.versions.Undo(ctx, entityID, branch, commitHash)
}

// CompareVersions diffs version a against version b (a is "before", b is
// "after") for entityID on branch.
func (e *Engine) CompareVersions(ctx context.Context, entityID, branch string, a, b int) (version.Diff, error) {
	return e.versions.Compare(ctx, entityID, branch, a, b)
}

// PruneVersions removes versions of entityID on branch that match none of
// opts' retention predicates, returning the records that were (or, under
// opts.DryRun, would be) removed.
func (e *Engine) PruneVersions(ctx context.Context, entityID, branch string, opts version.PruneOptions) ([]version.Record, error) {
	return e.versions.Prune(ctx, entityID, branch, opts)
}
