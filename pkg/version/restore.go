package version

import (
	"context"

	"github.com/cuemby/noundb/pkg/engerr"
)

// RestoreOptions controls whether restore snapshots the current state
// before overwriting it.
type RestoreOptions struct {
	CreateSnapshot bool
	// SnapshotCommitHash is recorded on the pre-restore snapshot version,
	// if CreateSnapshot is set. Typically the commit the caller made just
	// before calling Restore.
	SnapshotCommitHash string
	SnapshotAuthor     string
}

// Restore overwrites entityID's current metadata with the contents of
// version v on branch. If opts.CreateSnapshot is set, the current state
// is saved as a version first; on failure of the overwrite step, that
// snapshot is the only recovery handle, since Restore itself does not
// retry.
func (idx *Index) Restore(ctx context.Context, entityID, branch string, v int, opts RestoreOptions) error {
	if opts.CreateSnapshot {
		if _, err := idx.Save(ctx, entityID, branch, opts.SnapshotCommitHash, SaveOptions{
			Author:      opts.SnapshotAuthor,
			Description: "pre-restore snapshot",
		}); err != nil {
			return engerr.Wrap("version.Restore", engerr.IO, err)
		}
	}

	content, err := idx.GetContent(ctx, entityID, branch, v)
	if err != nil {
		return err
	}
	return idx.entities.SetMetadata(ctx, entityID, content)
}

// Undo restores entityID to its second-newest version, snapshotting the
// current state first. Returns engerr.NotFound if fewer than two
// versions exist.
func (idx *Index) Undo(ctx context.Context, entityID, branch, commitHash string) error {
	records, err := idx.List(ctx, entityID, branch)
	if err != nil {
		return err
	}
	if len(records) < 2 {
		return engerr.New("version.Undo", engerr.NotFound, "not enough history to undo")
	}
	secondNewest := records[len(records)-2]
	return idx.Restore(ctx, entityID, branch, secondNewest.Version, RestoreOptions{
		CreateSnapshot:     true,
		SnapshotCommitHash: commitHash,
		SnapshotAuthor:     "undo",
	})
}
