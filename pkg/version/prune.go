package version

import (
	"context"
	"time"
)

// PruneOptions are retention predicates; a record survives pruning if it
// matches any predicate that is set. Leaving every field at its zero
// value keeps nothing (prunes everything) — callers must opt in to what
// they want retained.
type PruneOptions struct {
	KeepRecent int       // keep the N newest versions
	KeepAfter  time.Time // keep versions with Timestamp >= KeepAfter
	KeepTagged bool      // keep any version carrying a non-empty Tag
	DryRun     bool
}

// Prune removes versions not matching any retention predicate in opts,
// returning the records that were (or, under DryRun, would be) removed.
// Removed records are soft-deleted the same way any other noun is, so
// they drop out of Find/List immediately but remain in the commit log.
func (idx *Index) Prune(ctx context.Context, entityID, branch string, opts PruneOptions) ([]Record, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	records, err := idx.listNouns(ctx, entityID, branch)
	if err != nil {
		return nil, err
	}

	keep := make([]bool, len(records))
	if opts.KeepRecent > 0 {
		start := len(records) - opts.KeepRecent
		if start < 0 {
			start = 0
		}
		for i := start; i < len(records); i++ {
			keep[i] = true
		}
	}
	if !opts.KeepAfter.IsZero() {
		for i, r := range records {
			if !r.rec.Timestamp.Before(opts.KeepAfter) {
				keep[i] = true
			}
		}
	}
	if opts.KeepTagged {
		for i, r := range records {
			if r.rec.Tag != "" {
				keep[i] = true
			}
		}
	}

	var removed []Record
	for i, r := range records {
		if !keep[i] {
			removed = append(removed, r.rec)
		}
	}
	if opts.DryRun {
		return removed, nil
	}

	for i, r := range records {
		if keep[i] {
			continue
		}
		if err := idx.entities.Delete(ctx, r.id); err != nil {
			return nil, err
		}
	}
	return removed, nil
}
