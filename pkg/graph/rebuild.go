package graph

import (
	"context"

	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/model"
	"github.com/cuemby/noundb/pkg/verbtype"
)

// Rebuild re-scans every persisted verb from source and re-adds each to
// the four LSMs and the live set. Concurrent calls observe
// engerr.Conflict ("rebuild in progress") instead of running twice.
func (idx *Index) Rebuild(ctx context.Context, source VerbSource) error {
	if !idx.rebuilding.CompareAndSwap(false, true) {
		return engerr.New("graph.Rebuild", engerr.Conflict, "rebuild already in progress")
	}
	defer idx.rebuilding.Store(false)

	idx.mu.Lock()
	idx.liveVerbIDs.Clear()
	idx.idToIdx = make(map[string]uint32)
	idx.idxToID = nil
	idx.nextIdx = 0
	idx.typeCounts = make(map[verbtype.Type]int64)
	idx.mu.Unlock()

	count := 0
	err := source.AllVerbs(ctx, func(v model.Verb) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := idx.AddVerb(v); err != nil {
			return err
		}
		count++
		if count%10000 == 0 {
			idx.log.Info().Int("processed", count).Msg("rebuild progress")
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return engerr.Wrap("graph.Rebuild", engerr.Cancelled, ctx.Err())
		}
		return engerr.Wrap("graph.Rebuild", engerr.IO, err)
	}

	idx.log.Info().Int("total", count).Msg("rebuild complete")
	return nil
}
