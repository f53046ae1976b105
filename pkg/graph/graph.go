// Package graph implements the engine's adjacency index: four LSM-trees
// (edges-out, edges-in, verbs-out, verbs-in) plus a roaring-bitmap
// tombstone set of live verb ids, fronted by an LRU cache of full verb
// objects fetched on demand.
package graph

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/cuemby/noundb/pkg/blobstore"
	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/log"
	"github.com/cuemby/noundb/pkg/lsm"
	"github.com/cuemby/noundb/pkg/model"
	"github.com/cuemby/noundb/pkg/verbtype"
)

// Direction selects which LSM trees GetNeighbors/GetVerbIds* consult.
type Direction string

const (
	DirOut  Direction = "out"
	DirIn   Direction = "in"
	DirBoth Direction = "both"
)

// VerbFetcher loads a verb's full object on a cache miss. pkg/engine
// supplies an implementation backed by its in-memory verb map.
type VerbFetcher interface {
	FetchVerb(ctx context.Context, id string) (model.Verb, error)
}

// VerbSource enumerates every persisted verb, for Rebuild. pkg/engine
// supplies an implementation that yields a snapshot copy of its
// in-memory verb map.
type VerbSource interface {
	AllVerbs(ctx context.Context, yield func(model.Verb) error) error
}

// Index is the adjacency index for one engine instance (not partitioned
// per noun type; edges cross type boundaries freely).
type Index struct {
	mu sync.RWMutex

	edgesOut *lsm.Tree // sourceId -> {targetId}
	edgesIn  *lsm.Tree // targetId -> {sourceId}
	verbsOut *lsm.Tree // sourceId -> {verbId}
	verbsIn  *lsm.Tree // targetId -> {verbId}

	liveVerbIDs *roaring.Bitmap
	idToIdx     map[string]uint32
	idxToID     []string
	nextIdx     uint32

	typeCounts map[verbtype.Type]int64

	verbCache *lru.Cache[string, model.Verb]
	fetcher   VerbFetcher

	rebuilding atomic.Bool
	log        zerolog.Logger
}

// Options configures Open.
type Options struct {
	LSM          lsm.Config
	CacheEntries int
	Fetcher      VerbFetcher
}

// Open opens the four adjacency LSM-trees under root, using the persisted
// storage prefixes the engine's layout document names.
func Open(root string, blobs *blobstore.Store, opts Options) (*Index, error) {
	if opts.CacheEntries <= 0 {
		opts.CacheEntries = 10000
	}
	cfg := opts.LSM
	if cfg.MemTableThreshold == 0 {
		cfg = lsm.DefaultConfig()
	}

	edgesOut, err := lsm.Open(root, "graph-lsm-source", blobs, cfg)
	if err != nil {
		return nil, err
	}
	edgesIn, err := lsm.Open(root, "graph-lsm-target", blobs, cfg)
	if err != nil {
		return nil, err
	}
	verbsOut, err := lsm.Open(root, "graph-lsm-verbs-source", blobs, cfg)
	if err != nil {
		return nil, err
	}
	verbsIn, err := lsm.Open(root, "graph-lsm-verbs-target", blobs, cfg)
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[string, model.Verb](opts.CacheEntries)
	if err != nil {
		return nil, engerr.Wrap("graph.Open", engerr.IO, err)
	}

	return &Index{
		edgesOut:    edgesOut,
		edgesIn:     edgesIn,
		verbsOut:    verbsOut,
		verbsIn:     verbsIn,
		liveVerbIDs: roaring.New(),
		idToIdx:     make(map[string]uint32),
		typeCounts:  make(map[verbtype.Type]int64),
		verbCache:   cache,
		fetcher:     opts.Fetcher,
		log:         log.WithComponent("graph"),
	}, nil
}

// indexFor returns verbID's internal bitmap index, assigning a fresh one
// if this is the first time the id has been seen. Callers must hold mu.
func (idx *Index) indexFor(verbID string) uint32 {
	if i, ok := idx.idToIdx[verbID]; ok {
		return i
	}
	i := idx.nextIdx
	idx.nextIdx++
	idx.idToIdx[verbID] = i
	idx.idxToID = append(idx.idxToID, verbID)
	return i
}

// AddVerb inserts verb into all four LSMs, marks it live, and caches the
// object.
func (idx *Index) AddVerb(verb model.Verb) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.edgesOut.Add(verb.Source, verb.Target); err != nil {
		return engerr.Wrap("graph.AddVerb", engerr.IO, err)
	}
	if err := idx.edgesIn.Add(verb.Target, verb.Source); err != nil {
		return engerr.Wrap("graph.AddVerb", engerr.IO, err)
	}
	if err := idx.verbsOut.Add(verb.Source, verb.ID); err != nil {
		return engerr.Wrap("graph.AddVerb", engerr.IO, err)
	}
	if err := idx.verbsIn.Add(verb.Target, verb.ID); err != nil {
		return engerr.Wrap("graph.AddVerb", engerr.IO, err)
	}

	i := idx.indexFor(verb.ID)
	idx.liveVerbIDs.Add(i)
	idx.typeCounts[verb.Type]++
	idx.verbCache.Add(verb.ID, verb)
	return nil
}

// RemoveVerb tombstones verbID: it stops appearing live, but the
// underlying LSM entries remain until compaction reclaims them.
func (idx *Index) RemoveVerb(ctx context.Context, verbID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	i, ok := idx.idToIdx[verbID]
	if !ok {
		return engerr.New("graph.RemoveVerb", engerr.NotFound, verbID)
	}
	if !idx.liveVerbIDs.Contains(i) {
		return engerr.New("graph.RemoveVerb", engerr.NotFound, verbID)
	}

	verb, err := idx.lookupLocked(ctx, verbID)
	if err == nil {
		idx.typeCounts[verb.Type]--
	}

	idx.liveVerbIDs.Remove(i)
	idx.verbCache.Remove(verbID)
	return nil
}

func (idx *Index) lookupLocked(ctx context.Context, verbID string) (model.Verb, error) {
	if v, ok := idx.verbCache.Get(verbID); ok {
		return v, nil
	}
	if idx.fetcher == nil {
		return model.Verb{}, engerr.New("graph.lookup", engerr.NotFound, verbID)
	}
	v, err := idx.fetcher.FetchVerb(ctx, verbID)
	if err != nil {
		return model.Verb{}, err
	}
	idx.verbCache.Add(verbID, v)
	return v, nil
}

// GetNeighbors returns the paginated union of neighbors of id in the given
// direction.
func (idx *Index) GetNeighbors(id string, dir Direction, limit, offset int) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	set := make(map[string]struct{})
	if dir == DirOut || dir == DirBoth {
		out, err := idx.edgesOut.Get(id)
		if err != nil {
			return nil, engerr.Wrap("graph.GetNeighbors", engerr.IO, err)
		}
		for v := range out {
			set[v] = struct{}{}
		}
	}
	if dir == DirIn || dir == DirBoth {
		in, err := idx.edgesIn.Get(id)
		if err != nil {
			return nil, engerr.Wrap("graph.GetNeighbors", engerr.IO, err)
		}
		for v := range in {
			set[v] = struct{}{}
		}
	}
	return paginate(set, limit, offset), nil
}

// GetVerbIdsBySource returns live verb ids whose source is id.
func (idx *Index) GetVerbIdsBySource(id string, limit, offset int) ([]string, error) {
	return idx.getVerbIDs(idx.verbsOut, id, limit, offset)
}

// GetVerbIdsByTarget returns live verb ids whose target is id.
func (idx *Index) GetVerbIdsByTarget(id string, limit, offset int) ([]string, error) {
	return idx.getVerbIDs(idx.verbsIn, id, limit, offset)
}

func (idx *Index) getVerbIDs(tree *lsm.Tree, id string, limit, offset int) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	all, err := tree.Get(id)
	if err != nil {
		return nil, engerr.Wrap("graph.getVerbIDs", engerr.IO, err)
	}
	live := make(map[string]struct{}, len(all))
	for verbID := range all {
		if i, ok := idx.idToIdx[verbID]; ok && idx.liveVerbIDs.Contains(i) {
			live[verbID] = struct{}{}
		}
	}
	return paginate(live, limit, offset), nil
}

func paginate(set map[string]struct{}, limit, offset int) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	if offset >= len(out) {
		return []string{}
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end]
}

// TypeCount returns the number of live verbs of the given type.
func (idx *Index) TypeCount(t verbtype.Type) int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.typeCounts[t]
}

// Flush forces all four adjacency LSMs to flush their active MemTables.
func (idx *Index) Flush() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, t := range []*lsm.Tree{idx.edgesOut, idx.edgesIn, idx.verbsOut, idx.verbsIn} {
		if err := t.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// LSMStats returns the underlying Stats of the four adjacency LSM-trees,
// keyed by the role they play, for pkg/metrics to poll.
func (idx *Index) LSMStats() map[string]lsm.Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return map[string]lsm.Stats{
		"edges_out": idx.edgesOut.Stats(),
		"edges_in":  idx.edgesIn.Stats(),
		"verbs_out": idx.verbsOut.Stats(),
		"verbs_in":  idx.verbsIn.Stats(),
	}
}

// TypeCounts returns a snapshot of live verb counts by type, for
// pkg/metrics to poll.
func (idx *Index) TypeCounts() map[verbtype.Type]int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make(map[verbtype.Type]int64, len(idx.typeCounts))
	for t, c := range idx.typeCounts {
		out[t] = c
	}
	return out
}
