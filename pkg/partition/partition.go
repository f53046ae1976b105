// Package partition fans a single logical vector index out across one
// pkg/hnsw.Index per noun type, so a search that only cares about
// "Person" nodes never walks graph structure built from "Organization"
// nodes sharing the same embedding space.
package partition

import (
	"sort"
	"sync"

	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/hnsw"
	"github.com/cuemby/noundb/pkg/model"
	"github.com/cuemby/noundb/pkg/nountype"
)

// Set owns one hnsw.Index per noun type, created lazily on the first
// Insert for that type (Search skips types with no index) so types that
// never occur in a dataset never pay for an empty index.
type Set struct {
	mu      sync.RWMutex
	cfg     hnsw.Config
	indexes map[nountype.Type]*hnsw.Index
}

// Open creates an empty partition set. cfg.Dimension must be fixed
// across all partitions sharing the same embedding space.
func Open(cfg hnsw.Config) *Set {
	return &Set{cfg: cfg, indexes: make(map[nountype.Type]*hnsw.Index)}
}

func (s *Set) indexFor(t nountype.Type) (*hnsw.Index, error) {
	s.mu.RLock()
	idx, ok := s.indexes[t]
	s.mu.RUnlock()
	if ok {
		return idx, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.indexes[t]; ok {
		return idx, nil
	}
	idx, err := hnsw.Open(s.cfg)
	if err != nil {
		return nil, err
	}
	s.indexes[t] = idx
	return idx, nil
}

// Insert adds id/vec under the partition for t, replacing any previous
// vector stored under id within that partition.
func (s *Set) Insert(t nountype.Type, id string, vec model.Vector) error {
	if !nountype.Valid(t) {
		return engerr.New("partition.Insert", engerr.InvalidType, "unknown noun type "+string(t))
	}
	idx, err := s.indexFor(t)
	if err != nil {
		return err
	}
	return idx.Insert(id, vec)
}

// ScoredID is one merged search hit, tagged with the partition it came
// from since callers searching across multiple types need to know.
type ScoredID struct {
	ID       string
	Type     nountype.Type
	Distance float64
}

// Search runs vec against every partition named in types (or every
// partition that exists, if types is empty), merges the per-partition
// top-k results by distance, and truncates to k overall.
func (s *Set) Search(types []nountype.Type, vec model.Vector, k int, ef int) ([]ScoredID, error) {
	if k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	targets := types
	if len(targets) == 0 {
		targets = make([]nountype.Type, 0, len(s.indexes))
		for t := range s.indexes {
			targets = append(targets, t)
		}
	}
	indexes := make(map[nountype.Type]*hnsw.Index, len(targets))
	for _, t := range targets {
		if idx, ok := s.indexes[t]; ok {
			indexes[t] = idx
		}
	}
	s.mu.RUnlock()

	var merged []ScoredID
	for _, t := range targets {
		idx, ok := indexes[t]
		if !ok {
			continue
		}
		results, err := idx.Search(vec, k, ef)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			merged = append(merged, ScoredID{ID: r.ID, Type: t, Distance: r.Distance})
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Distance != merged[j].Distance {
			return merged[i].Distance < merged[j].Distance
		}
		return merged[i].ID < merged[j].ID
	})
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged, nil
}

// Len returns the number of vectors stored under t, or 0 if t has no
// partition yet.
func (s *Set) Len(t nountype.Type) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[t]
	if !ok {
		return 0
	}
	return idx.Len()
}
