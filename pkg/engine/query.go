package engine

import (
	"context"
	"sort"

	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/graph"
	"github.com/cuemby/noundb/pkg/metadata"
	"github.com/cuemby/noundb/pkg/model"
	"github.com/cuemby/noundb/pkg/nountype"
	"github.com/cuemby/noundb/pkg/partition"
	"github.com/cuemby/noundb/pkg/planner"
)

// Find returns every live, non-deleted noun whose metadata field equals
// value, using the roaring-bitmap postings index rather than a scan.
func (e *Engine) Find(ctx context.Context, field string, value model.Value) ([]model.Noun, error) {
	deleted := e.nounMeta.Equals(metadata.FieldDeleted, model.BoolValue(true))
	matched := e.nounMeta.Equals(field, value)
	matched.AndNot(deleted)
	ids := e.nounMeta.IDs(matched)

	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.Noun, 0, len(ids))
	for _, id := range ids {
		if n, ok := e.nouns[id]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// Similar runs a raw vector search over the given noun-type partitions
// (or every partition, if types is empty).
func (e *Engine) Similar(ctx context.Context, types []nountype.Type, vec model.Vector, k int) ([]partition.ScoredID, error) {
	if len(vec) != e.cfg.Dimension {
		return nil, engerr.New("engine.Similar", engerr.DimensionMismatch, "vector dimension mismatch")
	}
	return e.vectors.Search(types, vec, k, 100)
}

// Query runs the planner-routed, fusion-scored text search: infer likely
// noun types, embed the query text, search only the routed partitions,
// and fuse the hits into one ranked list. Candidates carry only their
// vector distance, so the metadata and graph components score zero.
func (e *Engine) Query(ctx context.Context, text string, k int) ([]planner.Score, planner.Plan, error) {
	plan, err := e.planner.Plan(ctx, text, len(nountype.All()))
	if err != nil {
		return nil, planner.Plan{}, err
	}

	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, plan, err
	}

	hits, err := e.vectors.Search(plan.Partitions, vec, k, 100)
	if err != nil {
		return nil, plan, err
	}

	candidates := make([]planner.Candidate, len(hits))
	for i, hit := range hits {
		candidates[i] = planner.Candidate{ID: hit.ID, VectorDistance: hit.Distance}
	}
	weights := planner.AdaptiveWeights(plan.TopConfidence)
	scores := planner.Fuse(candidates, weights, true)

	sort.Slice(scores, func(i, j int) bool { return scores[i].Total > scores[j].Total })
	if len(scores) > k {
		scores = scores[:k]
	}
	return scores, plan, nil
}

// GetRelations returns the paginated union of id's neighbors in dir.
func (e *Engine) GetRelations(ctx context.Context, id string, dir graph.Direction, limit, offset int) ([]string, error) {
	return e.graphIdx.GetNeighbors(id, dir, limit, offset)
}

// Traverse performs a breadth-first walk outward from id up to depth hops,
// returning every distinct node reached (excluding id itself).
func (e *Engine) Traverse(ctx context.Context, id string, dir graph.Direction, depth int) ([]string, error) {
	if depth <= 0 {
		return nil, nil
	}

	visited := map[string]struct{}{id: {}}
	frontier := []string{id}
	var order []string

	for d := 0; d < depth && len(frontier) > 0; d++ {
		var next []string
		for _, cur := range frontier {
			if err := ctx.Err(); err != nil {
				return order, engerr.Wrap("engine.Traverse", engerr.Cancelled, err)
			}
			neighbors, err := e.graphIdx.GetNeighbors(cur, dir, 10000, 0)
			if err != nil {
				return order, err
			}
			for _, n := range neighbors {
				if _, ok := visited[n]; ok {
					continue
				}
				visited[n] = struct{}{}
				order = append(order, n)
				next = append(next, n)
			}
		}
		frontier = next
	}
	return order, nil
}

// ListNouns returns every live, non-deleted noun whose type is in types
// (or every type, if types is empty), for bulk export.
func (e *Engine) ListNouns(ctx context.Context, types []nountype.Type) ([]model.Noun, error) {
	want := make(map[nountype.Type]bool, len(types))
	for _, t := range types {
		want[t] = true
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.Noun, 0, len(e.nouns))
	for _, n := range e.nouns {
		if n.Metadata.Namespace.Deleted {
			continue
		}
		if len(want) > 0 && !want[n.Type] {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// Aggregate counts live, non-deleted nouns by the string rendering of
// their value at field, for simple group-by style reporting.
func (e *Engine) Aggregate(ctx context.Context, field string) (map[string]int64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	counts := make(map[string]int64)
	for _, n := range e.nouns {
		if n.Metadata.Namespace.Deleted {
			continue
		}
		v, ok := n.Metadata.Fields[field]
		if !ok {
			continue
		}
		counts[v.String()]++
	}
	return counts, nil
}
