package hnsw

// selectNeighborsHeuristic implements the "keep diverse short edges"
// neighbor-selection heuristic: from the candidate set, greedily keep a
// candidate only if it is closer to the query than to every candidate
// already kept. This favors spatially diverse neighbors over the naive
// closest-M selection, which tends to cluster edges in one direction.
//
// candidates must already be sorted nearest-first; the result is capped
// at m entries and remains sorted nearest-first.
func (idx *Index) selectNeighborsHeuristic(query []float32, candidates []candidate, m int) []candidate {
	kept := make([]candidate, 0, m)
	for _, c := range candidates {
		if len(kept) >= m {
			break
		}
		good := true
		cVec := idx.nodes[c.id].vector
		for _, k := range kept {
			if idx.distance(cVec, idx.nodes[k.id].vector) < c.dist {
				good = false
				break
			}
		}
		if good {
			kept = append(kept, c)
		}
	}
	// Backfill with the next-closest discarded candidates if the
	// diversity filter left us under budget, so degree doesn't collapse
	// on sparse/early graphs.
	if len(kept) < m {
		have := make(map[uint64]bool, len(kept))
		for _, k := range kept {
			have[k.id] = true
		}
		for _, c := range candidates {
			if len(kept) >= m {
				break
			}
			if !have[c.id] {
				kept = append(kept, c)
			}
		}
		sortAscending(kept)
	}
	return kept
}
