package hnsw

import "github.com/cuemby/noundb/pkg/model"

// searchLayer runs a beam search on one layer starting from entry
// points, expanding through each visited node's neighbor list on that
// layer, and returns up to ef nearest candidates found, sorted
// nearest-first.
func (idx *Index) searchLayer(query []float32, entry []candidate, ef, layer int) []candidate {
	visited := make(map[uint64]bool, ef*2)
	candidates := append([]candidate(nil), entry...)
	for _, c := range candidates {
		visited[c.id] = true
	}
	sortAscending(candidates)

	result := append([]candidate(nil), candidates...)
	sortAscending(result)

	for len(candidates) > 0 {
		c := candidates[0]
		candidates = candidates[1:]

		if len(result) >= ef {
			furthest := result[len(result)-1]
			if c.dist > furthest.dist {
				break
			}
		}

		n := idx.nodes[c.id]
		for _, neighborID := range n.neighbors[layer] {
			if visited[neighborID] {
				continue
			}
			visited[neighborID] = true
			neighborNode := idx.nodes[neighborID]
			d := idx.distance(query, neighborNode.vector)

			if len(result) < ef {
				result = insertSorted(result, candidate{id: neighborID, dist: d})
				candidates = insertSorted(candidates, candidate{id: neighborID, dist: d})
			} else if d < result[len(result)-1].dist {
				result = insertSorted(result, candidate{id: neighborID, dist: d})
				result = result[:ef]
				candidates = insertSorted(candidates, candidate{id: neighborID, dist: d})
			}
		}
	}
	if len(result) > ef {
		result = result[:ef]
	}
	return result
}

// insertSorted inserts c into a slice kept sorted nearest-first with the
// same id<dist tie-break as sortAscending.
func insertSorted(s []candidate, c candidate) []candidate {
	i := 0
	for i < len(s) && (s[i].dist < c.dist || (s[i].dist == c.dist && s[i].id < c.id)) {
		i++
	}
	s = append(s, candidate{})
	copy(s[i+1:], s[i:])
	s[i] = c
	return s
}

// greedyDescend walks from the current entry point down to (but not
// including) targetLayer, at each layer running a single-candidate beam
// search (ef=1) and using the best result as next layer's entry point.
func (idx *Index) greedyDescend(query []float32, targetLayer int) candidate {
	cur := candidate{id: idx.entryPoint, dist: idx.distance(query, idx.nodes[idx.entryPoint].vector)}
	for layer := idx.topLayer; layer > targetLayer; layer-- {
		res := idx.searchLayer(query, []candidate{cur}, 1, layer)
		if len(res) > 0 && res[0].dist < cur.dist {
			cur = res[0]
		}
	}
	return cur
}

// Search returns up to k nearest neighbors to vec. ef defaults to the
// index's configured EfSearch when <= 0, and is raised to k if smaller.
func (idx *Index) Search(vec model.Vector, k int, ef int) ([]Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := idx.checkDimension(vec); err != nil {
		return nil, err
	}
	if !idx.hasEntry || k <= 0 {
		return nil, nil
	}
	if ef <= 0 {
		ef = idx.cfg.EfSearch
	}
	if ef < k {
		ef = k
	}

	query := []float32(vec)
	entry := idx.greedyDescend(query, 0)
	found := idx.searchLayer(query, []candidate{entry}, ef, 0)
	sortAscending(found)

	if len(found) > k {
		found = found[:k]
	}
	out := make([]Result, len(found))
	for i, c := range found {
		out[i] = Result{ID: idx.nodes[c.id].id, Distance: c.dist}
	}
	return out, nil
}
