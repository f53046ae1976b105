package hnsw

import "github.com/cuemby/noundb/pkg/model"

// neighborPatch is a staged neighbor-list rewrite for one node at one
// layer, collected during Insert before anything is mutated so a
// mid-insert failure (dimension mismatch, cancelled embed, etc.) never
// leaves the graph with a half-linked node.
type neighborPatch struct {
	node  uint64
	layer int
	list  []uint64
}

// Insert adds vec under id, replacing any existing vector stored under
// the same id. Returns engerr.DimensionMismatch if vec's length doesn't
// match the index's configured dimension.
func (idx *Index) Insert(id string, vec model.Vector) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.checkDimension(vec); err != nil {
		return err
	}
	query := append([]float32(nil), []float32(vec)...)

	if existing, ok := idx.idToInternal[id]; ok {
		idx.removeLocked(existing)
	}

	layer := idx.randomLayer()
	internal := idx.nextInternal
	idx.nextInternal++

	n := &node{internal: internal, id: id, vector: query, layer: layer, neighbors: make(map[int][]uint64)}

	if !idx.hasEntry {
		idx.nodes[internal] = n
		idx.idToInternal[id] = internal
		idx.entryPoint = internal
		idx.topLayer = layer
		idx.hasEntry = true
		return nil
	}

	entry := idx.greedyDescend(query, layer)

	var patches []neighborPatch
	connections := make(map[int][]uint64)

	for l := min(layer, idx.topLayer); l >= 0; l-- {
		found := idx.searchLayer(query, []candidate{entry}, idx.cfg.EfConstruction, l)
		sortAscending(found)
		if len(found) > 0 {
			entry = found[0]
		}

		selected := idx.selectNeighborsHeuristic(query, found, idx.mmax(l))
		connLayer := make([]uint64, len(selected))
		for i, s := range selected {
			connLayer[i] = s.id
		}
		connections[l] = connLayer

		for _, s := range selected {
			neighborNode := idx.nodes[s.id]
			updated := append(append([]uint64(nil), neighborNode.neighbors[l]...), internal)
			if len(updated) > idx.mmax(l) {
				cands := make([]candidate, len(updated))
				for i, nb := range updated {
					cands[i] = candidate{id: nb, dist: idx.distance(neighborNode.vector, idx.nodes[nb].vector)}
				}
				sortAscending(cands)
				pruned := idx.selectNeighborsHeuristic(neighborNode.vector, cands, idx.mmax(l))
				updated = make([]uint64, len(pruned))
				for i, p := range pruned {
					updated[i] = p.id
				}
			}
			patches = append(patches, neighborPatch{node: s.id, layer: l, list: updated})
		}
	}

	// Commit: apart from removing a replaced id's old node, nothing above
	// mutated shared state, so a panic/error in candidate selection above
	// would have left the rest of the graph untouched.
	idx.nodes[internal] = n
	idx.idToInternal[id] = internal
	for l, conns := range connections {
		n.neighbors[l] = conns
	}
	for _, p := range patches {
		idx.nodes[p.node].neighbors[p.layer] = p.list
	}

	if layer > idx.topLayer {
		idx.topLayer = layer
		idx.entryPoint = internal
	}
	return nil
}

// removeLocked drops a previously inserted node so Insert can replace
// it cleanly. Its id is removed from every remaining node's neighbor
// lists, including one-way edges left by pruning, so searchLayer and
// neighbor pruning never look up a node that no longer exists.
func (idx *Index) removeLocked(internal uint64) {
	n, ok := idx.nodes[internal]
	if !ok {
		return
	}
	for _, other := range idx.nodes {
		for layer, neighbors := range other.neighbors {
			filtered := neighbors[:0]
			for _, candidateID := range neighbors {
				if candidateID != internal {
					filtered = append(filtered, candidateID)
				}
			}
			other.neighbors[layer] = filtered
		}
	}
	delete(idx.nodes, internal)
	delete(idx.idToInternal, n.id)

	if idx.entryPoint == internal {
		idx.hasEntry = false
		idx.topLayer = 0
		for otherID, other := range idx.nodes {
			if !idx.hasEntry || other.layer > idx.nodes[idx.entryPoint].layer {
				idx.entryPoint = otherID
				idx.topLayer = other.layer
				idx.hasEntry = true
			}
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
