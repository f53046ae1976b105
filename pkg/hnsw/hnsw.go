// Package hnsw implements a hierarchical navigable small-world graph for
// approximate nearest-neighbor search, per the standard Malkov/Yashunin
// construction: geometric layer assignment, greedy descent above the
// insertion layer, and beam search with a diversity-aware neighbor
// selection heuristic at and below it.
package hnsw

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/model"
)

// Config is fixed for the lifetime of an Index.
type Config struct {
	M              int
	EfConstruction int
	EfSearch       int
	Dimension      int
	Distance       Metric
	Seed           int64
}

// DefaultConfig matches the engine's general-purpose partition defaults.
func DefaultConfig(dimension int) Config {
	return Config{M: 16, EfConstruction: 200, EfSearch: 100, Dimension: dimension, Distance: Cosine}
}

type node struct {
	internal  uint64
	id        string
	vector    []float32
	layer     int
	neighbors map[int][]uint64 // layer -> neighbor internal ids
}

// Index is one HNSW graph. Not safe to share across processes; safe for
// concurrent readers with a single writer, guarded internally.
type Index struct {
	mu sync.RWMutex

	cfg      Config
	mL       float64
	distance func(a, b []float32) float64
	rng      *rand.Rand

	nodes        map[uint64]*node
	idToInternal map[string]uint64
	nextInternal uint64

	entryPoint uint64
	hasEntry   bool
	topLayer   int
}

// Open constructs an empty index under cfg.
func Open(cfg Config) (*Index, error) {
	if cfg.M <= 0 {
		return nil, engerr.New("hnsw.Open", engerr.InvalidArgument, "M must be positive")
	}
	if cfg.EfConstruction <= 0 {
		cfg.EfConstruction = cfg.M * 2
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = cfg.M
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = 0x5bd1e995
	}
	return &Index{
		cfg:          cfg,
		mL:           1 / math.Log(float64(cfg.M)),
		distance:     distanceFunc(cfg.Distance),
		rng:          rand.New(rand.NewSource(seed)),
		nodes:        make(map[uint64]*node),
		idToInternal: make(map[string]uint64),
	}, nil
}

// mmax is the neighbor cap for layer: Mmax0 = 2*M on layer 0, M above.
func (idx *Index) mmax(layer int) int {
	if layer == 0 {
		return 2 * idx.cfg.M
	}
	return idx.cfg.M
}

func (idx *Index) randomLayer() int {
	u := idx.rng.Float64()
	if u <= 0 {
		u = 1e-12
	}
	return int(math.Floor(-math.Log(u) * idx.mL))
}

// Len returns the number of live nodes.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.nodes)
}

// Result is one ranked search hit.
type Result struct {
	ID       string
	Distance float64
}

func (idx *Index) checkDimension(vec model.Vector) error {
	if len(vec) != idx.cfg.Dimension {
		return engerr.New("hnsw", engerr.DimensionMismatch,
			formatDimensionMismatch(idx.cfg.Dimension, len(vec)))
	}
	return nil
}

func formatDimensionMismatch(want, got int) string {
	return "want dimension " + itoa(want) + ", got " + itoa(got)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// candidate pairs an internal node id with its distance from the query,
// used by both the construction-time and search-time beam.
type candidate struct {
	id   uint64
	dist float64
}

type candidateHeap []candidate

// sortAscending sorts candidates nearest-first, tie-breaking on lower
// internal id for deterministic results.
func sortAscending(c []candidate) {
	sort.Slice(c, func(i, j int) bool {
		if c[i].dist != c[j].dist {
			return c[i].dist < c[j].dist
		}
		return c[i].id < c[j].id
	})
}
