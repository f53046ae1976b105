package hnsw

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/model"
)

func TestOpenRejectsNonPositiveM(t *testing.T) {
	_, err := Open(Config{M: 0, Dimension: 4})
	require.Error(t, err)
	assert.True(t, engerr.Is(err, engerr.InvalidArgument))
}

func TestInsertAndSearchSelfSimilarity(t *testing.T) {
	idx, err := Open(Config{M: 8, EfConstruction: 32, EfSearch: 16, Dimension: 3, Distance: Cosine})
	require.NoError(t, err)

	vectors := map[string]model.Vector{
		"a": {1, 0, 0},
		"b": {0, 1, 0},
		"c": {0, 0, 1},
		"d": {0.9, 0.1, 0},
	}
	for id, v := range vectors {
		require.NoError(t, idx.Insert(id, v))
	}

	results, err := idx.Search(model.Vector{1, 0, 0}, 1, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 0, results[0].Distance, 1e-9)
}

func TestSearchDimensionMismatch(t *testing.T) {
	idx, err := Open(Config{M: 8, Dimension: 3})
	require.NoError(t, err)
	require.NoError(t, idx.Insert("a", model.Vector{1, 0, 0}))

	_, err = idx.Search(model.Vector{1, 0}, 1, 0)
	require.Error(t, err)
	assert.True(t, engerr.Is(err, engerr.DimensionMismatch))
}

func TestInsertReplacesExistingID(t *testing.T) {
	idx, err := Open(Config{M: 8, EfConstruction: 32, EfSearch: 16, Dimension: 2})
	require.NoError(t, err)
	require.NoError(t, idx.Insert("a", model.Vector{1, 0}))
	require.NoError(t, idx.Insert("b", model.Vector{0, 1}))
	require.NoError(t, idx.Insert("a", model.Vector{0, 1}))

	assert.Equal(t, 2, idx.Len())

	results, err := idx.Search(model.Vector{0, 1}, 2, 0)
	require.NoError(t, err)
	ids := []string{results[0].ID, results[1].ID}
	sort.Strings(ids)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestSearchEmptyIndexReturnsNoResults(t *testing.T) {
	idx, err := Open(Config{M: 8, Dimension: 2})
	require.NoError(t, err)
	results, err := idx.Search(model.Vector{1, 0}, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRecallAgainstBruteForce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping recall benchmark in short mode")
	}

	const (
		n   = 10000
		dim = 32
		k   = 10
	)
	rng := rand.New(rand.NewSource(42))
	idx, err := Open(Config{M: 16, EfConstruction: 200, EfSearch: 100, Dimension: dim, Distance: Cosine, Seed: 7})
	require.NoError(t, err)

	vectors := make([][]float32, n)
	for i := 0; i < n; i++ {
		v := make([]float32, dim)
		for d := 0; d < dim; d++ {
			v[d] = rng.Float32()*2 - 1
		}
		vectors[i] = v
		require.NoError(t, idx.Insert(fmt.Sprintf("v%d", i), model.Vector(v)))
	}

	queries := 50
	var hits, total int
	for q := 0; q < queries; q++ {
		query := vectors[rng.Intn(n)]

		truth := bruteForceTopK(vectors, query, k)
		approx, err := idx.Search(model.Vector(query), k, 100)
		require.NoError(t, err)

		approxIDs := make(map[string]bool, len(approx))
		for _, r := range approx {
			approxIDs[r.ID] = true
		}
		for _, id := range truth {
			total++
			if approxIDs[id] {
				hits++
			}
		}
	}

	recall := float64(hits) / float64(total)
	assert.GreaterOrEqual(t, recall, 0.95, "recall@%d = %f", k, recall)
}

func bruteForceTopK(vectors [][]float32, query []float32, k int) []string {
	type scored struct {
		id   string
		dist float64
	}
	scores := make([]scored, len(vectors))
	for i, v := range vectors {
		scores[i] = scored{id: fmt.Sprintf("v%d", i), dist: cosineDistance(query, v)}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].dist < scores[j].dist })
	if k > len(scores) {
		k = len(scores)
	}
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = scores[i].id
	}
	return out
}

func TestDistanceMetrics(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	assert.InDelta(t, 0.0, cosineDistance(a, a), 1e-9)
	assert.InDelta(t, math.Sqrt(2), l2Distance(a, b), 1e-9)
	assert.InDelta(t, -0.0, dotDistance(a, b), 1e-9)
	assert.InDelta(t, 2.0, l1Distance(a, b), 1e-9)
}
