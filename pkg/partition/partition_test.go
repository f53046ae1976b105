package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/hnsw"
	"github.com/cuemby/noundb/pkg/model"
	"github.com/cuemby/noundb/pkg/nountype"
)

func testConfig() hnsw.Config {
	return hnsw.Config{M: 8, EfConstruction: 32, EfSearch: 16, Dimension: 2, Distance: hnsw.Cosine}
}

func TestInsertRejectsUnknownType(t *testing.T) {
	s := Open(testConfig())
	err := s.Insert(nountype.Type("NotAType"), "a", model.Vector{1, 0})
	require.Error(t, err)
	assert.True(t, engerr.Is(err, engerr.InvalidType))
}

func TestSearchIsolatesByType(t *testing.T) {
	s := Open(testConfig())
	require.NoError(t, s.Insert(nountype.Person, "p1", model.Vector{1, 0}))
	require.NoError(t, s.Insert(nountype.Organization, "o1", model.Vector{1, 0}))

	results, err := s.Search([]nountype.Type{nountype.Person}, model.Vector{1, 0}, 5, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p1", results[0].ID)
}

func TestSearchAllTypesMergesAndTruncates(t *testing.T) {
	s := Open(testConfig())
	require.NoError(t, s.Insert(nountype.Person, "p1", model.Vector{1, 0}))
	require.NoError(t, s.Insert(nountype.Organization, "o1", model.Vector{1, 0}))
	require.NoError(t, s.Insert(nountype.Location, "l1", model.Vector{0, 1}))

	results, err := s.Search(nil, model.Vector{1, 0}, 2, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NotEqual(t, "l1", r.ID)
	}
}

func TestLenReturnsZeroForUnseenType(t *testing.T) {
	s := Open(testConfig())
	assert.Equal(t, 0, s.Len(nountype.Person))
}
