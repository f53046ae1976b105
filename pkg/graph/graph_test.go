package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/noundb/pkg/blobstore"
	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/model"
	"github.com/cuemby/noundb/pkg/verbtype"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	dir := t.TempDir()
	blobs, err := blobstore.Open(dir, blobstore.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })
	idx, err := Open(dir, blobs, Options{})
	require.NoError(t, err)
	return idx
}

func testVerb(id, source, target string, typ verbtype.Type) model.Verb {
	return model.Verb{ID: id, Source: source, Target: target, Type: typ, Weight: 1, Confidence: 1}
}

func TestAddVerbAndNeighbors(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.AddVerb(testVerb("v1", "p1", "o1", verbtype.WorksWith)))

	out, err := idx.GetNeighbors("p1", DirOut, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"o1"}, out)

	in, err := idx.GetNeighbors("o1", DirIn, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, in)
}

func TestVerbIdsBySourceAndTarget(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.AddVerb(testVerb("v1", "p1", "o1", verbtype.WorksWith)))

	bySrc, err := idx.GetVerbIdsBySource("p1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, bySrc)

	byTgt, err := idx.GetVerbIdsByTarget("o1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, byTgt)
}

func TestRemoveVerbHidesFromVerbIdLookups(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.AddVerb(testVerb("v1", "p1", "o1", verbtype.WorksWith)))
	require.NoError(t, idx.RemoveVerb(context.Background(), "v1"))

	bySrc, err := idx.GetVerbIdsBySource("p1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, bySrc)

	// Neighbor adjacency itself is unaffected — only the verb id is
	// tombstoned, per spec: edges-out/edges-in entries remain.
	out, err := idx.GetNeighbors("p1", DirOut, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"o1"}, out)
}

func TestRemoveUnknownVerbIsNotFound(t *testing.T) {
	idx := openTestIndex(t)
	err := idx.RemoveVerb(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, engerr.Is(err, engerr.NotFound))
}

func TestRebuildRepopulatesFromSource(t *testing.T) {
	idx := openTestIndex(t)
	verbs := []model.Verb{
		testVerb("v1", "p1", "o1", verbtype.WorksWith),
		testVerb("v2", "p2", "o1", verbtype.WorksWith),
	}
	source := fakeVerbSource(verbs)

	require.NoError(t, idx.Rebuild(context.Background(), source))

	neighbors, err := idx.GetNeighbors("o1", DirIn, 10, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p1", "p2"}, neighbors)
}

type fakeVerbSource []model.Verb

func (s fakeVerbSource) AllVerbs(ctx context.Context, yield func(model.Verb) error) error {
	for _, v := range s {
		if err := yield(v); err != nil {
			return err
		}
	}
	return nil
}
