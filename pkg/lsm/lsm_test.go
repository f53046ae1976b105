package lsm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/noundb/pkg/blobstore"
)

func openTestTree(t *testing.T, cfg Config) *Tree {
	t.Helper()
	dir := t.TempDir()
	blobs, err := blobstore.Open(dir, blobstore.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })
	tree, err := Open(dir, "graph-lsm-test", blobs, cfg)
	require.NoError(t, err)
	return tree
}

func TestAddGet(t *testing.T) {
	tree := openTestTree(t, DefaultConfig())
	require.NoError(t, tree.Add("n1", "n2"))
	require.NoError(t, tree.Add("n1", "n3"))

	vals, err := tree.Get("n1")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"n2": {}, "n3": {}}, vals)
}

func TestGetMissingKeyReturnsEmptySet(t *testing.T) {
	tree := openTestTree(t, DefaultConfig())
	vals, err := tree.Get("absent")
	require.NoError(t, err)
	assert.Empty(t, vals)
}

func TestRemoveIsLogicalUntilCompaction(t *testing.T) {
	tree := openTestTree(t, DefaultConfig())
	require.NoError(t, tree.Add("n1", "n2"))
	require.NoError(t, tree.Remove("n1", "n2"))

	vals, err := tree.Get("n1")
	require.NoError(t, err)
	assert.Empty(t, vals)
}

func TestFlushAndReadBackFromSSTable(t *testing.T) {
	cfg := Config{MemTableThreshold: 4, BloomFPR: 0.01, LevelFanout: 4}
	tree := openTestTree(t, cfg)

	for i := 0; i < 10; i++ {
		require.NoError(t, tree.Add("src", fmt.Sprintf("tgt-%d", i)))
	}

	vals, err := tree.Get("src")
	require.NoError(t, err)
	assert.Len(t, vals, 10)

	stats := tree.Stats()
	assert.Greater(t, len(stats.LevelCounts), 0)
}

func TestCompactionMergesLevelsAndTombstoneHidesValue(t *testing.T) {
	cfg := Config{MemTableThreshold: 1, BloomFPR: 0.01, LevelFanout: 2}
	tree := openTestTree(t, cfg)

	require.NoError(t, tree.Add("k", "a"))
	require.NoError(t, tree.Add("k", "b"))
	require.NoError(t, tree.Add("k", "c"))
	require.NoError(t, tree.Remove("k", "a"))
	require.NoError(t, tree.Add("k", "d"))

	vals, err := tree.Get("k")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"b": {}, "c": {}, "d": {}}, vals)
}

func TestReopenLoadsManifest(t *testing.T) {
	dir := t.TempDir()
	blobs, err := blobstore.Open(dir, blobstore.Options{})
	require.NoError(t, err)
	defer blobs.Close()

	cfg := Config{MemTableThreshold: 2, BloomFPR: 0.01, LevelFanout: 4}
	tree, err := Open(dir, "prefix", blobs, cfg)
	require.NoError(t, err)
	require.NoError(t, tree.Add("a", "b"))
	require.NoError(t, tree.Add("a", "c"))
	require.NoError(t, tree.Flush())

	reopened, err := Open(dir, "prefix", blobs, cfg)
	require.NoError(t, err)
	vals, err := reopened.Get("a")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"b": {}, "c": {}}, vals)
}
