package objects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/noundb/pkg/blobstore"
	"github.com/cuemby/noundb/pkg/engerr"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	blobs, err := blobstore.Open(dir, blobstore.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })
	s, err := Open(dir, blobs)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTreeRoundTrip(t *testing.T) {
	s := openTestStore(t)
	tree := Tree{Entries: []TreeEntry{{Name: "a", Hash: "abc"}}}
	h, err := s.PutTree(tree)
	require.NoError(t, err)

	got, err := s.GetTree(h)
	require.NoError(t, err)
	assert.Equal(t, tree.Entries, got.Entries)
}

func TestRefCASConflict(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpdateRef("refs/heads/main", "", "c1"))

	err := s.UpdateRef("refs/heads/main", "wrong", "c2")
	require.Error(t, err)
	assert.True(t, engerr.Is(err, engerr.RefConflict))

	require.NoError(t, s.UpdateRef("refs/heads/main", "c1", "c2"))
	hash, err := s.GetRef("refs/heads/main")
	require.NoError(t, err)
	assert.Equal(t, "c2", hash)
}

func TestDeleteRefRefusesCurrentBranch(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpdateRef("refs/heads/main", "", "c1"))

	err := s.DeleteRef("refs/heads/main", "refs/heads/main")
	require.Error(t, err)
	assert.True(t, engerr.Is(err, engerr.InvalidArgument))
}

func TestBranchCommitAdvancesRef(t *testing.T) {
	s := openTestStore(t)
	branch, err := OpenBranch(s, "refs/heads/main")
	require.NoError(t, err)

	branch.Write("nouns/p1", "blobhash1")
	c1, err := branch.Commit("tester", "initial commit")
	require.NoError(t, err)

	commit, err := s.GetCommit(blobstore.Hash(c1))
	require.NoError(t, err)
	tree, err := s.GetTree(blobstore.Hash(commit.TreeHash))
	require.NoError(t, err)
	assert.Len(t, tree.Entries, 1)

	branch.Write("nouns/p2", "blobhash2")
	c2, err := branch.Commit("tester", "second commit")
	require.NoError(t, err)

	commit2, err := s.GetCommit(blobstore.Hash(c2))
	require.NoError(t, err)
	assert.Equal(t, []string{c1}, commit2.Parents)

	tree2, err := s.GetTree(blobstore.Hash(commit2.TreeHash))
	require.NoError(t, err)
	assert.Len(t, tree2.Entries, 2)
}
