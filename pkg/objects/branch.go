package objects

import (
	"time"

	"github.com/cuemby/noundb/pkg/blobstore"
	"github.com/cuemby/noundb/pkg/engerr"
)

// Branch accumulates path->hash writes in memory against a ref's current
// tree and materializes them into a new tree/commit pair on Commit.
// Readers of the ref always see the last committed, consistent tree.
type Branch struct {
	store  *Store
	name   string
	edits  map[string]TreeEntry // pending writes, path -> entry
	parent string                // current commit hash, "" if ref is new
}

// OpenBranch opens name for writes. If the ref doesn't exist yet, OpenBranch
// succeeds with no parent commit; the first Commit creates the ref.
func OpenBranch(store *Store, name string) (*Branch, error) {
	hash, err := store.GetRef(name)
	if err != nil && !engerr.Is(err, engerr.NotFound) {
		return nil, err
	}
	return &Branch{store: store, name: name, edits: make(map[string]TreeEntry), parent: hash}, nil
}

// Write stages path to point at a blob hash.
func (b *Branch) Write(path string, blobHash string) {
	b.edits[path] = TreeEntry{Name: path, IsTree: false, Hash: blobHash}
}

// Remove stages path for removal from the tree.
func (b *Branch) Remove(path string) {
	delete(b.edits, path)
	b.edits[path] = TreeEntry{Name: path, IsTree: false, Hash: ""}
}

// Commit materializes the pending edits into a new tree, writes a commit
// object, and CAS-advances the branch ref. message and author are recorded
// on the commit.
func (b *Branch) Commit(author, message string) (commitHash string, err error) {
	var base Tree
	if b.parent != "" {
		parentCommit, err := b.store.GetCommit(blobstore.Hash(b.parent))
		if err != nil {
			return "", err
		}
		base, err = b.store.GetTree(blobstore.Hash(parentCommit.TreeHash))
		if err != nil {
			return "", err
		}
	}

	merged := make(map[string]TreeEntry, len(base.Entries)+len(b.edits))
	for _, e := range base.Entries {
		merged[e.Name] = e
	}
	for path, e := range b.edits {
		if e.Hash == "" {
			delete(merged, path)
			continue
		}
		merged[path] = e
	}

	tree := Tree{Entries: make([]TreeEntry, 0, len(merged))}
	for _, e := range merged {
		tree.Entries = append(tree.Entries, e)
	}
	treeHash, err := b.store.PutTree(tree)
	if err != nil {
		return "", err
	}

	var parents []string
	if b.parent != "" {
		parents = []string{b.parent}
	}
	commit := Commit{
		TreeHash:  string(treeHash),
		Parents:   parents,
		Author:    author,
		Timestamp: time.Now(),
		Message:   message,
	}
	commitHashVal, err := b.store.PutCommit(commit)
	if err != nil {
		return "", err
	}

	if err := b.store.UpdateRef(b.name, b.parent, string(commitHashVal)); err != nil {
		return "", err
	}

	b.parent = string(commitHashVal)
	b.edits = make(map[string]TreeEntry)
	return string(commitHashVal), nil
}
