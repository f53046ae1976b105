// Package objects implements the content-addressed tree/commit/ref layer:
// trees are ordered path->hash mappings, commits form a DAG over trees,
// and refs are bbolt-backed compare-and-swap pointers to commit hashes.
package objects

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/noundb/pkg/blobstore"
	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/log"
)

var (
	bucketRefs = []byte("refs")
)

// TreeEntry is one path component's mapping to either a blob or a nested
// tree, within a Tree.
type TreeEntry struct {
	Name   string `json:"name"`
	IsTree bool   `json:"is_tree"`
	Hash   string `json:"hash"`
}

// Tree is an ordered mapping from path component to a blob or tree hash.
type Tree struct {
	Entries []TreeEntry `json:"entries"`
}

// Commit carries a tree hash, its parents, and commit metadata.
type Commit struct {
	TreeHash  string            `json:"tree_hash"`
	Parents   []string          `json:"parents"`
	Author    string            `json:"author"`
	Timestamp time.Time         `json:"timestamp"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Store persists trees and commits in the blob store (content-addressed)
// and refs in a bbolt bucket (mutable, CAS-guarded pointers).
type Store struct {
	blobs *blobstore.Store
	db    *bolt.DB
}

// Open opens (creating if absent) the ref database under dataDir, backed
// by blobs for tree/commit object storage.
func Open(dataDir string, blobs *blobstore.Store) (*Store, error) {
	db, err := bolt.Open(filepath.Join(dataDir, "refs.db"), 0o600, nil)
	if err != nil {
		return nil, engerr.Wrap("objects.Open", engerr.IO, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRefs)
		return err
	})
	if err != nil {
		db.Close()
		return nil, engerr.Wrap("objects.Open", engerr.IO, err)
	}
	return &Store{blobs: blobs, db: db}, nil
}

// Close closes the underlying ref database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutTree persists a tree object and returns its content hash.
func (s *Store) PutTree(t Tree) (blobstore.Hash, error) {
	sort.Slice(t.Entries, func(i, j int) bool { return t.Entries[i].Name < t.Entries[j].Name })
	data, err := json.Marshal(t)
	if err != nil {
		return "", engerr.Wrap("objects.PutTree", engerr.IO, err)
	}
	h, err := s.blobs.Put(data)
	return h, engerr.Wrap("objects.PutTree", engerr.IO, err)
}

// GetTree loads the tree stored at hash.
func (s *Store) GetTree(hash blobstore.Hash) (Tree, error) {
	data, err := s.blobs.Get(hash)
	if err != nil {
		return Tree{}, err
	}
	var t Tree
	if err := json.Unmarshal(data, &t); err != nil {
		return Tree{}, engerr.Wrap("objects.GetTree", engerr.IO, err)
	}
	return t, nil
}

// PutCommit persists a commit object and returns its content hash.
func (s *Store) PutCommit(c Commit) (blobstore.Hash, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", engerr.Wrap("objects.PutCommit", engerr.IO, err)
	}
	h, err := s.blobs.Put(data)
	return h, engerr.Wrap("objects.PutCommit", engerr.IO, err)
}

// GetCommit loads the commit stored at hash.
func (s *Store) GetCommit(hash blobstore.Hash) (Commit, error) {
	data, err := s.blobs.Get(hash)
	if err != nil {
		return Commit{}, err
	}
	var c Commit
	if err := json.Unmarshal(data, &c); err != nil {
		return Commit{}, engerr.Wrap("objects.GetCommit", engerr.IO, err)
	}
	return c, nil
}

// ListRefs returns every ref name to its current commit hash. O(#refs).
func (s *Store) ListRefs() (map[string]string, error) {
	out := make(map[string]string)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRefs)
		return b.ForEach(func(k, v []byte) error {
			out[string(k)] = string(v)
			return nil
		})
	})
	return out, engerr.Wrap("objects.ListRefs", engerr.IO, err)
}

// GetRef returns the commit hash name currently points to, or
// engerr.NotFound.
func (s *Store) GetRef(name string) (string, error) {
	var hash string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRefs)
		data := b.Get([]byte(name))
		if data == nil {
			return engerr.New("objects.GetRef", engerr.NotFound, name)
		}
		hash = string(data)
		return nil
	})
	return hash, err
}

// UpdateRef compare-and-swaps name from oldHash to newHash. If oldHash is
// empty, name must not currently exist. On mismatch, returns
// engerr.RefConflict.
func (s *Store) UpdateRef(name, oldHash, newHash string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRefs)
		current := b.Get([]byte(name))
		if oldHash == "" {
			if current != nil {
				return engerr.New("objects.UpdateRef", engerr.RefConflict, fmt.Sprintf("ref %q already exists", name))
			}
		} else if current == nil || string(current) != oldHash {
			return engerr.New("objects.UpdateRef", engerr.RefConflict, fmt.Sprintf("ref %q observed %q, expected %q", name, current, oldHash))
		}
		objectsLog.Debug().Str("ref", name).Str("hash", newHash).Msg("ref advanced")
		return b.Put([]byte(name), []byte(newHash))
	})
}

// DeleteRef removes name, refusing to delete currentBranch.
func (s *Store) DeleteRef(name, currentBranch string) error {
	if name == currentBranch {
		return engerr.New("objects.DeleteRef", engerr.InvalidArgument, "refusing to delete the current branch")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRefs)
		return b.Delete([]byte(name))
	})
}

var objectsLog = log.WithComponent("objects")
