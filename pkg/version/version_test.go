package version

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/noundb/pkg/blobstore"
	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/model"
)

// memEntityStore is a minimal in-memory stand-in for pkg/engine.Engine:
// data holds each live entity's current metadata, nouns holds every noun
// ever Added (including the State nouns version.Index itself creates),
// keyed by a counter-assigned ID.
type memEntityStore struct {
	mu      sync.Mutex
	data    map[string]model.Metadata
	nouns   map[string]model.Noun
	nextID  int
	deleted map[string]bool
}

func newMemEntityStore() *memEntityStore {
	return &memEntityStore{
		data:    make(map[string]model.Metadata),
		nouns:   make(map[string]model.Noun),
		deleted: make(map[string]bool),
	}
}

func (s *memEntityStore) GetMetadata(ctx context.Context, id string) (model.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[id].Clone(), nil
}

func (s *memEntityStore) SetMetadata(ctx context.Context, id string, meta model.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = meta.Clone()
	return nil
}

func (s *memEntityStore) Add(ctx context.Context, n model.Noun) (model.Noun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	n.ID = fmt.Sprintf("n%d", s.nextID)
	s.nouns[n.ID] = n
	return n, nil
}

func (s *memEntityStore) Find(ctx context.Context, field string, value model.Value) ([]model.Noun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Noun
	for id, n := range s.nouns {
		if s.deleted[id] {
			continue
		}
		if n.Metadata.Fields[field].String() == value.String() {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *memEntityStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nouns[id]; !ok {
		return engerr.New("memEntityStore.Delete", engerr.NotFound, id)
	}
	s.deleted[id] = true
	return nil
}

func openTestIndex(t *testing.T) (*Index, *memEntityStore) {
	t.Helper()
	dir := t.TempDir()
	blobs, err := blobstore.Open(dir, blobstore.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })
	entities := newMemEntityStore()
	idx, err := Open(blobs, entities)
	require.NoError(t, err)
	return idx, entities
}

func metaWith(field string, v model.Value) model.Metadata {
	return model.Metadata{Fields: map[string]model.Value{field: v}}
}

func TestSaveAppendsNewVersion(t *testing.T) {
	idx, entities := openTestIndex(t)
	require.NoError(t, entities.SetMetadata(context.Background(), "e1", metaWith("name", model.StringValue("alice"))))

	rec, err := idx.Save(context.Background(), "e1", "main", "c1", SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Version)

	require.NoError(t, entities.SetMetadata(context.Background(), "e1", metaWith("name", model.StringValue("bob"))))
	rec2, err := idx.Save(context.Background(), "e1", "main", "c2", SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, rec2.Version)
}

func TestSaveDedupsIdenticalContent(t *testing.T) {
	idx, entities := openTestIndex(t)
	require.NoError(t, entities.SetMetadata(context.Background(), "e1", metaWith("name", model.StringValue("alice"))))

	rec1, err := idx.Save(context.Background(), "e1", "main", "c1", SaveOptions{})
	require.NoError(t, err)
	rec2, err := idx.Save(context.Background(), "e1", "main", "c2", SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, rec1, rec2)

	records, err := idx.List(context.Background(), "e1", "main")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRestoreOverwritesCurrentState(t *testing.T) {
	idx, entities := openTestIndex(t)
	require.NoError(t, entities.SetMetadata(context.Background(), "e1", metaWith("name", model.StringValue("alice"))))
	_, err := idx.Save(context.Background(), "e1", "main", "c1", SaveOptions{})
	require.NoError(t, err)

	require.NoError(t, entities.SetMetadata(context.Background(), "e1", metaWith("name", model.StringValue("bob"))))
	_, err = idx.Save(context.Background(), "e1", "main", "c2", SaveOptions{})
	require.NoError(t, err)

	require.NoError(t, idx.Restore(context.Background(), "e1", "main", 1, RestoreOptions{}))
	meta, err := entities.GetMetadata(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, "alice", meta.Fields["name"].Str)
}

func TestUndoRequiresTwoVersions(t *testing.T) {
	idx, entities := openTestIndex(t)
	require.NoError(t, entities.SetMetadata(context.Background(), "e1", metaWith("name", model.StringValue("alice"))))
	_, err := idx.Save(context.Background(), "e1", "main", "c1", SaveOptions{})
	require.NoError(t, err)

	err = idx.Undo(context.Background(), "e1", "main", "c2")
	require.Error(t, err)
}

func TestCompareReportsAddedRemovedModified(t *testing.T) {
	idx, entities := openTestIndex(t)
	require.NoError(t, entities.SetMetadata(context.Background(), "e1", model.Metadata{Fields: map[string]model.Value{
		"name": model.StringValue("alice"), "age": model.IntValue(30),
	}}))
	_, err := idx.Save(context.Background(), "e1", "main", "c1", SaveOptions{})
	require.NoError(t, err)

	require.NoError(t, entities.SetMetadata(context.Background(), "e1", model.Metadata{Fields: map[string]model.Value{
		"name": model.StringValue("alicia"), "city": model.StringValue("nyc"),
	}}))
	_, err = idx.Save(context.Background(), "e1", "main", "c2", SaveOptions{})
	require.NoError(t, err)

	diff, err := idx.Compare(context.Background(), "e1", "main", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"city"}, diff.Added)
	assert.Equal(t, []string{"age"}, diff.Removed)
	require.Len(t, diff.Modified, 1)
	assert.Equal(t, "name", diff.Modified[0].Path)
}

func TestPruneKeepsRecentOnly(t *testing.T) {
	idx, entities := openTestIndex(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, entities.SetMetadata(context.Background(), "e1", metaWith("n", model.IntValue(int64(i)))))
		_, err := idx.Save(context.Background(), "e1", "main", "c", SaveOptions{})
		require.NoError(t, err)
	}

	removed, err := idx.Prune(context.Background(), "e1", "main", PruneOptions{KeepRecent: 2})
	require.NoError(t, err)
	assert.Len(t, removed, 3)

	records, err := idx.List(context.Background(), "e1", "main")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestPruneDryRunLeavesRecordsIntact(t *testing.T) {
	idx, entities := openTestIndex(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, entities.SetMetadata(context.Background(), "e1", metaWith("n", model.IntValue(int64(i)))))
		_, err := idx.Save(context.Background(), "e1", "main", "c", SaveOptions{})
		require.NoError(t, err)
	}

	removed, err := idx.Prune(context.Background(), "e1", "main", PruneOptions{KeepRecent: 1, DryRun: true})
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	records, err := idx.List(context.Background(), "e1", "main")
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestPruneKeepAfterRetainsRecentTimestamps(t *testing.T) {
	idx, entities := openTestIndex(t)
	require.NoError(t, entities.SetMetadata(context.Background(), "e1", metaWith("n", model.IntValue(1))))
	_, err := idx.Save(context.Background(), "e1", "main", "c1", SaveOptions{})
	require.NoError(t, err)

	cutoff := time.Now().UTC().Add(-time.Hour)
	removed, err := idx.Prune(context.Background(), "e1", "main", PruneOptions{KeepAfter: cutoff})
	require.NoError(t, err)
	assert.Empty(t, removed)
}
