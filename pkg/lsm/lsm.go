// Package lsm implements the ordered multimap key -> set<string> backing
// the graph adjacency index: an in-memory MemTable, immutable MemTables
// awaiting flush, and leveled SSTables with bloom filters and zone maps for
// fast negative lookups at scale.
package lsm

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cuemby/noundb/pkg/blobstore"
	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/log"
)

// Config tunes flush and compaction behavior.
type Config struct {
	MemTableThreshold int     // entries before a MemTable freezes and flushes
	BloomFPR          float64 // target bloom filter false-positive rate
	LevelFanout       int     // max SSTables per level before compaction
}

// DefaultConfig matches the engine's spec defaults.
func DefaultConfig() Config {
	return Config{MemTableThreshold: 10000, BloomFPR: 0.01, LevelFanout: 4}
}

// manifest records which SSTable hashes belong to which level, so a
// process restart can reopen an LSM tree without replaying the commit log
// from scratch.
type manifest struct {
	Levels [][]manifestEntry `json:"levels"`
	NextSeq int64             `json:"next_seq"`
}

type manifestEntry struct {
	Hash string `json:"hash"`
	Seq  int64  `json:"seq"`
}

// Tree is one LSM-tree instance, identified by a storage prefix under the
// engine's data directory.
type Tree struct {
	mu sync.RWMutex

	prefix       string
	manifestPath string
	blobs        *blobstore.Store
	config       Config
	log          zerolog.Logger

	active     *memTable
	immutable  []*memTable
	levels     [][]*sstable
	nextSeq    int64
}

// Open opens or creates an LSM tree under root/prefix, backed by blobs for
// SSTable storage.
func Open(root, prefix string, blobs *blobstore.Store, config Config) (*Tree, error) {
	if config.MemTableThreshold <= 0 {
		config = DefaultConfig()
	}
	dir := filepath.Join(root, prefix)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, engerr.Wrap("lsm.Open", engerr.IO, err)
	}
	t := &Tree{
		prefix:       prefix,
		manifestPath: filepath.Join(dir, "MANIFEST"),
		blobs:        blobs,
		config:       config,
		log:          log.WithComponent("lsm").With().Str("prefix", prefix).Logger(),
		active:       newMemTable(),
	}
	if err := t.loadManifest(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) loadManifest() error {
	data, err := os.ReadFile(t.manifestPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return engerr.Wrap("lsm.loadManifest", engerr.IO, err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return engerr.Wrap("lsm.loadManifest", engerr.IO, err)
	}
	t.nextSeq = m.NextSeq
	t.levels = make([][]*sstable, len(m.Levels))
	for i, level := range m.Levels {
		for _, e := range level {
			sst, err := loadSSTable(t.blobs, blobstore.Hash(e.Hash))
			if err != nil {
				// A quarantined SSTable is dropped from the level; reads
				// fall back to whatever else survives.
				t.log.Warn().Str("hash", e.Hash).Err(err).Msg("quarantining unreadable sstable")
				continue
			}
			t.levels[i] = append(t.levels[i], sst)
		}
	}
	return nil
}

func (t *Tree) saveManifest() error {
	m := manifest{Levels: make([][]manifestEntry, len(t.levels)), NextSeq: t.nextSeq}
	for i, level := range t.levels {
		for _, sst := range level {
			m.Levels[i] = append(m.Levels[i], manifestEntry{Hash: string(sst.hash), Seq: sst.seq})
		}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return engerr.Wrap("lsm.saveManifest", engerr.IO, err)
	}
	tmp := t.manifestPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return engerr.Wrap("lsm.saveManifest", engerr.IO, err)
	}
	return engerr.Wrap("lsm.saveManifest", engerr.IO, os.Rename(tmp, t.manifestPath))
}

// Add appends value into the set at key.
func (t *Tree) Add(key, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active.add(key, value)
	return t.maybeFreezeLocked()
}

// Remove logically deletes value from the set at key. The entry is
// physically dropped at the next compaction that touches it.
func (t *Tree) Remove(key, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active.remove(key, value)
	return t.maybeFreezeLocked()
}

func (t *Tree) maybeFreezeLocked() error {
	if t.active.entries < t.config.MemTableThreshold {
		return nil
	}
	frozen := t.active
	t.active = newMemTable()
	t.immutable = append(t.immutable, frozen)
	return t.flushLocked()
}

func (t *Tree) flushLocked() error {
	for len(t.immutable) > 0 {
		frozen := t.immutable[0]
		seq := t.nextSeq
		t.nextSeq++
		sst, err := flushMemTable(t.blobs, frozen, seq, t.config.BloomFPR)
		if err != nil {
			return err
		}
		if len(t.levels) == 0 {
			t.levels = append(t.levels, nil)
		}
		t.levels[0] = append(t.levels[0], sst)
		t.immutable = t.immutable[1:]
		t.log.Debug().Int64("seq", seq).Msg("flushed memtable to sstable")
	}
	if err := t.saveManifest(); err != nil {
		return err
	}
	return t.compactIfNeededLocked()
}

// Flush forces the active MemTable to freeze and flush, regardless of
// threshold. Callers use this at a known batch boundary (e.g. before a
// clean process shutdown).
func (t *Tree) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active.entries == 0 && len(t.immutable) == 0 {
		return nil
	}
	if t.active.entries > 0 {
		t.immutable = append(t.immutable, t.active)
		t.active = newMemTable()
	}
	return t.flushLocked()
}

// Get returns the union of values currently associated with key, honoring
// tombstones recorded since the value was last added. Get never fails for
// a missing key; it returns an empty, non-nil set.
func (t *Tree) Get(key string) (map[string]struct{}, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	winners := make(map[string]opKind)
	apply := func(ops map[string]opKind) {
		for v, op := range ops {
			if _, seen := winners[v]; !seen {
				winners[v] = op
			}
		}
	}

	apply(t.active.get(key))
	for i := len(t.immutable) - 1; i >= 0; i-- {
		apply(t.immutable[i].get(key))
	}
	for lvl := 0; lvl < len(t.levels); lvl++ {
		tables := t.levels[lvl]
		sort.SliceStable(tables, func(a, b int) bool { return tables[a].seq > tables[b].seq })
		for _, sst := range tables {
			apply(sst.get(key))
		}
	}

	out := make(map[string]struct{}, len(winners))
	for v, op := range winners {
		if op == opAdd {
			out[v] = struct{}{}
		}
	}
	return out, nil
}

// Stats summarizes the tree's current shape, for pkg/metrics.
type Stats struct {
	MemTableEntries int
	ImmutableCount  int
	LevelCounts     []int

	// BloomLookups and BloomNegatives are cumulative since the tree was
	// opened: BloomNegatives/BloomLookups approximates the fraction of
	// point lookups a bloom filter resolved without touching a block.
	BloomLookups   uint64
	BloomNegatives uint64
}

func (t *Tree) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	counts := make([]int, len(t.levels))
	var lookups, negatives uint64
	for i, lvl := range t.levels {
		counts[i] = len(lvl)
		for _, sst := range lvl {
			if sst.bloom == nil {
				continue
			}
			lookups += sst.bloom.lookups.Load()
			negatives += sst.bloom.negatives.Load()
		}
	}
	return Stats{
		MemTableEntries: t.active.entries,
		ImmutableCount:  len(t.immutable),
		LevelCounts:     counts,
		BloomLookups:    lookups,
		BloomNegatives:  negatives,
	}
}

// Close flushes any pending writes.
func (t *Tree) Close() error {
	return t.Flush()
}
