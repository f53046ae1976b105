package lsm

import (
	"bytes"
	"encoding/gob"
	"sort"

	"github.com/cuemby/noundb/pkg/blobstore"
	"github.com/cuemby/noundb/pkg/engerr"
)

const blockSize = 128 // keys per block, for the zone map

// sstEntry is one (value, op) pair for a key, as stored on disk.
type sstEntry struct {
	Value string
	Op    opKind
}

// sstBlock is a contiguous run of sorted keys plus their entries.
type sstBlock struct {
	MinKey  string
	MaxKey  string
	Keys    []string
	Entries [][]sstEntry // parallel to Keys
}

// sstablePayload is the gob-serialized form persisted to the blob store.
type sstablePayload struct {
	Blocks    []sstBlock
	BloomBits []uint64
	BloomM    uint64
	BloomK    uint64
	Seq       int64
}

// sstable is an immutable, flushed segment. Tables listed in the manifest
// are decoded from the blob store when the manifest is loaded; every
// table keeps its blocks and bloom filter resident.
type sstable struct {
	hash  blobstore.Hash
	seq   int64
	bloom *bloomFilter
	blocks []sstBlock
}

// flushMemTable converts a frozen memtable into an sstable and persists it
// to the blob store, sized for the bloom filter's target false-positive
// rate.
func flushMemTable(blobs *blobstore.Store, mt *memTable, seq int64, fpr float64) (*sstable, error) {
	keys := mt.sortedKeys()
	bloom := newBloomFilter(max(len(keys), 1), fpr)

	var blocks []sstBlock
	for i := 0; i < len(keys); i += blockSize {
		end := i + blockSize
		if end > len(keys) {
			end = len(keys)
		}
		blk := sstBlock{
			MinKey: keys[i],
			MaxKey: keys[end-1],
			Keys:   append([]string(nil), keys[i:end]...),
		}
		for _, k := range blk.Keys {
			bloom.Add(k)
			vals := mt.data[k]
			entries := make([]sstEntry, 0, len(vals))
			for v, op := range vals {
				entries = append(entries, sstEntry{Value: v, Op: op})
			}
			sort.Slice(entries, func(a, b int) bool { return entries[a].Value < entries[b].Value })
			blk.Entries = append(blk.Entries, entries)
		}
		blocks = append(blocks, blk)
	}

	payload := sstablePayload{Blocks: blocks, BloomBits: bloom.bits, BloomM: bloom.m, BloomK: bloom.k, Seq: seq}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, engerr.Wrap("lsm.flushMemTable", engerr.IO, err)
	}
	h, err := blobs.Put(buf.Bytes())
	if err != nil {
		return nil, engerr.Wrap("lsm.flushMemTable", engerr.IO, err)
	}

	return &sstable{hash: h, seq: seq, bloom: bloom, blocks: blocks}, nil
}

// loadSSTable reads and decodes an sstable's payload from the blob store
// given just its hash (as recorded in the manifest); the sequence number
// comes from the decoded payload.
func loadSSTable(blobs *blobstore.Store, h blobstore.Hash) (*sstable, error) {
	data, err := blobs.Get(h)
	if err != nil {
		return nil, engerr.Wrap("lsm.loadSSTable", engerr.IO, err)
	}
	var payload sstablePayload
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&payload); err != nil {
		return nil, engerr.Wrap("lsm.loadSSTable", engerr.IO, err)
	}
	bloom := &bloomFilter{bits: payload.BloomBits, m: payload.BloomM, k: payload.BloomK}
	return &sstable{hash: h, seq: payload.Seq, bloom: bloom, blocks: payload.Blocks}, nil
}

// get returns the winning (value -> op) map for key within this sstable,
// or nil if the key cannot be present (zone map skip or bloom negative).
func (s *sstable) get(key string) map[string]opKind {
	for _, blk := range s.blocks {
		if key < blk.MinKey || key > blk.MaxKey {
			continue
		}
		if s.bloom != nil && !s.bloom.MightContain(key) {
			return nil
		}
		idx := sort.SearchStrings(blk.Keys, key)
		if idx >= len(blk.Keys) || blk.Keys[idx] != key {
			continue
		}
		out := make(map[string]opKind, len(blk.Entries[idx]))
		for _, e := range blk.Entries[idx] {
			out[e.Value] = e.Op
		}
		return out
	}
	return nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
