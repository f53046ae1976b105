// Package metadata indexes a noun or verb's dotted-path metadata fields
// into Roaring-bitmap posting lists keyed by an internally assigned
// entity index, so equality and boolean-combination queries never touch
// the original entity ids until the very last step.
package metadata

import (
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/model"
)

// Always-indexed namespace fields, per spec: every lookup that excludes
// soft-deleted entities is an O(1) bitmap op, never a scan.
const (
	FieldDeleted = "_brainy.deleted"
	FieldIndexed = "_brainy.indexed"
	FieldVersion = "_brainy.version"
	FieldCreated = "_brainy.created"
	FieldUpdated = "_brainy.updated"
)

// defaultSortedFields are the namespace fields range queries are
// expected to work on out of the box. Callers can declare more via
// Options.SortedFields at Open time.
var defaultSortedFields = []string{FieldCreated, FieldUpdated, "_brainy.priority", "_brainy.ttl"}

// Options configures which dotted fields maintain a sorted index for
// range queries, beyond the namespace defaults.
type Options struct {
	SortedFields []string
}

// Index is a metadata posting-list store over one logical collection of
// entities (nouns, or verbs — callers run one Index per collection).
type Index struct {
	mu sync.RWMutex

	idToIdx map[string]uint32
	idxToID []string
	nextIdx uint32

	postings map[string]map[string]*roaring.Bitmap
	sorted   map[string]*sortedIndex

	// lastFields remembers, per entity index, the flattened key->posting
	// value it last indexed, so Put can retract stale postings on update
	// without a full postings-table scan.
	lastFields map[uint32]map[string]string
}

// Open creates an empty index with the given sorted-field declarations
// in addition to the namespace defaults.
func Open(opts Options) *Index {
	idx := &Index{
		idToIdx:    make(map[string]uint32),
		postings:   make(map[string]map[string]*roaring.Bitmap),
		sorted:     make(map[string]*sortedIndex),
		lastFields: make(map[uint32]map[string]string),
	}
	for _, f := range defaultSortedFields {
		idx.sorted[f] = newSortedIndex()
	}
	for _, f := range opts.SortedFields {
		if _, ok := idx.sorted[f]; !ok {
			idx.sorted[f] = newSortedIndex()
		}
	}
	return idx
}

func (idx *Index) indexFor(id string) uint32 {
	if i, ok := idx.idToIdx[id]; ok {
		return i
	}
	i := idx.nextIdx
	idx.nextIdx++
	idx.idToIdx[id] = i
	if int(i) == len(idx.idxToID) {
		idx.idxToID = append(idx.idxToID, id)
	} else {
		for int(i) >= len(idx.idxToID) {
			idx.idxToID = append(idx.idxToID, "")
		}
		idx.idxToID[i] = id
	}
	return i
}

// flatten turns a noun/verb's namespace + field map into one dotted-key
// posting-value map.
func flatten(meta model.Metadata) map[string]model.Value {
	out := make(map[string]model.Value, len(meta.Fields)+5)
	for k, v := range meta.Fields {
		out[k] = v
	}
	out[FieldDeleted] = model.BoolValue(meta.Namespace.Deleted)
	out[FieldIndexed] = model.BoolValue(meta.Namespace.Indexed)
	out[FieldVersion] = model.IntValue(int64(meta.Namespace.Version))
	out[FieldCreated] = model.TimeValue(meta.Namespace.Created)
	out[FieldUpdated] = model.TimeValue(meta.Namespace.Updated)
	return out
}

// Put (re)indexes id's metadata. Safe to call again on update: prior
// postings for id are retracted before the new ones are recorded.
func (idx *Index) Put(id string, meta model.Metadata) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	i := idx.indexFor(id)
	idx.retractLocked(i)

	flat := flatten(meta)
	current := make(map[string]string, len(flat))
	for field, value := range flat {
		s := value.String()
		current[field] = s
		idx.addPostingLocked(field, s, i)
		if si, ok := idx.sorted[field]; ok {
			if n, ok := numericOf(value); ok {
				si.add(n, i)
			}
		}
	}
	idx.lastFields[i] = current
}

func (idx *Index) addPostingLocked(field, value string, i uint32) {
	byValue, ok := idx.postings[field]
	if !ok {
		byValue = make(map[string]*roaring.Bitmap)
		idx.postings[field] = byValue
	}
	bm, ok := byValue[value]
	if !ok {
		bm = roaring.New()
		byValue[value] = bm
	}
	bm.Add(i)
}

// retractLocked removes every posting previously recorded for entity
// index i, using the remembered flattened field snapshot.
func (idx *Index) retractLocked(i uint32) {
	prev, ok := idx.lastFields[i]
	if !ok {
		return
	}
	for field, value := range prev {
		if bm, ok := idx.postings[field][value]; ok {
			bm.Remove(i)
		}
		if si, ok := idx.sorted[field]; ok {
			si.remove(i)
		}
	}
	delete(idx.lastFields, i)
}

// Delete removes id from the index entirely (hard delete). Soft delete
// should instead Put with Namespace.Deleted = true.
func (idx *Index) Delete(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	i, ok := idx.idToIdx[id]
	if !ok {
		return
	}
	idx.retractLocked(i)
	delete(idx.idToIdx, id)
	idx.idxToID[i] = ""
}

// Equals returns the bitmap of entity indexes whose field exactly
// matches value's posting-list representation.
func (idx *Index) Equals(field string, value model.Value) *roaring.Bitmap {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	bm, ok := idx.postings[field][value.String()]
	if !ok {
		return roaring.New()
	}
	return bm.Clone()
}

// Range returns the bitmap of entity indexes whose declared-sorted
// field falls within [lo, hi] inclusive. Returns engerr.InvalidArgument
// if field was not declared sorted at Open.
func (idx *Index) Range(field string, lo, hi float64) (*roaring.Bitmap, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	si, ok := idx.sorted[field]
	if !ok {
		return nil, engerr.New("metadata.Range", engerr.InvalidArgument, "field not declared sorted: "+field)
	}
	return si.rangeQuery(lo, hi), nil
}

// RangeTime is Range for timestamp-valued sorted fields.
func (idx *Index) RangeTime(field string, lo, hi time.Time) (*roaring.Bitmap, error) {
	return idx.Range(field, float64(lo.UnixNano()), float64(hi.UnixNano()))
}

// IDs translates a result bitmap back into entity ids, in ascending
// entity-index order (stable, not meaningful beyond determinism).
func (idx *Index) IDs(bm *roaring.Bitmap) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		i := it.Next()
		if int(i) < len(idx.idxToID) && idx.idxToID[i] != "" {
			out = append(out, idx.idxToID[i])
		}
	}
	return out
}

func numericOf(v model.Value) (float64, bool) {
	switch v.Kind {
	case model.KindInt:
		return float64(v.Int), true
	case model.KindFloat:
		return v.Flt, true
	case model.KindTimestamp:
		return float64(v.Time.UnixNano()), true
	default:
		return 0, false
	}
}
