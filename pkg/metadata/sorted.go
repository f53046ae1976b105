package metadata

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// sortedEntry pairs a numeric field value with the entity index it
// belongs to.
type sortedEntry struct {
	value float64
	idx   uint32
}

// sortedIndex maintains entries sorted by value for binary-search range
// queries over a declared "sorted" field.
type sortedIndex struct {
	entries []sortedEntry
}

func newSortedIndex() *sortedIndex {
	return &sortedIndex{}
}

func (s *sortedIndex) add(value float64, idx uint32) {
	s.remove(idx)
	i := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].value >= value })
	s.entries = append(s.entries, sortedEntry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = sortedEntry{value: value, idx: idx}
}

func (s *sortedIndex) remove(idx uint32) {
	for i, e := range s.entries {
		if e.idx == idx {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

// rangeQuery returns every indexed entity whose value falls in [lo, hi].
func (s *sortedIndex) rangeQuery(lo, hi float64) *roaring.Bitmap {
	bm := roaring.New()
	start := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].value >= lo })
	for i := start; i < len(s.entries) && s.entries[i].value <= hi; i++ {
		bm.Add(s.entries[i].idx)
	}
	return bm
}
