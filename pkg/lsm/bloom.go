package lsm

import (
	"math"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// bloomFilter is a hand-rolled Bloom filter sized for a target false
// positive rate, using double hashing (Kirsch-Mitzenmacher) over two
// xxhash sums (the key, and the key with a salt) to derive k probe
// positions.
type bloomFilter struct {
	bits []uint64
	m    uint64 // number of bits
	k    uint64 // number of hash functions

	lookups   atomic.Uint64
	negatives atomic.Uint64
}

// newBloomFilter sizes a filter for n expected entries at false positive
// rate fpr.
func newBloomFilter(n int, fpr float64) *bloomFilter {
	if n < 1 {
		n = 1
	}
	if fpr <= 0 || fpr >= 1 {
		fpr = 0.01
	}
	m := optimalBits(n, fpr)
	k := optimalHashCount(m, n)
	words := (m + 63) / 64
	return &bloomFilter{bits: make([]uint64, words), m: m, k: k}
}

func optimalBits(n int, fpr float64) uint64 {
	m := -1 * float64(n) * math.Log(fpr) / (math.Ln2 * math.Ln2)
	if m < 8 {
		m = 8
	}
	return uint64(math.Ceil(m))
}

func optimalHashCount(m uint64, n int) uint64 {
	k := (float64(m) / float64(n)) * math.Ln2
	if k < 1 {
		k = 1
	}
	return uint64(math.Round(k))
}

func (b *bloomFilter) positions(key string) (uint64, uint64) {
	h1 := xxhash.Sum64String(key)
	h2 := xxhash.Sum64String(key + "\x00salt")
	if h2 == 0 {
		h2 = 1
	}
	return h1, h2
}

// Add inserts key into the filter.
func (b *bloomFilter) Add(key string) {
	h1, h2 := b.positions(key)
	for i := uint64(0); i < b.k; i++ {
		pos := (h1 + i*h2) % b.m
		b.bits[pos/64] |= 1 << (pos % 64)
	}
}

// MightContain reports whether key may be present. False means definitely
// absent; true means possibly present (subject to the filter's FPR).
func (b *bloomFilter) MightContain(key string) bool {
	b.lookups.Add(1)
	h1, h2 := b.positions(key)
	for i := uint64(0); i < b.k; i++ {
		pos := (h1 + i*h2) % b.m
		if b.bits[pos/64]&(1<<(pos%64)) == 0 {
			b.negatives.Add(1)
			return false
		}
	}
	return true
}
