// Package hashembed is a deterministic reference Embedder: it hashes
// whitespace tokens into a fixed-width vector via feature hashing
// (the "hashing trick"), then L2-normalizes. It produces no semantic
// structure beyond token overlap, but gives every other package
// something concrete to embed against without a real model.
package hashembed

import (
	"context"
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/cuemby/noundb/pkg/model"
)

// Embedder hashes text into a vector of fixed Dim using signed feature
// hashing: each token contributes +1 or -1 (sign from bit 1 of the same
// hash) to the bucket its hash selects, and the result is L2-normalized.
type Embedder struct {
	dim int
}

// New returns an Embedder producing vectors of the given dimension.
func New(dim int) *Embedder {
	return &Embedder{dim: dim}
}

func (e *Embedder) Dimension() int { return e.dim }

// Embed is deterministic and context-cheap: it never blocks, so ctx is
// only honored for cancellation before the (synchronous) hash loop runs.
func (e *Embedder) Embed(ctx context.Context, text string) (model.Vector, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	vec := make([]float32, e.dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := xxhash.Sum64String(tok)
		bucket := h % uint64(e.dim)
		sign := float32(1)
		if (h>>1)&1 == 1 {
			sign = -1
		}
		vec[bucket] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return model.Vector(vec), nil
}
