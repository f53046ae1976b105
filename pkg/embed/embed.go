// Package embed defines the embedding boundary the rest of the engine
// depends on. Training or serving a real transformer model is out of
// scope; everything downstream (pkg/partition, pkg/semantic) only needs
// something that turns text into a fixed-width vector deterministically
// enough for tests and the CLI to be useful.
package embed

import (
	"context"

	"github.com/cuemby/noundb/pkg/model"
)

// Embedder produces a fixed-width vector for a piece of text. A real
// deployment would implement this against a hosted or local transformer;
// pkg/embed/hashembed is the reference implementation used by default.
type Embedder interface {
	Embed(ctx context.Context, text string) (model.Vector, error)
	Dimension() int
}
