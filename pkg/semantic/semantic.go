// Package semantic infers likely noun types for a piece of free text by
// combining exact keyword matches with nearest-neighbor similarity
// against a small bootstrap keyword table embedded into its own HNSW
// index — separate from the engine's per-type noun partitions, since
// this index's vectors are keywords, not stored entities.
package semantic

import (
	"context"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cuemby/noundb/pkg/embed"
	"github.com/cuemby/noundb/pkg/hnsw"
	"github.com/cuemby/noundb/pkg/model"
	"github.com/cuemby/noundb/pkg/nountype"
)

const queryCacheSize = 1000

// Inference is one ranked type-inference result for a piece of text.
type Inference struct {
	Type            nountype.Type
	Category        string
	Confidence      float64
	Similarity      float64
	MatchedKeywords []string
}

// Options tunes InferTypes. Zero values fall back to sane defaults.
type Options struct {
	TopN          int
	MinConfidence float64
}

// Index infers noun types from text. Construct with Open; the keyword
// HNSW is built lazily on first InferTypes call so Open itself never
// touches the embedder.
type Index struct {
	embedder embed.Embedder

	initOnce sync.Once
	initErr  error
	keywords *hnsw.Index
	byID     map[string]keywordEntry

	cacheMu sync.Mutex
	cache   *lru.Cache[string, model.Vector]
}

// Open constructs an Index over embedder without doing any embedding
// work yet.
func Open(embedder embed.Embedder) (*Index, error) {
	cache, err := lru.New[string, model.Vector](queryCacheSize)
	if err != nil {
		return nil, err
	}
	return &Index{embedder: embedder, byID: make(map[string]keywordEntry), cache: cache}, nil
}

// ensureBuilt embeds the bootstrap keyword table into a dedicated HNSW
// index on first use, behind a single-flight sync.Once so concurrent
// first callers don't each pay the embedding cost.
func (idx *Index) ensureBuilt(ctx context.Context) error {
	idx.initOnce.Do(func() {
		keywords, err := hnsw.Open(hnsw.Config{
			M: 16, EfConstruction: 200, EfSearch: 50,
			Dimension: idx.embedder.Dimension(), Distance: hnsw.Cosine,
		})
		if err != nil {
			idx.initErr = err
			return
		}
		for _, kw := range bootstrapKeywords {
			vec, err := idx.embedder.Embed(ctx, kw.Keyword)
			if err != nil {
				idx.initErr = err
				return
			}
			if err := keywords.Insert(kw.Keyword, vec); err != nil {
				idx.initErr = err
				return
			}
			idx.byID[kw.Keyword] = kw
		}
		idx.keywords = keywords
	})
	return idx.initErr
}

func (idx *Index) embedQuery(ctx context.Context, text string) (model.Vector, error) {
	idx.cacheMu.Lock()
	if v, ok := idx.cache.Get(text); ok {
		idx.cacheMu.Unlock()
		return v, nil
	}
	idx.cacheMu.Unlock()

	v, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	idx.cacheMu.Lock()
	idx.cache.Add(text, v)
	idx.cacheMu.Unlock()
	return v, nil
}

// InferTypes ranks candidate noun types for text, blending exact
// substring keyword matches (which boost confidence directly) with
// nearest-neighbor similarity against the keyword table.
func (idx *Index) InferTypes(ctx context.Context, text string, opts Options) ([]Inference, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if err := idx.ensureBuilt(ctx); err != nil {
		return nil, err
	}
	topN := opts.TopN
	if topN <= 0 {
		topN = 5
	}

	lower := strings.ToLower(text)
	byType := make(map[nountype.Type]*Inference)

	for _, kw := range bootstrapKeywords {
		if strings.Contains(lower, kw.Keyword) {
			inf := byType[kw.Type]
			if inf == nil {
				inf = &Inference{Type: kw.Type, Category: kw.Category}
				byType[kw.Type] = inf
			}
			if kw.BaseConfidence > inf.Confidence {
				inf.Confidence = kw.BaseConfidence
			}
			inf.MatchedKeywords = append(inf.MatchedKeywords, kw.Keyword)
		}
	}

	vec, err := idx.embedQuery(ctx, text)
	if err == nil && idx.keywords.Len() > 0 {
		results, searchErr := idx.keywords.Search(vec, topN, 0)
		if searchErr == nil {
			for _, r := range results {
				kw, ok := idx.byID[r.ID]
				if !ok {
					continue
				}
				similarity := 1 - r.Distance
				inf := byType[kw.Type]
				if inf == nil {
					inf = &Inference{Type: kw.Type, Category: kw.Category}
					byType[kw.Type] = inf
				}
				if similarity > inf.Similarity {
					inf.Similarity = similarity
				}
				blended := kw.BaseConfidence * similarity
				if blended > inf.Confidence {
					inf.Confidence = blended
				}
			}
		}
	}

	out := make([]Inference, 0, len(byType))
	for _, inf := range byType {
		if inf.Confidence >= opts.MinConfidence {
			out = append(out, *inf)
		}
	}
	sortInferences(out)
	if len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}
