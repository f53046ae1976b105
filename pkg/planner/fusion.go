package planner

// Weights are the fusion coefficients applied to vector/metadata/graph
// component scores.
type Weights struct {
	Vector   float64
	Metadata float64
	Graph    float64
}

// FusionStrategy selects how Weights are derived for a given candidate
// scoring pass.
type FusionStrategy string

const (
	// StrategyExplicit uses caller-supplied Weights unchanged.
	StrategyExplicit FusionStrategy = "explicit"
	// StrategyAdaptive derives weights from the plan's top confidence:
	// high confidence shifts weight toward the vector score, since the
	// planner is more certain the embedding space alone is discriminative.
	StrategyAdaptive FusionStrategy = "adaptive"
)

// AdaptiveWeights derives fusion weights from a plan's top confidence.
// High confidence biases toward vector score; low confidence spreads
// weight more evenly across metadata and graph signals.
func AdaptiveWeights(topConfidence float64) Weights {
	v := 0.4 + 0.4*topConfidence // ranges 0.4..0.8
	remaining := 1 - v
	return Weights{Vector: v, Metadata: remaining * 0.6, Graph: remaining * 0.4}
}

// Candidate is one scored entity before fusion.
type Candidate struct {
	ID             string
	VectorDistance float64
	MetadataMatch  float64 // 0/1 boolean match, or weighted match count over [0,1]
	GraphScore     float64 // function of path length / traversed-edge weights, pre-computed by the caller
	Boosts         float64
	Penalties      float64
}

// Score is the fused result for one candidate, with the components
// retained when explain is requested.
type Score struct {
	ID           string
	Total        float64
	VectorScore  float64
	MetadataScore float64
	GraphScore   float64
	Explain      bool
}

// Fuse scores every candidate under the given weights. When explain is
// true, the per-component breakdown is retained on each Score; otherwise
// only Total is populated, saving callers from carrying scratch data
// they don't need.
func Fuse(candidates []Candidate, weights Weights, explain bool) []Score {
	out := make([]Score, len(candidates))
	for i, c := range candidates {
		vectorScore := 1 - c.VectorDistance
		total := weights.Vector*vectorScore +
			weights.Metadata*c.MetadataMatch +
			weights.Graph*c.GraphScore +
			c.Boosts - c.Penalties

		s := Score{ID: c.ID, Total: total}
		if explain {
			s.VectorScore = vectorScore
			s.MetadataScore = c.MetadataMatch
			s.GraphScore = c.GraphScore
			s.Explain = true
		}
		out[i] = s
	}
	return out
}
