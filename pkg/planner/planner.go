// Package planner routes a free-text query to a subset of noun-type
// partitions based on semantic type-inference confidence, and fuses
// per-candidate vector/metadata/graph scores into one ranked result.
package planner

import (
	"context"
	"sort"
	"sync"

	"github.com/cuemby/noundb/pkg/nountype"
	"github.com/cuemby/noundb/pkg/semantic"
)

// Strategy names the routing decision a Plan records.
type Strategy string

const (
	StrategySingleType Strategy = "single-type"
	StrategyMultiType  Strategy = "multi-type"
	StrategyAllTypes   Strategy = "all-types"
)

// Thresholds configures the single-type/multi-type/all-types routing
// decision. Zero-value Thresholds is invalid; use DefaultThresholds.
type Thresholds struct {
	SingleTypeThreshold float64
	MultiTypeThreshold  float64
	MaxMultiTypes       int
}

func DefaultThresholds() Thresholds {
	return Thresholds{SingleTypeThreshold: 0.8, MultiTypeThreshold: 0.6, MaxMultiTypes: 5}
}

// Plan is the planner's routing decision plus the reasoning behind it,
// kept for observability.
type Plan struct {
	Strategy        Strategy
	Partitions      []nountype.Type
	TopConfidence   float64
	Reasoning       string
	EstimatedSpeedup float64
}

// Planner selects partitions for a query using semantic type inference.
type Planner struct {
	semantic   *semantic.Index
	thresholds Thresholds
	stats      *StatsCollector
}

// New constructs a Planner over an already-open semantic index.
func New(sem *semantic.Index, thresholds Thresholds) *Planner {
	return &Planner{semantic: sem, thresholds: thresholds, stats: NewStatsCollector()}
}

// Stats exposes the planner's running strategy-distribution statistics.
func (p *Planner) Stats() *StatsCollector { return p.stats }

// Plan infers noun types for text and picks a routing strategy per the
// configured thresholds. totalPartitions only feeds the estimated
// speedup: a count of zero or less leaves the strategy unchanged and
// makes EstimatedSpeedup 1.
func (p *Planner) Plan(ctx context.Context, text string, totalPartitions int) (Plan, error) {
	inferences, err := p.semantic.InferTypes(ctx, text, semantic.Options{TopN: p.thresholds.MaxMultiTypes + 1})
	if err != nil {
		return Plan{}, err
	}
	plan := p.route(inferences, totalPartitions)
	p.stats.record(plan)
	return plan, nil
}

func (p *Planner) route(inferences []semantic.Inference, totalPartitions int) Plan {
	if len(inferences) == 0 {
		return Plan{
			Strategy:         StrategyAllTypes,
			Reasoning:        "no type inference results; querying every partition",
			EstimatedSpeedup: 1,
		}
	}

	top := inferences[0].Confidence
	second := 0.0
	if len(inferences) > 1 {
		second = inferences[1].Confidence
	}

	if top >= p.thresholds.SingleTypeThreshold && second < p.thresholds.MultiTypeThreshold {
		return Plan{
			Strategy:         StrategySingleType,
			Partitions:       []nountype.Type{inferences[0].Type},
			TopConfidence:    top,
			Reasoning:        "top confidence clears single-type threshold with no close second",
			EstimatedSpeedup: estimateSpeedup(totalPartitions, 1),
		}
	}

	if top >= p.thresholds.MultiTypeThreshold {
		n := p.thresholds.MaxMultiTypes
		if n > len(inferences) {
			n = len(inferences)
		}
		types := make([]nountype.Type, n)
		for i := 0; i < n; i++ {
			types[i] = inferences[i].Type
		}
		return Plan{
			Strategy:         StrategyMultiType,
			Partitions:       types,
			TopConfidence:    top,
			Reasoning:        "top confidence clears multi-type threshold",
			EstimatedSpeedup: estimateSpeedup(totalPartitions, n),
		}
	}

	return Plan{
		Strategy:         StrategyAllTypes,
		TopConfidence:    top,
		Reasoning:        "no confidence cleared single- or multi-type threshold",
		EstimatedSpeedup: 1,
	}
}

func estimateSpeedup(totalPartitions, targeted int) float64 {
	if targeted <= 0 || totalPartitions <= 0 {
		return 1
	}
	return float64(totalPartitions) / float64(targeted)
}

// StatsCollector tracks the distribution of routing strategies chosen
// and the average estimated speedup, for a getStats-style endpoint.
type StatsCollector struct {
	mu          sync.Mutex
	counts      map[Strategy]int64
	speedupSum  float64
	speedupSamples int64
}

func NewStatsCollector() *StatsCollector {
	return &StatsCollector{counts: make(map[Strategy]int64)}
}

func (s *StatsCollector) record(p Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[p.Strategy]++
	s.speedupSum += p.EstimatedSpeedup
	s.speedupSamples++
}

// Snapshot is a point-in-time view of the collected statistics.
type Snapshot struct {
	Counts        map[Strategy]int64
	AverageSpeedup float64
	Total         int64
}

func (s *StatsCollector) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[Strategy]int64, len(s.counts))
	var total int64
	for k, v := range s.counts {
		counts[k] = v
		total += v
	}
	avg := 0.0
	if s.speedupSamples > 0 {
		avg = s.speedupSum / float64(s.speedupSamples)
	}
	return Snapshot{Counts: counts, AverageSpeedup: avg, Total: total}
}

// sortedStrategies is used by tests to get deterministic map iteration.
func sortedStrategies(counts map[Strategy]int64) []Strategy {
	out := make([]Strategy, 0, len(counts))
	for k := range counts {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
