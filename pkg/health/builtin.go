package health

import (
	"context"
	"fmt"

	"github.com/cuemby/noundb/pkg/commitlog"
	"github.com/cuemby/noundb/pkg/embed"
	"github.com/cuemby/noundb/pkg/lsm"
)

// NewBloomMissRateChecker reports degraded health once the fraction of
// point lookups a bloom filter failed to short-circuit (lookups that fell
// through to a block scan) exceeds maxMissRate, suggesting the filters are
// undersized or the tree wants compaction.
func NewBloomMissRateChecker(stats func() lsm.Stats, maxMissRate float64) *ThresholdChecker {
	return NewThresholdChecker("lsm_bloom_miss_rate", func(ctx context.Context) (float64, error) {
		s := stats()
		if s.BloomLookups == 0 {
			return 0, nil
		}
		return 1 - float64(s.BloomNegatives)/float64(s.BloomLookups), nil
	}, maxMissRate)
}

// NewCompactionBacklogChecker reports degraded health once the number of
// SSTables sitting in level 0 exceeds maxTables, indicating compaction is
// falling behind the write rate.
func NewCompactionBacklogChecker(stats func() lsm.Stats, maxTables int) *ThresholdChecker {
	return NewThresholdChecker("lsm_level0_backlog", func(ctx context.Context) (float64, error) {
		s := stats()
		if len(s.LevelCounts) == 0 {
			return 0, nil
		}
		return float64(s.LevelCounts[0]), nil
	}, float64(maxTables))
}

// NewEmbedderReadyChecker reports degraded health if the configured
// Embedder cannot produce a vector of its declared dimension.
func NewEmbedderReadyChecker(embedder embed.Embedder) *PredicateChecker {
	return NewPredicateChecker("embedder_ready", func(ctx context.Context) error {
		vec, err := embedder.Embed(ctx, "healthcheck")
		if err != nil {
			return err
		}
		if len(vec) != embedder.Dimension() {
			return fmt.Errorf("embed returned dimension %d, want %d", len(vec), embedder.Dimension())
		}
		return nil
	})
}

// NewCommitLogReadyChecker reports degraded health while the commit log has
// not yet settled on a leader for this single-voter raft node.
func NewCommitLogReadyChecker(log *commitlog.Log) *PredicateChecker {
	return NewPredicateChecker("commitlog_leader_elected", func(ctx context.Context) error {
		if !log.IsLeader() {
			return fmt.Errorf("no leader elected")
		}
		return nil
	})
}
