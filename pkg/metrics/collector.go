package metrics

import (
	"strconv"
	"time"

	"github.com/cuemby/noundb/pkg/commitlog"
	"github.com/cuemby/noundb/pkg/graph"
	"github.com/cuemby/noundb/pkg/nountype"
	"github.com/cuemby/noundb/pkg/partition"
)

// Collector periodically polls the HNSW partitions, graph adjacency index,
// and commit log for gauge-shaped state and republishes it as Prometheus
// metrics. It sets only the HNSW vector, verb, LSM level-table and raft
// gauges; the per-operation counters and histograms in metrics.go (engine
// calls, migration runs, planner decisions) are not updated by the
// Collector or by any other code in this module.
type Collector struct {
	vectors  *partition.Set
	graphIdx *graph.Index
	log      *commitlog.Log
	stopCh   chan struct{}
	interval time.Duration
}

// NewCollector creates a collector over the engine's HNSW partitions, graph
// adjacency index, and commit log. graphIdx and log may be nil (e.g. a
// single-node deployment with no commit log), in which case the
// corresponding metrics are simply left unset.
func NewCollector(vectors *partition.Set, graphIdx *graph.Index, log *commitlog.Log) *Collector {
	return &Collector{
		vectors:  vectors,
		graphIdx: graphIdx,
		log:      log,
		stopCh:   make(chan struct{}),
		interval: 15 * time.Second,
	}
}

// Start begins collecting metrics on a fixed interval.
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectHNSWMetrics()
	c.collectGraphMetrics()
	c.collectCommitLogMetrics()
}

func (c *Collector) collectHNSWMetrics() {
	if c.vectors == nil {
		return
	}
	for _, t := range nountype.All() {
		HNSWVectorsTotal.WithLabelValues(string(t)).Set(float64(c.vectors.Len(t)))
	}
}

func (c *Collector) collectGraphMetrics() {
	if c.graphIdx == nil {
		return
	}

	for t, count := range c.graphIdx.TypeCounts() {
		VerbsTotal.WithLabelValues(string(t)).Set(float64(count))
	}

	for role, stats := range c.graphIdx.LSMStats() {
		for level, size := range stats.LevelCounts {
			LSMLevelTables.WithLabelValues(role + "/" + strconv.Itoa(level)).Set(float64(size))
		}
	}
}

func (c *Collector) collectCommitLogMetrics() {
	if c.log == nil {
		return
	}

	if c.log.IsLeader() {
		RaftIsLeader.Set(1)
	} else {
		RaftIsLeader.Set(0)
	}

	stats := c.log.Stats()
	if v, err := strconv.ParseFloat(stats["applied_index"], 64); err == nil {
		RaftAppliedIndex.Set(v)
	}
	if v, err := strconv.ParseFloat(stats["num_peers"], 64); err == nil {
		RaftPeersTotal.Set(v + 1) // num_peers excludes self
	}
}
