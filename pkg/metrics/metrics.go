package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Noun/verb store metrics
	NounsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "noundb_nouns_total",
			Help: "Total number of nouns by type",
		},
		[]string{"type"},
	)

	VerbsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "noundb_verbs_total",
			Help: "Total number of verbs by type",
		},
		[]string{"type"},
	)

	// HNSW index metrics
	HNSWVectorsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "noundb_hnsw_vectors_total",
			Help: "Total number of vectors held by HNSW partitions",
		},
		[]string{"type"},
	)

	HNSWInsertDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "noundb_hnsw_insert_duration_seconds",
			Help:    "Time taken to insert a vector into an HNSW partition",
			Buckets: prometheus.DefBuckets,
		},
	)

	HNSWSearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "noundb_hnsw_search_duration_seconds",
			Help:    "Time taken to search HNSW partitions",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	// LSM graph index metrics
	LSMLevelTables = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "noundb_lsm_level_tables",
			Help: "Number of on-disk SSTables per adjacency tree and level",
		},
		[]string{"level"},
	)

	LSMCompactionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "noundb_lsm_compaction_duration_seconds",
			Help:    "Time taken to compact an LSM level",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"level"},
	)

	LSMCompactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noundb_lsm_compactions_total",
			Help: "Total number of LSM compactions run, by level and outcome",
		},
		[]string{"level", "status"},
	)

	// Content store metrics
	BlobsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "noundb_blobs_total",
			Help: "Total number of distinct content-addressed blobs stored",
		},
	)

	CommitsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "noundb_commits_total",
			Help: "Total number of commits by branch",
		},
		[]string{"branch"},
	)

	// Commit log / consensus metrics
	RaftIsLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "noundb_raft_is_leader",
			Help: "Whether this node is the raft leader for the commit log (1 = leader, 0 = follower)",
		},
	)

	RaftPeersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "noundb_raft_peers_total",
			Help: "Total number of raft peers participating in the commit log",
		},
	)

	RaftAppliedIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "noundb_raft_applied_index",
			Help: "Last applied raft log index",
		},
	)

	RaftApplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "noundb_raft_apply_duration_seconds",
			Help:    "Time taken to apply a commit log entry",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Query planner metrics
	PlannerStrategyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noundb_planner_strategy_total",
			Help: "Total number of query plans produced, by chosen strategy",
		},
		[]string{"strategy"},
	)

	PlannerEstimatedSpeedup = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "noundb_planner_estimated_speedup",
			Help:    "Distribution of estimated speedup factors reported by the planner",
			Buckets: []float64{1, 1.5, 2, 3, 5, 8, 13, 21},
		},
	)

	// Engine operation metrics
	EngineOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "noundb_engine_operation_duration_seconds",
			Help:    "Time taken by a top-level engine operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	EngineOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noundb_engine_operations_total",
			Help: "Total number of top-level engine operations, by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	// Migration metrics
	MigrationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "noundb_migration_duration_seconds",
			Help:    "Time taken to run a migration to completion",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"migration_id"},
	)

	MigrationEntitiesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noundb_migration_entities_total",
			Help: "Total number of entities processed by migrations, by migration and outcome",
		},
		[]string{"migration_id", "outcome"},
	)

	// Versioning metrics
	VersionSaveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "noundb_version_save_duration_seconds",
			Help:    "Time taken to save a new entity version",
			Buckets: prometheus.DefBuckets,
		},
	)

	VersionRestoreDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "noundb_version_restore_duration_seconds",
			Help:    "Time taken to restore an entity to a prior version",
			Buckets: prometheus.DefBuckets,
		},
	)

	VersionPruneTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "noundb_version_pruned_total",
			Help: "Total number of version records removed by pruning",
		},
	)
)

func init() {
	prometheus.MustRegister(NounsTotal)
	prometheus.MustRegister(VerbsTotal)
	prometheus.MustRegister(HNSWVectorsTotal)
	prometheus.MustRegister(HNSWInsertDuration)
	prometheus.MustRegister(HNSWSearchDuration)
	prometheus.MustRegister(LSMLevelTables)
	prometheus.MustRegister(LSMCompactionDuration)
	prometheus.MustRegister(LSMCompactionsTotal)
	prometheus.MustRegister(BlobsTotal)
	prometheus.MustRegister(CommitsTotal)
	prometheus.MustRegister(RaftIsLeader)
	prometheus.MustRegister(RaftPeersTotal)
	prometheus.MustRegister(RaftAppliedIndex)
	prometheus.MustRegister(RaftApplyDuration)
	prometheus.MustRegister(PlannerStrategyTotal)
	prometheus.MustRegister(PlannerEstimatedSpeedup)
	prometheus.MustRegister(EngineOperationDuration)
	prometheus.MustRegister(EngineOperationsTotal)
	prometheus.MustRegister(MigrationDuration)
	prometheus.MustRegister(MigrationEntitiesTotal)
	prometheus.MustRegister(VersionSaveDuration)
	prometheus.MustRegister(VersionRestoreDuration)
	prometheus.MustRegister(VersionPruneTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
