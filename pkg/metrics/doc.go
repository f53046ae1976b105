/*
Package metrics provides Prometheus metrics collection and exposition for
the engine.

Metrics are registered at package init against the global Prometheus
registry and exposed via an HTTP handler for scraping.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌──────────────────────────────────────────────┐        │
	│  │           Prometheus Registry                  │        │
	│  │  - Global DefaultRegistry                       │        │
	│  │  - MustRegister at package init                 │        │
	│  └──────────────────┬───────────────────────────┘        │
	│                     │                                      │
	│  ┌──────────────────▼───────────────────────────┐        │
	│  │             Metric Categories                   │        │
	│  │                                                  │        │
	│  │  Store:   nouns/verbs total                     │        │
	│  │  HNSW:    vector counts, insert/search latency  │        │
	│  │  LSM:     level sizes, compaction duration      │        │
	│  │  Content: blob/commit counts                    │        │
	│  │  Commit log: raft leader/peers/applied index    │        │
	│  │  Planner: strategy distribution, speedup        │        │
	│  │  Engine:  operation latency and outcome counts  │        │
	│  │  Migration/Version: duration and outcome counts │        │
	│  └──────────────────┬───────────────────────────┘        │
	│                     │                                      │
	│  ┌──────────────────▼───────────────────────────┐        │
	│  │            HTTP Metrics Endpoint                │        │
	│  │  - Handler: promhttp.Handler()                  │        │
	│  └────────────────────────────────────────────────┘        │
	└────────────────────────────────────────────────────────────┘

# Metrics Catalog

noundb_nouns_total{type}:
  - Type: Gauge
  - Description: Total nouns by type
  - Example: noundb_nouns_total{type="Person"} 1204

noundb_hnsw_vectors_total{type}:
  - Type: Gauge
  - Description: Total vectors held per HNSW partition
  - Example: noundb_hnsw_vectors_total{type="Document"} 8421

noundb_hnsw_search_duration_seconds{strategy}:
  - Type: Histogram
  - Description: HNSW search latency by planner strategy
  - Example: noundb_hnsw_search_duration_seconds_bucket{strategy="single-type",le="0.01"} 910

noundb_lsm_compaction_duration_seconds{level}:
  - Type: Histogram
  - Description: Time to compact a graph adjacency LSM level
  - Example: noundb_lsm_compaction_duration_seconds_sum{level="1"} 4.2

noundb_raft_is_leader:
  - Type: Gauge
  - Description: Whether this node is the commit log's raft leader (1=leader, 0=follower)
  - Example: noundb_raft_is_leader 1

noundb_planner_strategy_total{strategy}:
  - Type: Counter
  - Description: Plans produced by chosen strategy (single-type/multi-type/all-types)
  - Example: noundb_planner_strategy_total{strategy="single-type"} 5310

noundb_engine_operation_duration_seconds{operation}:
  - Type: Histogram
  - Description: Top-level engine operation latency (add/find/relate/traverse/...)
  - Example: noundb_engine_operation_duration_seconds_bucket{operation="find",le="0.05"} 77

Component Health:

The health.go file in this package tracks per-component health independently
of Prometheus, exposed via /health, /ready, and /live HTTP handlers for
orchestrators that probe liveness/readiness rather than scraping metrics.
*/
package metrics
