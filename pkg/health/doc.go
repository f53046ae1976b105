/*
Package health provides a modular checker design for reporting
engerr.DegradedHealth conditions inside the engine without blocking the
request path.

This package implements two checker shapes: threshold (sample a numeric
gauge, compare against a max) and predicate (run an arbitrary ctx-aware
probe). Unlike the external HTTP/TCP/exec probes a container orchestrator
runs against workloads it supervises, the engine is an embedded library
with no networked dependents to probe — its degraded-health conditions are
all internal: a bloom filter no longer filtering, a compaction backlog, an
embedder that can't produce a vector, a commit log with no elected leader.

# Architecture

	┌─────────────────────────────────────────────────────────────┐
	│                   Health Check System                        │
	└─────┬─────────────────────────────────────────────────────────┘
	      │
	      ▼
	┌──────────────────────────────────────────────────────────────┐
	│                     Checker Interface                         │
	│  • Check(ctx) Result                                          │
	│  • Type() CheckType                                           │
	└────────┬─────────────────────────────────────────────────────┘
	         │
	    ┌────┴──────┐
	    ▼           ▼
	┌─────────┐ ┌───────────┐
	│Threshold│ │ Predicate │
	│ Checker │ │  Checker  │
	└─────────┘ └───────────┘
	     │             │
	     ▼             ▼
	sample() vs max  probe(ctx) error

builtin.go wires both shapes against concrete engine gauges:
NewBloomMissRateChecker, NewCompactionBacklogChecker (threshold),
NewEmbedderReadyChecker, NewCommitLogReadyChecker (predicate).

## Health Check Flow

 1. pkg/engine registers a Status per monitored condition at startup.
 2. Wait for StartPeriod (grace period for the lazy semantic HNSW build).
 3. Every Interval: run the check, call Status.Update with the Result.
 4. If failures >= Retries: Status.Healthy flips false.
 5. Health surfaces any unhealthy Status as engerr.DegradedHealth,
    never as a blocking error from the operation that happened to notice.
*/
package health
