// Package engine wires the engine's sub-indices — HNSW vector partitions,
// metadata postings, graph adjacency, content-addressed object store,
// semantic type inference, query planner, version history, and schema
// migration — into one durable, single-node store. It is the one package
// every other package in this module is written to be composed by, the
// way pkg/manager.Manager wires storage.Store + WarrenFSM + events.Broker
// + metrics.Collector in the cluster management layer this module
// descends from.
//
// Every mutation is serialized through a single-voter raft log
// (pkg/commitlog): Engine implements commitlog.Applier, so Add/Update/
// Delete/Relate/Unrelate marshal their arguments into a commitlog.Command
// and block on raft.Apply before the in-memory state (and its HNSW/
// metadata/graph projections) changes. Read-path operations — Get, Find,
// Similar, Query, GetRelations, Traverse, Aggregate — never touch the
// commit log; they read the in-memory projections directly under a
// read lock.
package engine
