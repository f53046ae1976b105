package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/noundb/pkg/blobstore"
	"github.com/cuemby/noundb/pkg/commitlog"
	"github.com/cuemby/noundb/pkg/embed"
	"github.com/cuemby/noundb/pkg/embed/hashembed"
	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/events"
	"github.com/cuemby/noundb/pkg/graph"
	"github.com/cuemby/noundb/pkg/health"
	"github.com/cuemby/noundb/pkg/hnsw"
	"github.com/cuemby/noundb/pkg/log"
	"github.com/cuemby/noundb/pkg/lsm"
	"github.com/cuemby/noundb/pkg/metadata"
	"github.com/cuemby/noundb/pkg/metrics"
	"github.com/cuemby/noundb/pkg/migration"
	"github.com/cuemby/noundb/pkg/model"
	"github.com/cuemby/noundb/pkg/nountype"
	"github.com/cuemby/noundb/pkg/objects"
	"github.com/cuemby/noundb/pkg/partition"
	"github.com/cuemby/noundb/pkg/planner"
	"github.com/cuemby/noundb/pkg/semantic"
	"github.com/cuemby/noundb/pkg/version"
)

const mainBranch = "main"

// Config configures Open.
type Config struct {
	// DataDir holds every on-disk artifact: blobs, refs, adjacency LSMs,
	// raft log and snapshots. Versions are stored as State nouns, not in a
	// separate file.
	DataDir string
	// NodeID identifies this node to the embedded single-voter raft group.
	NodeID string
	// Dimension is the fixed embedding width every vector must match.
	Dimension int
	// Distance is the HNSW distance metric. Defaults to hnsw.Cosine.
	Distance hnsw.Metric
	// Embedder produces vectors for free text in Query/InferTypes. A
	// deterministic hashembed.Embedder is used if nil.
	Embedder embed.Embedder
	// LSM tunes the graph adjacency trees. Zero value falls back to
	// lsm.DefaultConfig.
	LSM lsm.Config
	// Thresholds tunes the query planner's routing decision. Zero value
	// falls back to planner.DefaultThresholds.
	Thresholds planner.Thresholds
	// Health tunes the background checker loop. Zero value falls back to
	// health.DefaultConfig.
	Health health.Config
	// BloomMissRateMax and CompactionBacklogMax bound the built-in LSM
	// health checks. Zero falls back to 0.5 and 16 respectively; both
	// checkers are always registered.
	BloomMissRateMax    float64
	CompactionBacklogMax int
}

func (c Config) withDefaults() Config {
	if c.Distance == "" {
		c.Distance = hnsw.Cosine
	}
	if c.LSM.MemTableThreshold == 0 {
		c.LSM = lsm.DefaultConfig()
	}
	if c.Thresholds == (planner.Thresholds{}) {
		c.Thresholds = planner.DefaultThresholds()
	}
	if c.Health == (health.Config{}) {
		c.Health = health.DefaultConfig()
	}
	if c.BloomMissRateMax == 0 {
		c.BloomMissRateMax = 0.5
	}
	if c.CompactionBacklogMax == 0 {
		c.CompactionBacklogMax = 16
	}
	return c
}

// Engine is the single entry point composing every sub-index into a
// durable vector+graph+metadata store.
type Engine struct {
	cfg      Config
	embedder embed.Embedder
	log      zerolog.Logger

	blobs    *blobstore.Store
	objStore *objects.Store

	vectors   *partition.Set
	nounMeta  *metadata.Index
	verbMeta  *metadata.Index
	graphIdx  *graph.Index
	sem       *semantic.Index
	planner   *planner.Planner
	versions  *version.Index

	commitLog *commitlog.Log
	broker    *events.Broker
	collector *metrics.Collector

	mu      sync.RWMutex
	branch  *objects.Branch
	nouns   map[string]model.Noun
	verbs   map[string]model.Verb

	migMu    sync.Mutex
	migState migration.StateRecord

	healthMu sync.Mutex
	checkers map[string]health.Checker
	statuses map[string]*health.Status
	healthStop chan struct{}

	closeOnce sync.Once
}

// Open opens (creating if absent) the engine's full on-disk state under
// cfg.DataDir and starts its background metrics collector and health
// checker loop.
func Open(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	if cfg.DataDir == "" {
		return nil, engerr.New("engine.Open", engerr.InvalidArgument, "DataDir is required")
	}
	if cfg.NodeID == "" {
		cfg.NodeID = "node-1"
	}
	if cfg.Dimension <= 0 {
		return nil, engerr.New("engine.Open", engerr.InvalidArgument, "Dimension must be positive")
	}

	embedder := cfg.Embedder
	if embedder == nil {
		embedder = hashembed.New(cfg.Dimension)
	}

	blobs, err := blobstore.Open(filepath.Join(cfg.DataDir, "blobs"), blobstore.Options{})
	if err != nil {
		return nil, err
	}
	objStore, err := objects.Open(cfg.DataDir, blobs)
	if err != nil {
		return nil, err
	}
	branch, err := objects.OpenBranch(objStore, mainBranch)
	if err != nil {
		return nil, err
	}

	vectors := partition.Open(hnsw.Config{
		M: 16, EfConstruction: 200, EfSearch: 100,
		Dimension: cfg.Dimension, Distance: cfg.Distance,
	})
	nounMeta := metadata.Open(metadata.Options{})
	verbMeta := metadata.Open(metadata.Options{})

	sem, err := semantic.Open(embedder)
	if err != nil {
		return nil, err
	}
	plnr := planner.New(sem, cfg.Thresholds)

	e := &Engine{
		cfg:      cfg,
		embedder: embedder,
		log:      log.WithComponent("engine"),
		blobs:    blobs,
		objStore: objStore,
		vectors:  vectors,
		nounMeta: nounMeta,
		verbMeta: verbMeta,
		sem:      sem,
		planner:  plnr,
		branch:   branch,
		nouns:    make(map[string]model.Noun),
		verbs:    make(map[string]model.Verb),
		broker:   events.NewBroker(),
		checkers: make(map[string]health.Checker),
		statuses: make(map[string]*health.Status),
		healthStop: make(chan struct{}),
	}

	graphIdx, err := graph.Open(cfg.DataDir, blobs, graph.Options{LSM: cfg.LSM, Fetcher: e})
	if err != nil {
		return nil, err
	}
	e.graphIdx = graphIdx

	versions, err := version.Open(blobs, e)
	if err != nil {
		return nil, err
	}
	e.versions = versions

	if err := e.loadFromBranch(); err != nil {
		return nil, err
	}

	commitLog, err := commitlog.Open(cfg.DataDir, cfg.NodeID, e)
	if err != nil {
		return nil, err
	}
	e.commitLog = commitLog

	e.broker.Start()
	e.collector = metrics.NewCollector(vectors, graphIdx, commitLog)
	e.collector.Start()

	e.registerBuiltinHealthChecks()
	e.startHealthLoop()

	e.log.Info().Str("data_dir", cfg.DataDir).Int("nouns", len(e.nouns)).Int("verbs", len(e.verbs)).Msg("engine opened")
	return e, nil
}

// loadFromBranch replays the committed noun/verb state at the main
// branch's current ref into the in-memory maps and their vector/metadata/
// graph projections, so a reopened engine resumes where it left off
// without waiting for raft to replay its full log.
func (e *Engine) loadFromBranch() error {
	hash, err := e.objStore.GetRef(mainBranch)
	if err != nil {
		if engerr.Is(err, engerr.NotFound) {
			return nil
		}
		return err
	}
	commit, err := e.objStore.GetCommit(blobstore.Hash(hash))
	if err != nil {
		return err
	}
	tree, err := e.objStore.GetTree(blobstore.Hash(commit.TreeHash))
	if err != nil {
		return err
	}

	for _, entry := range tree.Entries {
		switch {
		case strings.HasPrefix(entry.Name, "nouns/"):
			data, err := e.blobs.Get(blobstore.Hash(entry.Hash))
			if err != nil {
				return err
			}
			var n model.Noun
			if err := json.Unmarshal(data, &n); err != nil {
				return engerr.Wrap("engine.loadFromBranch", engerr.IO, err)
			}
			e.indexNounLocked(n)
		case strings.HasPrefix(entry.Name, "verbs/"):
			data, err := e.blobs.Get(blobstore.Hash(entry.Hash))
			if err != nil {
				return err
			}
			var v model.Verb
			if err := json.Unmarshal(data, &v); err != nil {
				return engerr.Wrap("engine.loadFromBranch", engerr.IO, err)
			}
			if err := e.indexVerbLocked(v); err != nil {
				return err
			}
		case entry.Name == migrationStatePath:
			data, err := e.blobs.Get(blobstore.Hash(entry.Hash))
			if err != nil {
				return err
			}
			var rec migration.StateRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return engerr.Wrap("engine.loadFromBranch", engerr.IO, err)
			}
			e.migMu.Lock()
			e.migState = rec
			e.migMu.Unlock()
		}
	}
	return nil
}

// registerBuiltinHealthChecks wires the LSM bloom-miss-rate and
// compaction-backlog threshold checkers (sampled against the graph
// adjacency index's stats) and the embedder/commit-log predicate
// checkers, per pkg/health's builtin.go.
func (e *Engine) registerBuiltinHealthChecks() {
	statsFor := func(role string) func() lsm.Stats {
		return func() lsm.Stats {
			all := e.graphIdx.LSMStats()
			return all[role]
		}
	}

	e.RegisterHealthCheck(health.NewBloomMissRateChecker(statsFor("edges_out"), e.cfg.BloomMissRateMax))
	e.RegisterHealthCheck(health.NewCompactionBacklogChecker(statsFor("edges_out"), e.cfg.CompactionBacklogMax))
	e.RegisterHealthCheck(health.NewEmbedderReadyChecker(e.embedder))
	e.RegisterHealthCheck(health.NewCommitLogReadyChecker(e.commitLog))
}

// RegisterHealthCheck adds a checker to the background loop, keyed by its
// own bookkeeping name inferred from its first Check result's message
// prefix is avoided in favor of a stable counter-based key.
func (e *Engine) RegisterHealthCheck(c health.Checker) {
	e.healthMu.Lock()
	defer e.healthMu.Unlock()
	name := fmt.Sprintf("%s-%d", c.Type(), len(e.checkers))
	e.checkers[name] = c
	e.statuses[name] = health.NewStatus()
}

func (e *Engine) startHealthLoop() {
	if e.cfg.Health.Interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(e.cfg.Health.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.runHealthChecks()
			case <-e.healthStop:
				return
			}
		}
	}()
}

func (e *Engine) runHealthChecks() {
	e.healthMu.Lock()
	defer e.healthMu.Unlock()
	for name, checker := range e.checkers {
		status := e.statuses[name]
		if status.InStartPeriod(e.cfg.Health) {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Health.Timeout)
		result := checker.Check(ctx)
		cancel()
		status.Update(result, e.cfg.Health)
	}
}

// Health returns engerr.DegradedHealth wrapping the first unhealthy
// checker's message found, or nil if every registered condition is
// healthy (or still within its start period).
func (e *Engine) Health() error {
	e.healthMu.Lock()
	defer e.healthMu.Unlock()
	var names []string
	for name := range e.statuses {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		status := e.statuses[name]
		if !status.Healthy {
			return engerr.New("engine.Health", engerr.DegradedHealth, status.LastResult.Message)
		}
	}
	return nil
}

// Statistics summarizes the engine's live state for observability.
type Statistics struct {
	NounCount      int
	VerbCount      int
	NounsByType    map[nountype.Type]int
	PlannerStats   planner.Snapshot
	IsLeader       bool
}

// GetStatistics snapshots the engine's current size and planner routing
// distribution.
func (e *Engine) GetStatistics() Statistics {
	e.mu.RLock()
	defer e.mu.RUnlock()

	byType := make(map[nountype.Type]int)
	for _, n := range e.nouns {
		if !n.Metadata.Namespace.Deleted {
			byType[n.Type]++
		}
	}

	return Statistics{
		NounCount:    len(e.nouns),
		VerbCount:    len(e.verbs),
		NounsByType:  byType,
		PlannerStats: e.planner.Stats().Snapshot(),
		IsLeader:     e.commitLog.IsLeader(),
	}
}

// Subscribe returns a channel of domain events (noun/verb mutations,
// compaction, rebuild, migration lifecycle).
func (e *Engine) Subscribe() events.Subscriber { return e.broker.Subscribe() }

// Unsubscribe removes a previously-returned subscription.
func (e *Engine) Unsubscribe(sub events.Subscriber) { e.broker.Unsubscribe(sub) }

// Flush forces every adjacency LSM's active memtable to an SSTable,
// regardless of its fill threshold.
func (e *Engine) Flush() error {
	return e.graphIdx.Flush()
}

// Close stops background loops and releases every open file handle.
// Close is idempotent.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.healthStop)
		e.collector.Stop()
		e.broker.Stop()
		if cerr := e.commitLog.Close(); cerr != nil {
			err = cerr
		}
		if cerr := e.objStore.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if cerr := e.blobs.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}
