// Package commitlog provides the engine's durable, strictly-ordered commit
// application substrate. It wraps hashicorp/raft bootstrapped as a
// single-voter cluster purely for the write-ahead log and FSM-apply
// machinery raft already gives us — there is no multi-node join path and
// no cluster networking; the distributed control plane is out of scope.
package commitlog

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"

	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/log"
)

// Command is one write operation appended to the log, applied to an
// Applier once raft commits it. Op names the mutation the Applier
// dispatches on (pkg/engine uses "put_noun", "delete_noun", "put_verb",
// "delete_verb", "set_metadata", "set_migration_state"); Data carries the
// op-specific payload.
type Command struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data"`
}

// Applier is implemented by the component that owns the engine's durable
// state (pkg/engine, composing pkg/objects/pkg/lsm/pkg/metadata). Apply is
// called once per committed Command, in log order. Snapshot/Restore let
// raft compact its log instead of replaying it from the beginning on
// every restart.
type Applier interface {
	Apply(cmd Command) error
	Snapshot() ([]byte, error)
	Restore(data []byte) error
}

// Log is one commitlog instance: a single-node raft group applying
// Commands to an Applier in order.
type Log struct {
	raft    *raft.Raft
	applier Applier
}

// Open bootstraps (or reopens) a single-voter raft group rooted at
// dataDir, applying committed commands to applier.
func Open(dataDir, nodeID string, applier Applier) (*Log, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, engerr.Wrap("commitlog.Open", engerr.IO, err)
	}

	config := raft.DefaultConfig()
	config.LocalID = raft.ServerID(nodeID)
	// Tuned for fast local commit, not WAN failover — there is only ever
	// one voter, so these mostly bound how quickly Apply can return.
	config.HeartbeatTimeout = 500 * time.Millisecond
	config.ElectionTimeout = 500 * time.Millisecond
	config.CommitTimeout = 50 * time.Millisecond
	config.LeaderLeaseTimeout = 250 * time.Millisecond

	addr, transport := raft.NewInmemTransport(raft.ServerAddress(nodeID))

	snapshotStore, err := raft.NewFileSnapshotStore(dataDir, 2, os.Stderr)
	if err != nil {
		return nil, engerr.Wrap("commitlog.Open", engerr.IO, err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(dataDir, "commitlog-log.db"))
	if err != nil {
		return nil, engerr.Wrap("commitlog.Open", engerr.IO, err)
	}
	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(dataDir, "commitlog-stable.db"))
	if err != nil {
		return nil, engerr.Wrap("commitlog.Open", engerr.IO, err)
	}

	fsm := &raftFSM{applier: applier}
	r, err := raft.NewRaft(config, fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return nil, engerr.Wrap("commitlog.Open", engerr.IO, err)
	}

	hasState, err := raft.HasExistingState(logStore, stableStore, snapshotStore)
	if err != nil {
		return nil, engerr.Wrap("commitlog.Open", engerr.IO, err)
	}
	if !hasState {
		cfg := raft.Configuration{Servers: []raft.Server{{ID: config.LocalID, Address: addr}}}
		if err := r.BootstrapCluster(cfg).Error(); err != nil {
			return nil, engerr.Wrap("commitlog.Open", engerr.IO, err)
		}
		commitlogLog.Info().Str("node_id", nodeID).Msg("bootstrapped single-voter commit log")
	}

	return &Log{raft: r, applier: applier}, nil
}

// Apply appends op/data as a Command, waits for raft to commit it, and
// returns whatever error the Applier's Apply returned. Honors ctx: if ctx
// is cancelled or its deadline passes before the command commits, Apply
// returns engerr.Cancelled without waiting further (the command may still
// commit asynchronously; callers that need certainty should retry with a
// fresh read).
func (l *Log) Apply(ctx context.Context, op string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return engerr.Wrap("commitlog.Apply", engerr.InvalidArgument, err)
	}
	payload, err := json.Marshal(Command{Op: op, Data: raw})
	if err != nil {
		return engerr.Wrap("commitlog.Apply", engerr.InvalidArgument, err)
	}

	timeout := 5 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if remaining := time.Until(dl); remaining > 0 {
			timeout = remaining
		}
	}

	future := l.raft.Apply(payload, timeout)
	done := make(chan error, 1)
	go func() {
		if err := future.Error(); err != nil {
			done <- engerr.Wrap("commitlog.Apply", engerr.IO, err)
			return
		}
		if resp := future.Response(); resp != nil {
			if applyErr, ok := resp.(error); ok && applyErr != nil {
				done <- applyErr
				return
			}
		}
		done <- nil
	}()

	select {
	case <-ctx.Done():
		return engerr.Wrap("commitlog.Apply", engerr.Cancelled, ctx.Err())
	case err := <-done:
		return err
	}
}

// Close shuts the raft node down cleanly.
func (l *Log) Close() error {
	return engerr.Wrap("commitlog.Close", engerr.IO, l.raft.Shutdown().Error())
}

// IsLeader reports whether this node currently holds raft leadership.
func (l *Log) IsLeader() bool {
	return l.raft.State() == raft.Leader
}

// Stats exposes raft's internal counters (last_log_index, applied_index,
// num_peers, ...) for pkg/metrics to poll.
func (l *Log) Stats() map[string]string {
	return l.raft.Stats()
}

// raftFSM adapts an Applier to raft.FSM.
type raftFSM struct {
	applier Applier
}

func (f *raftFSM) Apply(entry *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(entry.Data, &cmd); err != nil {
		return engerr.Wrap("commitlog.fsm.Apply", engerr.IO, err)
	}
	if err := f.applier.Apply(cmd); err != nil {
		return err
	}
	return nil
}

func (f *raftFSM) Snapshot() (raft.FSMSnapshot, error) {
	data, err := f.applier.Snapshot()
	if err != nil {
		return nil, err
	}
	return &fsmSnapshot{data: data}, nil
}

func (f *raftFSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return engerr.Wrap("commitlog.fsm.Restore", engerr.IO, err)
	}
	return f.applier.Restore(data)
}

type fsmSnapshot struct {
	data []byte
}

func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	if _, err := sink.Write(s.data); err != nil {
		sink.Cancel()
		return engerr.Wrap("commitlog.fsmSnapshot.Persist", engerr.IO, err)
	}
	return sink.Close()
}

func (s *fsmSnapshot) Release() {}

var commitlogLog = log.WithComponent("commitlog")
