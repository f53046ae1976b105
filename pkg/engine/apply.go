package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cuemby/noundb/pkg/commitlog"
	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/events"
	"github.com/cuemby/noundb/pkg/migration"
	"github.com/cuemby/noundb/pkg/model"
)

// Command ops: one string tag per mutation, dispatched from Apply by a
// switch on cmd.Op.
const (
	opPutNoun       = "put_noun"
	opDeleteNoun    = "delete_noun"
	opPutVerb       = "put_verb"
	opDeleteVerb    = "delete_verb"
	opSetMetadata   = "set_metadata"
	opSetMigration  = "set_migration_state"
)

// Apply implements commitlog.Applier. It is invoked once per raft-
// committed Command, in log order, and must be deterministic: the same
// sequence of commands replayed on another node (or after a restart)
// must produce the same state.
func (e *Engine) Apply(cmd commitlog.Command) error {
	switch cmd.Op {
	case opPutNoun:
		var n model.Noun
		if err := json.Unmarshal(cmd.Data, &n); err != nil {
			return engerr.Wrap("engine.Apply", engerr.IO, err)
		}
		return e.applyPutNoun(n)
	case opDeleteNoun:
		var id string
		if err := json.Unmarshal(cmd.Data, &id); err != nil {
			return engerr.Wrap("engine.Apply", engerr.IO, err)
		}
		return e.applyDeleteNoun(id)
	case opPutVerb:
		var v model.Verb
		if err := json.Unmarshal(cmd.Data, &v); err != nil {
			return engerr.Wrap("engine.Apply", engerr.IO, err)
		}
		return e.applyPutVerb(v)
	case opDeleteVerb:
		var id string
		if err := json.Unmarshal(cmd.Data, &id); err != nil {
			return engerr.Wrap("engine.Apply", engerr.IO, err)
		}
		return e.applyDeleteVerb(id)
	case opSetMetadata:
		var payload setMetadataPayload
		if err := json.Unmarshal(cmd.Data, &payload); err != nil {
			return engerr.Wrap("engine.Apply", engerr.IO, err)
		}
		return e.applySetMetadata(payload)
	case opSetMigration:
		var rec migration.StateRecord
		if err := json.Unmarshal(cmd.Data, &rec); err != nil {
			return engerr.Wrap("engine.Apply", engerr.IO, err)
		}
		return e.applySetMigrationState(rec)
	default:
		return engerr.New("engine.Apply", engerr.InvalidArgument, fmt.Sprintf("unknown op %q", cmd.Op))
	}
}

// snapshotState is the deterministic, JSON-serializable view of the
// engine's in-memory state that raft's Snapshot/Restore cycle persists so
// a restart doesn't have to replay the full log from index zero.
type snapshotState struct {
	Nouns    map[string]model.Noun    `json:"nouns"`
	Verbs    map[string]model.Verb    `json:"verbs"`
	MigState migration.StateRecord    `json:"migration_state"`
}

// Snapshot implements commitlog.Applier.
func (e *Engine) Snapshot() ([]byte, error) {
	e.mu.RLock()
	nouns := make(map[string]model.Noun, len(e.nouns))
	for id, n := range e.nouns {
		nouns[id] = n
	}
	verbs := make(map[string]model.Verb, len(e.verbs))
	for id, v := range e.verbs {
		verbs[id] = v
	}
	e.mu.RUnlock()

	e.migMu.Lock()
	mig := e.migState
	e.migMu.Unlock()

	return json.Marshal(snapshotState{Nouns: nouns, Verbs: verbs, MigState: mig})
}

// Restore implements commitlog.Applier, replacing the engine's entire
// in-memory and index state with the snapshot's contents.
func (e *Engine) Restore(data []byte) error {
	var state snapshotState
	if err := json.Unmarshal(data, &state); err != nil {
		return engerr.Wrap("engine.Restore", engerr.IO, err)
	}

	e.mu.Lock()
	e.nouns = make(map[string]model.Noun, len(state.Nouns))
	e.verbs = make(map[string]model.Verb, len(state.Verbs))
	e.mu.Unlock()

	for _, n := range state.Nouns {
		e.indexNounLocked(n)
	}
	for _, v := range state.Verbs {
		if err := e.indexVerbLocked(v); err != nil {
			return err
		}
	}

	e.migMu.Lock()
	e.migState = state.MigState
	e.migMu.Unlock()
	return nil
}

func (e *Engine) applyPutNoun(n model.Noun) error {
	if err := e.persistNoun(n); err != nil {
		return err
	}
	e.indexNounLocked(n)
	e.broker.Publish(&events.Event{Type: events.EventNounCreated, Message: n.ID})
	return nil
}

func (e *Engine) applyDeleteNoun(id string) error {
	e.mu.Lock()
	n, ok := e.nouns[id]
	if !ok {
		e.mu.Unlock()
		return engerr.New("engine.applyDeleteNoun", engerr.NotFound, id)
	}
	n.Metadata.Namespace.Deleted = true
	e.nouns[id] = n
	e.mu.Unlock()

	e.nounMeta.Put(id, n.Metadata)
	if err := e.persistNoun(n); err != nil {
		return err
	}
	e.broker.Publish(&events.Event{Type: events.EventNounDeleted, Message: id})
	return nil
}

func (e *Engine) applyPutVerb(v model.Verb) error {
	if err := e.persistVerb(v); err != nil {
		return err
	}
	if err := e.indexVerbLocked(v); err != nil {
		return err
	}
	e.broker.Publish(&events.Event{Type: events.EventVerbCreated, Message: v.ID})
	return nil
}

func (e *Engine) applyDeleteVerb(id string) error {
	e.mu.Lock()
	_, ok := e.verbs[id]
	e.mu.Unlock()
	if !ok {
		return engerr.New("engine.applyDeleteVerb", engerr.NotFound, id)
	}

	if err := e.graphIdx.RemoveVerb(context.Background(), id); err != nil {
		return err
	}
	e.verbMeta.Delete(id)
	e.mu.Lock()
	delete(e.verbs, id)
	e.mu.Unlock()
	e.branch.Remove(verbPath(id))
	if _, err := e.branch.Commit("engine", "delete verb "+id); err != nil {
		return err
	}
	e.broker.Publish(&events.Event{Type: events.EventVerbDeleted, Message: id})
	return nil
}

// indexNounLocked updates the in-memory map, HNSW partition, and
// metadata postings for n. Callers must already have persisted n.
func (e *Engine) indexNounLocked(n model.Noun) {
	e.mu.Lock()
	e.nouns[n.ID] = n
	e.mu.Unlock()

	if len(n.Vector) > 0 {
		_ = e.vectors.Insert(n.Type, n.ID, n.Vector)
	}
	e.nounMeta.Put(n.ID, n.Metadata)
}

// indexVerbLocked updates the in-memory map, graph adjacency, and
// metadata postings for v. Callers must already have persisted v.
func (e *Engine) indexVerbLocked(v model.Verb) error {
	e.mu.Lock()
	e.verbs[v.ID] = v
	e.mu.Unlock()

	if err := e.graphIdx.AddVerb(v); err != nil {
		return err
	}
	e.verbMeta.Put(v.ID, v.Metadata)
	return nil
}

func nounPath(id string) string { return "nouns/" + id }
func verbPath(id string) string { return "verbs/" + id }

// persistNoun writes n's JSON representation into the main branch and
// commits immediately, so every Apply call leaves the object store
// consistent with the in-memory state it just updated.
func (e *Engine) persistNoun(n model.Noun) error {
	data, err := json.Marshal(n)
	if err != nil {
		return engerr.Wrap("engine.persistNoun", engerr.IO, err)
	}
	hash, err := e.blobs.Put(data)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.branch.Write(nounPath(n.ID), string(hash))
	_, err = e.branch.Commit("engine", "put noun "+n.ID)
	e.mu.Unlock()
	return err
}

func (e *Engine) persistVerb(v model.Verb) error {
	data, err := json.Marshal(v)
	if err != nil {
		return engerr.Wrap("engine.persistVerb", engerr.IO, err)
	}
	hash, err := e.blobs.Put(data)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.branch.Write(verbPath(v.ID), string(hash))
	_, err = e.branch.Commit("engine", "put verb "+v.ID)
	e.mu.Unlock()
	return err
}
