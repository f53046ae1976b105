package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/events"
	"github.com/cuemby/noundb/pkg/model"
	"github.com/cuemby/noundb/pkg/nountype"
	"github.com/cuemby/noundb/pkg/verbtype"
)

const defaultRelateManyChunkSize = 500

// Add inserts a new noun, assigning an ID if n.ID is empty and stamping
// Namespace.Created/Updated. The call returns once the write has
// committed through the commit log.
func (e *Engine) Add(ctx context.Context, n model.Noun) (model.Noun, error) {
	if !nountype.Valid(n.Type) {
		return model.Noun{}, engerr.New("engine.Add", engerr.InvalidType, string(n.Type))
	}
	if len(n.Vector) != 0 && len(n.Vector) != e.cfg.Dimension {
		return model.Noun{}, engerr.New("engine.Add", engerr.DimensionMismatch, "vector dimension mismatch")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now
	n.Metadata.Namespace.Created = now
	n.Metadata.Namespace.Updated = now
	n.Metadata.Namespace.Version = 1
	n.Metadata.Namespace.Indexed = true

	if err := e.commitLog.Apply(ctx, opPutNoun, n); err != nil {
		return model.Noun{}, err
	}
	return n, nil
}

// Update replaces an existing noun's mutable fields (vector, confidence,
// weight, metadata fields) and bumps Namespace.Version. The noun must
// already exist.
func (e *Engine) Update(ctx context.Context, n model.Noun) (model.Noun, error) {
	e.mu.RLock()
	existing, ok := e.nouns[n.ID]
	e.mu.RUnlock()
	if !ok {
		return model.Noun{}, engerr.New("engine.Update", engerr.NotFound, n.ID)
	}
	if len(n.Vector) != 0 && len(n.Vector) != e.cfg.Dimension {
		return model.Noun{}, engerr.New("engine.Update", engerr.DimensionMismatch, "vector dimension mismatch")
	}

	n.Type = existing.Type // type changes require delete+insert, per spec
	n.CreatedAt = existing.CreatedAt
	n.UpdatedAt = time.Now().UTC()
	n.Metadata.Namespace.Created = existing.Metadata.Namespace.Created
	n.Metadata.Namespace.Updated = n.UpdatedAt
	n.Metadata.Namespace.Version = existing.Metadata.Namespace.Version + 1
	n.Metadata.Namespace.Indexed = true

	if err := e.commitLog.Apply(ctx, opPutNoun, n); err != nil {
		return model.Noun{}, err
	}
	e.broker.Publish(&events.Event{Type: events.EventNounUpdated, Message: n.ID})
	return n, nil
}

// Get returns the current state of noun id, or engerr.NotFound.
// Soft-deleted nouns are still returned so callers can inspect
// Metadata.Namespace.Deleted explicitly.
func (e *Engine) Get(ctx context.Context, id string) (model.Noun, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n, ok := e.nouns[id]
	if !ok {
		return model.Noun{}, engerr.New("engine.Get", engerr.NotFound, id)
	}
	return n, nil
}

// Delete soft-deletes noun id: Metadata.Namespace.Deleted flips true, but
// the noun and its outgoing/incoming verbs remain retrievable by ID.
func (e *Engine) Delete(ctx context.Context, id string) error {
	return e.commitLog.Apply(ctx, opDeleteNoun, id)
}

// Relate inserts a new verb between two existing nouns.
func (e *Engine) Relate(ctx context.Context, v model.Verb) (model.Verb, error) {
	if !verbtype.Valid(v.Type) {
		return model.Verb{}, engerr.New("engine.Relate", engerr.InvalidType, string(v.Type))
	}
	if _, err := e.Get(ctx, v.Source); err != nil {
		return model.Verb{}, err
	}
	if _, err := e.Get(ctx, v.Target); err != nil {
		return model.Verb{}, err
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.Metadata.Namespace.Created = time.Now().UTC()
	v.Metadata.Namespace.Updated = v.Metadata.Namespace.Created
	v.Metadata.Namespace.Version = 1
	v.Metadata.Namespace.Indexed = true

	if err := e.commitLog.Apply(ctx, opPutVerb, v); err != nil {
		return model.Verb{}, err
	}
	return v, nil
}

// RelateManyOptions tunes RelateMany's batching, error tolerance, and
// progress reporting.
type RelateManyOptions struct {
	// ChunkSize bounds how many verbs are inserted between cancellation
	// checks and progress reports. <= 0 falls back to
	// defaultRelateManyChunkSize.
	ChunkSize int
	// ContinueOnError keeps processing subsequent chunks after a chunk
	// contains at least one failed verb. When false, RelateMany returns
	// after the first chunk with any error.
	ContinueOnError bool
	// Parallel inserts the verbs within a chunk concurrently instead of
	// one at a time. Chunk boundaries (and thus cancellation checks and
	// progress reports) are unaffected.
	Parallel bool
	// OnProgress, if set, is called once per completed chunk.
	OnProgress events.ProgressFunc
}

// RelateMany inserts verbs in bounded chunks, collecting individual
// errors instead of aborting the whole batch on the first failure unless
// opts.ContinueOnError is false. Cancellation is honored at chunk
// boundaries only, per the cooperative batch-quantum scheduling model:
// a chunk already in flight runs to completion.
func (e *Engine) RelateMany(ctx context.Context, verbs []model.Verb, opts RelateManyOptions) ([]model.Verb, []error) {
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultRelateManyChunkSize
	}
	reporter := events.NewProgressReporter("relate_many", int64(len(verbs)), opts.OnProgress)

	out := make([]model.Verb, 0, len(verbs))
	var errs []error

	for start := 0; start < len(verbs); start += chunkSize {
		if err := ctx.Err(); err != nil {
			errs = append(errs, engerr.Wrap("engine.RelateMany", engerr.Cancelled, err))
			break
		}

		end := start + chunkSize
		if end > len(verbs) {
			end = len(verbs)
		}
		chunk := verbs[start:end]

		var chunkOut []model.Verb
		var chunkErrs []error
		if opts.Parallel {
			chunkOut, chunkErrs = e.relateChunkParallel(ctx, chunk)
		} else {
			chunkOut, chunkErrs = e.relateChunkSequential(ctx, chunk)
		}
		out = append(out, chunkOut...)
		errs = append(errs, chunkErrs...)

		reporter.Report(int64(len(chunk)), 0, "")

		if len(chunkErrs) > 0 && !opts.ContinueOnError {
			break
		}
	}
	return out, errs
}

func (e *Engine) relateChunkSequential(ctx context.Context, chunk []model.Verb) ([]model.Verb, []error) {
	out := make([]model.Verb, 0, len(chunk))
	var errs []error
	for _, v := range chunk {
		created, err := e.Relate(ctx, v)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, created)
	}
	return out, errs
}

func (e *Engine) relateChunkParallel(ctx context.Context, chunk []model.Verb) ([]model.Verb, []error) {
	type outcome struct {
		verb model.Verb
		err  error
	}
	outcomes := make([]outcome, len(chunk))

	var wg sync.WaitGroup
	wg.Add(len(chunk))
	for i, v := range chunk {
		go func(i int, v model.Verb) {
			defer wg.Done()
			created, err := e.Relate(ctx, v)
			outcomes[i] = outcome{verb: created, err: err}
		}(i, v)
	}
	wg.Wait()

	out := make([]model.Verb, 0, len(chunk))
	var errs []error
	for _, o := range outcomes {
		if o.err != nil {
			errs = append(errs, o.err)
			continue
		}
		out = append(out, o.verb)
	}
	return out, errs
}

// Unrelate removes verb id.
func (e *Engine) Unrelate(ctx context.Context, id string) error {
	return e.commitLog.Apply(ctx, opDeleteVerb, id)
}

// FetchVerb implements graph.VerbFetcher, backing the adjacency index's
// cache-miss path with the engine's own in-memory verb store.
func (e *Engine) FetchVerb(ctx context.Context, id string) (model.Verb, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.verbs[id]
	if !ok {
		return model.Verb{}, engerr.New("engine.FetchVerb", engerr.NotFound, id)
	}
	return v, nil
}

// AllVerbs implements graph.VerbSource, yielding every live verb for a
// full adjacency rebuild.
func (e *Engine) AllVerbs(ctx context.Context, yield func(model.Verb) error) error {
	e.mu.RLock()
	verbs := make([]model.Verb, 0, len(e.verbs))
	for _, v := range e.verbs {
		verbs = append(verbs, v)
	}
	e.mu.RUnlock()

	for _, v := range verbs {
		if err := ctx.Err(); err != nil {
			return engerr.Wrap("engine.AllVerbs", engerr.Cancelled, err)
		}
		if err := yield(v); err != nil {
			return err
		}
	}
	return nil
}
