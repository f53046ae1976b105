// Package version maintains an append-only history of entity metadata
// snapshots. Per spec, version records are themselves stored as nouns
// of type "state" with an internal `_isVersion: true` marker so they
// inherit the metadata index and commit ordering for free; this package
// only needs an EntityStore to create/find those nouns and to read/write
// the live entity's metadata, plus a blob store to content-address each
// snapshot.
package version

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/cuemby/noundb/pkg/blobstore"
	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/model"
	"github.com/cuemby/noundb/pkg/nountype"
)

// Metadata field keys a version record is flattened into on its backing
// State noun. fieldIsVersion matches spec's literal `_isVersion` flag name;
// the rest follow the same dotted-path convention pkg/metadata's own
// internal `_brainy.*` fields use.
const (
	fieldIsVersion   = "_isVersion"
	fieldEntityID    = "_version.entityId"
	fieldBranch      = "_version.branch"
	fieldNumber      = "_version.number"
	fieldContentHash = "_version.contentHash"
	fieldCommitHash  = "_version.commitHash"
	fieldTimestamp   = "_version.timestamp"
	fieldTag         = "_version.tag"
	fieldAuthor      = "_version.author"
	fieldDescription = "_version.description"
)

// EntityStore is the surface version needs over the live entity store,
// implemented by pkg/engine: GetMetadata/SetMetadata read and overwrite an
// entity's current state, while Add/Find/Delete let version records ride
// as ordinary nouns through the same commit log and metadata index every
// other noun goes through.
type EntityStore interface {
	GetMetadata(ctx context.Context, id string) (model.Metadata, error)
	SetMetadata(ctx context.Context, id string, meta model.Metadata) error
	Add(ctx context.Context, n model.Noun) (model.Noun, error)
	Find(ctx context.Context, field string, value model.Value) ([]model.Noun, error)
	Delete(ctx context.Context, id string) error
}

// Record is one append-only version snapshot.
type Record struct {
	EntityID    string
	Branch      string
	Version     int
	ContentHash blobstore.Hash
	CommitHash  string
	Timestamp   time.Time
	Tag         string
	Author      string
	Description string
}

// SaveOptions are the optional fields attached to a new version record.
type SaveOptions struct {
	Tag         string
	Author      string
	Description string
}

// Index is the version history store for one logical collection of
// entities.
type Index struct {
	mu       sync.Mutex
	blobs    *blobstore.Store
	entities EntityStore
}

// Open returns a version history store backed by entities. There is no
// on-disk state of its own to load: every record lives as a State noun in
// entities, so reopening the engine reconstructs history for free along
// with everything else loadFromBranch replays.
func Open(blobs *blobstore.Store, entities EntityStore) (*Index, error) {
	return &Index{blobs: blobs, entities: entities}, nil
}

// recordNoun pairs a decoded Record with the backing noun's ID, needed by
// Prune to soft-delete the nouns it drops.
type recordNoun struct {
	id  string
	rec Record
}

// listNouns returns every version record for entityID on branch, oldest
// first, paired with the backing noun ID so callers can delete it.
func (idx *Index) listNouns(ctx context.Context, entityID, branch string) ([]recordNoun, error) {
	nouns, err := idx.entities.Find(ctx, fieldEntityID, model.StringValue(entityID))
	if err != nil {
		return nil, err
	}
	var records []recordNoun
	for _, n := range nouns {
		if n.Metadata.Fields[fieldBranch].Str != branch {
			continue
		}
		records = append(records, recordNoun{id: n.ID, rec: recordFromFields(n.Metadata.Fields)})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].rec.Version < records[j].rec.Version })
	return records, nil
}

// list returns every version record for entityID on branch, oldest first.
func (idx *Index) list(ctx context.Context, entityID, branch string) ([]Record, error) {
	records, err := idx.listNouns(ctx, entityID, branch)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.rec
	}
	return out, nil
}

func fieldsFromRecord(rec Record) map[string]model.Value {
	return map[string]model.Value{
		fieldIsVersion:   model.BoolValue(true),
		fieldEntityID:    model.StringValue(rec.EntityID),
		fieldBranch:      model.StringValue(rec.Branch),
		fieldNumber:      model.IntValue(int64(rec.Version)),
		fieldContentHash: model.StringValue(string(rec.ContentHash)),
		fieldCommitHash:  model.StringValue(rec.CommitHash),
		fieldTimestamp:   model.TimeValue(rec.Timestamp),
		fieldTag:         model.StringValue(rec.Tag),
		fieldAuthor:      model.StringValue(rec.Author),
		fieldDescription: model.StringValue(rec.Description),
	}
}

func recordFromFields(fields map[string]model.Value) Record {
	return Record{
		EntityID:    fields[fieldEntityID].Str,
		Branch:      fields[fieldBranch].Str,
		Version:     int(fields[fieldNumber].Int),
		ContentHash: blobstore.Hash(fields[fieldContentHash].Str),
		CommitHash:  fields[fieldCommitHash].Str,
		Timestamp:   fields[fieldTimestamp].Time,
		Tag:         fields[fieldTag].Str,
		Author:      fields[fieldAuthor].Str,
		Description: fields[fieldDescription].Str,
	}
}

// Save computes the content hash of the entity's current metadata (via
// the blob store, so dedup is exact regardless of hash algorithm
// configured); if it matches the last stored content hash for entityID
// on branch, the existing (deduplicated) record is returned unchanged.
// Otherwise a new version is appended as a State noun flagged
// `_isVersion: true`. commitHash is the commit the caller just made this
// entity's state durable under.
func (idx *Index) Save(ctx context.Context, entityID, branch, commitHash string, opts SaveOptions) (Record, error) {
	meta, err := idx.entities.GetMetadata(ctx, entityID)
	if err != nil {
		return Record{}, err
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return Record{}, engerr.Wrap("version.Save", engerr.IO, err)
	}
	hash, err := idx.blobs.Put(raw)
	if err != nil {
		return Record{}, err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	existing, err := idx.list(ctx, entityID, branch)
	if err != nil {
		return Record{}, err
	}
	if len(existing) > 0 && existing[len(existing)-1].ContentHash == hash {
		return existing[len(existing)-1], nil
	}

	rec := Record{
		EntityID:    entityID,
		Branch:      branch,
		Version:     len(existing) + 1,
		ContentHash: hash,
		CommitHash:  commitHash,
		Timestamp:   time.Now().UTC(),
		Tag:         opts.Tag,
		Author:      opts.Author,
		Description: opts.Description,
	}
	if _, err := idx.entities.Add(ctx, model.Noun{
		Type:     nountype.State,
		Metadata: model.Metadata{Fields: fieldsFromRecord(rec)},
	}); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// List returns every version recorded for entityID on branch, oldest
// first.
func (idx *Index) List(ctx context.Context, entityID, branch string) ([]Record, error) {
	return idx.list(ctx, entityID, branch)
}

// GetVersion returns the record for a specific version number.
func (idx *Index) GetVersion(ctx context.Context, entityID, branch string, v int) (Record, error) {
	records, err := idx.list(ctx, entityID, branch)
	if err != nil {
		return Record{}, err
	}
	for _, r := range records {
		if r.Version == v {
			return r, nil
		}
	}
	return Record{}, engerr.New("version.GetVersion", engerr.NotFound, "no such version")
}

// GetVersionByTag returns the most recent record carrying tag.
func (idx *Index) GetVersionByTag(ctx context.Context, entityID, branch, tag string) (Record, error) {
	records, err := idx.list(ctx, entityID, branch)
	if err != nil {
		return Record{}, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Tag == tag {
			return records[i], nil
		}
	}
	return Record{}, engerr.New("version.GetVersionByTag", engerr.NotFound, "no version with tag "+tag)
}

// GetLatest returns the newest version record.
func (idx *Index) GetLatest(ctx context.Context, entityID, branch string) (Record, error) {
	records, err := idx.list(ctx, entityID, branch)
	if err != nil {
		return Record{}, err
	}
	if len(records) == 0 {
		return Record{}, engerr.New("version.GetLatest", engerr.NotFound, "no versions recorded")
	}
	return records[len(records)-1], nil
}

// GetContent resolves the stored metadata snapshot for version v.
func (idx *Index) GetContent(ctx context.Context, entityID, branch string, v int) (model.Metadata, error) {
	rec, err := idx.GetVersion(ctx, entityID, branch, v)
	if err != nil {
		return model.Metadata{}, err
	}
	raw, err := idx.blobs.Get(rec.ContentHash)
	if err != nil {
		return model.Metadata{}, err
	}
	var meta model.Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return model.Metadata{}, engerr.Wrap("version.GetContent", engerr.IO, err)
	}
	return meta, nil
}
