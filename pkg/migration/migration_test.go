package migration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/noundb/pkg/engerr"
	"github.com/cuemby/noundb/pkg/model"
)

type memSource struct {
	mu      sync.Mutex
	records []EntityRef
	saved   map[string]model.Metadata
}

func newMemSource(records []EntityRef) *memSource {
	return &memSource{records: records, saved: make(map[string]model.Metadata)}
}

func (s *memSource) Scan(ctx context.Context, branch string, offset, batchSize int) ([]EntityRef, int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offset >= len(s.records) {
		return nil, offset, false, nil
	}
	end := offset + batchSize
	if end > len(s.records) {
		end = len(s.records)
	}
	return s.records[offset:end], end, end < len(s.records), nil
}

func (s *memSource) SaveMetadata(ctx context.Context, branch, id string, meta model.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[id] = meta
	return nil
}

type memState struct {
	mu    sync.Mutex
	state StateRecord
	set   bool
}

func (s *memState) GetState(ctx context.Context, branch string) (StateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return StateRecord{}, engerr.New("memState.GetState", engerr.NotFound, "no state")
	}
	return s.state, nil
}

func (s *memState) SetState(ctx context.Context, branch string, state StateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.set = true
	return nil
}

func upperCaseName(meta model.Metadata) (*model.Metadata, error) {
	name, ok := meta.Fields["name"]
	if !ok {
		return nil, nil
	}
	upper := strings_ToUpper(name.Str)
	if upper == name.Str {
		return nil, nil
	}
	next := meta.Clone()
	next.Fields["name"] = model.StringValue(upper)
	return &next, nil
}

func strings_ToUpper(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'a' && c <= 'z' {
			out[i] = c - 'a' + 'A'
		}
	}
	return string(out)
}

func TestRunAppliesTransformAndCompletes(t *testing.T) {
	source := newMemSource([]EntityRef{
		{ID: "a", Metadata: model.Metadata{Fields: map[string]model.Value{"name": model.StringValue("alice")}}},
		{ID: "b", Metadata: model.Metadata{Fields: map[string]model.Value{"name": model.StringValue("BOB")}}},
	})
	state := &memState{}
	runner := New(source, state, 0)

	result, err := runner.Run(context.Background(), Migration{ID: "m1", Transform: upperCaseName}, "main", 10)
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Changed)
	assert.Equal(t, "ALICE", source.saved["a"].Fields["name"].Str)
}

func TestRunIsNoOpWhenAlreadyCompleted(t *testing.T) {
	source := newMemSource([]EntityRef{{ID: "a", Metadata: model.Metadata{Fields: map[string]model.Value{"name": model.StringValue("x")}}}})
	state := &memState{}
	runner := New(source, state, 0)

	_, err := runner.Run(context.Background(), Migration{ID: "m1", Transform: upperCaseName}, "main", 10)
	require.NoError(t, err)

	result, err := runner.Run(context.Background(), Migration{ID: "m1", Transform: upperCaseName}, "main", 10)
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Zero(t, result.Processed)
}

func TestRunCollectsErrorsWithoutAbortingUnderMaxErrors(t *testing.T) {
	source := newMemSource([]EntityRef{
		{ID: "a", Metadata: model.Metadata{Fields: map[string]model.Value{"name": model.StringValue("x")}}},
		{ID: "b", Metadata: model.Metadata{Fields: map[string]model.Value{"name": model.StringValue("y")}}},
	})
	state := &memState{}
	runner := New(source, state, 5)

	failing := func(meta model.Metadata) (*model.Metadata, error) {
		if meta.Fields["name"].Str == "x" {
			return nil, errors.New("boom")
		}
		return upperCaseName(meta)
	}

	result, err := runner.Run(context.Background(), Migration{ID: "m1", Transform: failing}, "main", 10)
	require.NoError(t, err)
	assert.True(t, result.Completed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "a", result.Errors[0].EntityID)
}

func TestRunExhaustsAfterMaxErrors(t *testing.T) {
	source := newMemSource([]EntityRef{
		{ID: "a", Metadata: model.Metadata{}},
		{ID: "b", Metadata: model.Metadata{}},
	})
	state := &memState{}
	runner := New(source, state, 1)

	alwaysFails := func(meta model.Metadata) (*model.Metadata, error) {
		return nil, errors.New("boom")
	}

	_, err := runner.Run(context.Background(), Migration{ID: "m1", Transform: alwaysFails}, "main", 10)
	require.Error(t, err)
	assert.True(t, engerr.Is(err, engerr.Exhausted))
}

func TestRunResumesFromPersistedOffset(t *testing.T) {
	source := newMemSource([]EntityRef{
		{ID: "a", Metadata: model.Metadata{Fields: map[string]model.Value{"name": model.StringValue("x")}}},
		{ID: "b", Metadata: model.Metadata{Fields: map[string]model.Value{"name": model.StringValue("y")}}},
	})
	state := &memState{}
	require.NoError(t, state.SetState(context.Background(), "main", StateRecord{
		Resume: &ResumeState{MigrationID: "m1", LastProcessedOffset: 1, Branch: "main"},
	}))
	runner := New(source, state, 0)

	result, err := runner.Run(context.Background(), Migration{ID: "m1", Transform: upperCaseName}, "main", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
}

func TestDeprecatedVerbTypeMigrationRewritesRetiredType(t *testing.T) {
	meta := model.Metadata{Fields: map[string]model.Value{
		TypeFieldKey: model.StringValue("WorksAt"),
	}}
	migrated, err := DeprecatedVerbTypeMigration.Transform(meta)
	require.NoError(t, err)
	require.NotNil(t, migrated)
	assert.Equal(t, "WorksWith", migrated.Fields[TypeFieldKey].Str)
}

func TestDeprecatedVerbTypeMigrationIsNoOpForLiveType(t *testing.T) {
	meta := model.Metadata{Fields: map[string]model.Value{
		TypeFieldKey: model.StringValue("WorksWith"),
	}}
	migrated, err := DeprecatedVerbTypeMigration.Transform(meta)
	require.NoError(t, err)
	assert.Nil(t, migrated)
}
