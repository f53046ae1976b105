package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/noundb/pkg/model"
)

func noun(typ string, deleted bool, created time.Time) model.Metadata {
	return model.Metadata{
		Namespace: model.Namespace{Deleted: deleted, Indexed: true, Version: 1, Created: created, Updated: created},
		Fields:    map[string]model.Value{"type": model.StringValue(typ)},
	}
}

func TestEqualsMatchesField(t *testing.T) {
	idx := Open(Options{})
	idx.Put("a", noun("Person", false, time.Unix(100, 0)))
	idx.Put("b", noun("Organization", false, time.Unix(100, 0)))

	bm := idx.Equals("type", model.StringValue("Person"))
	assert.Equal(t, []string{"a"}, idx.IDs(bm))
}

func TestAlwaysIndexedDeletedField(t *testing.T) {
	idx := Open(Options{})
	idx.Put("a", noun("Person", false, time.Unix(100, 0)))
	idx.Put("b", noun("Person", true, time.Unix(100, 0)))

	live := idx.Equals(FieldDeleted, model.BoolValue(false))
	assert.Equal(t, []string{"a"}, idx.IDs(live))
}

func TestPutRetractsStalePostingsOnUpdate(t *testing.T) {
	idx := Open(Options{})
	idx.Put("a", noun("Person", false, time.Unix(100, 0)))
	idx.Put("a", noun("Organization", false, time.Unix(100, 0)))

	assert.Empty(t, idx.IDs(idx.Equals("type", model.StringValue("Person"))))
	assert.Equal(t, []string{"a"}, idx.IDs(idx.Equals("type", model.StringValue("Organization"))))
}

func TestRangeOnDeclaredSortedField(t *testing.T) {
	idx := Open(Options{})
	idx.Put("old", noun("Person", false, time.Unix(100, 0)))
	idx.Put("mid", noun("Person", false, time.Unix(200, 0)))
	idx.Put("new", noun("Person", false, time.Unix(300, 0)))

	bm, err := idx.RangeTime(FieldCreated, time.Unix(150, 0), time.Unix(250, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"mid"}, idx.IDs(bm))
}

func TestRangeOnUndeclaredFieldErrors(t *testing.T) {
	idx := Open(Options{})
	_, err := idx.Range("not_sorted", 0, 1)
	require.Error(t, err)
}

func TestDeleteRemovesFromPostings(t *testing.T) {
	idx := Open(Options{})
	idx.Put("a", noun("Person", false, time.Unix(100, 0)))
	idx.Delete("a")
	assert.Empty(t, idx.IDs(idx.Equals("type", model.StringValue("Person"))))
}

func TestCustomSortedField(t *testing.T) {
	idx := Open(Options{SortedFields: []string{"priority"}})
	meta := noun("Task", false, time.Unix(100, 0))
	meta.Fields["priority"] = model.IntValue(5)
	idx.Put("a", meta)

	bm, err := idx.Range("priority", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, idx.IDs(bm))
}
