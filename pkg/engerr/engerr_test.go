package engerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap("graph.Put", IO, nil))
}

func TestWrapAndIs(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap("blobstore.Put", IO, cause)
	require.Error(t, err)
	assert.True(t, Is(err, IO))
	assert.False(t, Is(err, NotFound))
	assert.ErrorIs(t, err, cause)
}

func TestKindOf(t *testing.T) {
	err := New("ref.CompareAndSwap", RefConflict, "observed value moved")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, RefConflict, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestErrorMessage(t *testing.T) {
	err := Wrap("hnsw.Search", DimensionMismatch, fmt.Errorf("want 128 got 64"))
	assert.Contains(t, err.Error(), "hnsw.Search")
	assert.Contains(t, err.Error(), "dimension_mismatch")
}

func TestWrapChain(t *testing.T) {
	inner := New("lsm.Get", NotFound, "key absent")
	outer := Wrap("graph.EdgesOut", NotFound, inner)
	assert.True(t, Is(outer, NotFound))
	assert.ErrorIs(t, outer, inner)
}
