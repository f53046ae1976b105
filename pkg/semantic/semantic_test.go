package semantic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/noundb/pkg/embed/hashembed"
	"github.com/cuemby/noundb/pkg/nountype"
)

func TestInferTypesMatchesExactKeyword(t *testing.T) {
	idx, err := Open(hashembed.New(32))
	require.NoError(t, err)

	results, err := idx.InferTypes(context.Background(), "Jane is the CEO of the company", Options{})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	var types []nountype.Type
	for _, r := range results {
		types = append(types, r.Type)
	}
	assert.Contains(t, types, nountype.Person)
	assert.Contains(t, types, nountype.Organization)
}

func TestInferTypesRespectsMinConfidence(t *testing.T) {
	idx, err := Open(hashembed.New(32))
	require.NoError(t, err)

	results, err := idx.InferTypes(context.Background(), "ceo", Options{MinConfidence: 0.99})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestInferTypesEmptyTextReturnsEmpty(t *testing.T) {
	idx, err := Open(hashembed.New(32))
	require.NoError(t, err)

	results, err := idx.InferTypes(context.Background(), "", Options{})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = idx.InferTypes(context.Background(), "   ", Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestInferTypesTopNTruncates(t *testing.T) {
	idx, err := Open(hashembed.New(32))
	require.NoError(t, err)

	results, err := idx.InferTypes(context.Background(), "ceo company city meeting contract product project task", Options{TopN: 2})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 2)
}

func TestInferTypesIsIdempotentAcrossCalls(t *testing.T) {
	idx, err := Open(hashembed.New(32))
	require.NoError(t, err)

	first, err := idx.InferTypes(context.Background(), "founder", Options{})
	require.NoError(t, err)
	second, err := idx.InferTypes(context.Background(), "founder", Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
