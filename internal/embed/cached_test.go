package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedEmbedder_EmbedCachesResults(t *testing.T) {
	ctx := context.Background()
	inner := newFakeEmbedder(4)
	cached := NewCachedEmbedder(inner, 10)

	first, err := cached.Embed(ctx, "what is the warranty period")
	require.NoError(t, err)

	second, err := cached.Embed(ctx, "what is the warranty period")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), inner.embedCalls.Load(), "second call should hit the cache")
}

func TestCachedEmbedder_DifferentTextsMiss(t *testing.T) {
	ctx := context.Background()
	inner := newFakeEmbedder(4)
	cached := NewCachedEmbedder(inner, 10)

	_, err := cached.Embed(ctx, "first query")
	require.NoError(t, err)
	_, err = cached.Embed(ctx, "second query")
	require.NoError(t, err)

	assert.Equal(t, int64(2), inner.embedCalls.Load())
}

func TestCachedEmbedder_EmbedBatchPartialHits(t *testing.T) {
	ctx := context.Background()
	inner := newFakeEmbedder(4)
	cached := NewCachedEmbedder(inner, 10)

	// Warm the cache with one text
	warm, err := cached.Embed(ctx, "cached text")
	require.NoError(t, err)

	vecs, err := cached.EmbedBatch(ctx, []string{"cached text", "new text"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	assert.Equal(t, warm, vecs[0])
	assert.NotNil(t, vecs[1])
	// Only the miss went to the inner embedder
	assert.Equal(t, int64(1), inner.batchCalls.Load())
}

func TestCachedEmbedder_EmbedBatchEmpty(t *testing.T) {
	cached := NewCachedEmbedder(newFakeEmbedder(4), 10)

	vecs, err := cached.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestCachedEmbedder_ErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	inner := newFakeEmbedder(4)
	cached := NewCachedEmbedder(inner, 10)

	inner.fail.Store(true)
	_, err := cached.Embed(ctx, "query")
	require.Error(t, err)

	inner.fail.Store(false)
	vec, err := cached.Embed(ctx, "query")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
}

func TestCachedEmbedder_Passthrough(t *testing.T) {
	inner := newFakeEmbedder(8)
	cached := NewCachedEmbedder(inner, 0) // 0 falls back to default size

	assert.Equal(t, 8, cached.Dimensions())
	assert.Equal(t, "fake-model", cached.ModelName())
	assert.True(t, cached.Available(context.Background()))
	assert.NoError(t, cached.Close())
}
