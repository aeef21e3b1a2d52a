package embedder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	*SimpleEmbedder
	embedCalls int
	batchCalls int
	err        error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.embedCalls++
	if c.err != nil {
		return nil, c.err
	}
	return c.SimpleEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batchCalls++
	return c.SimpleEmbedder.EmbedBatch(ctx, texts)
}

func TestWithCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{SimpleEmbedder: NewSimpleEmbedder(16)}
	e := WithCache(inner, 4, time.Minute)

	first, err := e.Embed(ctx, "stop sign")
	require.NoError(t, err)
	second, err := e.Embed(ctx, "stop sign")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.embedCalls)

	// cached vectors are copies
	second[0] = 42
	third, err := e.Embed(ctx, "stop sign")
	require.NoError(t, err)
	assert.Equal(t, first[0], third[0])

	_, err = e.Embed(ctx, "yield sign")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.embedCalls)

	_, err = e.EmbedBatch(ctx, []string{"stop sign", "stop sign"})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.batchCalls)

	assert.Equal(t, inner.Dimension(), e.Dimension())
	assert.Equal(t, inner.ModelInfo(), e.ModelInfo())
}

func TestWithCacheDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{SimpleEmbedder: NewSimpleEmbedder(8), err: errors.New("rate limited")}
	e := WithCache(inner, 4, time.Minute)

	_, err := e.Embed(ctx, "q")
	assert.Error(t, err)
	_, err = e.Embed(ctx, "q")
	assert.Error(t, err)
	assert.Equal(t, 2, inner.embedCalls)
}

func TestWithCacheDisabled(t *testing.T) {
	inner := NewSimpleEmbedder(8)
	assert.Same(t, inner, WithCache(inner, 0, time.Minute))
	assert.Same(t, inner, WithCache(inner, 10, 0))
	assert.Nil(t, WithCache(nil, 10, time.Minute))
}
