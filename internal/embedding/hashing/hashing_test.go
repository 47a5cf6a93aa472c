package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videorag/internal/embedding"
)

func TestEmbedder_LengthAndDimension(t *testing.T) {
	e := NewEmbedder(0)
	ctx := context.Background()
	assert.Equal(t, embedding.DefaultDimension, e.Dimension())

	for _, texts := range [][]string{
		{},
		{""},
		{"a"},
		{"", "hello world", "the"},
		{"first chunk of speech", "second chunk", "third"},
	} {
		vecs, err := e.Embed(ctx, texts)
		require.NoError(t, err)
		require.Len(t, vecs, len(texts))
		require.NoError(t, embedding.CheckBatch(texts, vecs, e.Dimension()))
	}
}

func TestEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	vecs, err := NewEmbedder(8).Embed(context.Background(), []string{"", "   ", "the of and"})
	require.NoError(t, err)
	for _, v := range vecs {
		assert.Equal(t, make([]float32, 8), v)
	}
}

func TestEmbedder_BatchInvariant(t *testing.T) {
	e := NewEmbedder(64)
	ctx := context.Background()
	pair, err := e.Embed(ctx, []string{"gradient descent converges", "learning rate schedule"})
	require.NoError(t, err)
	single, err := e.Embed(ctx, []string{"gradient descent converges"})
	require.NoError(t, err)
	assert.Equal(t, single[0], pair[0])
}

func TestEmbedder_Deterministic(t *testing.T) {
	ctx := context.Background()
	a, err := NewEmbedder(32).Embed(ctx, []string{"neural networks"})
	require.NoError(t, err)
	b, err := NewEmbedder(32).Embed(ctx, []string{"neural networks"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmbedder_UnitLength(t *testing.T) {
	vecs, err := NewEmbedder(0).Embed(context.Background(), []string{"photosynthesis converts light into energy"})
	require.NoError(t, err)
	var sum float64
	for _, x := range vecs[0] {
		sum += float64(x * x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestEmbedder_SimilarTextsAreCloser(t *testing.T) {
	e := NewEmbedder(0)
	vecs, err := e.Embed(context.Background(), []string{
		"the rocket engine burns liquid oxygen",
		"liquid oxygen feeds the rocket engine",
		"bake the bread at two hundred degrees",
	})
	require.NoError(t, err)
	assert.Less(t, sqDist(vecs[0], vecs[1]), sqDist(vecs[0], vecs[2]))
}

func sqDist(a, b []float32) float64 {
	var d float64
	for i := range a {
		x := float64(a[i] - b[i])
		d += x * x
	}
	return d
}
