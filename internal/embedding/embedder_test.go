package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videorag/internal/domain"
)

func TestCheckBatch(t *testing.T) {
	require.NoError(t, CheckBatch([]string{"a", "b"}, [][]float32{{1, 2}, {3, 4}}, 2))
	require.NoError(t, CheckBatch(nil, nil, 2))

	err := CheckBatch([]string{"a"}, nil, 2)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	err = CheckBatch([]string{"a"}, [][]float32{{1}}, 2)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0, 0}
	NormalizeL2(zero)
	assert.Equal(t, []float32{0, 0, 0}, zero)

	var norm float64
	w := []float32{1, 1, 1, 1}
	NormalizeL2(w)
	for _, x := range w {
		norm += float64(x * x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}
