// Package embedding holds helpers shared by the TextEmbedder implementations
// in its subpackages.
package embedding

import (
	"fmt"
	"math"

	"videorag/internal/domain"
)

// DefaultDimension is the output size of all-MiniLM-L6-v2.
const DefaultDimension = 384

// CheckBatch verifies that an embedder returned one vector of the expected
// dimension per input text.
func CheckBatch(texts []string, vectors [][]float32, dimension int) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrEmbeddingUnavailable, len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, expected %d", domain.ErrEmbeddingUnavailable, i, len(v), dimension)
		}
	}
	return nil
}

// NormalizeL2 scales x in place to unit length. Zero vectors are left unchanged.
func NormalizeL2(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(1 / math.Sqrt(sum))
	for i := range x {
		x[i] *= norm
	}
}
