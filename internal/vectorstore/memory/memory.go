package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"videorag/internal/domain"
)

// Storage is an in-memory brute-force index using squared Euclidean distance
// over raw vectors. No normalisation is applied, so results are only
// meaningful when the embedder produces comparably scaled vectors.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
}

func NewStorage(dimension int) (*Storage, error) {
	if dimension <= 0 {
		return nil, errors.New("invalid dimension")
	}
	return &Storage{dimension: dimension}, nil
}

func (s *Storage) Dimension() int { return s.dimension }

// Add appends vectors. Either all vectors are added or none.
func (s *Storage) Add(_ context.Context, vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(v), s.dimension)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		s.vectors = append(s.vectors, slices.Clone(v))
	}
	return nil
}

// Search returns up to k hits ordered by ascending distance, ties broken by
// ascending index.
func (s *Storage) Search(_ context.Context, query []float32, k int) ([]domain.SearchHit, error) {
	if len(query) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), s.dimension)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 || len(s.vectors) == 0 {
		return []domain.SearchHit{}, nil
	}
	hits := make([]domain.SearchHit, len(s.vectors))
	for i, v := range s.vectors {
		hits[i] = domain.SearchHit{Index: i, Distance: squaredL2(query, v)}
	}
	slices.SortFunc(hits, func(a, b domain.SearchHit) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func (s *Storage) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	return nil
}

func (s *Storage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

func (s *Storage) Close() error { return nil }

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
