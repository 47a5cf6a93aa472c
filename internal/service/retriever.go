package service

import (
	"context"

	"videorag/internal/domain"
)

// Retrieve embeds query and returns up to k indexed chunks ordered by
// ascending distance. An empty session yields no chunks and no error.
func (s *Session) Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		k = s.settings.TopK
	}
	if s.empty() {
		return nil, nil
	}
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, wrapAs(domain.ErrEmbeddingUnavailable, err)
	}
	if len(vecs) != 1 {
		return nil, wrapAs(domain.ErrEmbeddingUnavailable, errOneVector)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	hits, err := s.index.Search(ctx, vecs[0], k)
	if err != nil {
		return nil, err
	}
	out := make([]domain.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		ch, ok := chunkAt(s.chunks, h.Index)
		if !ok {
			continue
		}
		out = append(out, domain.RetrievedChunk{Chunk: ch, Distance: h.Distance})
	}
	return out, nil
}

func (s *Session) empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks) == 0 || s.index.Size() == 0
}

// chunkAt is a bounds-checked lookup; an index hit past the chunk list
// yields no match.
func chunkAt(chunks []domain.Chunk, i int) (domain.Chunk, bool) {
	if i < 0 || i >= len(chunks) {
		return domain.Chunk{}, false
	}
	return chunks[i], true
}
