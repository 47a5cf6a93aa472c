package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"videorag/internal/domain"
	"videorag/internal/embedding"
)

// Ingest fetches, chunks and embeds the transcript for ref, then replaces
// the session's index state. On failure the previous state is kept.
func (s *Session) Ingest(ctx context.Context, ref string) (domain.IngestResult, error) {
	if !s.ingesting.CompareAndSwap(false, true) {
		return domain.IngestResult{}, domain.ErrBusy
	}
	defer s.ingesting.Store(false)

	start := time.Now()
	res, err := s.ingest(ctx, ref)
	if err != nil {
		s.logger.Warn("ingestion failed", zap.String("ref", ref), zap.Error(err))
		return domain.IngestResult{}, err
	}
	s.logger.Info("transcript indexed",
		zap.String("video_id", res.VideoID),
		zap.Int("fragments", res.Fragments),
		zap.Int("chunks", res.Chunks),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

func (s *Session) ingest(ctx context.Context, ref string) (domain.IngestResult, error) {
	id, err := s.source.Resolve(ref)
	if err != nil {
		return domain.IngestResult{}, wrapAs(domain.ErrInvalidSource, err)
	}
	fragments, err := s.source.Fetch(ctx, id)
	if err != nil {
		return domain.IngestResult{}, wrapAs(domain.ErrSourceFetch, err)
	}
	chunks, err := s.chunker.Chunk(fragments)
	if err != nil {
		return domain.IngestResult{}, err
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return domain.IngestResult{}, wrapAs(domain.ErrEmbeddingUnavailable, err)
	}
	if err := embedding.CheckBatch(texts, vectors, s.index.Dimension()); err != nil {
		return domain.IngestResult{}, err
	}
	summary := s.summarize(texts)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.replace(ctx, chunks, vectors); err != nil {
		return domain.IngestResult{}, err
	}
	s.videoID = id
	s.summary = summary
	s.lastTurn = nil
	return domain.IngestResult{
		VideoID:   id,
		Fragments: len(fragments),
		Chunks:    len(chunks),
		Summary:   summary,
	}, nil
}

// replace resets the index and loads the new vectors. Callers hold s.mu.
// If either step fails the session is left empty, since a remote index may
// already have dropped the previous vectors.
func (s *Session) replace(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if err := s.index.Reset(ctx); err != nil {
		s.clear()
		return fmt.Errorf("reset index: %w", err)
	}
	if err := s.index.Add(ctx, vectors); err != nil {
		s.clear()
		_ = s.index.Reset(ctx)
		return fmt.Errorf("populate index: %w", err)
	}
	s.chunks = chunks
	return nil
}

func (s *Session) clear() {
	s.chunks = nil
	s.videoID = ""
	s.summary = ""
	s.lastTurn = nil
}

func (s *Session) summarize(texts []string) string {
	if s.summarizer == nil {
		return ""
	}
	summary, err := s.summarizer.Summarize(strings.Join(texts, " "), s.settings.SummarySentences)
	if err != nil {
		s.logger.Warn("summary failed", zap.Error(err))
		return ""
	}
	return summary
}

// IngestStatus runs Ingest and reports the outcome as display text.
func (s *Session) IngestStatus(ctx context.Context, ref string) string {
	res, err := s.Ingest(ctx, ref)
	if err != nil {
		return IngestErrorText(err)
	}
	return IngestSuccessText(res)
}

// IngestSuccessText formats a successful ingestion.
func IngestSuccessText(res domain.IngestResult) string {
	return fmt.Sprintf("Transcript fetched and indexed successfully (%d chunks).", res.Chunks)
}

// IngestErrorText formats an ingestion failure.
func IngestErrorText(err error) string {
	if errors.Is(err, domain.ErrBusy) {
		return busyText
	}
	return "Error: " + err.Error()
}
