// Package service owns a session's index state and exposes the ingest and
// ask operations consumed by the CLI, TUI and HTTP server.
package service

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"videorag/internal/domain"
	"videorag/internal/prompt"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 3

// Components are the collaborators a session drives. Summarizer is optional.
type Components struct {
	Source     domain.TranscriptSource
	Chunker    domain.Chunker
	Embedder   domain.TextEmbedder
	Index      domain.VectorIndex
	Composer   *prompt.Composer
	Completer  domain.TextCompleter
	Summarizer domain.Summarizer
	Logger     *zap.Logger
}

// Settings tune retrieval and the ingest summary.
type Settings struct {
	TopK             int
	SummarySentences int
}

// Session holds one video's index state. Ingestion replaces the state as a
// whole and is single-flight: a second ingestion, or a question asked while
// one is running, is rejected with domain.ErrBusy.
type Session struct {
	id         string
	source     domain.TranscriptSource
	chunker    domain.Chunker
	embedder   domain.TextEmbedder
	composer   *prompt.Composer
	completer  domain.TextCompleter
	summarizer domain.Summarizer
	logger     *zap.Logger
	settings   Settings

	ingesting atomic.Bool

	// mu guards the index state below. The index is only mutated together
	// with chunks, under the write lock.
	mu       sync.RWMutex
	index    domain.VectorIndex
	chunks   []domain.Chunk
	videoID  string
	summary  string
	lastTurn *domain.Turn
}

// State is a point-in-time view of a session for display.
type State struct {
	ID        string       `json:"id"`
	VideoID   string       `json:"video_id,omitempty"`
	Chunks    int          `json:"chunks"`
	Summary   string       `json:"summary,omitempty"`
	Ingesting bool         `json:"ingesting"`
	LastTurn  *domain.Turn `json:"last_turn,omitempty"`
}

func NewSession(id string, c Components, settings Settings) (*Session, error) {
	switch {
	case c.Source == nil:
		return nil, errors.New("transcript source required")
	case c.Chunker == nil:
		return nil, errors.New("chunker required")
	case c.Embedder == nil:
		return nil, errors.New("embedder required")
	case c.Index == nil:
		return nil, errors.New("vector index required")
	case c.Completer == nil:
		return nil, errors.New("completer required")
	}
	if c.Embedder.Dimension() != c.Index.Dimension() {
		return nil, fmt.Errorf("embedder dimension %d does not match index dimension %d", c.Embedder.Dimension(), c.Index.Dimension())
	}
	if c.Composer == nil {
		c.Composer = prompt.NewComposer("")
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if settings.TopK <= 0 {
		settings.TopK = DefaultTopK
	}
	if settings.SummarySentences <= 0 {
		settings.SummarySentences = 3
	}
	return &Session{
		id:         id,
		source:     c.Source,
		chunker:    c.Chunker,
		embedder:   c.Embedder,
		index:      c.Index,
		composer:   c.Composer,
		completer:  c.Completer,
		summarizer: c.Summarizer,
		logger:     c.Logger.With(zap.String("session", id)),
		settings:   settings,
	}, nil
}

func (s *Session) ID() string { return s.id }

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{
		ID:        s.id,
		VideoID:   s.videoID,
		Chunks:    len(s.chunks),
		Summary:   s.summary,
		Ingesting: s.ingesting.Load(),
	}
	if s.lastTurn != nil {
		t := *s.lastTurn
		st.LastTurn = &t
	}
	return st
}

// Chunks returns a copy of the indexed chunks.
func (s *Session) Chunks() []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Chunk(nil), s.chunks...)
}

// Close releases the vector index.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

func wrapAs(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
