package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videorag/internal/chunker"
	"videorag/internal/domain"
	"videorag/internal/embedding/hashing"
	"videorag/internal/prompt"
	"videorag/internal/summarizer"
	"videorag/internal/vectorstore/memory"
)

const testDim = 384

type fakeSource struct {
	mu         sync.Mutex
	transcript map[string][]domain.Fragment
	release    chan struct{}
	fetching   chan struct{}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Resolve(ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", domain.ErrInvalidSource
	}
	return ref, nil
}

func (f *fakeSource) Fetch(ctx context.Context, id string) ([]domain.Fragment, error) {
	if f.fetching != nil {
		f.fetching <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	frags, ok := f.transcript[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrVideoNotFound, id)
	}
	return frags, nil
}

type fakeCompleter struct {
	mu      sync.Mutex
	prompts []domain.Prompt
	answer  string
	err     error
}

func (f *fakeCompleter) Complete(_ context.Context, p domain.Prompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeCompleter) last() domain.Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[len(f.prompts)-1]
}

func fragments(texts ...string) []domain.Fragment {
	out := make([]domain.Fragment, len(texts))
	for i, t := range texts {
		out[i] = domain.Fragment{Text: t, Start: float64(i) * 2}
	}
	return out
}

var science = fragments(
	"rockets burn liquid fuel to reach orbit",
	"bees collect nectar and make honey in hives",
	"volcanoes erupt molten lava and ash",
	"glaciers carve valleys over thousands of years",
	"octopuses change colour to hide from predators",
)

func newTestSession(t *testing.T, src *fakeSource, comp *fakeCompleter) *Session {
	t.Helper()
	idx, err := memory.NewStorage(testDim)
	require.NoError(t, err)
	s, err := NewSession("test", Components{
		Source:     src,
		Chunker:    chunker.NewFragmentChunker(1, chunker.SpanEndLastStart),
		Embedder:   hashing.NewEmbedder(testDim),
		Index:      idx,
		Composer:   prompt.NewComposer(""),
		Completer:  comp,
		Summarizer: summarizer.NewFrequencySummarizer(),
	}, Settings{TopK: 3, SummarySentences: 2})
	require.NoError(t, err)
	return s
}

func defaultSource() *fakeSource {
	return &fakeSource{transcript: map[string][]domain.Fragment{
		"science": science,
		"empty":   {},
		"short":   fragments("a single line about tides"),
	}}
}

func TestNewSessionValidatesComponents(t *testing.T) {
	idx, err := memory.NewStorage(8)
	require.NoError(t, err)
	_, err = NewSession("x", Components{
		Source:    defaultSource(),
		Chunker:   chunker.NewFragmentChunker(1, chunker.SpanEndLastStart),
		Embedder:  hashing.NewEmbedder(16),
		Index:     idx,
		Completer: &fakeCompleter{},
	}, Settings{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")

	_, err = NewSession("x", Components{Source: defaultSource()}, Settings{})
	require.Error(t, err)
}

func TestIngestThenRetrieveExactText(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, defaultSource(), &fakeCompleter{})

	res, err := s.Ingest(ctx, "science")
	require.NoError(t, err)
	assert.Equal(t, "science", res.VideoID)
	assert.Equal(t, len(science), res.Fragments)
	assert.Equal(t, len(science), res.Chunks)
	assert.NotEmpty(t, res.Summary)

	for i, f := range science {
		got, err := s.Retrieve(ctx, f.Text, 3)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, i, got[0].Chunk.Index)
		assert.InDelta(t, 0, got[0].Distance, 1e-6)
		for j := 1; j < len(got); j++ {
			assert.LessOrEqual(t, got[j-1].Distance, got[j].Distance)
		}
	}
}

func TestRetrieveCapsAtChunkCount(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, defaultSource(), &fakeCompleter{})
	_, err := s.Ingest(ctx, "short")
	require.NoError(t, err)

	got, err := s.Retrieve(ctx, "tides", 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a single line about tides", got[0].Chunk.Text)
}

func TestRetrieveBeforeIngestIsEmpty(t *testing.T) {
	s := newTestSession(t, defaultSource(), &fakeCompleter{})
	got, err := s.Retrieve(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIngestIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, defaultSource(), &fakeCompleter{})

	_, err := s.Ingest(ctx, "science")
	require.NoError(t, err)
	first := s.Chunks()
	_, err = s.Ingest(ctx, "science")
	require.NoError(t, err)

	assert.Equal(t, first, s.Chunks())
	assert.Equal(t, len(science), s.index.Size())
}

func TestIngestReplacesPreviousVideo(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, defaultSource(), &fakeCompleter{})

	_, err := s.Ingest(ctx, "science")
	require.NoError(t, err)
	_, err = s.Ingest(ctx, "short")
	require.NoError(t, err)

	st := s.State()
	assert.Equal(t, "short", st.VideoID)
	assert.Equal(t, 1, st.Chunks)
	assert.Equal(t, 1, s.index.Size())
}

func TestFailedIngestKeepsState(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, defaultSource(), &fakeCompleter{})
	_, err := s.Ingest(ctx, "science")
	require.NoError(t, err)
	before := s.Chunks()

	tests := []struct {
		name string
		ref  string
		want error
	}{
		{name: "empty transcript", ref: "empty", want: domain.ErrEmptyInput},
		{name: "unknown video", ref: "missing", want: domain.ErrSourceFetch},
		{name: "blank reference", ref: "  ", want: domain.ErrInvalidSource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Ingest(ctx, tt.ref)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, s.Chunks())
			assert.Equal(t, "science", s.State().VideoID)
			assert.Equal(t, len(science), s.index.Size())
		})
	}
}

func TestIngestStatusText(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, defaultSource(), &fakeCompleter{})

	assert.Equal(t, "Transcript fetched and indexed successfully (5 chunks).", s.IngestStatus(ctx, "science"))

	msg := s.IngestStatus(ctx, "missing")
	assert.True(t, strings.HasPrefix(msg, "Error: "), msg)
}

func TestAskBeforeIngestUsesEmptyContext(t *testing.T) {
	comp := &fakeCompleter{answer: "I don't know."}
	s := newTestSession(t, defaultSource(), comp)

	got := s.Ask(context.Background(), "What is this video about?")
	assert.Equal(t, "I don't know.", got)

	p := comp.last()
	assert.Equal(t, prompt.DefaultInstruction+"\n", p.System)
	assert.Equal(t, "What is this video about?", p.User)
	require.NotNil(t, s.State().LastTurn)
	assert.Equal(t, "I don't know.", s.State().LastTurn.Answer)
}

func TestAskComposesRetrievedChunks(t *testing.T) {
	ctx := context.Background()
	comp := &fakeCompleter{answer: "Honey."}
	s := newTestSession(t, defaultSource(), comp)
	_, err := s.Ingest(ctx, "science")
	require.NoError(t, err)

	question := science[1].Text
	assert.Equal(t, "Honey.", s.Ask(ctx, question))

	p := comp.last()
	assert.Equal(t, question, p.User)
	ctxLine := strings.TrimPrefix(p.System, prompt.DefaultInstruction+"\n")
	assert.True(t, strings.HasPrefix(ctxLine, science[1].Text+" "), ctxLine)

	retrieved, err := s.Retrieve(ctx, question, 3)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(domain.RetrievedTexts(retrieved), " "), ctxLine)
}

func TestAskReportsCompletionErrors(t *testing.T) {
	ctx := context.Background()
	comp := &fakeCompleter{err: &domain.HTTPError{StatusCode: 500, Body: "upstream exploded"}}
	s := newTestSession(t, defaultSource(), comp)
	_, err := s.Ingest(ctx, "science")
	require.NoError(t, err)
	before := s.Chunks()

	got := s.Ask(ctx, "How do rockets reach orbit?")
	assert.True(t, strings.HasPrefix(got, "API Error: "), got)
	assert.Contains(t, got, "500")
	assert.Equal(t, before, s.Chunks())
}

func TestAskErrorText(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: domain.ErrEmptyQuestion, want: "Please enter a question."},
		{err: domain.ErrBusy, want: busyText},
		{err: fmt.Errorf("%w: dial tcp", domain.ErrTransport), want: "API Error: "},
		{err: domain.ErrMalformedResponse, want: "API Error: "},
		{err: &domain.HTTPError{StatusCode: 401, Body: "bad key"}, want: "API Error: "},
		{err: domain.ErrEmbeddingUnavailable, want: "Error: "},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.True(t, strings.HasPrefix(AskErrorText(tt.err), tt.want), AskErrorText(tt.err))
		})
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	comp := &fakeCompleter{answer: "unused"}
	s := newTestSession(t, defaultSource(), comp)

	_, err := s.Answer(context.Background(), "   ")
	require.ErrorIs(t, err, domain.ErrEmptyQuestion)
	assert.Empty(t, comp.prompts)
	assert.Nil(t, s.State().LastTurn)
}

func TestIngestAndAskRejectedWhileIngesting(t *testing.T) {
	ctx := context.Background()
	src := defaultSource()
	src.release = make(chan struct{})
	src.fetching = make(chan struct{}, 1)
	comp := &fakeCompleter{answer: "ok"}
	s := newTestSession(t, src, comp)

	done := make(chan error, 1)
	go func() {
		_, err := s.Ingest(ctx, "science")
		done <- err
	}()
	select {
	case <-src.fetching:
	case <-time.After(5 * time.Second):
		t.Fatal("ingestion did not start")
	}

	assert.True(t, s.State().Ingesting)
	_, err := s.Ingest(ctx, "short")
	require.ErrorIs(t, err, domain.ErrBusy)
	assert.Equal(t, busyText, s.Ask(ctx, "anything?"))
	assert.Empty(t, comp.prompts)

	close(src.release)
	require.NoError(t, <-done)
	assert.False(t, s.State().Ingesting)
	assert.Equal(t, "ok", s.Ask(ctx, "anything?"))
}

func TestConcurrentIngestAndAsk(t *testing.T) {
	ctx := context.Background()
	comp := &fakeCompleter{answer: "ok"}
	s := newTestSession(t, defaultSource(), comp)

	var wg sync.WaitGroup
	refs := []string{"science", "short"}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_, err := s.Ingest(ctx, refs[(i+j)%len(refs)])
				if err != nil && !errors.Is(err, domain.ErrBusy) {
					t.Errorf("ingest: %v", err)
				}
			}
		}(i)
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				got, err := s.Retrieve(ctx, science[j%len(science)].Text, 3)
				if err != nil {
					t.Errorf("retrieve: %v", err)
					continue
				}
				if len(got) > 3 {
					t.Errorf("retrieved %d chunks", len(got))
				}
				answer := s.Ask(ctx, "what happens?")
				if answer != "ok" && answer != busyText {
					t.Errorf("unexpected answer %q", answer)
				}
			}
		}()
	}
	wg.Wait()

	st := s.State()
	assert.False(t, st.Ingesting)
	assert.Equal(t, st.Chunks, s.index.Size())
}

func TestChunkAtBounds(t *testing.T) {
	chunks := []domain.Chunk{{Index: 0, Text: "a"}, {Index: 1, Text: "b"}}
	_, ok := chunkAt(chunks, -1)
	assert.False(t, ok)
	_, ok = chunkAt(chunks, 2)
	assert.False(t, ok)
	c, ok := chunkAt(chunks, 1)
	assert.True(t, ok)
	assert.Equal(t, "b", c.Text)
}

type flakyIndex struct {
	domain.VectorIndex
	failReset bool
	failAdd   bool
}

func (f *flakyIndex) Reset(ctx context.Context) error {
	if f.failReset {
		return errors.New("collection recreate failed")
	}
	return f.VectorIndex.Reset(ctx)
}

func (f *flakyIndex) Add(ctx context.Context, vectors [][]float32) error {
	if f.failAdd {
		return errors.New("upsert failed")
	}
	return f.VectorIndex.Add(ctx, vectors)
}

func TestIndexFailureLeavesSessionEmpty(t *testing.T) {
	tests := []struct {
		name  string
		flaky flakyIndex
	}{
		{name: "reset", flaky: flakyIndex{failReset: true}},
		{name: "add", flaky: flakyIndex{failAdd: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			comp := &fakeCompleter{answer: "ok"}
			s := newTestSession(t, defaultSource(), comp)
			_, err := s.Ingest(ctx, "science")
			require.NoError(t, err)

			flaky := tt.flaky
			flaky.VectorIndex = s.index
			s.index = &flaky

			_, err = s.Ingest(ctx, "short")
			require.Error(t, err)

			st := s.State()
			assert.Equal(t, 0, st.Chunks)
			assert.Empty(t, st.VideoID)
			assert.Empty(t, st.Summary)

			got, err := s.Retrieve(ctx, science[0].Text, 3)
			require.NoError(t, err)
			assert.Empty(t, got)
			assert.Equal(t, "ok", s.Ask(ctx, "still there?"))
			assert.Equal(t, prompt.DefaultInstruction+"\n", comp.last().System)
		})
	}
}
