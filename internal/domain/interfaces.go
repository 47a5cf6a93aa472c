package domain

import "context"

// TranscriptSource resolves a video reference and fetches its caption track.
type TranscriptSource interface {
	Name() string
	// Resolve validates ref and returns the canonical id passed to Fetch.
	Resolve(ref string) (string, error)
	Fetch(ctx context.Context, id string) ([]Fragment, error)
}

// Chunker splits an ordered transcript into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(fragments []Fragment) ([]Chunk, error)
}

// TextEmbedder converts free text into fixed-dimension vectors. Output order
// and length match the input.
type TextEmbedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is an append-only nearest-neighbour structure. Vectors receive
// indices in insertion order starting at zero after Reset.
type VectorIndex interface {
	Dimension() int
	Add(ctx context.Context, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]SearchHit, error)
	Reset(ctx context.Context) error
	Size() int
	Close() error
}

// TextCompleter sends a composed prompt to a language model.
type TextCompleter interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
