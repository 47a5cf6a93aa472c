package chunker

import (
	"fmt"
	"strings"

	"videorag/internal/domain"
)

// DefaultFragmentsPerChunk matches the granularity used for typical caption
// tracks, where each fragment is a few seconds of speech.
const DefaultFragmentsPerChunk = 50

// SpanEnd selects how a chunk's span end is derived from its last fragment.
type SpanEnd string

const (
	// SpanEndLastStart uses the start time of the last fragment in the chunk.
	// The span therefore excludes the duration of that fragment.
	SpanEndLastStart SpanEnd = "last_start"
	// SpanEndLastEnd uses start+duration of the last fragment.
	SpanEndLastEnd SpanEnd = "last_end"
)

// ParseSpanEnd maps a config value to a SpanEnd. Empty selects SpanEndLastStart.
func ParseSpanEnd(s string) (SpanEnd, error) {
	switch SpanEnd(s) {
	case "", SpanEndLastStart:
		return SpanEndLastStart, nil
	case SpanEndLastEnd:
		return SpanEndLastEnd, nil
	default:
		return "", fmt.Errorf("unknown span_end %q (supported: last_start, last_end)", s)
	}
}

// FragmentChunker groups consecutive transcript fragments into fixed-size,
// non-overlapping chunks. The final chunk holds the remainder.
type FragmentChunker struct {
	fragmentsPerChunk int
	spanEnd           SpanEnd
}

func NewFragmentChunker(fragmentsPerChunk int, spanEnd SpanEnd) *FragmentChunker {
	if fragmentsPerChunk <= 0 {
		fragmentsPerChunk = DefaultFragmentsPerChunk
	}
	if spanEnd == "" {
		spanEnd = SpanEndLastStart
	}
	return &FragmentChunker{fragmentsPerChunk: fragmentsPerChunk, spanEnd: spanEnd}
}

// Size returns the number of fragments per chunk.
func (c *FragmentChunker) Size() int { return c.fragmentsPerChunk }

func (c *FragmentChunker) Chunk(fragments []domain.Fragment) ([]domain.Chunk, error) {
	if len(fragments) == 0 {
		return nil, domain.ErrEmptyInput
	}
	n := (len(fragments) + c.fragmentsPerChunk - 1) / c.fragmentsPerChunk
	chunks := make([]domain.Chunk, 0, n)
	for i := 0; i < len(fragments); i += c.fragmentsPerChunk {
		end := i + c.fragmentsPerChunk
		if end > len(fragments) {
			end = len(fragments)
		}
		group := fragments[i:end]
		texts := make([]string, len(group))
		for j, f := range group {
			texts[j] = f.Text
		}
		chunks = append(chunks, domain.Chunk{
			Index: len(chunks),
			Text:  strings.Join(texts, " "),
			Span:  domain.Span{Start: group[0].Start, End: c.end(group[len(group)-1])},
		})
	}
	return chunks, nil
}

func (c *FragmentChunker) end(last domain.Fragment) float64 {
	if c.spanEnd == SpanEndLastEnd {
		return last.Start + last.Duration
	}
	return last.Start
}
