package domain

// Fragment is one timestamped caption line as returned by a transcript source.
// Duration is zero when the source does not report it.
type Fragment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration,omitempty"`
}

// Span is the time range covered by a chunk, in seconds.
type Span struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Chunk is a group of consecutive fragments indexed as one retrievable unit.
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Span  Span   `json:"span"`
}

// SearchHit is a single nearest-neighbour result. Index is the position of the
// vector in insertion order; Distance is squared L2.
type SearchHit struct {
	Index    int
	Distance float64
}

// RetrievedChunk pairs a chunk with its distance to the query.
type RetrievedChunk struct {
	Chunk    Chunk
	Distance float64
}

// Prompt is the system/user message pair sent to the completion endpoint.
type Prompt struct {
	System string
	User   string
}

// Turn is the most recent question and the answer shown for it.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// IngestResult describes a successful ingestion.
type IngestResult struct {
	VideoID   string `json:"video_id"`
	Fragments int    `json:"fragments"`
	Chunks    int    `json:"chunks"`
	Summary   string `json:"summary,omitempty"`
}

// RetrievedTexts returns the chunk texts in retrieval order.
func RetrievedTexts(rs []RetrievedChunk) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Chunk.Text
	}
	return out
}
