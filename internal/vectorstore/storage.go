// Package vectorstore selects a domain.VectorIndex implementation by name.
package vectorstore

import (
	"fmt"
	"time"

	"videorag/internal/domain"
	"videorag/internal/vectorstore/memory"
	"videorag/internal/vectorstore/qdrant"
)

const (
	TypeMemory = "memory"
	TypeQdrant = "qdrant"
)

// Options carries what any backend may need. Namespace distinguishes
// independent sessions sharing one Qdrant instance.
type Options struct {
	Dimension        int
	Namespace        string
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string
	QdrantTimeout    time.Duration
}

// New creates a vector index of the given type. Supported: "memory" (default), "qdrant".
func New(kind string, opts Options) (domain.VectorIndex, error) {
	switch kind {
	case TypeMemory, "":
		return memory.NewStorage(opts.Dimension)
	case TypeQdrant:
		collection := opts.QdrantCollection
		if opts.Namespace != "" {
			collection = collection + "-" + opts.Namespace
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        opts.QdrantURL,
			APIKey:     opts.QdrantAPIKey,
			Collection: collection,
			Dimension:  opts.Dimension,
			Timeout:    opts.QdrantTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown vector store: %s (supported: memory, qdrant)", kind)
	}
}
