//go:build !cgo

package onnx

import (
	"context"
	"fmt"

	"videorag/internal/domain"
)

// Embedder is a stub that reports the model as unavailable when built without cgo.
type Embedder struct{ cfg Config }

// NewEmbedder returns an error because ONNX Runtime needs cgo.
func NewEmbedder(cfg Config) (*Embedder, error) {
	return nil, fmt.Errorf("%w: onnx embedder requires a cgo build", domain.ErrEmbeddingUnavailable)
}

func (e *Embedder) Name() string { return "onnx" }

func (e *Embedder) Dimension() int { return e.cfg.Dimension }

func (e *Embedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("%w: onnx embedder requires a cgo build", domain.ErrEmbeddingUnavailable)
}

func (e *Embedder) Close() error { return nil }
