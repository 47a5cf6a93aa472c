//go:build cgo

package onnx

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tokenizer "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"

	"videorag/internal/domain"
	"videorag/internal/embedding"
)

// Embedder produces sentence embeddings with mean pooling and L2
// normalisation, matching the sentence-transformers pipeline.
type Embedder struct {
	cfg       Config
	tokenizer *tokenizer.Tokenizer
	session   *ort.DynamicAdvancedSession
	mu        sync.Mutex
}

// NewEmbedder loads the tokenizer and model. Any failure is reported as
// domain.ErrEmbeddingUnavailable.
func NewEmbedder(cfg Config) (*Embedder, error) {
	cfg.applyDefaults()
	tok, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("%w: load tokenizer: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if cfg.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.SharedLibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("%w: initialize onnx runtime: %w", domain.ErrEmbeddingUnavailable, err)
		}
	}
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("%w: session options: %w", domain.ErrEmbeddingUnavailable, err)
	}
	defer opts.Destroy()
	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, fmt.Errorf("%w: graph optimization: %w", domain.ErrEmbeddingUnavailable, err)
	}
	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{cfg.OutputName},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: load model %s: %w", domain.ErrEmbeddingUnavailable, cfg.ModelPath, err)
	}
	return &Embedder{cfg: cfg, tokenizer: tok, session: session}, nil
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "onnx" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.cfg.Dimension }

// Embed runs inference one text at a time; blank texts map to the zero
// vector without inference. Padding a batch to a common
// length changes floating point results slightly, and a text must embed to
// the same vector whatever batch it arrives in.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("embed: %w", err)
		}
		if strings.TrimSpace(t) == "" {
			out[i] = make([]float32, e.cfg.Dimension)
			continue
		}
		v, err := e.embedOne(t)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		out[i] = v
	}
	if err := embedding.CheckBatch(texts, out, e.cfg.Dimension); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Embedder) embedOne(text string) ([]float32, error) {
	encodings, err := e.tokenizer.EncodeBatch([]tokenizer.EncodeInput{
		tokenizer.NewSingleEncodeInput(tokenizer.NewInputSequence(text)),
	}, true)
	if err != nil {
		return nil, fmt.Errorf("tokenization failed: %w", err)
	}
	enc := encodings[0]
	rawIDs := enc.GetIds()
	rawMask := enc.GetAttentionMask()
	ids := make([]int64, len(rawIDs))
	mask := make([]int64, len(rawIDs))
	for i := range rawIDs {
		ids[i] = int64(rawIDs[i])
		mask[i] = int64(rawMask[i])
	}
	ids, mask = truncate(ids, mask, e.cfg.MaxTokens)
	seqLen := int64(len(ids))
	typeIDs := make([]int64, seqLen)

	shape := ort.NewShape(1, seqLen)
	idsTensor, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("create input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	typeTensor, err := ort.NewTensor(shape, typeIDs)
	if err != nil {
		return nil, fmt.Errorf("create token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	outputs := make([]ort.Value, 1)
	if err := e.session.Run([]ort.Value{idsTensor, maskTensor, typeTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer outputs[0].Destroy()
	hidden, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("output tensor is not float32")
	}
	outShape := hidden.GetShape()
	if len(outShape) != 3 || int(outShape[2]) != e.cfg.Dimension {
		return nil, fmt.Errorf("unexpected output shape %v", outShape)
	}
	vec := meanPool(hidden.GetData(), mask, int(outShape[1]), int(outShape[2]))
	embedding.NormalizeL2(vec)
	return vec, nil
}

// Close destroys the session.
func (e *Embedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	return err
}
