package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"videorag/internal/chunker"
	"videorag/internal/completion/openai"
	"videorag/internal/config"
	"videorag/internal/domain"
	"videorag/internal/embedding/hashing"
	"videorag/internal/embedding/onnx"
	embopenai "videorag/internal/embedding/openai"
	"videorag/internal/prompt"
	"videorag/internal/service"
	"videorag/internal/summarizer"
	"videorag/internal/transcript/file"
	"videorag/internal/transcript/youtube"
	"videorag/internal/vectorstore"
)

// app holds the components shared by every session; each session gets its
// own vector index.
type app struct {
	cfg        *config.AppConfig
	logger     *zap.Logger
	source     domain.TranscriptSource
	chunker    domain.Chunker
	embedder   domain.TextEmbedder
	completer  domain.TextCompleter
	composer   *prompt.Composer
	summarizer domain.Summarizer
}

func newApp(cfg *config.AppConfig, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, composer: prompt.NewComposer(cfg.Completion.SystemPrompt)}

	switch cfg.Transcript.Type {
	case "youtube", "":
		a.source = youtube.NewSource(youtube.Config{
			BaseURL:   cfg.Transcript.BaseURL,
			Languages: cfg.Transcript.Languages,
			Timeout:   config.Seconds(cfg.Transcript.TimeoutSecs),
		}, logger)
	case "file":
		a.source = file.NewSource(cfg.Transcript.Dir)
	default:
		return nil, fmt.Errorf("unknown transcript source: %s", cfg.Transcript.Type)
	}

	spanEnd, err := chunker.ParseSpanEnd(cfg.Chunker.SpanEnd)
	if err != nil {
		return nil, err
	}
	a.chunker = chunker.NewFragmentChunker(cfg.Chunker.FragmentsPerChunk, spanEnd)

	if a.embedder, err = newEmbedder(cfg.Embedder); err != nil {
		return nil, err
	}

	switch cfg.Summarizer.Type {
	case "frequency", "":
		a.summarizer = summarizer.NewFrequencySummarizer()
	case "none":
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Summarizer.Type)
	}

	baseURL := cfg.Completion.BaseURL
	if v := os.Getenv(cfg.Completion.BaseURLEnv); v != "" {
		baseURL = v
	}
	key, err := openai.APIKeyFromEnv(cfg.Completion.APIKeyEnv)
	if err != nil {
		logger.Warn("completion requests will be unauthenticated", zap.Error(err))
	}
	a.completer = openai.NewClient(openai.Config{
		BaseURL:     baseURL,
		APIKey:      key,
		Model:       cfg.Completion.Model,
		Temperature: cfg.Completion.Temperature,
		Timeout:     config.Seconds(cfg.Completion.TimeoutSecs),
	})
	return a, nil
}

func newEmbedder(cfg config.EmbedderConfig) (domain.TextEmbedder, error) {
	switch cfg.Type {
	case "hashing", "":
		return hashing.NewEmbedder(cfg.Dimension), nil
	case "onnx":
		if cfg.ONNX == nil {
			return nil, fmt.Errorf("onnx embedder config missing")
		}
		return onnx.NewEmbedder(onnx.Config{
			ModelPath:         cfg.ONNX.ModelPath,
			TokenizerPath:     cfg.ONNX.TokenizerPath,
			SharedLibraryPath: cfg.ONNX.SharedLibraryPath,
			OutputName:        cfg.ONNX.OutputName,
			Dimension:         cfg.Dimension,
			MaxTokens:         cfg.ONNX.MaxTokens,
		})
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		return embopenai.NewClient(embopenai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Dimension: cfg.Dimension,
			Timeout:   config.Seconds(cfg.OpenAI.TimeoutSecs),
		})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

// newSession builds a session with a fresh index. For Qdrant the id
// namespaces the collection.
func (a *app) newSession(id string) (*service.Session, error) {
	opts := vectorstore.Options{Dimension: a.embedder.Dimension(), Namespace: id}
	if q := a.cfg.VectorStore.Qdrant; q != nil {
		opts.QdrantURL = q.URL
		opts.QdrantAPIKey = q.APIKey
		opts.QdrantCollection = q.Collection
		opts.QdrantTimeout = config.Seconds(q.TimeoutSecs)
	}
	idx, err := vectorstore.New(a.cfg.VectorStore.Type, opts)
	if err != nil {
		return nil, err
	}
	return service.NewSession(id, service.Components{
		Source:     a.source,
		Chunker:    a.chunker,
		Embedder:   a.embedder,
		Index:      idx,
		Composer:   a.composer,
		Completer:  a.completer,
		Summarizer: a.summarizer,
		Logger:     a.logger,
	}, service.Settings{
		TopK:             a.cfg.Retrieval.TopK,
		SummarySentences: a.cfg.Summarizer.MaxSentences,
	})
}

func (a *app) Close() error {
	if c, ok := a.embedder.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
