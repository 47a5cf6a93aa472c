package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"videorag/internal/config"
	"videorag/internal/domain"
)

func fileConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	frags := []domain.Fragment{
		{Text: "the river floods every spring", Start: 0, Duration: 3},
		{Text: "farmers plant rice after the flood", Start: 3, Duration: 3},
		{Text: "the harvest comes in autumn", Start: 6, Duration: 3},
	}
	data, err := json.Marshal(frags)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "river.json"), data, 0o644))

	cfg, err := config.Load(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	cfg.Transcript.Type = "file"
	cfg.Transcript.Dir = dir
	cfg.Chunker.FragmentsPerChunk = 2
	return cfg
}

func TestNewAppBuildsWorkingSession(t *testing.T) {
	cfg := fileConfig(t)
	a, err := newApp(cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	sess, err := a.newSession("default")
	require.NoError(t, err)
	defer sess.Close()

	res, err := sess.Ingest(context.Background(), "river.json")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Fragments)
	assert.Equal(t, 2, res.Chunks)

	got, err := sess.Retrieve(context.Background(), "the harvest comes in autumn", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Chunk.Index)
}

func TestNewAppRejectsUnknownComponents(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.AppConfig)
	}{
		{name: "source", mutate: func(c *config.AppConfig) { c.Transcript.Type = "vimeo" }},
		{name: "span end", mutate: func(c *config.AppConfig) { c.Chunker.SpanEnd = "middle" }},
		{name: "embedder", mutate: func(c *config.AppConfig) { c.Embedder.Type = "word2vec" }},
		{name: "onnx without config", mutate: func(c *config.AppConfig) { c.Embedder.Type = "onnx"; c.Embedder.ONNX = nil }},
		{name: "summarizer", mutate: func(c *config.AppConfig) { c.Summarizer.Type = "abstractive" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fileConfig(t)
			tt.mutate(cfg)
			_, err := newApp(cfg, zap.NewNop())
			require.Error(t, err)
		})
	}
}

func TestNewSessionRejectsUnknownVectorStore(t *testing.T) {
	cfg := fileConfig(t)
	cfg.VectorStore.Type = "faiss"
	a, err := newApp(cfg, zap.NewNop())
	require.NoError(t, err)

	_, err = a.newSession("default")
	require.Error(t, err)
}
