package app

import (
	"context"
	"path/filepath"
	"testing"

	"smishing-guard/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		GigaChat: config.GigaChatConfig{BaseURL: "https://gigachat.example/api/v1"},
		Embedding: config.EmbeddingConfig{
			Provider:  "hashing",
			BaseURL:   "https://api.openai.com/v1",
			Model:     "text-embedding-3-small",
			Dimension: 64,
		},
		Vector: config.VectorStoreConfig{
			Backend:          "local",
			Path:             filepath.Join(t.TempDir(), "index.jsonl"),
			QdrantURL:        "http://localhost:6333",
			QdrantCollection: "smishing_examples",
			PGVectorTable:    "fraud_vectors",
		},
	}
}

func TestNewEmbedder(t *testing.T) {
	tests := []struct {
		provider string
		model    string
		wantName string
	}{
		{provider: "hashing", wantName: "hashing"},
		{provider: "openai", model: "text-embedding-3-small", wantName: "text-embedding-3-small"},
		{provider: "gigachat", model: "Embeddings", wantName: "Embeddings"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Embedding.Provider = tt.provider
			if tt.model != "" {
				cfg.Embedding.Model = tt.model
			}

			embedder, err := NewEmbedder(cfg, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, embedder.Name())
		})
	}
}

func TestNewEmbedder_Errors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Embedding.Provider = "word2vec"
	_, err := NewEmbedder(cfg, zap.NewNop())
	assert.ErrorContains(t, err, `unknown embedding provider "word2vec"`)

	cfg = testConfig(t)
	cfg.Embedding.Dimension = 0
	embedder, err := NewEmbedder(cfg, zap.NewNop())
	assert.Error(t, err)
	assert.Nil(t, embedder)
}

func TestNewStorage(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t)
	store, err := NewStorage(ctx, cfg, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "local", store.Name())
	require.NoError(t, store.Close())

	cfg.Vector.Backend = "qdrant"
	store, err = NewStorage(ctx, cfg, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "qdrant", store.Name())
	require.NoError(t, store.Close())
}

func TestNewStorage_Errors(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.Vector.Backend = "pgvector"
	_, err := NewStorage(ctx, cfg, nil, zap.NewNop())
	assert.ErrorContains(t, err, "requires a database connection")

	cfg.Vector.Backend = "milvus"
	_, err = NewStorage(ctx, cfg, nil, zap.NewNop())
	assert.ErrorContains(t, err, `unknown vector store backend "milvus"`)

	cfg = testConfig(t)
	cfg.Vector.Backend = "qdrant"
	cfg.Vector.QdrantURL = ""
	store, err := NewStorage(ctx, cfg, nil, zap.NewNop())
	assert.Error(t, err)
	assert.Nil(t, store)
}
