package app

import (
	"context"
	"errors"
	"fmt"

	"smishing-guard/internal/embedding"
	"smishing-guard/internal/embedding/hashing"
	"smishing-guard/internal/embedding/openai"
	"smishing-guard/internal/vectorstore"
	"smishing-guard/internal/vectorstore/local"
	"smishing-guard/internal/vectorstore/pgvector"
	"smishing-guard/internal/vectorstore/qdrant"
	"smishing-guard/pkg/config"
	"smishing-guard/pkg/gigachat"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const embeddingRetries = 3

// NewEmbedder builds the embedding provider named by EMBEDDING_PROVIDER.
// The server and the sync job must use the same provider and model, or
// query vectors will not match the index.
func NewEmbedder(cfg *config.Config, logger *zap.Logger) (embedding.Embedder, error) {
	var (
		embedder embedding.Embedder
		err      error
	)
	switch cfg.Embedding.Provider {
	case "hashing":
		embedder, err = hashing.NewEmbedder(cfg.Embedding.Dimension)
	case "openai":
		embedder, err = openai.NewClient(openai.Config{
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Timeout:    cfg.Embedding.Timeout,
			MaxRetries: embeddingRetries,
		}, openai.StaticToken(cfg.Embedding.APIKey))
	case "gigachat":
		embedder, err = openai.NewClient(openai.Config{
			BaseURL:    cfg.GigaChat.BaseURL,
			Model:      cfg.Embedding.Model,
			Timeout:    cfg.Embedding.Timeout,
			MaxRetries: embeddingRetries,
			HTTPClient: gigachat.NewHTTPClient(&cfg.GigaChat, logger),
		}, gigachat.NewTokenSource(&cfg.GigaChat, logger))
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s embedder: %w", cfg.Embedding.Provider, err)
	}
	return embedder, nil
}

// NewStorage opens the vector index backend named by VECTOR_STORE. pool is
// only required for pgvector and may be nil otherwise.
func NewStorage(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *zap.Logger) (vectorstore.Storage, error) {
	var (
		store vectorstore.Storage
		err   error
	)
	switch cfg.Vector.Backend {
	case "local":
		store, err = local.Open(cfg.Vector.Path, logger)
	case "qdrant":
		store, err = qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Vector.QdrantURL,
			APIKey:     cfg.Vector.QdrantAPIKey,
			Collection: cfg.Vector.QdrantCollection,
		}, logger)
	case "pgvector":
		if pool == nil {
			return nil, errors.New("pgvector backend requires a database connection")
		}
		store, err = pgvector.NewStorage(ctx, pool, cfg.Vector.PGVectorTable, logger)
	default:
		return nil, fmt.Errorf("unknown vector store backend %q", cfg.Vector.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s vector store: %w", cfg.Vector.Backend, err)
	}
	return store, nil
}
