package service

import (
	"context"
	"fmt"

	"smishing-guard/internal/embedding"
	"smishing-guard/internal/models"
	"smishing-guard/internal/vectorstore"
	"smishing-guard/pkg/config"

	"go.uber.org/zap"
)

// RetrievalService finds stored fraud examples similar to an incoming message.
type RetrievalService struct {
	embedder embedding.Embedder
	store    vectorstore.Storage
	config   *config.RAGConfig
	logger   *zap.Logger
}

func NewRetrievalService(embedder embedding.Embedder, store vectorstore.Storage, cfg *config.RAGConfig, logger *zap.Logger) *RetrievalService {
	return &RetrievalService{
		embedder: embedder,
		store:    store,
		config:   cfg,
		logger:   logger,
	}
}

func (s *RetrievalService) TopK() int {
	return s.config.TopK
}

// Retrieve returns up to k examples ranked by similarity to query. Any
// embedding or index failure, including the RAG timeout passing, yields an
// empty result; classification then proceeds without context.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, k int) []models.Example {
	if k <= 0 {
		return []models.Example{}
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("Retrieval failed, continuing without context",
			zap.String("stage", "embed"),
			zap.Error(err),
		)
		return []models.Example{}
	}

	hits, err := s.store.Search(ctx, vector, k)
	if err != nil {
		s.logger.Warn("Retrieval failed, continuing without context",
			zap.String("stage", "search"),
			zap.String("backend", s.store.Name()),
			zap.Error(err),
		)
		return []models.Example{}
	}

	examples := make([]models.Example, 0, len(hits))
	for _, h := range hits {
		examples = append(examples, models.Example{
			ID:      h.Entry.ExampleID,
			Content: h.Entry.Content,
			Label:   h.Entry.Label,
		})
	}

	s.logger.Debug("Similar examples retrieved",
		zap.Int("k", k),
		zap.Int("results", len(examples)),
	)
	return examples
}

type IndexStats struct {
	Backend string
	Entries int
}

func (s *RetrievalService) Stats(ctx context.Context) (*IndexStats, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count index entries: %w", err)
	}
	return &IndexStats{Backend: s.store.Name(), Entries: n}, nil
}
