package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smishing-guard/internal/embedding"
	"smishing-guard/internal/models"
	"smishing-guard/internal/vectorstore"
	"smishing-guard/pkg/config"

	"go.uber.org/zap"
)

type ExampleSource interface {
	ListByLabel(ctx context.Context, label models.Label, limit int) ([]*models.Example, error)
}

type SyncOptions struct {
	// Rebuild clears the index before loading.
	Rebuild bool
	// Limit overrides the configured row limit when positive.
	Limit int
}

type SyncReport struct {
	Total         int `json:"total"`
	Inserted      int `json:"inserted"`
	Skipped       int `json:"skipped"`
	Batches       int `json:"batches"`
	FailedBatches int `json:"failed_batches"`
}

// SyncService copies fraud examples from the relational store into the
// vector index. A failed batch is logged and skipped.
type SyncService struct {
	source   ExampleSource
	embedder embedding.Embedder
	store    vectorstore.Storage
	config   *config.SyncConfig
	logger   *zap.Logger
	wait     func(ctx context.Context, d time.Duration) error
}

func NewSyncService(source ExampleSource, embedder embedding.Embedder, store vectorstore.Storage, cfg *config.SyncConfig, logger *zap.Logger) *SyncService {
	return &SyncService{
		source:   source,
		embedder: embedder,
		store:    store,
		config:   cfg,
		logger:   logger,
		wait:     sleepContext,
	}
}

// Run returns an error only when the source cannot be read, the index cannot
// be cleared, or ctx is cancelled. Batch failures are counted in the report.
func (s *SyncService) Run(ctx context.Context, opts SyncOptions) (*SyncReport, error) {
	limit := s.config.RowLimit
	if opts.Limit > 0 {
		limit = opts.Limit
	}

	examples, err := s.source.ListByLabel(ctx, models.LabelFraud, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read examples: %w", err)
	}

	if opts.Rebuild {
		if err := s.store.Clear(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear index: %w", err)
		}
		s.logger.Info("Vector index cleared", zap.String("backend", s.store.Name()))
	}

	report := &SyncReport{Total: len(examples)}
	usable := make([]*models.Example, 0, len(examples))
	for _, e := range examples {
		if strings.TrimSpace(e.Content) == "" {
			report.Skipped++
			continue
		}
		usable = append(usable, e)
	}

	s.logger.Info("Sync started",
		zap.Int("examples", report.Total),
		zap.Int("skipped", report.Skipped),
		zap.Int("batch_size", s.config.BatchSize),
		zap.String("embedder", s.embedder.Name()),
		zap.String("backend", s.store.Name()),
	)

	size := s.config.BatchSize
	for offset := 0; offset < len(usable); offset += size {
		end := min(offset+size, len(usable))
		batch := usable[offset:end]
		report.Batches++

		if err := s.syncBatch(ctx, batch); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.FailedBatches++
			s.logger.Warn("Sync batch failed",
				zap.Int("offset", offset),
				zap.Int("size", len(batch)),
				zap.Error(err),
			)
			if err := s.wait(ctx, s.config.FailureBackoff); err != nil {
				return report, err
			}
			continue
		}

		report.Inserted += len(batch)
		s.logger.Debug("Sync batch inserted", zap.Int("offset", offset), zap.Int("size", len(batch)))

		if end < len(usable) {
			if err := s.wait(ctx, s.config.BatchDelay); err != nil {
				return report, err
			}
		}
	}

	s.logger.Info("Sync finished",
		zap.Int("total", report.Total),
		zap.Int("inserted", report.Inserted),
		zap.Int("batches", report.Batches),
		zap.Int("failed_batches", report.FailedBatches),
	)
	return report, nil
}

func (s *SyncService) syncBatch(ctx context.Context, batch []*models.Example) error {
	texts := make([]string, len(batch))
	for i, e := range batch {
		texts[i] = e.Content
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed batch: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
	}

	entries := make([]vectorstore.Entry, len(batch))
	for i, e := range batch {
		entries[i] = vectorstore.Entry{
			ExampleID: e.ID,
			Content:   e.Content,
			Label:     e.Label,
			Vector:    vectors[i],
		}
	}
	if err := s.store.Insert(ctx, entries); err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
