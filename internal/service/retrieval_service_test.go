package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"smishing-guard/internal/models"
	"smishing-guard/internal/vectorstore"
	"smishing-guard/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRetrievalService_Retrieve(t *testing.T) {
	store := &fakeStorage{hits: []vectorstore.Hit{
		{Entry: vectorstore.Entry{ExampleID: 4, Content: "택배 미수령", Label: models.LabelFraud}, Score: 0.9},
		{Entry: vectorstore.Entry{ExampleID: 9, Content: "계좌 정지", Label: models.LabelFraud}, Score: 0.7},
	}}
	s := NewRetrievalService(&fakeEmbedder{}, store, &config.RAGConfig{TopK: 3}, zap.NewNop())

	got := s.Retrieve(context.Background(), "query", 3)
	assert.Equal(t, []models.Example{
		{ID: 4, Content: "택배 미수령", Label: models.LabelFraud},
		{ID: 9, Content: "계좌 정지", Label: models.LabelFraud},
	}, got)
	assert.Equal(t, 3, s.TopK())
}

func TestRetrievalService_DegradesOnFailure(t *testing.T) {
	tests := []struct {
		name     string
		embedder *fakeEmbedder
		store    *fakeStorage
	}{
		{name: "embedding failure", embedder: &fakeEmbedder{err: errors.New("boom")}, store: &fakeStorage{}},
		{name: "search failure", embedder: &fakeEmbedder{}, store: &fakeStorage{searchErr: errors.New("index offline")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			s := NewRetrievalService(tt.embedder, tt.store, &config.RAGConfig{TopK: 3}, zap.New(core))

			got := s.Retrieve(context.Background(), "query", 3)
			assert.NotNil(t, got)
			assert.Empty(t, got)
			assert.Equal(t, 1, logs.FilterMessage("Retrieval failed, continuing without context").Len())
		})
	}
}

func TestRetrievalService_EmptyIndex(t *testing.T) {
	s := NewRetrievalService(&fakeEmbedder{}, &fakeStorage{}, &config.RAGConfig{TopK: 3}, zap.NewNop())
	assert.Empty(t, s.Retrieve(context.Background(), "query", 3))
}

func TestRetrievalService_Stats(t *testing.T) {
	store := &fakeStorage{entries: make([]vectorstore.Entry, 5)}
	s := NewRetrievalService(&fakeEmbedder{}, store, &config.RAGConfig{TopK: 3}, zap.NewNop())

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &IndexStats{Backend: "fake", Entries: 5}, stats)
}

type blockingEmbedder struct{ fakeEmbedder }

func (b *blockingEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRetrievalService_TimeoutYieldsEmptyContext(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := &fakeStorage{hits: []vectorstore.Hit{{Entry: vectorstore.Entry{ExampleID: 1, Content: "x"}}}}
	s := NewRetrievalService(&blockingEmbedder{}, store, &config.RAGConfig{TopK: 3, Timeout: 20 * time.Millisecond}, zap.New(core))

	start := time.Now()
	got := s.Retrieve(context.Background(), "query", 3)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Empty(t, got)

	entries := logs.FilterMessage("Retrieval failed, continuing without context").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "embed", entries[0].ContextMap()["stage"])
	assert.Contains(t, entries[0].ContextMap()["error"], "deadline exceeded")
}
