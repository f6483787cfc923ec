package service

import (
	"context"
	"errors"
	"sync"

	"smishing-guard/internal/models"
	"smishing-guard/internal/vectorstore"
)

type fakeEmbedder struct {
	err      error
	failCall map[int]bool
	calls    int
}

func (f *fakeEmbedder) Name() string { return "fake" }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.failCall[f.calls] {
		return nil, errors.New("embedding provider unavailable")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

type fakeStorage struct {
	mu        sync.Mutex
	entries   []vectorstore.Entry
	hits      []vectorstore.Hit
	searchErr error
	insertErr error
	cleared   int
}

func (f *fakeStorage) Name() string { return "fake" }

func (f *fakeStorage) Insert(_ context.Context, entries []vectorstore.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *fakeStorage) Search(context.Context, []float32, int) ([]vectorstore.Hit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

func (f *fakeStorage) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	f.entries = nil
	return nil
}

func (f *fakeStorage) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries), nil
}

func (f *fakeStorage) Close() error { return nil }

type fakeClassifier struct {
	answer string
	err    error
	prompt string
}

func (f *fakeClassifier) Classify(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type fakeAnalysisStore struct {
	records []*models.AnalysisRecord
	err     error
}

func (f *fakeAnalysisStore) Create(_ context.Context, r *models.AnalysisRecord) error {
	if f.err != nil {
		return f.err
	}
	r.ID = int64(len(f.records) + 1)
	f.records = append(f.records, r)
	return nil
}

type fakeExampleSource struct {
	examples []*models.Example
	err      error
	limit    int
	label    models.Label
}

func (f *fakeExampleSource) ListByLabel(_ context.Context, label models.Label, limit int) ([]*models.Example, error) {
	f.label = label
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && limit < len(f.examples) {
		return f.examples[:limit], nil
	}
	return f.examples, nil
}
