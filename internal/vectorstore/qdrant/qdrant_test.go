package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"smishing-guard/internal/models"
	"smishing-guard/internal/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeQdrant struct {
	mu       sync.Mutex
	exists   bool
	created  map[string]any
	upserted []map[string]any
	calls    []string
	apiKeys  []string
	search   string
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/collections/sms":
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"result":{}}`))
	case r.Method == http.MethodPut && r.URL.Path == "/collections/sms":
		_ = json.NewDecoder(r.Body).Decode(&f.created)
		f.exists = true
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.Method == http.MethodPut && r.URL.Path == "/collections/sms/points":
		var body struct {
			Points []map[string]any `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.upserted = append(f.upserted, body.Points...)
		_, _ = w.Write([]byte(`{"result":{}}`))
	case r.Method == http.MethodPost && r.URL.Path == "/collections/sms/points/search":
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(f.search))
	case r.Method == http.MethodPost && r.URL.Path == "/collections/sms/points/count":
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"result":{"count":7}}`))
	case r.Method == http.MethodDelete && r.URL.Path == "/collections/sms":
		f.exists = false
		_, _ = w.Write([]byte(`{"result":true}`))
	default:
		w.WriteHeader(http.StatusTeapot)
	}
}

func newTestStorage(t *testing.T, fake *fakeQdrant) *Storage {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	s, err := NewStorage(Config{URL: srv.URL + "/", APIKey: "secret", Collection: "sms"}, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestStorage_InsertCreatesCollectionOnce(t *testing.T) {
	fake := &fakeQdrant{}
	s := newTestStorage(t, fake)
	ctx := context.Background()

	entries := []vectorstore.Entry{
		{ExampleID: 1, Content: "a", Label: models.LabelFraud, Vector: []float32{1, 0, 0}},
		{ExampleID: 2, Content: "b", Label: models.LabelFraud, Vector: []float32{0, 1, 0}},
	}
	require.NoError(t, s.Insert(ctx, entries))
	require.NoError(t, s.Insert(ctx, entries[:1]))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{
		"GET /collections/sms",
		"PUT /collections/sms",
		"PUT /collections/sms/points",
		"PUT /collections/sms/points",
	}, fake.calls)
	for _, key := range fake.apiKeys {
		assert.Equal(t, "secret", key)
	}

	vectors := fake.created["vectors"].(map[string]any)
	assert.Equal(t, float64(3), vectors["size"])
	assert.Equal(t, "Cosine", vectors["distance"])

	require.Len(t, fake.upserted, 3)
	first := fake.upserted[0]["payload"].(map[string]any)
	second := fake.upserted[1]["payload"].(map[string]any)
	third := fake.upserted[2]["payload"].(map[string]any)
	assert.Equal(t, float64(1), first["example_id"])
	assert.Equal(t, float64(2), first["label"])
	assert.Less(t, first["seq"].(float64), second["seq"].(float64))
	assert.Less(t, second["seq"].(float64), third["seq"].(float64))
}

func TestStorage_SearchOrdersTiesBySequence(t *testing.T) {
	fake := &fakeQdrant{exists: true, search: `{"result":[
		{"score":0.5,"payload":{"example_id":3,"content":"c","label":2,"seq":30}},
		{"score":0.9,"payload":{"example_id":1,"content":"a","label":2,"seq":10}},
		{"score":0.5,"payload":{"example_id":2,"content":"b","label":2,"seq":20}}
	]}`}
	s := newTestStorage(t, fake)

	hits, err := s.Search(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(1), hits[0].Entry.ExampleID)
	assert.Equal(t, int64(2), hits[1].Entry.ExampleID)
	assert.Equal(t, "b", hits[1].Entry.Content)
	assert.Equal(t, models.LabelFraud, hits[1].Entry.Label)
}

func TestStorage_MissingCollection(t *testing.T) {
	s := newTestStorage(t, &fakeQdrant{})
	ctx := context.Background()

	hits, err := s.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStorage_ClearResetsCollection(t *testing.T) {
	fake := &fakeQdrant{exists: true}
	s := newTestStorage(t, fake)
	ctx := context.Background()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Insert(ctx, []vectorstore.Entry{{ExampleID: 1, Vector: []float32{1}}}))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Contains(t, fake.calls, "DELETE /collections/sms")
	assert.Equal(t, "PUT /collections/sms", fake.calls[len(fake.calls)-2])
}

func TestStorage_InsertRejectsMixedDimensions(t *testing.T) {
	s := newTestStorage(t, &fakeQdrant{})

	err := s.Insert(context.Background(), []vectorstore.Entry{
		{ExampleID: 1, Vector: []float32{1, 0}},
		{ExampleID: 2, Vector: []float32{1}},
	})
	assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)
}

func TestNewStorage_Validation(t *testing.T) {
	_, err := NewStorage(Config{Collection: "sms"}, zap.NewNop())
	assert.Error(t, err)
	_, err = NewStorage(Config{URL: "http://localhost:6333"}, zap.NewNop())
	assert.Error(t, err)
}
