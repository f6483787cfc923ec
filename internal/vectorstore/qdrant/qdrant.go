package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"smishing-guard/internal/models"
	"smishing-guard/internal/vectorstore"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errNotFound = errors.New("qdrant: not found")

// Storage is a minimal REST client to Qdrant. It assumes cosine distance and
// creates the collection on the first insert.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
	logger     *zap.Logger

	mu      sync.Mutex
	ready   bool
	lastSeq int64
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type payload struct {
	ExampleID int64  `json:"example_id"`
	Content   string `json:"content"`
	Label     int    `json:"label"`
	Seq       int64  `json:"seq"`
}

func NewStorage(cfg Config, logger *zap.Logger) (*Storage, error) {
	if cfg.URL == "" {
		return nil, errors.New("qdrant url is required")
	}
	if cfg.Collection == "" {
		return nil, errors.New("qdrant collection is required")
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     client,
		logger:     logger,
	}, nil
}

func (s *Storage) Name() string { return "qdrant" }

func (s *Storage) Insert(ctx context.Context, entries []vectorstore.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	dim := len(entries[0].Vector)
	for _, e := range entries {
		if len(e.Vector) == 0 {
			return fmt.Errorf("empty vector for example %d", e.ExampleID)
		}
		if len(e.Vector) != dim {
			return fmt.Errorf("%w: example %d has %d, batch has %d", vectorstore.ErrDimensionMismatch, e.ExampleID, len(e.Vector), dim)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureCollectionLocked(ctx, dim); err != nil {
		return err
	}

	base := time.Now().UnixNano()
	if base <= s.lastSeq {
		base = s.lastSeq + 1
	}
	points := make([]map[string]any, len(entries))
	for i, e := range entries {
		points[i] = map[string]any{
			"id":     uuid.New().String(),
			"vector": e.Vector,
			"payload": payload{
				ExampleID: e.ExampleID,
				Content:   e.Content,
				Label:     int(e.Label),
				Seq:       base + int64(i),
			},
		}
	}
	s.lastSeq = base + int64(len(entries)) - 1

	body := map[string]any{"points": points}
	if err := s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), body, nil); err != nil {
		if errors.Is(err, errNotFound) {
			s.ready = false
		}
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]vectorstore.Hit, error) {
	if topK <= 0 {
		return []vectorstore.Hit{}, nil
	}

	// over-fetch so ties at the cut can be ordered by insertion sequence
	limit := topK * 2
	if limit < topK+4 {
		limit = topK + 4
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload payload `json:"payload"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), req, &resp)
	if errors.Is(err, errNotFound) {
		return []vectorstore.Hit{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	sort.SliceStable(resp.Result, func(i, j int) bool {
		a, b := resp.Result[i], resp.Result[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Payload.Seq < b.Payload.Seq
	})
	if len(resp.Result) > topK {
		resp.Result = resp.Result[:topK]
	}

	hits := make([]vectorstore.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, vectorstore.Hit{
			Entry: vectorstore.Entry{
				ExampleID: r.Payload.ExampleID,
				Content:   r.Payload.Content,
				Label:     models.Label(r.Payload.Label),
			},
			Score: r.Score,
		})
	}
	return hits, nil
}

// Clear drops the collection; the next insert recreates it.
func (s *Storage) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.do(ctx, http.MethodDelete, s.collectionURL(""), nil, nil)
	if err != nil && !errors.Is(err, errNotFound) {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	s.ready = false
	s.logger.Info("Qdrant collection dropped", zap.String("collection", s.collection))
	return nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, s.collectionURL("/points/count"), map[string]any{"exact": true}, &resp)
	if errors.Is(err, errNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return resp.Result.Count, nil
}

func (s *Storage) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Storage) ensureCollectionLocked(ctx context.Context, dimension int) error {
	if s.ready {
		return nil
	}

	err := s.do(ctx, http.MethodGet, s.collectionURL(""), nil, nil)
	if err == nil {
		s.ready = true
		return nil
	}
	if !errors.Is(err, errNotFound) {
		return fmt.Errorf("failed to inspect collection: %w", err)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	s.ready = true
	s.logger.Info("Qdrant collection created",
		zap.String("collection", s.collection),
		zap.Int("dimension", dimension),
	)
	return nil
}

func (s *Storage) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

func (s *Storage) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("qdrant %s %s failed with status %d: %s", method, url, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
