package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// TokenSource yields the bearer credential for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed API key.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", errors.New("empty embedding API key")
	}
	return string(t), nil
}

// Config configures an OpenAI-compatible embeddings client. GigaChat exposes
// the same /embeddings contract, so the client serves both.
type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries uint64
	RetryBase  time.Duration
	HTTPClient *http.Client
}

// Client calls POST {BaseURL}/embeddings. Rate limiting and server errors are
// retried with exponential backoff; other failures are returned as is.
type Client struct {
	baseURL    string
	model      string
	tokens     TokenSource
	client     *http.Client
	maxRetries uint64
	retryBase  time.Duration
}

func NewClient(cfg Config, tokens TokenSource) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("missing token source")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	if cfg.RetryBase == 0 {
		cfg.RetryBase = 200 * time.Millisecond
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = cfg.Timeout

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		tokens:     tokens,
		client:     httpClient,
		maxRetries: cfg.MaxRetries,
		retryBase:  cfg.RetryBase,
	}, nil
}

func (c *Client) Name() string { return c.model }

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"input": texts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embeddings request: %w", err)
	}

	var vectors [][]float32
	backoff := retry.WithMaxRetries(c.maxRetries, retry.WithCappedDuration(5*time.Second, retry.NewExponential(c.retryBase)))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		out, err := c.do(ctx, body, len(texts))
		if err != nil {
			return err
		}
		vectors = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d texts: %w", len(texts), err)
	}
	return vectors, nil
}

func (c *Client) do(ctx context.Context, body []byte, want int) ([][]float32, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, retry.RetryableError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.RetryableError(err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, retry.RetryableError(fmt.Errorf("embeddings request failed with status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embeddings request failed with status %d: %s", resp.StatusCode, string(payload))
	}

	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings response: %w", err)
	}
	if len(out.Data) != want {
		return nil, fmt.Errorf("embeddings response has %d vectors, want %d", len(out.Data), want)
	}

	// data is keyed by index; providers are not required to keep input order
	vectors := make([][]float32, want)
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= want || vectors[d.Index] != nil {
			return nil, fmt.Errorf("embeddings response has invalid index %d", d.Index)
		}
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
