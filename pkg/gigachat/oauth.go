package gigachat

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"smishing-guard/pkg/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// refreshMargin is how long before expiry a cached token is replaced.
const refreshMargin = time.Minute

// TokenSource obtains and caches GigaChat access tokens from the OAuth
// endpoint. It is used for REST calls the gigago client does not cover,
// such as /embeddings.
type TokenSource struct {
	cfg        *config.GigaChatConfig
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewTokenSource(cfg *config.GigaChatConfig, logger *zap.Logger) *TokenSource {
	return &TokenSource{
		cfg:        cfg,
		httpClient: NewHTTPClient(cfg, logger),
		logger:     logger,
		now:        time.Now,
	}
}

// NewHTTPClient returns a client honoring InsecureSkipVerify; the GigaChat
// endpoints are signed by the Russian national CA which is rarely installed.
func NewHTTPClient(cfg *config.GigaChatConfig, logger *zap.Logger) *http.Client {
	httpClient := &http.Client{}
	if cfg.InsecureSkipVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
		logger.Warn("HTTP client TLS certificate verification is disabled")
	}
	return httpClient
}

func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Add(refreshMargin).Before(s.expiresAt) {
		return s.token, nil
	}

	token, expiresAt, err := s.fetch(ctx)
	if err != nil {
		return "", err
	}
	s.token = token
	s.expiresAt = expiresAt
	return token, nil
}

func (s *TokenSource) fetch(ctx context.Context) (string, time.Time, error) {
	rqUID := uuid.New().String()

	formData := url.Values{}
	formData.Set("scope", s.cfg.Scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.OAuthURL, strings.NewReader(formData.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create OAuth request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", rqUID)
	// the authorization key is issued already Base64-encoded
	req.Header.Set("Authorization", "Basic "+s.cfg.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to get access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		s.logger.Error("OAuth request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(bodyBytes)),
			zap.String("rq_uid", rqUID),
		)
		return "", time.Time{}, fmt.Errorf("OAuth failed with status %d", resp.StatusCode)
	}

	var oauthResp struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"` // unix milliseconds
		ExpiresIn   int64  `json:"expires_in"` // seconds
	}
	if err := json.NewDecoder(resp.Body).Decode(&oauthResp); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to decode OAuth response: %w", err)
	}
	if oauthResp.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("empty access token in OAuth response")
	}

	expiresAt := s.now().Add(30 * time.Minute)
	switch {
	case oauthResp.ExpiresAt > 0:
		expiresAt = time.UnixMilli(oauthResp.ExpiresAt)
	case oauthResp.ExpiresIn > 0:
		expiresAt = s.now().Add(time.Duration(oauthResp.ExpiresIn) * time.Second)
	}

	s.logger.Info("Access token obtained", zap.Time("expires_at", expiresAt))
	return oauthResp.AccessToken, expiresAt, nil
}
