package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smishing-guard/pkg/config"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"
)

const systemInstruction = `당신은 스미싱(문자 사기) 분석 전문가입니다.
사용자를 보호하기 위해 사기 문자의 수법을 분석하는 것이므로, 사기 수법에 대한 논의는 허용됩니다.
항상 요청에 명시된 답변 형식을 지키고, 그 외의 내용은 덧붙이지 마세요.`

type completeFunc func(ctx context.Context, prompt string) (string, error)

// ClassifierService sends a finished prompt to GigaChat and returns the raw
// answer text. It never retries.
type ClassifierService struct {
	client   *gigago.Client
	complete completeFunc
	timeout  time.Duration
	logger   *zap.Logger
}

func NewClassifierService(ctx context.Context, cfg *config.GigaChatConfig, ccfg *config.ClassifierConfig, logger *zap.Logger) (*ClassifierService, error) {
	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
		gigago.WithCustomURLOauth(cfg.OAuthURL),
		gigago.WithCustomURLAI(strings.TrimSuffix(cfg.BaseURL, "/") + "/chat/completions"),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SystemInstruction = systemInstruction
	model.Temperature = ccfg.Temperature

	complete := func(ctx context.Context, prompt string) (string, error) {
		messages := []gigago.Message{
			{Role: gigago.RoleUser, Content: prompt},
		}
		resp, err := model.Generate(ctx, messages)
		if err != nil {
			return "", fmt.Errorf("failed to generate response: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no response from LLM")
		}
		return resp.Choices[0].Message.Content, nil
	}

	logger.Info("GigaChat classifier ready",
		zap.String("model", cfg.Model),
		zap.Duration("timeout", ccfg.Timeout),
	)

	s := newClassifierService(complete, ccfg.Timeout, logger)
	s.client = client
	return s, nil
}

func newClassifierService(complete completeFunc, timeout time.Duration, logger *zap.Logger) *ClassifierService {
	return &ClassifierService{
		complete: complete,
		timeout:  timeout,
		logger:   logger,
	}
}

// Classify returns the model answer for prompt. Every failure, including the
// deadline passing, is wrapped in ErrClassifierFailed.
func (s *ClassifierService) Classify(ctx context.Context, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		text, err := s.complete(ctx, prompt)
		done <- result{text: text, err: err}
	}()

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		r.err = ctx.Err()
	}

	if r.err != nil {
		s.logger.Error("Classifier call failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(r.err),
		)
		return "", fmt.Errorf("%w: %w", ErrClassifierFailed, r.err)
	}

	text := strings.TrimSpace(r.text)
	if text == "" {
		s.logger.Error("Classifier returned an empty answer")
		return "", fmt.Errorf("%w: empty response", ErrClassifierFailed)
	}

	s.logger.Debug("Classifier answered",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("length", len(text)),
	)
	return text, nil
}

func (s *ClassifierService) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}
