package service

import (
	"context"
	"strings"
	"time"

	"smishing-guard/internal/models"

	"go.uber.org/zap"
)

// CompletedMessage is returned with every successful analysis.
const CompletedMessage = "분석 완료"

const (
	defaultSender = "unknown"
	maxSenderLen  = 50
)

type Stage string

const (
	StageReceived    Stage = "received"
	StageRetrieving  Stage = "retrieving"
	StagePrompting   Stage = "prompting"
	StageClassifying Stage = "classifying"
	StageParsing     Stage = "parsing"
	StagePersisting  Stage = "persisting"
	StageComplete    Stage = "complete"
	StageFailed      Stage = "failed"
)

type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) []models.Example
	TopK() int
}

type Classifier interface {
	Classify(ctx context.Context, prompt string) (string, error)
}

type AnalysisStore interface {
	Create(ctx context.Context, record *models.AnalysisRecord) error
}

type AnalyzeInput struct {
	RequestID string
	Sender    string
	Content   string
}

type AnalyzeResult struct {
	RiskScore  int
	Reason     string
	Message    string
	AlertLevel models.AlertLevel
	// RecordID is zero when the log row could not be written.
	RecordID int64
}

// AnalyzeService runs one message through retrieval, prompting,
// classification, parsing and persistence, in that order.
type AnalyzeService struct {
	retriever  Retriever
	classifier Classifier
	store      AnalysisStore
	logger     *zap.Logger
	now        func() time.Time
}

func NewAnalyzeService(retriever Retriever, classifier Classifier, store AnalysisStore, logger *zap.Logger) *AnalyzeService {
	return &AnalyzeService{
		retriever:  retriever,
		classifier: classifier,
		store:      store,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *AnalyzeService) Analyze(ctx context.Context, in AnalyzeInput) (*AnalyzeResult, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	sender := strings.TrimSpace(in.Sender)
	if sender == "" {
		sender = defaultSender
	}

	logger := s.logger.With(zap.String("request_id", in.RequestID))
	enter := func(stage Stage) {
		logger.Debug("Analysis stage", zap.String("stage", string(stage)))
	}

	enter(StageReceived)

	enter(StageRetrieving)
	examples := s.retriever.Retrieve(ctx, content, s.retriever.TopK())

	enter(StagePrompting)
	prompt := BuildPrompt(examples, content)

	enter(StageClassifying)
	raw, err := s.classifier.Classify(ctx, prompt)
	if err != nil {
		enter(StageFailed)
		return nil, err
	}

	enter(StageParsing)
	parsed := ParseResponse(raw)
	if parsed.Degradation != DegradationNone {
		logger.Warn("Classifier response degraded to neutral score",
			zap.String("degradation", string(parsed.Degradation)),
			zap.String("raw", raw),
		)
	}
	if parsed.Clamped {
		logger.Info("Classifier score clamped", zap.Int("score", parsed.Score), zap.String("raw", raw))
	}

	result := &AnalyzeResult{
		RiskScore:  parsed.Score,
		Reason:     parsed.Reason,
		Message:    CompletedMessage,
		AlertLevel: models.AlertLevelFor(parsed.Score),
	}

	enter(StagePersisting)
	record := &models.AnalysisRecord{
		Sender:    truncateRunes(sanitizeUTF8(sender), maxSenderLen),
		Content:   sanitizeUTF8(content),
		RiskScore: parsed.Score,
		Reason:    sanitizeUTF8(parsed.Reason),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Create(ctx, record); err != nil {
		logger.Error("Failed to persist analysis record", zap.Error(err))
	} else {
		result.RecordID = record.ID
	}

	enter(StageComplete)
	logger.Info("Message analyzed",
		zap.Int("risk_score", result.RiskScore),
		zap.String("alert_level", string(result.AlertLevel)),
		zap.Int("context_examples", len(examples)),
	)
	return result, nil
}
