package handlers

import (
	"context"
	"errors"

	"smishing-guard/internal/dto"
	"smishing-guard/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

type Analyzer interface {
	Analyze(ctx context.Context, in service.AnalyzeInput) (*service.AnalyzeResult, error)
}

type AnalyzeHandler struct {
	analyzer Analyzer
	logger   *zap.Logger
}

func NewAnalyzeHandler(analyzer Analyzer, logger *zap.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzer: analyzer,
		logger:   logger,
	}
}

// Analyze godoc
// @Summary Analyze an SMS message
// @Description Scores a message for smishing risk using similar known fraud messages as context
// @Tags analyze
// @Accept json
// @Produce json
// @Param request body dto.AnalyzeRequest true "Message to analyze"
// @Success 200 {object} dto.AnalyzeResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /analyze [post]
func (h *AnalyzeHandler) Analyze(c *fiber.Ctx) error {
	requestID := c.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	c.Set(requestIDHeader, requestID)

	var req dto.AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "Invalid request body",
		})
	}

	result, err := h.analyzer.Analyze(c.Context(), service.AnalyzeInput{
		RequestID: requestID,
		Sender:    req.Sender,
		Content:   req.Content,
	})
	switch {
	case errors.Is(err, service.ErrEmptyContent):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "Content is required",
		})
	case err != nil:
		h.logger.Error("Failed to analyze message",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "Failed to analyze message: " + err.Error(),
		})
	}

	return c.JSON(dto.AnalyzeResponse{
		RiskScore:  result.RiskScore,
		Reason:     result.Reason,
		Message:    result.Message,
		AlertLevel: string(result.AlertLevel),
	})
}
