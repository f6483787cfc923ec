package handlers

import (
	"context"
	"time"

	"smishing-guard/internal/dto"
	"smishing-guard/internal/models"
	"smishing-guard/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type AnalysisLister interface {
	List(ctx context.Context, limit, offset int) ([]*models.AnalysisRecord, error)
	Count(ctx context.Context) (int64, error)
}

type IndexStater interface {
	Stats(ctx context.Context) (*service.IndexStats, error)
}

// AnalysisHandler serves the read-only views: scan history and index stats.
type AnalysisHandler struct {
	records AnalysisLister
	index   IndexStater
	logger  *zap.Logger
}

func NewAnalysisHandler(records AnalysisLister, index IndexStater, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		records: records,
		index:   index,
		logger:  logger,
	}
}

// ListAnalyses godoc
// @Summary List analyzed messages
// @Description Get analyzed messages, newest first
// @Tags analyses
// @Produce json
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} dto.AnalysisListResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/analyses [get]
func (h *AnalysisHandler) ListAnalyses(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultListLimit)
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	records, err := h.records.List(c.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list analyses", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "Failed to list analyses",
		})
	}
	total, err := h.records.Count(c.Context())
	if err != nil {
		h.logger.Error("Failed to count analyses", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "Failed to list analyses",
		})
	}

	items := make([]dto.AnalysisResponse, 0, len(records))
	for _, r := range records {
		items = append(items, dto.AnalysisResponse{
			ID:         r.ID,
			Sender:     r.Sender,
			Content:    r.Content,
			RiskScore:  r.RiskScore,
			Reason:     r.Reason,
			AlertLevel: string(models.AlertLevelFor(r.RiskScore)),
			CreatedAt:  r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(dto.AnalysisListResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// IndexStats godoc
// @Summary Vector index statistics
// @Description Backend name and number of stored fraud examples
// @Tags index
// @Produce json
// @Success 200 {object} dto.IndexStatsResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/index/stats [get]
func (h *AnalysisHandler) IndexStats(c *fiber.Ctx) error {
	stats, err := h.index.Stats(c.Context())
	if err != nil {
		h.logger.Error("Failed to read index stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "Failed to read index stats",
		})
	}
	return c.JSON(dto.IndexStatsResponse{
		Backend: stats.Backend,
		Entries: stats.Entries,
	})
}
