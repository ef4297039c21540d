package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-reviews/internal/dto"
	"github.com/ignatzorin/freelance-reviews/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-reviews/internal/models"
	"github.com/ignatzorin/freelance-reviews/internal/service"
)

// ModerationUseCases описывает операции модератора.
type ModerationUseCases interface {
	Moderate(ctx context.Context, in service.ModerateInput) (*models.Review, error)
	BulkModerate(ctx context.Context, in service.BulkModerateInput) (int, error)
	GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error)
	ListQueue(ctx context.Context, q service.QueueQuery) (*service.QueuePage, error)
}

// AnalyticsReader строит платформенную аналитику.
type AnalyticsReader interface {
	Snapshot(ctx context.Context, windowDays int) (*models.AnalyticsSnapshot, error)
}

type AdminReviewHandler struct {
	moderation ModerationUseCases
	analytics  AnalyticsReader
}

func NewAdminReviewHandler(moderation ModerationUseCases, analytics AnalyticsReader) *AdminReviewHandler {
	return &AdminReviewHandler{moderation: moderation, analytics: analytics}
}

// Queue GET /admin/reviews/queue?status&page&limit&category&minRating
func (h *AdminReviewHandler) Queue(c *gin.Context) {
	minRating, err := common.ParseFloatQuery(c, "minRating")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	page, err := h.moderation.ListQueue(c.Request.Context(), service.QueueQuery{
		Status:    c.Query("status"),
		Category:  c.Query("category"),
		MinRating: minRating,
		Page:      common.ParseIntQuery(c, "page", 1),
		Limit:     common.ParseIntQuery(c, "limit", 0),
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DataResponse{Data: page})
}

// GetReview GET /admin/reviews/:id
// В отличие от публичного чтения показывает журнал модерации и жалобы без ограничений по статусу.
func (h *AdminReviewHandler) GetReview(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	review, err := h.moderation.GetReview(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DataResponse{Data: review})
}

// Moderate POST /admin/reviews/:id/moderate
func (h *AdminReviewHandler) Moderate(c *gin.Context) {
	moderatorID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	var req dto.ModerateRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	review, err := h.moderation.Moderate(c.Request.Context(), service.ModerateInput{
		ReviewID:    id,
		Status:      req.Status,
		Note:        req.Note,
		ModeratorID: moderatorID,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DataResponse{Data: review})
}

// BulkModerate POST /admin/reviews/bulk-moderate
func (h *AdminReviewHandler) BulkModerate(c *gin.Context) {
	moderatorID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	var req dto.BulkModerateRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	modified, err := h.moderation.BulkModerate(c.Request.Context(), service.BulkModerateInput{
		IDs:         req.IDs,
		Status:      req.Status,
		Note:        req.Note,
		ModeratorID: moderatorID,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DataResponse{Data: dto.BulkModerateResponse{Modified: modified}})
}

// Analytics GET /admin/reviews/analytics?days
func (h *AdminReviewHandler) Analytics(c *gin.Context) {
	snapshot, err := h.analytics.Snapshot(c.Request.Context(), common.ParseIntQuery(c, "days", 0))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DataResponse{Data: snapshot})
}
