package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-reviews/internal/dto"
	"github.com/ignatzorin/freelance-reviews/internal/http/handlers/common"
	"github.com/ignatzorin/freelance-reviews/internal/models"
)

// RatingReader отдаёт производные рейтинговые данные получателя.
type RatingReader interface {
	GetSummary(ctx context.Context, subjectID uuid.UUID) (*models.RatingSummary, error)
	GetRankSignals(ctx context.Context, subjectID uuid.UUID) (*models.RankSignals, error)
}

type RatingHandler struct {
	ratings RatingReader
}

func NewRatingHandler(ratings RatingReader) *RatingHandler {
	return &RatingHandler{ratings: ratings}
}

// GetWorkerRating GET /ratings/worker/:workerId
// Без отзывов возвращается нулевая сводка, а не 404.
func (h *RatingHandler) GetWorkerRating(c *gin.Context) {
	workerID, err := common.ParseUUIDParam(c, "workerId")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	summary, err := h.ratings.GetSummary(c.Request.Context(), workerID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DataResponse{Data: summary})
}

// GetRankSignals GET /ratings/worker/:workerId/rank-signals
func (h *RatingHandler) GetRankSignals(c *gin.Context) {
	workerID, err := common.ParseUUIDParam(c, "workerId")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	signals, err := h.ratings.GetRankSignals(c.Request.Context(), workerID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DataResponse{Data: dto.RankSignalsResponse{
		WorkerID:    workerID,
		RankSignals: signals,
	}})
}
