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

// ReviewUseCases описывает операции с отзывами для автора и получателя.
type ReviewUseCases interface {
	CreateReview(ctx context.Context, reviewerID uuid.UUID, in service.CreateReviewInput) (*models.Review, error)
	GetReview(ctx context.Context, id, viewerID uuid.UUID) (*models.Review, error)
	ListSubjectReviews(ctx context.Context, subjectID uuid.UUID, page, limit int, reviewType string) (*service.ReviewPage, error)
	ListJobReviews(ctx context.Context, jobID uuid.UUID) ([]models.Review, error)
	UpdateReview(ctx context.Context, id, principalID uuid.UUID, patch models.ReviewPatch) (*models.Review, error)
	DeleteReview(ctx context.Context, id, principalID uuid.UUID) error
	AddResponse(ctx context.Context, id, principalID uuid.UUID, comment string) (*models.Review, error)
	VoteHelpful(ctx context.Context, id, voterID uuid.UUID) (int, error)
}

// ReportUseCase принимает жалобы на отзывы.
type ReportUseCase interface {
	Report(ctx context.Context, id, reporterID uuid.UUID, reason string) (*models.Review, error)
}

type ReviewHandler struct {
	reviews ReviewUseCases
	reports ReportUseCase
}

func NewReviewHandler(reviews ReviewUseCases, reports ReportUseCase) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, reports: reports}
}

// CreateReview POST /reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	var req dto.CreateReviewRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	review, err := h.reviews.CreateReview(c.Request.Context(), userID, service.CreateReviewInput{
		JobID:           req.JobID,
		SubjectID:       req.SubjectID,
		ReviewType:      req.ReviewType,
		DimensionScores: req.DimensionScores.ToModel(),
		Comment:         req.Comment,
		WouldRecommend:  req.WouldRecommend,
		JobCategory:     req.JobCategory,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ReviewResponse{Review: review})
}

// GetReview GET /reviews/:reviewId
// Неодобренный отзыв доступен только автору и получателю.
func (h *ReviewHandler) GetReview(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "reviewId")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	review, err := h.reviews.GetReview(c.Request.Context(), id, common.OptionalUserID(c))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ReviewResponse{Review: review})
}

// ListUserReviews GET /reviews/user/:userId?page&limit&reviewType
func (h *ReviewHandler) ListUserReviews(c *gin.Context) {
	subjectID, err := common.ParseUUIDParam(c, "userId")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	page, err := h.reviews.ListSubjectReviews(
		c.Request.Context(),
		subjectID,
		common.ParseIntQuery(c, "page", 1),
		common.ParseIntQuery(c, "limit", 0),
		c.Query("reviewType"),
	)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListJobReviews GET /reviews/job/:jobId
func (h *ReviewHandler) ListJobReviews(c *gin.Context) {
	jobID, err := common.ParseUUIDParam(c, "jobId")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	reviews, err := h.reviews.ListJobReviews(c.Request.Context(), jobID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ReviewListResponse{Reviews: reviews})
}

// UpdateReview PUT /reviews/:reviewId
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	userID, id, ok := h.principalAndReview(c)
	if !ok {
		return
	}

	var req dto.UpdateReviewRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	review, err := h.reviews.UpdateReview(c.Request.Context(), id, userID, req.ToPatch())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ReviewResponse{Review: review})
}

// DeleteReview DELETE /reviews/:reviewId
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	userID, id, ok := h.principalAndReview(c)
	if !ok {
		return
	}

	if err := h.reviews.DeleteReview(c.Request.Context(), id, userID); err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "отзыв удалён"})
}

// AddResponse PUT /reviews/:reviewId/response
func (h *ReviewHandler) AddResponse(c *gin.Context) {
	userID, id, ok := h.principalAndReview(c)
	if !ok {
		return
	}

	var req dto.ResponseRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	review, err := h.reviews.AddResponse(c.Request.Context(), id, userID, req.Comment)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ReviewResponse{Review: review})
}

// VoteHelpful POST /reviews/:reviewId/helpful
func (h *ReviewHandler) VoteHelpful(c *gin.Context) {
	userID, id, ok := h.principalAndReview(c)
	if !ok {
		return
	}

	votes, err := h.reviews.VoteHelpful(c.Request.Context(), id, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.HelpfulVotesResponse{HelpfulVotes: votes})
}

// ReportReview POST /reviews/:reviewId/report
func (h *ReviewHandler) ReportReview(c *gin.Context) {
	userID, id, ok := h.principalAndReview(c)
	if !ok {
		return
	}

	var req dto.ReportRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.RespondAppError(c, err)
		return
	}

	if _, err := h.reports.Report(c.Request.Context(), id, userID, req.Reason); err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "жалоба принята"})
}

func (h *ReviewHandler) principalAndReview(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondAppError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	id, err := common.ParseUUIDParam(c, "reviewId")
	if err != nil {
		common.RespondAppError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}
