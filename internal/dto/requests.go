package dto

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-reviews/internal/models"
)

// DimensionScoresRequest содержит оценки по измерениям.
type DimensionScoresRequest struct {
	Overall         float64 `json:"overall" binding:"required,dimension_score"`
	Quality         float64 `json:"quality" binding:"dimension_score"`
	Communication   float64 `json:"communication" binding:"dimension_score"`
	Timeliness      float64 `json:"timeliness" binding:"dimension_score"`
	Professionalism float64 `json:"professionalism" binding:"dimension_score"`
}

func (r DimensionScoresRequest) ToModel() models.DimensionScores {
	return models.DimensionScores{
		Overall:         r.Overall,
		Quality:         r.Quality,
		Communication:   r.Communication,
		Timeliness:      r.Timeliness,
		Professionalism: r.Professionalism,
	}
}

// CreateReviewRequest represents the request to create a review
type CreateReviewRequest struct {
	JobID           uuid.UUID              `json:"jobId" binding:"required"`
	SubjectID       uuid.UUID              `json:"subjectId" binding:"required"`
	ReviewType      string                 `json:"reviewType" binding:"omitempty,oneof=hirer_to_worker worker_to_hirer"`
	DimensionScores DimensionScoresRequest `json:"dimensionScores"`
	Comment         string                 `json:"comment"`
	WouldRecommend  bool                   `json:"wouldRecommend"`
	JobCategory     string                 `json:"jobCategory"`
}

// UpdateReviewRequest описывает тело PUT /reviews/:reviewId. Отсутствующие поля не меняются.
type UpdateReviewRequest struct {
	DimensionScores *DimensionScoresRequest `json:"dimensionScores"`
	Comment         *string                 `json:"comment"`
	WouldRecommend  *bool                   `json:"wouldRecommend"`
}

func (r UpdateReviewRequest) ToPatch() models.ReviewPatch {
	patch := models.ReviewPatch{
		Comment:        r.Comment,
		WouldRecommend: r.WouldRecommend,
	}
	if r.DimensionScores != nil {
		scores := r.DimensionScores.ToModel()
		patch.DimensionScores = &scores
	}
	return patch
}

// ResponseRequest содержит ответ получателя на отзыв.
type ResponseRequest struct {
	Comment string `json:"comment" binding:"required"`
}

// ReportRequest содержит причину жалобы.
type ReportRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ModerateRequest описывает решение модератора по одному отзыву.
type ModerateRequest struct {
	Status string `json:"status" binding:"required,review_status"`
	Note   string `json:"note"`
}

// BulkModerateRequest описывает решение модератора по нескольким отзывам.
type BulkModerateRequest struct {
	IDs    []uuid.UUID `json:"ids" binding:"required,min=1"`
	Status string      `json:"status" binding:"required,review_status"`
	Note   string      `json:"note"`
}
