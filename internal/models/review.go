package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-reviews/internal/domain/valueobject"
)

// Dimension is one of the fixed rating dimensions
type Dimension string

const (
	DimensionOverall         Dimension = "overall"
	DimensionQuality         Dimension = "quality"
	DimensionCommunication   Dimension = "communication"
	DimensionTimeliness      Dimension = "timeliness"
	DimensionProfessionalism Dimension = "professionalism"
)

// Dimensions перечисляет измерения в стабильном порядке.
var Dimensions = []Dimension{
	DimensionOverall,
	DimensionQuality,
	DimensionCommunication,
	DimensionTimeliness,
	DimensionProfessionalism,
}

// DimensionScores хранит оценки по измерениям. Отсутствующее измерение равно 0.
type DimensionScores struct {
	Overall         float64 `json:"overall"`
	Quality         float64 `json:"quality"`
	Communication   float64 `json:"communication"`
	Timeliness      float64 `json:"timeliness"`
	Professionalism float64 `json:"professionalism"`
}

// Get возвращает оценку по измерению.
func (d DimensionScores) Get(dim Dimension) float64 {
	switch dim {
	case DimensionOverall:
		return d.Overall
	case DimensionQuality:
		return d.Quality
	case DimensionCommunication:
		return d.Communication
	case DimensionTimeliness:
		return d.Timeliness
	case DimensionProfessionalism:
		return d.Professionalism
	}
	return 0
}

// Set записывает оценку по измерению.
func (d *DimensionScores) Set(dim Dimension, v float64) {
	switch dim {
	case DimensionOverall:
		d.Overall = v
	case DimensionQuality:
		d.Quality = v
	case DimensionCommunication:
		d.Communication = v
	case DimensionTimeliness:
		d.Timeliness = v
	case DimensionProfessionalism:
		d.Professionalism = v
	}
}

// ModerationNote хранит одну запись журнала модерации. Журнал только дополняется.
type ModerationNote struct {
	Note        string    `json:"note"`
	ModeratorID uuid.UUID `json:"moderatorId"`
	Timestamp   time.Time `json:"timestamp"`
}

// ReviewResponse хранит однократный ответ получателя отзыва.
type ReviewResponse struct {
	Comment     string    `json:"comment"`
	RespondedAt time.Time `json:"respondedAt"`
}

// Review описывает отзыв об участнике сделки по конкретной работе.
type Review struct {
	ID              uuid.UUID                `json:"id"`
	JobID           uuid.UUID                `json:"jobId"`
	ReviewerID      uuid.UUID                `json:"reviewerId"`
	SubjectID       uuid.UUID                `json:"subjectId"`
	ReviewType      valueobject.ReviewType   `json:"reviewType"`
	DimensionScores DimensionScores          `json:"dimensionScores"`
	Comment         string                   `json:"comment"`
	WouldRecommend  bool                     `json:"wouldRecommend"`
	IsVerified      bool                     `json:"isVerified"`
	Response        *ReviewResponse          `json:"response,omitempty"`
	Status          valueobject.ReviewStatus `json:"status"`
	ModerationNotes []ModerationNote         `json:"moderationNotes,omitempty"`
	HelpfulVotes    int                      `json:"helpfulVotes"`
	ReportCount     int                      `json:"reportCount"`
	JobCategory     string                   `json:"jobCategory"`
	CreatedAt       time.Time                `json:"createdAt"`
	UpdatedAt       time.Time                `json:"updatedAt"`
}

// HasResponse сообщает, оставил ли получатель непустой ответ.
func (r *Review) HasResponse() bool {
	return r.Response != nil && r.Response.Comment != ""
}

// ReviewPatch содержит поля, которые автор может изменить в своём отзыве.
type ReviewPatch struct {
	DimensionScores *DimensionScores
	Comment         *string
	WouldRecommend  *bool
}

// RatingPoint is a lightweight review projection for the daily trend
type RatingPoint struct {
	Overall   float64   `json:"overall"`
	CreatedAt time.Time `json:"createdAt"`
}
