package dto

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-reviews/internal/models"
)

// ErrorResponse описывает единый формат ошибки.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// MessageResponse используется для ответов без данных.
type MessageResponse struct {
	Message string `json:"message"`
}

// ReviewResponse оборачивает один отзыв.
type ReviewResponse struct {
	Review *models.Review `json:"review"`
}

// ReviewListResponse содержит список отзывов без пагинации.
type ReviewListResponse struct {
	Reviews []models.Review `json:"reviews"`
}

// DataResponse оборачивает административные и рейтинговые ответы.
type DataResponse struct {
	Data interface{} `json:"data"`
}

// RankSignalsResponse содержит сигналы ранжирования исполнителя.
type RankSignalsResponse struct {
	WorkerID    uuid.UUID           `json:"workerId"`
	RankSignals *models.RankSignals `json:"rankSignals"`
}

// BulkModerateResponse содержит число изменённых отзывов.
type BulkModerateResponse struct {
	Modified int `json:"modified"`
}

// HelpfulVotesResponse содержит текущее число голосов «полезно».
type HelpfulVotesResponse struct {
	HelpfulVotes int `json:"helpfulVotes"`
}
