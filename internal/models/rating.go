package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-reviews/internal/domain/valueobject"
)

// RatingDistribution считает отзывы по корзинам 1..5.
type RatingDistribution map[int]int

// NewRatingDistribution возвращает распределение со всеми корзинами, равными нулю.
func NewRatingDistribution() RatingDistribution {
	return RatingDistribution{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
}

// Total суммирует все корзины.
func (d RatingDistribution) Total() int {
	total := 0
	for _, n := range d {
		total += n
	}
	return total
}

// RatingSummary содержит производную статистику по одному получателю отзывов.
// Пересчитывается целиком, частично не обновляется.
type RatingSummary struct {
	SubjectID            uuid.UUID          `json:"subjectId"`
	TotalReviews         int                `json:"totalReviews"`
	AverageRating        float64            `json:"averageRating"`
	DimensionAverages    DimensionScores    `json:"dimensionAverages"`
	RatingDistribution   RatingDistribution `json:"ratingDistribution"`
	RecommendationRate   int                `json:"recommendationRate"`
	ResponseRate         int                `json:"responseRate"`
	VerifiedReviewsCount int                `json:"verifiedReviewsCount"`
	RecentRating         float64            `json:"recentRating"`
	LastComputedAt       time.Time          `json:"lastComputedAt"`
}

// RankSignals is the subset of RatingSummary used for search ranking
type RankSignals struct {
	SubjectID            uuid.UUID `json:"subjectId"`
	TotalReviews         int       `json:"totalReviews"`
	AverageRating        float64   `json:"averageRating"`
	RecommendationRate   int       `json:"recommendationRate"`
	VerifiedReviewsCount int       `json:"verifiedReviewsCount"`
	ResponseRate         int       `json:"responseRate"`
	RecentRating         float64   `json:"recentRating"`
}

// GroupStat содержит число отзывов и сумму общих оценок в одной группе (статус или категория).
type GroupStat struct {
	Key        string
	Count      int
	SumOverall float64
}

// ReviewStats содержит агрегаты, посчитанные хранилищем. TopCategories уже
// отсортированы по убыванию числа отзывов и обрезаны до запрошенного лимита.
type ReviewStats struct {
	ByStatus      []GroupStat
	TopCategories []GroupStat
}

type CategoryStat struct {
	Category      string  `json:"category"`
	Count         int     `json:"count"`
	AverageRating float64 `json:"averageRating"`
}

// DailyTrendPoint содержит число отзывов и среднюю оценку за календарный день (UTC).
type DailyTrendPoint struct {
	Date          string  `json:"date"`
	Count         int     `json:"count"`
	AverageRating float64 `json:"averageRating"`
}

// AnalyticsSnapshot represents platform-wide review analytics
type AnalyticsSnapshot struct {
	TotalReviews    int                              `json:"totalReviews"`
	AverageRating   float64                          `json:"averageRating"`
	ReviewsByStatus map[valueobject.ReviewStatus]int `json:"reviewsByStatus"`
	TopCategories   []CategoryStat                   `json:"topCategories"`
	DailyTrend      []DailyTrendPoint                `json:"dailyTrend"`
	WindowDays      int                              `json:"windowDays"`
	GeneratedAt     time.Time                        `json:"generatedAt"`
}
