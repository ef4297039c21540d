package service

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-reviews/internal/models"
)

// Число последних отзывов, входящих в recentRating.
const recentWindow = 10

// roundTenth округляет до одного знака, половина от нуля.
func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// ratingBucket округляет общую оценку вверх от половины и ограничивает 1..5.
func ratingBucket(overall float64) int {
	b := int(math.Floor(overall + 0.5))
	if b < 1 {
		return 1
	}
	if b > 5 {
		return 5
	}
	return b
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}

// sortByRecency упорядочивает отзывы: createdAt по убыванию, затем id.
// Порядок суммирования фиксирован, поэтому результат не зависит от порядка выдачи хранилища.
func sortByRecency(reviews []models.Review) []models.Review {
	sorted := make([]models.Review, len(reviews))
	copy(sorted, reviews)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})
	return sorted
}

// ComputeSummary строит RatingSummary по одобренным отзывам получателя.
// Чистая функция: одинаковый набор отзывов даёт одинаковый результат.
func ComputeSummary(subjectID uuid.UUID, approved []models.Review, now time.Time) models.RatingSummary {
	summary := models.RatingSummary{
		SubjectID:          subjectID,
		RatingDistribution: models.NewRatingDistribution(),
		LastComputedAt:     now,
	}
	total := len(approved)
	if total == 0 {
		return summary
	}

	reviews := sortByRecency(approved)

	var (
		sums        models.DimensionScores
		recommended int
		responded   int
		verified    int
		recentSum   float64
	)
	for i, r := range reviews {
		for _, dim := range models.Dimensions {
			sums.Set(dim, sums.Get(dim)+r.DimensionScores.Get(dim))
		}
		summary.RatingDistribution[ratingBucket(r.DimensionScores.Overall)]++
		if r.WouldRecommend {
			recommended++
		}
		if r.HasResponse() {
			responded++
		}
		if r.IsVerified {
			verified++
		}
		if i < recentWindow {
			recentSum += r.DimensionScores.Overall
		}
	}

	n := float64(total)
	for _, dim := range models.Dimensions {
		summary.DimensionAverages.Set(dim, roundTenth(sums.Get(dim)/n))
	}
	summary.TotalReviews = total
	summary.AverageRating = summary.DimensionAverages.Overall
	summary.RecommendationRate = percent(recommended, total)
	summary.ResponseRate = percent(responded, total)
	summary.VerifiedReviewsCount = verified
	summary.RecentRating = roundTenth(recentSum / float64(min(recentWindow, total)))
	return summary
}

// ProjectRankSignals выделяет из сводки поля для ранжирования.
func ProjectRankSignals(s models.RatingSummary) models.RankSignals {
	return models.RankSignals{
		SubjectID:            s.SubjectID,
		TotalReviews:         s.TotalReviews,
		AverageRating:        s.AverageRating,
		RecommendationRate:   s.RecommendationRate,
		VerifiedReviewsCount: s.VerifiedReviewsCount,
		ResponseRate:         s.ResponseRate,
		RecentRating:         s.RecentRating,
	}
}
