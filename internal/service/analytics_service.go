package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-reviews/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-reviews/internal/models"
	"github.com/ignatzorin/freelance-reviews/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-reviews/internal/repository"
)

const (
	DefaultAnalyticsWindowDays = 30
	MaxAnalyticsWindowDays     = 365
	topCategoriesLimit         = 10
	trendDateLayout            = "2006-01-02"
)

type AnalyticsService struct {
	store      ReviewStore
	windowDays int
	log        logrus.FieldLogger
	now        func() time.Time
}

func NewAnalyticsService(store ReviewStore, windowDays int, log logrus.FieldLogger) *AnalyticsService {
	if windowDays <= 0 {
		windowDays = DefaultAnalyticsWindowDays
	}
	if windowDays > MaxAnalyticsWindowDays {
		windowDays = MaxAnalyticsWindowDays
	}
	return &AnalyticsService{store: store, windowDays: windowDays, log: log, now: utcNow}
}

// Snapshot считает платформенную аналитику. windowDays <= 0 берёт окно из конфигурации.
// Итоги и категории агрегирует хранилище, в память читаются только отзывы из окна тренда.
func (s *AnalyticsService) Snapshot(ctx context.Context, windowDays int) (*models.AnalyticsSnapshot, error) {
	if windowDays <= 0 {
		windowDays = s.windowDays
	}
	if windowDays > MaxAnalyticsWindowDays {
		return nil, apperror.Validation(fmt.Sprintf("окно аналитики не может превышать %d дней", MaxAnalyticsWindowDays))
	}

	now := s.now()
	stats, err := s.store.AggregateStats(ctx, repository.ReviewFilter{}, topCategoriesLimit)
	if err != nil {
		return nil, storeError(err, "не удалось получить данные для аналитики")
	}
	from, to := trendWindow(now, windowDays)
	trend, err := s.store.ListRatingPoints(ctx, repository.ReviewFilter{CreatedFrom: from, CreatedTo: to})
	if err != nil {
		return nil, storeError(err, "не удалось получить данные для аналитики")
	}

	snapshot := BuildSnapshot(*stats, trend, windowDays, now)
	s.log.WithFields(logrus.Fields{
		"total_reviews": snapshot.TotalReviews,
		"trend_points":  len(trend),
		"window_days":   windowDays,
	}).Debug("аналитика построена")
	return &snapshot, nil
}

// trendWindow возвращает полуинтервал [from, to) из windowDays календарных дней UTC, включая сегодня.
func trendWindow(now time.Time, windowDays int) (time.Time, time.Time) {
	today := now.UTC().Truncate(24 * time.Hour)
	return today.AddDate(0, 0, -(windowDays - 1)), today.AddDate(0, 0, 1)
}

type dayAcc struct {
	count int
	sum   float64
}

// BuildSnapshot собирает снимок из агрегатов хранилища и точек тренда без обращения к хранилищу.
// Итоги и категории берутся из stats (все отзывы), дневной тренд только из точек внутри окна.
func BuildSnapshot(stats models.ReviewStats, trend []models.RatingPoint, windowDays int, now time.Time) models.AnalyticsSnapshot {
	if windowDays <= 0 {
		windowDays = DefaultAnalyticsWindowDays
	}

	byStatus := make(map[valueobject.ReviewStatus]int, len(valueobject.AllReviewStatuses))
	for _, st := range valueobject.AllReviewStatuses {
		byStatus[st] = 0
	}
	var (
		total int
		sum   float64
	)
	for _, g := range stats.ByStatus {
		byStatus[valueobject.ReviewStatus(g.Key)] += g.Count
		total += g.Count
		sum += g.SumOverall
	}

	snapshot := models.AnalyticsSnapshot{
		TotalReviews:    total,
		ReviewsByStatus: byStatus,
		TopCategories:   topCategories(stats.TopCategories),
		DailyTrend:      make([]models.DailyTrendPoint, 0, windowDays),
		WindowDays:      windowDays,
		GeneratedAt:     now,
	}
	if total > 0 {
		snapshot.AverageRating = roundTenth(sum / float64(total))
	}

	windowStart, windowEnd := trendWindow(now, windowDays)
	days := make(map[string]*dayAcc)
	for _, p := range trend {
		created := p.CreatedAt.UTC()
		if created.Before(windowStart) || !created.Before(windowEnd) {
			continue
		}
		key := created.Format(trendDateLayout)
		acc, ok := days[key]
		if !ok {
			acc = &dayAcc{}
			days[key] = acc
		}
		acc.count++
		acc.sum += p.Overall
	}

	for d := windowStart; d.Before(windowEnd); d = d.AddDate(0, 0, 1) {
		point := models.DailyTrendPoint{Date: d.Format(trendDateLayout)}
		if acc, ok := days[point.Date]; ok {
			point.Count = acc.count
			point.AverageRating = roundTenth(acc.sum / float64(acc.count))
		}
		snapshot.DailyTrend = append(snapshot.DailyTrend, point)
	}
	return snapshot
}

func topCategories(groups []models.GroupStat) []models.CategoryStat {
	stats := make([]models.CategoryStat, 0, len(groups))
	for _, g := range groups {
		if g.Key == "" || g.Count == 0 {
			continue
		}
		stats = append(stats, models.CategoryStat{
			Category:      g.Key,
			Count:         g.Count,
			AverageRating: roundTenth(g.SumOverall / float64(g.Count)),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Category < stats[j].Category
	})
	if len(stats) > topCategoriesLimit {
		stats = stats[:topCategoriesLimit]
	}
	return stats
}
