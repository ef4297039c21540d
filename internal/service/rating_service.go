package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-reviews/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-reviews/internal/events"
	"github.com/ignatzorin/freelance-reviews/internal/metrics"
	"github.com/ignatzorin/freelance-reviews/internal/models"
	"github.com/ignatzorin/freelance-reviews/internal/repository"
)

// SummaryCache хранит последние вычисленные сводки. Промах не является ошибкой.
type SummaryCache interface {
	GetSummary(ctx context.Context, subjectID uuid.UUID) (*models.RatingSummary, bool, error)
	SetSummary(ctx context.Context, summary *models.RatingSummary) error
	Invalidate(ctx context.Context, subjectID uuid.UUID) error
}

type RatingService struct {
	store  ReviewStore
	cache  SummaryCache
	events emitter
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewRatingService(store ReviewStore, cache SummaryCache, publisher EventPublisher, log logrus.FieldLogger) *RatingService {
	return &RatingService{
		store:  store,
		cache:  cache,
		events: newEmitter(publisher, log),
		log:    log,
		now:    utcNow,
	}
}

// Recompute заново строит сводку по текущим одобренным отзывам и кладёт её в кэш.
func (s *RatingService) Recompute(ctx context.Context, subjectID uuid.UUID) (*models.RatingSummary, error) {
	started := time.Now()
	approved, _, err := s.store.Find(ctx, repository.ReviewFilter{
		SubjectID: subjectID,
		Status:    valueobject.ReviewStatusApproved,
	}, repository.ListOptions{})
	if err != nil {
		metrics.RatingRecomputes.WithLabelValues(metrics.ResultError).Inc()
		return nil, storeError(err, "не удалось пересчитать рейтинг")
	}

	summary := ComputeSummary(subjectID, approved, s.now())
	metrics.RatingRecomputes.WithLabelValues(metrics.ResultOK).Inc()
	metrics.RatingRecomputeDuration.Observe(time.Since(started).Seconds())

	if s.cache != nil {
		if err := s.cache.SetSummary(ctx, &summary); err != nil {
			s.log.WithError(err).WithField("subject_id", subjectID).Warn("не удалось сохранить сводку в кэш")
		}
	}
	return &summary, nil
}

// RefreshSubject пересчитывает сводку после записи и публикует rating.recomputed.
// Ошибка пересчёта не отменяет запись: кэш сбрасывается, и следующее чтение пересчитает сводку заново.
func (s *RatingService) RefreshSubject(ctx context.Context, subjectID uuid.UUID) {
	summary, err := s.Recompute(ctx, subjectID)
	if err != nil {
		s.log.WithError(err).WithField("subject_id", subjectID).Warn("пересчёт рейтинга не выполнен")
		if s.cache != nil {
			if err := s.cache.Invalidate(ctx, subjectID); err != nil {
				s.log.WithError(err).WithField("subject_id", subjectID).Warn("не удалось сбросить кэш рейтинга")
			}
		}
		return
	}
	s.events.emit(events.TypeRatingRecompute, events.AggregateRating, subjectID, subjectID, summary.LastComputedAt, summary)
}

// GetSummary возвращает сводку из кэша или пересчитывает её.
func (s *RatingService) GetSummary(ctx context.Context, subjectID uuid.UUID) (*models.RatingSummary, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.GetSummary(ctx, subjectID)
		if err != nil {
			s.log.WithError(err).WithField("subject_id", subjectID).Warn("кэш рейтинга недоступен")
		}
		if ok {
			metrics.RatingCacheLookups.WithLabelValues(metrics.ResultHit).Inc()
			return cached, nil
		}
		metrics.RatingCacheLookups.WithLabelValues(metrics.ResultMiss).Inc()
	}
	return s.Recompute(ctx, subjectID)
}

// GetRankSignals проецирует сигналы ранжирования из сводки.
func (s *RatingService) GetRankSignals(ctx context.Context, subjectID uuid.UUID) (*models.RankSignals, error) {
	summary, err := s.GetSummary(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	signals := ProjectRankSignals(*summary)
	return &signals, nil
}
