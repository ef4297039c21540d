package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-reviews/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-reviews/internal/events"
	"github.com/ignatzorin/freelance-reviews/internal/goroutine"
	"github.com/ignatzorin/freelance-reviews/internal/models"
	"github.com/ignatzorin/freelance-reviews/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-reviews/internal/repository"
)

// ReviewStore реализуется PostgreSQL и MongoDB репозиториями.
type ReviewStore interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	GetByJobAndReviewer(ctx context.Context, jobID, reviewerID uuid.UUID, reviewType valueobject.ReviewType) (*models.Review, error)
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id uuid.UUID) error
	Find(ctx context.Context, filter repository.ReviewFilter, opts repository.ListOptions) ([]models.Review, int, error)
	ListRatingPoints(ctx context.Context, filter repository.ReviewFilter) ([]models.RatingPoint, error)
	AggregateStats(ctx context.Context, filter repository.ReviewFilter, categoryLimit int) (*models.ReviewStats, error)
	ApplyModeration(ctx context.Context, id uuid.UUID, from, to valueobject.ReviewStatus, note models.ModerationNote) (*models.Review, error)
	SetResponse(ctx context.Context, id uuid.UUID, response models.ReviewResponse) (*models.Review, error)
	AddHelpfulVote(ctx context.Context, id, voterID uuid.UUID) (int, error)
	IncrementReportCount(ctx context.Context, id uuid.UUID) (int, error)
}

// RatingRefresher пересчитывает сводку получателя после записи в его отзывы.
type RatingRefresher interface {
	RefreshSubject(ctx context.Context, subjectID uuid.UUID)
}

// EventPublisher доставляет доменные события.
type EventPublisher interface {
	Publish(ctx context.Context, event *events.Event) error
}

const publishTimeout = 5 * time.Second

// emitter публикует события в фоне, не блокируя запрос.
type emitter struct {
	publisher EventPublisher
	log       logrus.FieldLogger
	async     func(fn func())
}

func newEmitter(publisher EventPublisher, log logrus.FieldLogger) emitter {
	return emitter{publisher: publisher, log: log, async: goroutine.SafeGo}
}

func (e emitter) emit(eventType, aggregateType string, aggregateID, subjectID uuid.UUID, at time.Time, data any) {
	if e.publisher == nil {
		return
	}
	event, err := events.New(eventType, aggregateType, aggregateID, at, data)
	if err != nil {
		e.log.WithError(err).WithField("event_type", eventType).Error("не удалось сформировать событие")
		return
	}
	event.WithMetadata(events.MetaSubjectID, subjectID.String())
	e.async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := e.publisher.Publish(ctx, event); err != nil {
			e.log.WithError(err).WithField("event_type", eventType).Error("не удалось опубликовать событие")
		}
	})
}

// storeError переводит ошибки хранилища в AppError.
func storeError(err error, message string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrReviewNotFound):
		return apperror.ErrReviewNotFound
	case errors.Is(err, repository.ErrDuplicateReview):
		return apperror.ErrDuplicateReview
	case errors.Is(err, repository.ErrResponseExists):
		return apperror.ErrResponseExists
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	return apperror.Database(err, message)
}

func utcNow() time.Time {
	return time.Now().UTC()
}
