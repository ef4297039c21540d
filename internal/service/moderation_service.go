package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-reviews/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-reviews/internal/events"
	"github.com/ignatzorin/freelance-reviews/internal/metrics"
	"github.com/ignatzorin/freelance-reviews/internal/models"
	"github.com/ignatzorin/freelance-reviews/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-reviews/internal/repository"
	"github.com/ignatzorin/freelance-reviews/internal/validation"
)

// Сколько раз перечитывать отзыв, если статус изменили параллельно.
const maxTransitionAttempts = 3

const DefaultBulkModerateMax = 100

// QueueStatusAll снимает фильтр по статусу в очереди модерации.
const QueueStatusAll = "all"

type ModerateInput struct {
	ReviewID    uuid.UUID
	Status      string
	Note        string
	ModeratorID uuid.UUID
}

type BulkModerateInput struct {
	IDs         []uuid.UUID
	Status      string
	Note        string
	ModeratorID uuid.UUID
}

type QueueQuery struct {
	Status    string
	Category  string
	MinRating *float64
	Page      int
	Limit     int
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type QueuePage struct {
	Reviews    []models.Review `json:"reviews"`
	Pagination Pagination      `json:"pagination"`
}

type ModerationService struct {
	store   ReviewStore
	ratings RatingRefresher
	events  emitter
	log     logrus.FieldLogger
	now     func() time.Time
	bulkMax int
}

func NewModerationService(store ReviewStore, ratings RatingRefresher, publisher EventPublisher, log logrus.FieldLogger, bulkMax int) *ModerationService {
	if bulkMax <= 0 {
		bulkMax = DefaultBulkModerateMax
	}
	return &ModerationService{
		store:   store,
		ratings: ratings,
		events:  newEmitter(publisher, log),
		log:     log,
		now:     utcNow,
		bulkMax: bulkMax,
	}
}

// Moderate переводит отзыв в новый статус по таблице переходов и дописывает заметку в журнал.
// Сводка получателя пересчитывается до возврата.
func (s *ModerationService) Moderate(ctx context.Context, in ModerateInput) (*models.Review, error) {
	target, note, err := s.parseDecision(in.Status, in.Note, in.ModeratorID)
	if err != nil {
		return nil, err
	}

	review, from, err := s.transition(ctx, in.ReviewID, target, note, in.ModeratorID)
	if err != nil {
		return nil, err
	}

	s.ratings.RefreshSubject(ctx, review.SubjectID)
	s.emitModerated(review, from)
	return review, nil
}

// BulkModerate применяет решение к набору отзывов. Отсутствующие отзывы и недопустимые
// переходы пропускаются. Пересчёт выполняется один раз на каждого затронутого получателя.
func (s *ModerationService) BulkModerate(ctx context.Context, in BulkModerateInput) (int, error) {
	target, note, err := s.parseDecision(in.Status, in.Note, in.ModeratorID)
	if err != nil {
		return 0, err
	}
	ids := uniqueIDs(in.IDs)
	if len(ids) == 0 {
		return 0, apperror.Validation("список отзывов пуст")
	}
	if len(ids) > s.bulkMax {
		return 0, apperror.Validation(fmt.Sprintf("за один раз можно модерировать не более %d отзывов", s.bulkMax))
	}

	var (
		modified int
		subjects []uuid.UUID
		seen     = make(map[uuid.UUID]struct{})
		failure  error
	)
	for _, id := range ids {
		review, from, err := s.transition(ctx, id, target, note, in.ModeratorID)
		if err != nil {
			if apperror.IsNotFound(err) || apperror.IsInvalidTransition(err) {
				s.log.WithError(err).WithField("review_id", id).Debug("отзыв пропущен при массовой модерации")
				continue
			}
			failure = err
			break
		}
		modified++
		if _, ok := seen[review.SubjectID]; !ok {
			seen[review.SubjectID] = struct{}{}
			subjects = append(subjects, review.SubjectID)
		}
		s.emitModerated(review, from)
	}

	for _, subjectID := range subjects {
		s.ratings.RefreshSubject(ctx, subjectID)
	}

	s.log.WithFields(logrus.Fields{
		"requested":    len(ids),
		"modified":     modified,
		"status":       target,
		"moderator_id": in.ModeratorID,
	}).Info("массовая модерация завершена")

	if failure != nil {
		return modified, failure
	}
	return modified, nil
}

// Report учитывает жалобу и, если таблица переходов позволяет, отправляет отзыв на повторную проверку.
func (s *ModerationService) Report(ctx context.Context, id, reporterID uuid.UUID, reason string) (*models.Review, error) {
	if reporterID == uuid.Nil {
		return nil, apperror.ErrUnauthorized
	}
	reason, err := validation.NormalizeRequiredText("причина жалобы", reason, validation.MaxReportReasonLength)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}

	if _, err := s.store.IncrementReportCount(ctx, id); err != nil {
		return nil, storeError(err, "не удалось сохранить жалобу")
	}

	review, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "не удалось получить отзыв")
	}
	if !review.Status.CanTransitionTo(valueobject.ReviewStatusFlagged) {
		return review, nil
	}

	flagged, from, err := s.transition(ctx, id, valueobject.ReviewStatusFlagged, "report: "+reason, reporterID)
	if err != nil {
		if apperror.IsInvalidTransition(err) {
			return s.GetReview(ctx, id)
		}
		return nil, err
	}

	s.ratings.RefreshSubject(ctx, flagged.SubjectID)
	s.emitModerated(flagged, from)
	s.events.emit(events.TypeReviewReported, events.AggregateReview, id, flagged.SubjectID, s.now(), map[string]string{
		"reviewId":   id.String(),
		"reporterId": reporterID.String(),
		"reason":     reason,
	})
	return flagged, nil
}

// GetReview возвращает отзыв для модератора в любом статусе.
func (s *ModerationService) GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	review, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "не удалось получить отзыв")
	}
	return review, nil
}

// ListQueue возвращает очередь модерации, новые отзывы сначала. Только чтение.
func (s *ModerationService) ListQueue(ctx context.Context, q QueueQuery) (*QueuePage, error) {
	filter := repository.ReviewFilter{}
	switch q.Status {
	case "":
		filter.Status = valueobject.ReviewStatusPending
	case QueueStatusAll:
	default:
		status, err := valueobject.NewReviewStatus(q.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	if q.Category != "" {
		category, err := validation.NormalizeCategory(q.Category)
		if err != nil {
			return nil, apperror.Validation(err.Error())
		}
		filter.Category = category
	}
	if q.MinRating != nil {
		if math.IsNaN(*q.MinRating) || *q.MinRating < 0 || *q.MinRating > validation.MaxScore {
			return nil, apperror.Validation("minRating должен быть от 0 до 5")
		}
		filter.MinRating = q.MinRating
	}

	page, limit := normalizePage(q.Page, q.Limit)
	reviews, total, err := s.store.Find(ctx, filter, repository.ListOptions{Limit: limit, Offset: (page - 1) * limit})
	if err != nil {
		return nil, storeError(err, "не удалось получить очередь модерации")
	}
	return &QueuePage{
		Reviews: nonNilReviews(reviews),
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: totalPages(total, limit),
		},
	}, nil
}

func (s *ModerationService) parseDecision(status, note string, moderatorID uuid.UUID) (valueobject.ReviewStatus, string, error) {
	if moderatorID == uuid.Nil {
		return "", "", apperror.ErrModeratorRequired
	}
	target, err := valueobject.NewModerationStatus(status)
	if err != nil {
		return "", "", err
	}
	note, err = validation.NormalizeComment(note, validation.MaxModerationNoteLength)
	if err != nil {
		return "", "", apperror.Validation(err.Error())
	}
	return target, note, nil
}

// transition выполняет проверенный переход с условием на текущий статус.
// При гонке отзыв перечитывается и переход проверяется заново.
func (s *ModerationService) transition(ctx context.Context, id uuid.UUID, target valueobject.ReviewStatus, note string, moderatorID uuid.UUID) (*models.Review, valueobject.ReviewStatus, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		current, err := s.store.GetByID(ctx, id)
		if err != nil {
			return nil, "", storeError(err, "не удалось получить отзыв")
		}
		if !current.Status.CanTransitionTo(target) {
			return nil, "", fmt.Errorf("%w: %s -> %s", apperror.ErrInvalidTransition, current.Status, target)
		}

		entry := models.ModerationNote{Note: note, ModeratorID: moderatorID, Timestamp: s.now()}
		updated, err := s.store.ApplyModeration(ctx, id, current.Status, target, entry)
		if errors.Is(err, repository.ErrStatusConflict) {
			continue
		}
		if err != nil {
			return nil, "", storeError(err, "не удалось сохранить решение модерации")
		}

		metrics.ReviewsModerated.WithLabelValues(string(target)).Inc()
		s.log.WithFields(logrus.Fields{
			"review_id":    id,
			"from":         current.Status,
			"to":           target,
			"moderator_id": moderatorID,
		}).Info("статус отзыва изменён")
		return updated, current.Status, nil
	}
	return nil, "", apperror.New(apperror.ErrCodeConflict, "статус отзыва изменился параллельно, повторите попытку")
}

func (s *ModerationService) emitModerated(review *models.Review, from valueobject.ReviewStatus) {
	s.events.emit(events.TypeReviewModerated, events.AggregateReview, review.ID, review.SubjectID, review.UpdatedAt, map[string]any{
		"reviewId":  review.ID,
		"subjectId": review.SubjectID,
		"from":      from,
		"to":        review.Status,
	})
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
