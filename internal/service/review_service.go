package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-reviews/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-reviews/internal/events"
	"github.com/ignatzorin/freelance-reviews/internal/models"
	"github.com/ignatzorin/freelance-reviews/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-reviews/internal/repository"
	"github.com/ignatzorin/freelance-reviews/internal/validation"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type CreateReviewInput struct {
	JobID           uuid.UUID
	SubjectID       uuid.UUID
	ReviewType      string
	DimensionScores models.DimensionScores
	Comment         string
	WouldRecommend  bool
	JobCategory     string
}

// ReviewPage содержит страницу отзывов о получателе.
type ReviewPage struct {
	Reviews      []models.Review `json:"reviews"`
	TotalPages   int             `json:"totalPages"`
	CurrentPage  int             `json:"currentPage"`
	TotalReviews int             `json:"totalReviews"`
}

type ReviewService struct {
	store      ReviewStore
	ratings    RatingRefresher
	events     emitter
	log        logrus.FieldLogger
	now        func() time.Time
	maxComment int
}

func NewReviewService(store ReviewStore, ratings RatingRefresher, publisher EventPublisher, log logrus.FieldLogger, maxComment int) *ReviewService {
	return &ReviewService{
		store:      store,
		ratings:    ratings,
		events:     newEmitter(publisher, log),
		log:        log,
		now:        utcNow,
		maxComment: maxComment,
	}
}

// CreateReview создаёт отзыв в статусе pending.
func (s *ReviewService) CreateReview(ctx context.Context, reviewerID uuid.UUID, in CreateReviewInput) (*models.Review, error) {
	if reviewerID == uuid.Nil {
		return nil, apperror.ErrUnauthorized
	}
	if in.JobID == uuid.Nil || in.SubjectID == uuid.Nil {
		return nil, apperror.Validation("не указаны работа или получатель отзыва")
	}
	if in.SubjectID == reviewerID {
		return nil, apperror.Validation("нельзя оставить отзыв о самом себе")
	}
	reviewType, err := valueobject.NewReviewType(in.ReviewType)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateDimensionScores(in.DimensionScores); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	comment, err := validation.NormalizeComment(in.Comment, s.maxComment)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}
	category, err := validation.NormalizeCategory(in.JobCategory)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}

	existing, err := s.store.GetByJobAndReviewer(ctx, in.JobID, reviewerID, reviewType)
	if err != nil {
		return nil, storeError(err, "не удалось проверить существующие отзывы")
	}
	if existing != nil {
		return nil, apperror.ErrDuplicateReview
	}

	now := s.now()
	review := &models.Review{
		ID:              uuid.New(),
		JobID:           in.JobID,
		ReviewerID:      reviewerID,
		SubjectID:       in.SubjectID,
		ReviewType:      reviewType,
		DimensionScores: in.DimensionScores,
		Comment:         comment,
		WouldRecommend:  in.WouldRecommend,
		Status:          valueobject.ReviewStatusPending,
		ModerationNotes: []models.ModerationNote{},
		JobCategory:     category,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Create(ctx, review); err != nil {
		return nil, storeError(err, "не удалось сохранить отзыв")
	}

	s.log.WithFields(logrus.Fields{
		"review_id":  review.ID,
		"subject_id": review.SubjectID,
		"job_id":     review.JobID,
	}).Info("отзыв создан")

	s.ratings.RefreshSubject(ctx, review.SubjectID)
	s.events.emit(events.TypeReviewCreated, events.AggregateReview, review.ID, review.SubjectID, now, review)
	return review, nil
}

// GetReview возвращает отзыв по ID. Неодобренный отзыв видят только автор и получатель,
// для остальных (в том числе анонимов с viewerID == uuid.Nil) он не найден.
func (s *ReviewService) GetReview(ctx context.Context, id, viewerID uuid.UUID) (*models.Review, error) {
	review, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "не удалось получить отзыв")
	}
	if review.Status != valueobject.ReviewStatusApproved && !isParticipant(review, viewerID) {
		return nil, apperror.ErrReviewNotFound
	}
	return publicReview(review), nil
}

// ListSubjectReviews возвращает одобренные отзывы о пользователе, новые сначала.
func (s *ReviewService) ListSubjectReviews(ctx context.Context, subjectID uuid.UUID, page, limit int, reviewType string) (*ReviewPage, error) {
	page, limit = normalizePage(page, limit)
	filter := repository.ReviewFilter{
		SubjectID: subjectID,
		Status:    valueobject.ReviewStatusApproved,
	}
	if reviewType != "" {
		rt, err := valueobject.NewReviewType(reviewType)
		if err != nil {
			return nil, err
		}
		filter.ReviewType = rt
	}

	reviews, total, err := s.store.Find(ctx, filter, repository.ListOptions{Limit: limit, Offset: (page - 1) * limit})
	if err != nil {
		return nil, storeError(err, "не удалось получить отзывы")
	}
	return &ReviewPage{
		Reviews:      publicReviews(reviews),
		TotalPages:   totalPages(total, limit),
		CurrentPage:  page,
		TotalReviews: total,
	}, nil
}

// ListJobReviews возвращает одобренные отзывы по работе.
func (s *ReviewService) ListJobReviews(ctx context.Context, jobID uuid.UUID) ([]models.Review, error) {
	reviews, _, err := s.store.Find(ctx, repository.ReviewFilter{
		JobID:  jobID,
		Status: valueobject.ReviewStatusApproved,
	}, repository.ListOptions{})
	if err != nil {
		return nil, storeError(err, "не удалось получить отзывы")
	}
	return publicReviews(reviews), nil
}

// UpdateReview применяет правки автора. Статус модерации не меняется.
func (s *ReviewService) UpdateReview(ctx context.Context, id, principalID uuid.UUID, patch models.ReviewPatch) (*models.Review, error) {
	review, err := s.ownedReview(ctx, id, principalID)
	if err != nil {
		return nil, err
	}

	if patch.DimensionScores != nil {
		if err := validation.ValidateDimensionScores(*patch.DimensionScores); err != nil {
			return nil, apperror.Validation(err.Error())
		}
		review.DimensionScores = *patch.DimensionScores
	}
	if patch.Comment != nil {
		comment, err := validation.NormalizeComment(*patch.Comment, s.maxComment)
		if err != nil {
			return nil, apperror.Validation(err.Error())
		}
		review.Comment = comment
	}
	if patch.WouldRecommend != nil {
		review.WouldRecommend = *patch.WouldRecommend
	}
	review.UpdatedAt = s.now()

	if err := s.store.Update(ctx, review); err != nil {
		return nil, storeError(err, "не удалось обновить отзыв")
	}

	s.log.WithField("review_id", review.ID).Info("отзыв обновлён")
	s.ratings.RefreshSubject(ctx, review.SubjectID)
	s.events.emit(events.TypeReviewUpdated, events.AggregateReview, review.ID, review.SubjectID, review.UpdatedAt, publicReview(review))
	return publicReview(review), nil
}

// DeleteReview удаляет отзыв по запросу автора.
func (s *ReviewService) DeleteReview(ctx context.Context, id, principalID uuid.UUID) error {
	review, err := s.ownedReview(ctx, id, principalID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return storeError(err, "не удалось удалить отзыв")
	}

	s.log.WithFields(logrus.Fields{"review_id": id, "subject_id": review.SubjectID}).Info("отзыв удалён")
	s.ratings.RefreshSubject(ctx, review.SubjectID)
	s.events.emit(events.TypeReviewDeleted, events.AggregateReview, id, review.SubjectID, s.now(), map[string]string{
		"reviewId":  id.String(),
		"subjectId": review.SubjectID.String(),
	})
	return nil
}

// AddResponse сохраняет однократный ответ получателя отзыва.
func (s *ReviewService) AddResponse(ctx context.Context, id, principalID uuid.UUID, comment string) (*models.Review, error) {
	review, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "не удалось получить отзыв")
	}
	if review.SubjectID != principalID {
		return nil, apperror.ErrNotReviewSubject
	}
	if review.HasResponse() {
		return nil, apperror.ErrResponseExists
	}
	text, err := validation.NormalizeRequiredText("ответ", comment, s.maxComment)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}

	updated, err := s.store.SetResponse(ctx, id, models.ReviewResponse{Comment: text, RespondedAt: s.now()})
	if err != nil {
		return nil, storeError(err, "не удалось сохранить ответ")
	}

	s.ratings.RefreshSubject(ctx, updated.SubjectID)
	s.events.emit(events.TypeReviewResponded, events.AggregateReview, id, updated.SubjectID, updated.UpdatedAt, publicReview(updated))
	return publicReview(updated), nil
}

// VoteHelpful учитывает голос «полезно». Повторный голос того же пользователя не учитывается.
func (s *ReviewService) VoteHelpful(ctx context.Context, id, voterID uuid.UUID) (int, error) {
	if voterID == uuid.Nil {
		return 0, apperror.ErrUnauthorized
	}
	votes, err := s.store.AddHelpfulVote(ctx, id, voterID)
	if err != nil {
		return 0, storeError(err, "не удалось учесть голос")
	}
	return votes, nil
}

func (s *ReviewService) ownedReview(ctx context.Context, id, principalID uuid.UUID) (*models.Review, error) {
	review, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, apperror.ErrReviewNotFound
		}
		return nil, storeError(err, "не удалось получить отзыв")
	}
	if review.ReviewerID != principalID {
		return nil, apperror.ErrNotReviewOwner
	}
	return review, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func totalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}

// publicReviews убирает журнал модерации из выдачи списков.
func publicReviews(reviews []models.Review) []models.Review {
	out := make([]models.Review, 0, len(reviews))
	for i := range reviews {
		out = append(out, *publicReview(&reviews[i]))
	}
	return out
}

// publicReview возвращает копию отзыва без журнала модерации: заметки и ID модераторов
// доступны только через административный API.
func publicReview(r *models.Review) *models.Review {
	cp := *r
	cp.ModerationNotes = nil
	return &cp
}

func isParticipant(r *models.Review, userID uuid.UUID) bool {
	return userID != uuid.Nil && (userID == r.ReviewerID || userID == r.SubjectID)
}

func nonNilReviews(reviews []models.Review) []models.Review {
	if reviews == nil {
		return []models.Review{}
	}
	return reviews
}
