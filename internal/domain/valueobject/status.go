package valueobject

import "github.com/ignatzorin/freelance-reviews/internal/pkg/apperror"

type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
	ReviewStatusFlagged  ReviewStatus = "flagged"
)

// AllReviewStatuses перечисляет статусы в стабильном порядке (для аналитики и фильтров).
var AllReviewStatuses = []ReviewStatus{
	ReviewStatusPending,
	ReviewStatusApproved,
	ReviewStatusRejected,
	ReviewStatusFlagged,
}

// Разрешённые переходы модерации.
// Терминальных статусов нет: flagged оставлен для повторного рассмотрения.
var reviewTransitions = map[ReviewStatus][]ReviewStatus{
	ReviewStatusPending:  {ReviewStatusApproved, ReviewStatusRejected, ReviewStatusFlagged},
	ReviewStatusFlagged:  {ReviewStatusApproved, ReviewStatusRejected},
	ReviewStatusApproved: {ReviewStatusFlagged},
	ReviewStatusRejected: {ReviewStatusFlagged},
}

func (s ReviewStatus) IsValid() bool {
	switch s {
	case ReviewStatusPending, ReviewStatusApproved, ReviewStatusRejected, ReviewStatusFlagged:
		return true
	}
	return false
}

// IsModerationTarget проверяет, что в статус можно перевести решением модератора.
func (s ReviewStatus) IsModerationTarget() bool {
	return s == ReviewStatusApproved || s == ReviewStatusRejected || s == ReviewStatusFlagged
}

func (s ReviewStatus) CanTransitionTo(newStatus ReviewStatus) bool {
	allowed, ok := reviewTransitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

func (s ReviewStatus) String() string {
	return string(s)
}

func NewReviewStatus(status string) (ReviewStatus, error) {
	s := ReviewStatus(status)
	if !s.IsValid() {
		return "", apperror.ErrInvalidStatus
	}
	return s, nil
}

// NewModerationStatus разбирает целевой статус решения модератора.
func NewModerationStatus(status string) (ReviewStatus, error) {
	s := ReviewStatus(status)
	if !s.IsModerationTarget() {
		return "", apperror.ErrInvalidStatus
	}
	return s, nil
}

type ReviewType string

const (
	ReviewTypeHirerToWorker ReviewType = "hirer_to_worker"
	ReviewTypeWorkerToHirer ReviewType = "worker_to_hirer"
)

func (t ReviewType) IsValid() bool {
	return t == ReviewTypeHirerToWorker || t == ReviewTypeWorkerToHirer
}

// NewReviewType разбирает тип отзыва; пустое значение означает отзыв заказчика об исполнителе.
func NewReviewType(raw string) (ReviewType, error) {
	if raw == "" {
		return ReviewTypeHirerToWorker, nil
	}
	t := ReviewType(raw)
	if !t.IsValid() {
		return "", apperror.Validation("некорректный тип отзыва")
	}
	return t, nil
}
