package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-reviews/internal/domain/valueobject"
)

var (
	ErrReviewNotFound  = errors.New("review not found")
	ErrDuplicateReview = errors.New("review already exists for job, reviewer and type")
	ErrStatusConflict  = errors.New("review status changed concurrently")
	ErrResponseExists  = errors.New("review response already exists")
)

// ReviewFilter описывает выборку отзывов. Нулевые значения полей означают «без ограничения».
type ReviewFilter struct {
	SubjectID   uuid.UUID
	JobID       uuid.UUID
	ReviewType  valueobject.ReviewType
	Status      valueobject.ReviewStatus
	Category    string
	MinRating   *float64
	CreatedFrom time.Time
	CreatedTo   time.Time
}

// ListOptions задаёт пагинацию выборки. Limit <= 0 возвращает все строки.
// Сортировка всегда created_at DESC, id ASC.
type ListOptions struct {
	Limit  int
	Offset int
}
