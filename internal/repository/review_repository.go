package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/freelance-reviews/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-reviews/internal/models"
	"github.com/ignatzorin/freelance-reviews/internal/repository/common"
)

const pqUniqueViolation = "23505"

type ReviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create сохраняет отзыв. ID и временные метки заполняет сервис.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	notes := noteList(review.ModerationNotes)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reviews (
			id, job_id, reviewer_id, subject_id, review_type,
			overall, quality, communication, timeliness, professionalism,
			comment, would_recommend, is_verified, status, moderation_notes,
			report_count, job_category, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`,
		review.ID, review.JobID, review.ReviewerID, review.SubjectID, string(review.ReviewType),
		review.DimensionScores.Overall, review.DimensionScores.Quality, review.DimensionScores.Communication,
		review.DimensionScores.Timeliness, review.DimensionScores.Professionalism,
		review.Comment, review.WouldRecommend, review.IsVerified, string(review.Status), notes,
		review.ReportCount, review.JobCategory, review.CreatedAt, review.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDuplicateReview
		}
		return fmt.Errorf("review repository: create %w", err)
	}
	return nil
}

// GetByID возвращает отзыв по ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var row reviewRow
	err := r.db.GetContext(ctx, &row, `SELECT `+reviewColumns+` FROM reviews r WHERE r.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("review repository: get %w", err)
	}
	review := row.toModel()
	return &review, nil
}

// GetByJobAndReviewer проверяет, оставлял ли пользователь отзыв данного типа на работу.
func (r *ReviewRepository) GetByJobAndReviewer(ctx context.Context, jobID, reviewerID uuid.UUID, reviewType valueobject.ReviewType) (*models.Review, error) {
	var row reviewRow
	err := r.db.GetContext(ctx, &row, `
		SELECT `+reviewColumns+` FROM reviews r
		WHERE r.job_id = $1 AND r.reviewer_id = $2 AND r.review_type = $3
	`, jobID, reviewerID, string(reviewType))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("review repository: get by job %w", err)
	}
	review := row.toModel()
	return &review, nil
}

// Update обновляет редактируемые поля отзыва.
func (r *ReviewRepository) Update(ctx context.Context, review *models.Review) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reviews SET
			overall = $2, quality = $3, communication = $4, timeliness = $5, professionalism = $6,
			comment = $7, would_recommend = $8, updated_at = $9
		WHERE id = $1
	`,
		review.ID,
		review.DimensionScores.Overall, review.DimensionScores.Quality, review.DimensionScores.Communication,
		review.DimensionScores.Timeliness, review.DimensionScores.Professionalism,
		review.Comment, review.WouldRecommend, review.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("review repository: update %w", err)
	}
	return common.RequireAffected(res, ErrReviewNotFound)
}

// Delete удаляет отзыв.
func (r *ReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("review repository: delete %w", err)
	}
	return common.RequireAffected(res, ErrReviewNotFound)
}

// Find возвращает страницу отзывов и общее число подходящих строк.
func (r *ReviewRepository) Find(ctx context.Context, filter ReviewFilter, opts ListOptions) ([]models.Review, int, error) {
	total, err := r.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	where, args := buildReviewWhere(filter)
	query := `SELECT ` + reviewColumns + ` FROM reviews r` + where + ` ORDER BY r.created_at DESC, r.id ASC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit, opts.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	var rows []reviewRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("review repository: find %w", err)
	}

	reviews := make([]models.Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, row.toModel())
	}
	return reviews, total, nil
}

// Count считает отзывы по фильтру.
func (r *ReviewRepository) Count(ctx context.Context, filter ReviewFilter) (int, error) {
	where, args := buildReviewWhere(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM reviews r`+where, args...); err != nil {
		return 0, fmt.Errorf("review repository: count %w", err)
	}
	return total, nil
}

// ListRatingPoints возвращает общую оценку и дату создания отзывов фильтра для дневного тренда.
func (r *ReviewRepository) ListRatingPoints(ctx context.Context, filter ReviewFilter) ([]models.RatingPoint, error) {
	where, args := buildReviewWhere(filter)
	var rows []struct {
		Overall   float64   `db:"overall"`
		CreatedAt time.Time `db:"created_at"`
	}
	query := `SELECT r.overall, r.created_at FROM reviews r` + where
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("review repository: rating points %w", err)
	}

	points := make([]models.RatingPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, models.RatingPoint{Overall: row.Overall, CreatedAt: row.CreatedAt})
	}
	return points, nil
}

// AggregateStats считает итоги по статусам и топ категорий через GROUP BY.
func (r *ReviewRepository) AggregateStats(ctx context.Context, filter ReviewFilter, categoryLimit int) (*models.ReviewStats, error) {
	var statusRows, categoryRows []groupRow

	query, args := buildStatusStatsQuery(filter)
	if err := r.db.SelectContext(ctx, &statusRows, query, args...); err != nil {
		return nil, fmt.Errorf("review repository: status stats %w", err)
	}
	query, args = buildCategoryStatsQuery(filter, categoryLimit)
	if err := r.db.SelectContext(ctx, &categoryRows, query, args...); err != nil {
		return nil, fmt.Errorf("review repository: category stats %w", err)
	}

	return &models.ReviewStats{
		ByStatus:      toGroupStats(statusRows),
		TopCategories: toGroupStats(categoryRows),
	}, nil
}

// ApplyModeration переводит отзыв из from в to и дописывает заметку в журнал.
// Если статус уже не from, возвращает ErrStatusConflict.
func (r *ReviewRepository) ApplyModeration(ctx context.Context, id uuid.UUID, from, to valueobject.ReviewStatus, note models.ModerationNote) (*models.Review, error) {
	appended, err := json.Marshal([]models.ModerationNote{note})
	if err != nil {
		return nil, fmt.Errorf("review repository: encode note %w", err)
	}

	var updatedID uuid.UUID
	err = r.db.QueryRowxContext(ctx, `
		UPDATE reviews SET
			status = $3,
			moderation_notes = moderation_notes || $4::jsonb,
			updated_at = $5
		WHERE id = $1 AND status = $2
		RETURNING id
	`, id, string(from), string(to), string(appended), note.Timestamp).Scan(&updatedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.missingOrConflict(ctx, id, ErrStatusConflict)
		}
		return nil, fmt.Errorf("review repository: moderate %w", err)
	}
	return r.GetByID(ctx, updatedID)
}

// SetResponse сохраняет ответ получателя, если его ещё нет.
func (r *ReviewRepository) SetResponse(ctx context.Context, id uuid.UUID, response models.ReviewResponse) (*models.Review, error) {
	var updatedID uuid.UUID
	err := r.db.QueryRowxContext(ctx, `
		UPDATE reviews SET response_comment = $2, responded_at = $3, updated_at = $3
		WHERE id = $1 AND (response_comment IS NULL OR response_comment = '')
		RETURNING id
	`, id, response.Comment, response.RespondedAt).Scan(&updatedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.missingOrConflict(ctx, id, ErrResponseExists)
		}
		return nil, fmt.Errorf("review repository: set response %w", err)
	}
	return r.GetByID(ctx, updatedID)
}

// AddHelpfulVote учитывает голос пользователя один раз и возвращает итоговое число голосов.
func (r *ReviewRepository) AddHelpfulVote(ctx context.Context, id, voterID uuid.UUID) (int, error) {
	var votes int
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM reviews WHERE id = $1)`, id); err != nil {
			return fmt.Errorf("review repository: exists %w", err)
		}
		if !exists {
			return ErrReviewNotFound
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO review_helpful_votes (review_id, voter_id) VALUES ($1, $2)
			ON CONFLICT (review_id, voter_id) DO NOTHING
		`, id, voterID); err != nil {
			return fmt.Errorf("review repository: helpful vote %w", err)
		}
		if err := tx.GetContext(ctx, &votes, `SELECT COUNT(*) FROM review_helpful_votes WHERE review_id = $1`, id); err != nil {
			return fmt.Errorf("review repository: count votes %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return votes, nil
}

// IncrementReportCount увеличивает счётчик жалоб.
func (r *ReviewRepository) IncrementReportCount(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		UPDATE reviews SET report_count = report_count + 1 WHERE id = $1 RETURNING report_count
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrReviewNotFound
		}
		return 0, fmt.Errorf("review repository: report %w", err)
	}
	return count, nil
}

func (r *ReviewRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *ReviewRepository) ensureExists(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM reviews WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("review repository: exists %w", err)
	}
	if !exists {
		return ErrReviewNotFound
	}
	return nil
}

func (r *ReviewRepository) missingOrConflict(ctx context.Context, id uuid.UUID, conflict error) error {
	if err := r.ensureExists(ctx, id); err != nil {
		return err
	}
	return conflict
}
