package repository

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-reviews/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-reviews/internal/models"
)

const reviewColumns = `r.id, r.job_id, r.reviewer_id, r.subject_id, r.review_type,
	r.overall, r.quality, r.communication, r.timeliness, r.professionalism,
	r.comment, r.would_recommend, r.is_verified, r.response_comment, r.responded_at,
	r.status, r.moderation_notes, r.report_count, r.job_category, r.created_at, r.updated_at,
	(SELECT COUNT(*) FROM review_helpful_votes v WHERE v.review_id = r.id) AS helpful_votes`

// buildReviewWhere собирает WHERE для фильтра и возвращает аргументы начиная с $1.
func buildReviewWhere(f ReviewFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(expr string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}

	if f.SubjectID != uuid.Nil {
		add("r.subject_id = $%d", f.SubjectID)
	}
	if f.JobID != uuid.Nil {
		add("r.job_id = $%d", f.JobID)
	}
	if f.ReviewType != "" {
		add("r.review_type = $%d", string(f.ReviewType))
	}
	if f.Status != "" {
		add("r.status = $%d", string(f.Status))
	}
	if f.Category != "" {
		add("r.job_category = $%d", f.Category)
	}
	if f.MinRating != nil {
		add("r.overall >= $%d", *f.MinRating)
	}
	if !f.CreatedFrom.IsZero() {
		add("r.created_at >= $%d", f.CreatedFrom)
	}
	if !f.CreatedTo.IsZero() {
		add("r.created_at < $%d", f.CreatedTo)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

const groupColumns = `COUNT(*) AS review_count, COALESCE(SUM(r.overall), 0) AS sum_overall`

// buildStatusStatsQuery группирует отзывы фильтра по статусу.
func buildStatusStatsQuery(f ReviewFilter) (string, []interface{}) {
	where, args := buildReviewWhere(f)
	return `SELECT r.status AS group_key, ` + groupColumns + ` FROM reviews r` + where +
		` GROUP BY r.status`, args
}

// buildCategoryStatsQuery возвращает limit самых частых непустых категорий, при равенстве по имени.
func buildCategoryStatsQuery(f ReviewFilter, limit int) (string, []interface{}) {
	where, args := buildReviewWhere(f)
	if where == "" {
		where = " WHERE r.job_category <> ''"
	} else {
		where += " AND r.job_category <> ''"
	}
	args = append(args, limit)
	return fmt.Sprintf(`SELECT r.job_category AS group_key, %s FROM reviews r%s`+
		` GROUP BY r.job_category ORDER BY review_count DESC, group_key ASC LIMIT $%d`,
		groupColumns, where, len(args)), args
}

type groupRow struct {
	Key        string  `db:"group_key"`
	Count      int     `db:"review_count"`
	SumOverall float64 `db:"sum_overall"`
}

func toGroupStats(rows []groupRow) []models.GroupStat {
	out := make([]models.GroupStat, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.GroupStat{Key: row.Key, Count: row.Count, SumOverall: row.SumOverall})
	}
	return out
}

// noteList сканирует JSONB журнал модерации.
type noteList []models.ModerationNote

func (n *noteList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*n = noteList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("noteList: неподдерживаемый тип %T", src)
	}
	var notes []models.ModerationNote
	if err := json.Unmarshal(raw, &notes); err != nil {
		return fmt.Errorf("noteList: %w", err)
	}
	if notes == nil {
		notes = []models.ModerationNote{}
	}
	*n = notes
	return nil
}

func (n noteList) Value() (driver.Value, error) {
	if n == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]models.ModerationNote(n))
}

type reviewRow struct {
	ID              uuid.UUID      `db:"id"`
	JobID           uuid.UUID      `db:"job_id"`
	ReviewerID      uuid.UUID      `db:"reviewer_id"`
	SubjectID       uuid.UUID      `db:"subject_id"`
	ReviewType      string         `db:"review_type"`
	Overall         float64        `db:"overall"`
	Quality         float64        `db:"quality"`
	Communication   float64        `db:"communication"`
	Timeliness      float64        `db:"timeliness"`
	Professionalism float64        `db:"professionalism"`
	Comment         string         `db:"comment"`
	WouldRecommend  bool           `db:"would_recommend"`
	IsVerified      bool           `db:"is_verified"`
	ResponseComment sql.NullString `db:"response_comment"`
	RespondedAt     sql.NullTime   `db:"responded_at"`
	Status          string         `db:"status"`
	ModerationNotes noteList       `db:"moderation_notes"`
	ReportCount     int            `db:"report_count"`
	JobCategory     string         `db:"job_category"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
	HelpfulVotes    int            `db:"helpful_votes"`
}

func (row reviewRow) toModel() models.Review {
	review := models.Review{
		ID:         row.ID,
		JobID:      row.JobID,
		ReviewerID: row.ReviewerID,
		SubjectID:  row.SubjectID,
		ReviewType: valueobject.ReviewType(row.ReviewType),
		DimensionScores: models.DimensionScores{
			Overall:         row.Overall,
			Quality:         row.Quality,
			Communication:   row.Communication,
			Timeliness:      row.Timeliness,
			Professionalism: row.Professionalism,
		},
		Comment:         row.Comment,
		WouldRecommend:  row.WouldRecommend,
		IsVerified:      row.IsVerified,
		Status:          valueobject.ReviewStatus(row.Status),
		ModerationNotes: []models.ModerationNote(row.ModerationNotes),
		HelpfulVotes:    row.HelpfulVotes,
		ReportCount:     row.ReportCount,
		JobCategory:     row.JobCategory,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	if review.ModerationNotes == nil {
		review.ModerationNotes = []models.ModerationNote{}
	}
	if row.ResponseComment.Valid && row.ResponseComment.String != "" {
		review.Response = &models.ReviewResponse{
			Comment:     row.ResponseComment.String,
			RespondedAt: row.RespondedAt.Time,
		}
	}
	return review
}
