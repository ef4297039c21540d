package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-reviews/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-reviews/internal/models"
	"github.com/ignatzorin/freelance-reviews/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-reviews/internal/service"
)

func adminRoutes(userID uuid.UUID, moderation *mockModeration, analytics *mockAnalytics) *gin.Engine {
	r := newTestEngine(userID)
	h := NewAdminReviewHandler(moderation, analytics)
	r.GET("/admin/reviews/queue", h.Queue)
	r.GET("/admin/reviews/analytics", h.Analytics)
	r.POST("/admin/reviews/bulk-moderate", h.BulkModerate)
	r.GET("/admin/reviews/:id", h.GetReview)
	r.POST("/admin/reviews/:id/moderate", h.Moderate)
	return r
}

func TestAdminReviewHandler_Queue(t *testing.T) {
	moderation := new(mockModeration)
	moderation.On("ListQueue", mock.Anything, mock.MatchedBy(func(q service.QueueQuery) bool {
		return q.Status == "flagged" && q.Category == "design" && q.Page == 2 && q.Limit == 10 &&
			q.MinRating != nil && *q.MinRating == 3.5
	})).Return(&service.QueuePage{
		Reviews:    []models.Review{},
		Pagination: service.Pagination{Page: 2, Limit: 10, Total: 14, Pages: 2},
	}, nil)
	r := adminRoutes(uuid.New(), moderation, nil)

	w := doRequest(r, http.MethodGet, "/admin/reviews/queue?status=flagged&category=design&page=2&limit=10&minRating=3.5", "")

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w.Body.Bytes())["data"].(map[string]interface{})
	pagination := data["pagination"].(map[string]interface{})
	assert.Equal(t, float64(14), pagination["total"])
	assert.Equal(t, float64(2), pagination["pages"])
}

func TestAdminReviewHandler_Queue_BadMinRating(t *testing.T) {
	moderation := new(mockModeration)
	r := adminRoutes(uuid.New(), moderation, nil)

	for _, raw := range []string{"high", "NaN", "Inf", "-Inf", "1e400"} {
		w := doRequest(r, http.MethodGet, "/admin/reviews/queue?minRating="+raw, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, raw)
	}
	moderation.AssertNotCalled(t, "ListQueue", mock.Anything, mock.Anything)
}

func TestAdminReviewHandler_Moderate(t *testing.T) {
	moderator, id := uuid.New(), uuid.New()
	moderation := new(mockModeration)
	moderation.On("Moderate", mock.Anything, service.ModerateInput{
		ReviewID:    id,
		Status:      "approved",
		Note:        "ок",
		ModeratorID: moderator,
	}).Return(&models.Review{ID: id, Status: valueobject.ReviewStatusApproved}, nil)
	r := adminRoutes(moderator, moderation, nil)

	w := doRequest(r, http.MethodPost, "/admin/reviews/"+id.String()+"/moderate", `{"status":"approved","note":"ок"}`)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w.Body.Bytes())["data"].(map[string]interface{})
	assert.Equal(t, "approved", data["status"])
}

func TestAdminReviewHandler_Moderate_Errors(t *testing.T) {
	moderator := uuid.New()
	missing, locked := uuid.New(), uuid.New()
	moderation := new(mockModeration)
	moderation.On("Moderate", mock.Anything, mock.MatchedBy(func(in service.ModerateInput) bool { return in.ReviewID == missing })).
		Return(nil, apperror.ErrReviewNotFound)
	moderation.On("Moderate", mock.Anything, mock.MatchedBy(func(in service.ModerateInput) bool { return in.ReviewID == locked })).
		Return(nil, apperror.ErrInvalidTransition)
	r := adminRoutes(moderator, moderation, nil)

	tests := []struct {
		name string
		id   uuid.UUID
		body string
		want int
		code apperror.ErrorCode
	}{
		{"unknown status", missing, `{"status":"archived"}`, http.StatusBadRequest, apperror.ErrCodeValidation},
		{"pending is not a decision", missing, `{"status":"pending"}`, http.StatusBadRequest, apperror.ErrCodeValidation},
		{"not found", missing, `{"status":"approved"}`, http.StatusNotFound, apperror.ErrCodeNotFound},
		{"invalid transition", locked, `{"status":"rejected"}`, http.StatusBadRequest, apperror.ErrCodeInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, "/admin/reviews/"+tt.id.String()+"/moderate", tt.body)
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, string(tt.code), decodeBody(t, w.Body.Bytes())["code"])
		})
	}
}

func TestAdminReviewHandler_BulkModerate(t *testing.T) {
	moderator := uuid.New()
	a, b := uuid.New(), uuid.New()
	moderation := new(mockModeration)
	moderation.On("BulkModerate", mock.Anything, service.BulkModerateInput{
		IDs:         []uuid.UUID{a, b},
		Status:      "rejected",
		ModeratorID: moderator,
	}).Return(2, nil)
	r := adminRoutes(moderator, moderation, nil)

	w := doRequest(r, http.MethodPost, "/admin/reviews/bulk-moderate", fmt.Sprintf(`{"ids":[%q,%q],"status":"rejected"}`, a, b))

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w.Body.Bytes())["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["modified"])
}

func TestAdminReviewHandler_BulkModerate_Validation(t *testing.T) {
	moderation := new(mockModeration)
	r := adminRoutes(uuid.New(), moderation, nil)

	for _, body := range []string{
		`{"ids":[],"status":"approved"}`,
		`{"status":"approved"}`,
		`{"ids":["not-a-uuid"],"status":"approved"}`,
		fmt.Sprintf(`{"ids":[%q],"status":"maybe"}`, uuid.New()),
	} {
		w := doRequest(r, http.MethodPost, "/admin/reviews/bulk-moderate", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	moderation.AssertNotCalled(t, "BulkModerate", mock.Anything, mock.Anything)
}

func TestAdminReviewHandler_GetReview(t *testing.T) {
	id := uuid.New()
	moderation := new(mockModeration)
	moderation.On("GetReview", mock.Anything, id).Return(&models.Review{ID: id, ReportCount: 3}, nil)
	r := adminRoutes(uuid.New(), moderation, nil)

	w := doRequest(r, http.MethodGet, "/admin/reviews/"+id.String(), "")

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w.Body.Bytes())["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["reportCount"])
}

func TestAdminReviewHandler_Analytics(t *testing.T) {
	analytics := new(mockAnalytics)
	analytics.On("Snapshot", mock.Anything, 7).Return(&models.AnalyticsSnapshot{TotalReviews: 12, WindowDays: 7}, nil)
	analytics.On("Snapshot", mock.Anything, 0).Return(nil, apperror.Database(errors.New("timeout"), "не удалось получить данные для аналитики"))
	r := adminRoutes(uuid.New(), new(mockModeration), analytics)

	w := doRequest(r, http.MethodGet, "/admin/reviews/analytics?days=7", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w.Body.Bytes())["data"].(map[string]interface{})
	assert.Equal(t, float64(12), data["totalReviews"])

	w = doRequest(r, http.MethodGet, "/admin/reviews/analytics", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRatingHandler(t *testing.T) {
	worker := uuid.New()
	ratings := new(mockRatings)
	ratings.On("GetSummary", mock.Anything, worker).Return(&models.RatingSummary{
		SubjectID:          worker,
		RatingDistribution: models.NewRatingDistribution(),
	}, nil)
	ratings.On("GetRankSignals", mock.Anything, worker).Return(&models.RankSignals{SubjectID: worker, TotalReviews: 2}, nil)

	r := newTestEngine(uuid.Nil)
	h := NewRatingHandler(ratings)
	r.GET("/ratings/worker/:workerId", h.GetWorkerRating)
	r.GET("/ratings/worker/:workerId/rank-signals", h.GetRankSignals)

	w := doRequest(r, http.MethodGet, "/ratings/worker/"+worker.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	summary := decodeBody(t, w.Body.Bytes())["data"].(map[string]interface{})
	assert.Equal(t, float64(0), summary["totalReviews"])
	assert.Equal(t, float64(0), summary["averageRating"])
	assert.Equal(t, map[string]interface{}{"1": 0.0, "2": 0.0, "3": 0.0, "4": 0.0, "5": 0.0}, summary["ratingDistribution"])

	w = doRequest(r, http.MethodGet, "/ratings/worker/"+worker.String()+"/rank-signals", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w.Body.Bytes())["data"].(map[string]interface{})
	assert.Equal(t, worker.String(), data["workerId"])
	assert.Equal(t, float64(2), data["rankSignals"].(map[string]interface{})["totalReviews"])

	w = doRequest(r, http.MethodGet, "/ratings/worker/nope", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	r := newTestEngine(uuid.Nil)
	r.GET("/health", NewHealthHandler(map[string]Pinger{"store": ok, "cache": ok}).Health)
	r.GET("/health-down", NewHealthHandler(map[string]Pinger{"store": ok, "cache": down}).Health)

	w := doRequest(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decodeBody(t, w.Body.Bytes())["status"])

	w = doRequest(r, http.MethodGet, "/health-down", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	checks := decodeBody(t, w.Body.Bytes())["checks"].(map[string]interface{})
	assert.Equal(t, "healthy", checks["store"])
	assert.Contains(t, checks["cache"], "unhealthy")
}
