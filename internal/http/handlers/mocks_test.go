package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/freelance-reviews/internal/http/middleware"
	"github.com/ignatzorin/freelance-reviews/internal/models"
	"github.com/ignatzorin/freelance-reviews/internal/service"
	"github.com/ignatzorin/freelance-reviews/internal/validation"
)

type mockReviews struct {
	mock.Mock
}

func (m *mockReviews) CreateReview(ctx context.Context, reviewerID uuid.UUID, in service.CreateReviewInput) (*models.Review, error) {
	args := m.Called(ctx, reviewerID, in)
	r, _ := args.Get(0).(*models.Review)
	return r, args.Error(1)
}

func (m *mockReviews) GetReview(ctx context.Context, id, viewerID uuid.UUID) (*models.Review, error) {
	args := m.Called(ctx, id, viewerID)
	r, _ := args.Get(0).(*models.Review)
	return r, args.Error(1)
}

func (m *mockReviews) ListSubjectReviews(ctx context.Context, subjectID uuid.UUID, page, limit int, reviewType string) (*service.ReviewPage, error) {
	args := m.Called(ctx, subjectID, page, limit, reviewType)
	p, _ := args.Get(0).(*service.ReviewPage)
	return p, args.Error(1)
}

func (m *mockReviews) ListJobReviews(ctx context.Context, jobID uuid.UUID) ([]models.Review, error) {
	args := m.Called(ctx, jobID)
	r, _ := args.Get(0).([]models.Review)
	return r, args.Error(1)
}

func (m *mockReviews) UpdateReview(ctx context.Context, id, principalID uuid.UUID, patch models.ReviewPatch) (*models.Review, error) {
	args := m.Called(ctx, id, principalID, patch)
	r, _ := args.Get(0).(*models.Review)
	return r, args.Error(1)
}

func (m *mockReviews) DeleteReview(ctx context.Context, id, principalID uuid.UUID) error {
	return m.Called(ctx, id, principalID).Error(0)
}

func (m *mockReviews) AddResponse(ctx context.Context, id, principalID uuid.UUID, comment string) (*models.Review, error) {
	args := m.Called(ctx, id, principalID, comment)
	r, _ := args.Get(0).(*models.Review)
	return r, args.Error(1)
}

func (m *mockReviews) VoteHelpful(ctx context.Context, id, voterID uuid.UUID) (int, error) {
	args := m.Called(ctx, id, voterID)
	return args.Int(0), args.Error(1)
}

type mockModeration struct {
	mock.Mock
}

func (m *mockModeration) Moderate(ctx context.Context, in service.ModerateInput) (*models.Review, error) {
	args := m.Called(ctx, in)
	r, _ := args.Get(0).(*models.Review)
	return r, args.Error(1)
}

func (m *mockModeration) BulkModerate(ctx context.Context, in service.BulkModerateInput) (int, error) {
	args := m.Called(ctx, in)
	return args.Int(0), args.Error(1)
}

func (m *mockModeration) GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*models.Review)
	return r, args.Error(1)
}

func (m *mockModeration) ListQueue(ctx context.Context, q service.QueueQuery) (*service.QueuePage, error) {
	args := m.Called(ctx, q)
	p, _ := args.Get(0).(*service.QueuePage)
	return p, args.Error(1)
}

func (m *mockModeration) Report(ctx context.Context, id, reporterID uuid.UUID, reason string) (*models.Review, error) {
	args := m.Called(ctx, id, reporterID, reason)
	r, _ := args.Get(0).(*models.Review)
	return r, args.Error(1)
}

type mockRatings struct {
	mock.Mock
}

func (m *mockRatings) GetSummary(ctx context.Context, subjectID uuid.UUID) (*models.RatingSummary, error) {
	args := m.Called(ctx, subjectID)
	s, _ := args.Get(0).(*models.RatingSummary)
	return s, args.Error(1)
}

func (m *mockRatings) GetRankSignals(ctx context.Context, subjectID uuid.UUID) (*models.RankSignals, error) {
	args := m.Called(ctx, subjectID)
	s, _ := args.Get(0).(*models.RankSignals)
	return s, args.Error(1)
}

type mockAnalytics struct {
	mock.Mock
}

func (m *mockAnalytics) Snapshot(ctx context.Context, windowDays int) (*models.AnalyticsSnapshot, error) {
	args := m.Called(ctx, windowDays)
	s, _ := args.Get(0).(*models.AnalyticsSnapshot)
	return s, args.Error(1)
}

// newTestEngine собирает gin в тестовом режиме; userID != uuid.Nil имитирует AuthMiddleware.
func newTestEngine(userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validation.RegisterBindings()
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	if userID != uuid.Nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.ContextUserIDKey, userID)
			c.Next()
		})
	}
	return r
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
