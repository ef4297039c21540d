package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/freelance-reviews/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-reviews/internal/events"
	"github.com/ignatzorin/freelance-reviews/internal/models"
	"github.com/ignatzorin/freelance-reviews/internal/repository"
)

// fakeStore хранит отзывы в памяти с той же семантикой, что у репозиториев.
type fakeStore struct {
	mu      sync.Mutex
	reviews map[uuid.UUID]models.Review
	voters  map[uuid.UUID]map[uuid.UUID]struct{}

	// errs подменяет результат метода по имени.
	errs map[string]error
	// сколько раз ApplyModeration вернёт ErrStatusConflict перед успехом
	conflicts int
	// beforeApply вызывается перед условным обновлением статуса.
	beforeApply  func(id uuid.UUID)
	findCalls    int
	pointsFilter repository.ReviewFilter
}

func newFakeStore(reviews ...models.Review) *fakeStore {
	s := &fakeStore{
		reviews: make(map[uuid.UUID]models.Review),
		voters:  make(map[uuid.UUID]map[uuid.UUID]struct{}),
		errs:    make(map[string]error),
	}
	for _, r := range reviews {
		s.put(r)
	}
	return s
}

func (s *fakeStore) put(r models.Review) {
	if r.ModerationNotes == nil {
		r.ModerationNotes = []models.ModerationNote{}
	}
	s.reviews[r.ID] = r
}

func (s *fakeStore) get(id uuid.UUID) models.Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneReview(s.reviews[id])
}

func cloneReview(r models.Review) models.Review {
	notes := make([]models.ModerationNote, len(r.ModerationNotes))
	copy(notes, r.ModerationNotes)
	r.ModerationNotes = notes
	if r.Response != nil {
		resp := *r.Response
		r.Response = &resp
	}
	return r
}

func matches(r models.Review, f repository.ReviewFilter) bool {
	switch {
	case f.SubjectID != uuid.Nil && r.SubjectID != f.SubjectID,
		f.JobID != uuid.Nil && r.JobID != f.JobID,
		f.ReviewType != "" && r.ReviewType != f.ReviewType,
		f.Status != "" && r.Status != f.Status,
		f.Category != "" && r.JobCategory != f.Category,
		f.MinRating != nil && r.DimensionScores.Overall < *f.MinRating,
		!f.CreatedFrom.IsZero() && r.CreatedAt.Before(f.CreatedFrom),
		!f.CreatedTo.IsZero() && !r.CreatedAt.Before(f.CreatedTo):
		return false
	}
	return true
}

func (s *fakeStore) Create(_ context.Context, review *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["Create"]; err != nil {
		return err
	}
	for _, r := range s.reviews {
		if r.JobID == review.JobID && r.ReviewerID == review.ReviewerID && r.ReviewType == review.ReviewType {
			return repository.ErrDuplicateReview
		}
	}
	s.put(cloneReview(*review))
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["GetByID"]; err != nil {
		return nil, err
	}
	r, ok := s.reviews[id]
	if !ok {
		return nil, repository.ErrReviewNotFound
	}
	out := cloneReview(r)
	return &out, nil
}

func (s *fakeStore) GetByJobAndReviewer(_ context.Context, jobID, reviewerID uuid.UUID, reviewType valueobject.ReviewType) (*models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reviews {
		if r.JobID == jobID && r.ReviewerID == reviewerID && r.ReviewType == reviewType {
			out := cloneReview(r)
			return &out, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Update(_ context.Context, review *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.reviews[review.ID]
	if !ok {
		return repository.ErrReviewNotFound
	}
	cur.DimensionScores = review.DimensionScores
	cur.Comment = review.Comment
	cur.WouldRecommend = review.WouldRecommend
	cur.UpdatedAt = review.UpdatedAt
	s.reviews[review.ID] = cur
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviews[id]; !ok {
		return repository.ErrReviewNotFound
	}
	delete(s.reviews, id)
	return nil
}

func (s *fakeStore) Find(_ context.Context, filter repository.ReviewFilter, opts repository.ListOptions) ([]models.Review, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if err := s.errs["Find"]; err != nil {
		return nil, 0, err
	}

	var found []models.Review
	for _, r := range s.reviews {
		if matches(r, filter) {
			found = append(found, cloneReview(r))
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if !found[i].CreatedAt.Equal(found[j].CreatedAt) {
			return found[i].CreatedAt.After(found[j].CreatedAt)
		}
		return found[i].ID.String() < found[j].ID.String()
	})

	total := len(found)
	if opts.Limit > 0 {
		if opts.Offset >= len(found) {
			return []models.Review{}, total, nil
		}
		end := opts.Offset + opts.Limit
		if end > len(found) {
			end = len(found)
		}
		found = found[opts.Offset:end]
	}
	return found, total, nil
}

func (s *fakeStore) ListRatingPoints(_ context.Context, filter repository.ReviewFilter) ([]models.RatingPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pointsFilter = filter
	if err := s.errs["ListRatingPoints"]; err != nil {
		return nil, err
	}
	var points []models.RatingPoint
	for _, r := range s.reviews {
		if matches(r, filter) {
			points = append(points, models.RatingPoint{Overall: r.DimensionScores.Overall, CreatedAt: r.CreatedAt})
		}
	}
	return points, nil
}

func (s *fakeStore) AggregateStats(_ context.Context, filter repository.ReviewFilter, categoryLimit int) (*models.ReviewStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["AggregateStats"]; err != nil {
		return nil, err
	}

	statuses := map[string]*models.GroupStat{}
	categories := map[string]*models.GroupStat{}
	add := func(groups map[string]*models.GroupStat, key string, overall float64) {
		g, ok := groups[key]
		if !ok {
			g = &models.GroupStat{Key: key}
			groups[key] = g
		}
		g.Count++
		g.SumOverall += overall
	}
	for _, r := range s.reviews {
		if !matches(r, filter) {
			continue
		}
		add(statuses, string(r.Status), r.DimensionScores.Overall)
		if r.JobCategory != "" {
			add(categories, r.JobCategory, r.DimensionScores.Overall)
		}
	}

	stats := &models.ReviewStats{ByStatus: []models.GroupStat{}, TopCategories: []models.GroupStat{}}
	for _, g := range statuses {
		stats.ByStatus = append(stats.ByStatus, *g)
	}
	for _, g := range categories {
		stats.TopCategories = append(stats.TopCategories, *g)
	}
	sort.Slice(stats.TopCategories, func(i, j int) bool {
		a, b := stats.TopCategories[i], stats.TopCategories[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Key < b.Key
	})
	if categoryLimit > 0 && len(stats.TopCategories) > categoryLimit {
		stats.TopCategories = stats.TopCategories[:categoryLimit]
	}
	return stats, nil
}

func (s *fakeStore) ApplyModeration(_ context.Context, id uuid.UUID, from, to valueobject.ReviewStatus, note models.ModerationNote) (*models.Review, error) {
	if s.beforeApply != nil {
		s.beforeApply(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs["ApplyModeration"]; err != nil {
		return nil, err
	}
	if s.conflicts > 0 {
		s.conflicts--
		return nil, repository.ErrStatusConflict
	}
	r, ok := s.reviews[id]
	if !ok {
		return nil, repository.ErrReviewNotFound
	}
	if r.Status != from {
		return nil, repository.ErrStatusConflict
	}
	r.Status = to
	r.ModerationNotes = append(r.ModerationNotes, note)
	r.UpdatedAt = note.Timestamp
	s.reviews[id] = r
	out := cloneReview(r)
	return &out, nil
}

func (s *fakeStore) SetResponse(_ context.Context, id uuid.UUID, response models.ReviewResponse) (*models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return nil, repository.ErrReviewNotFound
	}
	if r.HasResponse() {
		return nil, repository.ErrResponseExists
	}
	r.Response = &response
	r.UpdatedAt = response.RespondedAt
	s.reviews[id] = r
	out := cloneReview(r)
	return &out, nil
}

func (s *fakeStore) AddHelpfulVote(_ context.Context, id, voterID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return 0, repository.ErrReviewNotFound
	}
	if s.voters[id] == nil {
		s.voters[id] = make(map[uuid.UUID]struct{})
	}
	s.voters[id][voterID] = struct{}{}
	r.HelpfulVotes = len(s.voters[id])
	s.reviews[id] = r
	return r.HelpfulVotes, nil
}

func (s *fakeStore) IncrementReportCount(_ context.Context, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return 0, repository.ErrReviewNotFound
	}
	r.ReportCount++
	s.reviews[id] = r
	return r.ReportCount, nil
}

// mockRefresher фиксирует пересчёты рейтинга.
type mockRefresher struct {
	mock.Mock
}

func (m *mockRefresher) RefreshSubject(ctx context.Context, subjectID uuid.UUID) {
	m.Called(ctx, subjectID)
}

func newMockRefresher() *mockRefresher {
	m := new(mockRefresher)
	m.On("RefreshSubject", mock.Anything, mock.Anything).Return()
	return m
}

func (m *mockRefresher) refreshedSubjects() []uuid.UUID {
	var out []uuid.UUID
	for _, call := range m.Calls {
		if call.Method == "RefreshSubject" {
			out = append(out, call.Arguments.Get(1).(uuid.UUID))
		}
	}
	return out
}

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() func() time.Time {
	return func() time.Time { return testNow }
}

func syncRun(fn func()) { fn() }

func newTestLogger() (logrus.FieldLogger, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log, hook
}

func newSyncPublisher() *events.MemoryPublisher {
	return events.NewMemoryPublisher()
}

type reviewOpt func(*models.Review)

func withStatus(s valueobject.ReviewStatus) reviewOpt {
	return func(r *models.Review) { r.Status = s }
}

func withSubject(id uuid.UUID) reviewOpt {
	return func(r *models.Review) { r.SubjectID = id }
}

func withOverall(v float64) reviewOpt {
	return func(r *models.Review) { r.DimensionScores.Overall = v }
}

func withCreated(t time.Time) reviewOpt {
	return func(r *models.Review) { r.CreatedAt, r.UpdatedAt = t, t }
}

func withCategory(c string) reviewOpt {
	return func(r *models.Review) { r.JobCategory = c }
}

func newReview(opts ...reviewOpt) models.Review {
	r := models.Review{
		ID:              uuid.New(),
		JobID:           uuid.New(),
		ReviewerID:      uuid.New(),
		SubjectID:       uuid.New(),
		ReviewType:      valueobject.ReviewTypeHirerToWorker,
		DimensionScores: models.DimensionScores{Overall: 4},
		Status:          valueobject.ReviewStatusPending,
		ModerationNotes: []models.ModerationNote{},
		CreatedAt:       testNow.Add(-time.Hour),
		UpdatedAt:       testNow.Add(-time.Hour),
	}
	for _, o := range opts {
		o(&r)
	}
	return r
}
