package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-reviews/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-reviews/internal/events"
	"github.com/ignatzorin/freelance-reviews/internal/models"
	"github.com/ignatzorin/freelance-reviews/internal/pkg/apperror"
)

func newReviewFixture(reviews ...models.Review) (*ReviewService, *fakeStore, *mockRefresher, *events.MemoryPublisher) {
	store := newFakeStore(reviews...)
	refresher := newMockRefresher()
	pub := newSyncPublisher()
	log, _ := newTestLogger()

	svc := NewReviewService(store, refresher, pub, log, 50)
	svc.now = fixedClock()
	svc.events.async = syncRun
	return svc, store, refresher, pub
}

func validInput() CreateReviewInput {
	return CreateReviewInput{
		JobID:           uuid.New(),
		SubjectID:       uuid.New(),
		DimensionScores: models.DimensionScores{Overall: 5, Quality: 4},
		Comment:         "  Отличная работа!  ",
		WouldRecommend:  true,
		JobCategory:     "Plumbing",
	}
}

func TestReviewService_CreateReview_Success(t *testing.T) {
	svc, store, refresher, pub := newReviewFixture()
	reviewer := uuid.New()
	in := validInput()

	review, err := svc.CreateReview(context.Background(), reviewer, in)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, review.ID)
	assert.Equal(t, valueobject.ReviewStatusPending, review.Status)
	assert.Equal(t, valueobject.ReviewTypeHirerToWorker, review.ReviewType)
	assert.Equal(t, "Отличная работа!", review.Comment)
	assert.Equal(t, "plumbing", review.JobCategory)
	assert.Empty(t, review.ModerationNotes)
	assert.Equal(t, testNow, review.CreatedAt)
	assert.Equal(t, review.ID, store.get(review.ID).ID)

	refresher.AssertCalled(t, "RefreshSubject", mock.Anything, in.SubjectID)
	assert.Equal(t, []string{events.TypeReviewCreated}, pub.Types())
}

func TestReviewService_CreateReview_Duplicate(t *testing.T) {
	svc, _, _, _ := newReviewFixture()
	reviewer := uuid.New()
	in := validInput()
	ctx := context.Background()

	_, err := svc.CreateReview(ctx, reviewer, in)
	require.NoError(t, err)

	_, err = svc.CreateReview(ctx, reviewer, in)
	assert.ErrorIs(t, err, apperror.ErrDuplicateReview)

	// Встречный отзыв по той же работе другого типа разрешён.
	in.ReviewType = string(valueobject.ReviewTypeWorkerToHirer)
	_, err = svc.CreateReview(ctx, reviewer, in)
	assert.NoError(t, err)
}

func TestReviewService_CreateReview_Validation(t *testing.T) {
	svc, _, _, _ := newReviewFixture()
	reviewer := uuid.New()
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateReviewInput)
	}{
		{"overall missing", func(in *CreateReviewInput) { in.DimensionScores.Overall = 0 }},
		{"overall above range", func(in *CreateReviewInput) { in.DimensionScores.Overall = 6 }},
		{"dimension below range", func(in *CreateReviewInput) { in.DimensionScores.Communication = 0.5 }},
		{"comment too long", func(in *CreateReviewInput) { in.Comment = strings.Repeat("a", 51) }},
		{"self review", func(in *CreateReviewInput) { in.SubjectID = reviewer }},
		{"missing job", func(in *CreateReviewInput) { in.JobID = uuid.Nil }},
		{"bad type", func(in *CreateReviewInput) { in.ReviewType = "peer" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := svc.CreateReview(ctx, reviewer, in)
			assert.True(t, apperror.HasCode(err, apperror.ErrCodeValidation), "got %v", err)
		})
	}
}

func TestReviewService_UpdateReview(t *testing.T) {
	review := newReview(withStatus(valueobject.ReviewStatusApproved))
	svc, store, refresher, pub := newReviewFixture(review)
	ctx := context.Background()

	scores := models.DimensionScores{Overall: 2}
	comment := "передумал"
	recommend := false
	got, err := svc.UpdateReview(ctx, review.ID, review.ReviewerID, models.ReviewPatch{
		DimensionScores: &scores,
		Comment:         &comment,
		WouldRecommend:  &recommend,
	})

	require.NoError(t, err)
	assert.Equal(t, 2.0, got.DimensionScores.Overall)
	assert.Equal(t, testNow, got.UpdatedAt)
	stored := store.get(review.ID)
	assert.Equal(t, "передумал", stored.Comment)
	assert.Equal(t, valueobject.ReviewStatusApproved, stored.Status)
	refresher.AssertCalled(t, "RefreshSubject", mock.Anything, review.SubjectID)
	assert.Equal(t, []string{events.TypeReviewUpdated}, pub.Types())
}

func TestReviewService_UpdateReview_NonOwner(t *testing.T) {
	review := newReview()
	svc, _, refresher, _ := newReviewFixture(review)

	comment := "чужой"
	_, err := svc.UpdateReview(context.Background(), review.ID, uuid.New(), models.ReviewPatch{Comment: &comment})
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeUnauthorized))
	refresher.AssertNotCalled(t, "RefreshSubject", mock.Anything, mock.Anything)

	_, err = svc.UpdateReview(context.Background(), uuid.New(), review.ReviewerID, models.ReviewPatch{})
	assert.True(t, apperror.IsNotFound(err))
}

func TestReviewService_DeleteReview(t *testing.T) {
	review := newReview(withStatus(valueobject.ReviewStatusApproved))
	svc, store, refresher, pub := newReviewFixture(review)
	ctx := context.Background()

	err := svc.DeleteReview(ctx, review.ID, uuid.New())
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeUnauthorized))

	require.NoError(t, svc.DeleteReview(ctx, review.ID, review.ReviewerID))
	_, err = store.GetByID(ctx, review.ID)
	assert.Error(t, err)
	refresher.AssertCalled(t, "RefreshSubject", mock.Anything, review.SubjectID)
	assert.Equal(t, []string{events.TypeReviewDeleted}, pub.Types())

	err = svc.DeleteReview(ctx, review.ID, review.ReviewerID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestReviewService_AddResponse(t *testing.T) {
	review := newReview(withStatus(valueobject.ReviewStatusApproved))
	svc, _, refresher, _ := newReviewFixture(review)
	ctx := context.Background()

	_, err := svc.AddResponse(ctx, review.ID, review.ReviewerID, "не я")
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeForbidden))

	_, err = svc.AddResponse(ctx, review.ID, review.SubjectID, "   ")
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeValidation))

	got, err := svc.AddResponse(ctx, review.ID, review.SubjectID, " Спасибо! ")
	require.NoError(t, err)
	require.NotNil(t, got.Response)
	assert.Equal(t, "Спасибо!", got.Response.Comment)
	assert.Equal(t, testNow, got.Response.RespondedAt)
	refresher.AssertCalled(t, "RefreshSubject", mock.Anything, review.SubjectID)

	_, err = svc.AddResponse(ctx, review.ID, review.SubjectID, "ещё")
	assert.ErrorIs(t, err, apperror.ErrResponseExists)
}

func TestReviewService_VoteHelpful_Idempotent(t *testing.T) {
	review := newReview()
	svc, _, _, _ := newReviewFixture(review)
	ctx := context.Background()
	voter := uuid.New()

	votes, err := svc.VoteHelpful(ctx, review.ID, voter)
	require.NoError(t, err)
	assert.Equal(t, 1, votes)

	votes, err = svc.VoteHelpful(ctx, review.ID, voter)
	require.NoError(t, err)
	assert.Equal(t, 1, votes)

	votes, err = svc.VoteHelpful(ctx, review.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 2, votes)

	_, err = svc.VoteHelpful(ctx, uuid.New(), voter)
	assert.True(t, apperror.IsNotFound(err))
}

func TestReviewService_ListSubjectReviews_OnlyApproved(t *testing.T) {
	subject := uuid.New()
	var reviews []models.Review
	for i := 0; i < 5; i++ {
		reviews = append(reviews, newReview(
			withSubject(subject),
			withStatus(valueobject.ReviewStatusApproved),
			withCreated(testNow.Add(-time.Duration(i)*time.Minute)),
		))
	}
	pending := newReview(withSubject(subject))
	otherType := newReview(withSubject(subject), withStatus(valueobject.ReviewStatusApproved))
	otherType.ReviewType = valueobject.ReviewTypeWorkerToHirer
	svc, _, _, _ := newReviewFixture(append(reviews, pending, otherType)...)
	ctx := context.Background()

	page, err := svc.ListSubjectReviews(ctx, subject, 1, 4, "hirer_to_worker")
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalReviews)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 1, page.CurrentPage)
	require.Len(t, page.Reviews, 4)
	assert.Equal(t, reviews[0].ID, page.Reviews[0].ID)

	page, err = svc.ListSubjectReviews(ctx, subject, 0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 6, page.TotalReviews)
	assert.Equal(t, 1, page.CurrentPage)

	_, err = svc.ListSubjectReviews(ctx, subject, 1, 10, "peer")
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeValidation))
}

func TestReviewService_GetReview_Visibility(t *testing.T) {
	review := newReview()
	svc, store, _, _ := newReviewFixture(review)
	log, _ := newTestLogger()
	moderation := NewModerationService(store, newMockRefresher(), nil, log, 3)
	moderation.now = fixedClock()
	ctx := context.Background()

	_, err := moderation.Moderate(ctx, ModerateInput{
		ReviewID:    review.ID,
		Status:      "rejected",
		Note:        "оскорбления, жалоба от alice",
		ModeratorID: uuid.New(),
	})
	require.NoError(t, err)

	for name, viewer := range map[string]uuid.UUID{"anonymous": uuid.Nil, "stranger": uuid.New()} {
		got, err := svc.GetReview(ctx, review.ID, viewer)
		assert.Nil(t, got, name)
		assert.True(t, apperror.IsNotFound(err), name)
	}
	for name, viewer := range map[string]uuid.UUID{"author": review.ReviewerID, "subject": review.SubjectID} {
		got, err := svc.GetReview(ctx, review.ID, viewer)
		require.NoError(t, err, name)
		assert.Equal(t, valueobject.ReviewStatusRejected, got.Status, name)
		assert.Empty(t, got.ModerationNotes, name)
	}
	assert.Len(t, store.get(review.ID).ModerationNotes, 1)
}

func TestReviewService_GetReview_ApprovedIsPublic(t *testing.T) {
	review := newReview(withStatus(valueobject.ReviewStatusApproved))
	review.ModerationNotes = []models.ModerationNote{{Note: "ок", ModeratorID: uuid.New(), Timestamp: testNow}}
	svc, _, _, _ := newReviewFixture(review)

	got, err := svc.GetReview(context.Background(), review.ID, uuid.Nil)

	require.NoError(t, err)
	assert.Equal(t, review.ID, got.ID)
	assert.Nil(t, got.ModerationNotes)

	_, err = svc.GetReview(context.Background(), uuid.New(), uuid.Nil)
	assert.True(t, apperror.IsNotFound(err))
}

func TestReviewService_ListJobReviews(t *testing.T) {
	job := uuid.New()
	approved := newReview(withStatus(valueobject.ReviewStatusApproved))
	approved.JobID = job
	approved.ModerationNotes = []models.ModerationNote{{Note: "ок", ModeratorID: uuid.New(), Timestamp: testNow}}
	rejected := newReview(withStatus(valueobject.ReviewStatusRejected))
	rejected.JobID = job
	svc, _, _, _ := newReviewFixture(approved, rejected)

	got, err := svc.ListJobReviews(context.Background(), job)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, approved.ID, got[0].ID)
	assert.Nil(t, got[0].ModerationNotes)

	got, err = svc.ListJobReviews(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
