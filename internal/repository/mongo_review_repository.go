package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ignatzorin/freelance-reviews/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-reviews/internal/models"
)

const reviewsCollection = "reviews"

type mongoNote struct {
	Note        string    `bson:"note"`
	ModeratorID string    `bson:"moderatorId"`
	Timestamp   time.Time `bson:"timestamp"`
}

type mongoResponse struct {
	Comment     string    `bson:"comment"`
	RespondedAt time.Time `bson:"respondedAt"`
}

type mongoScores struct {
	Overall         float64 `bson:"overall"`
	Quality         float64 `bson:"quality"`
	Communication   float64 `bson:"communication"`
	Timeliness      float64 `bson:"timeliness"`
	Professionalism float64 `bson:"professionalism"`
}

type mongoReview struct {
	ID              string         `bson:"_id"`
	JobID           string         `bson:"jobId"`
	ReviewerID      string         `bson:"reviewerId"`
	SubjectID       string         `bson:"subjectId"`
	ReviewType      string         `bson:"reviewType"`
	DimensionScores mongoScores    `bson:"dimensionScores"`
	Comment         string         `bson:"comment"`
	WouldRecommend  bool           `bson:"wouldRecommend"`
	IsVerified      bool           `bson:"isVerified"`
	Response        *mongoResponse `bson:"response,omitempty"`
	Status          string         `bson:"status"`
	ModerationNotes []mongoNote    `bson:"moderationNotes"`
	HelpfulVoters   []string       `bson:"helpfulVoters"`
	ReportCount     int            `bson:"reportCount"`
	JobCategory     string         `bson:"jobCategory"`
	CreatedAt       time.Time      `bson:"createdAt"`
	UpdatedAt       time.Time      `bson:"updatedAt"`
}

func newMongoReview(r *models.Review) mongoReview {
	notes := make([]mongoNote, 0, len(r.ModerationNotes))
	for _, n := range r.ModerationNotes {
		notes = append(notes, toMongoNote(n))
	}
	doc := mongoReview{
		ID:         r.ID.String(),
		JobID:      r.JobID.String(),
		ReviewerID: r.ReviewerID.String(),
		SubjectID:  r.SubjectID.String(),
		ReviewType: string(r.ReviewType),
		DimensionScores: mongoScores{
			Overall:         r.DimensionScores.Overall,
			Quality:         r.DimensionScores.Quality,
			Communication:   r.DimensionScores.Communication,
			Timeliness:      r.DimensionScores.Timeliness,
			Professionalism: r.DimensionScores.Professionalism,
		},
		Comment:         r.Comment,
		WouldRecommend:  r.WouldRecommend,
		IsVerified:      r.IsVerified,
		Status:          string(r.Status),
		ModerationNotes: notes,
		HelpfulVoters:   []string{},
		ReportCount:     r.ReportCount,
		JobCategory:     r.JobCategory,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
	if r.Response != nil {
		doc.Response = &mongoResponse{Comment: r.Response.Comment, RespondedAt: r.Response.RespondedAt.UTC()}
	}
	return doc
}

func toMongoNote(n models.ModerationNote) mongoNote {
	return mongoNote{Note: n.Note, ModeratorID: n.ModeratorID.String(), Timestamp: n.Timestamp.UTC()}
}

func (d mongoReview) toModel() models.Review {
	notes := make([]models.ModerationNote, 0, len(d.ModerationNotes))
	for _, n := range d.ModerationNotes {
		notes = append(notes, models.ModerationNote{
			Note:        n.Note,
			ModeratorID: parseUUID(n.ModeratorID),
			Timestamp:   n.Timestamp,
		})
	}
	review := models.Review{
		ID:         parseUUID(d.ID),
		JobID:      parseUUID(d.JobID),
		ReviewerID: parseUUID(d.ReviewerID),
		SubjectID:  parseUUID(d.SubjectID),
		ReviewType: valueobject.ReviewType(d.ReviewType),
		DimensionScores: models.DimensionScores{
			Overall:         d.DimensionScores.Overall,
			Quality:         d.DimensionScores.Quality,
			Communication:   d.DimensionScores.Communication,
			Timeliness:      d.DimensionScores.Timeliness,
			Professionalism: d.DimensionScores.Professionalism,
		},
		Comment:         d.Comment,
		WouldRecommend:  d.WouldRecommend,
		IsVerified:      d.IsVerified,
		Status:          valueobject.ReviewStatus(d.Status),
		ModerationNotes: notes,
		HelpfulVotes:    len(d.HelpfulVoters),
		ReportCount:     d.ReportCount,
		JobCategory:     d.JobCategory,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if d.Response != nil && d.Response.Comment != "" {
		review.Response = &models.ReviewResponse{Comment: d.Response.Comment, RespondedAt: d.Response.RespondedAt}
	}
	return review
}

func parseUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// buildMongoFilter переводит ReviewFilter в фильтр MongoDB.
func buildMongoFilter(f ReviewFilter) bson.M {
	filter := bson.M{}
	if f.SubjectID != uuid.Nil {
		filter["subjectId"] = f.SubjectID.String()
	}
	if f.JobID != uuid.Nil {
		filter["jobId"] = f.JobID.String()
	}
	if f.ReviewType != "" {
		filter["reviewType"] = string(f.ReviewType)
	}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	if f.Category != "" {
		filter["jobCategory"] = f.Category
	}
	if f.MinRating != nil {
		filter["dimensionScores.overall"] = bson.M{"$gte": *f.MinRating}
	}

	created := bson.M{}
	if !f.CreatedFrom.IsZero() {
		created["$gte"] = f.CreatedFrom.UTC()
	}
	if !f.CreatedTo.IsZero() {
		created["$lt"] = f.CreatedTo.UTC()
	}
	if len(created) > 0 {
		filter["createdAt"] = created
	}
	return filter
}

type mongoGroup struct {
	Key        string  `bson:"_id"`
	Count      int     `bson:"count"`
	SumOverall float64 `bson:"sumOverall"`
}

func groupStage(field string) bson.D {
	return bson.D{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: "$" + field},
		{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		{Key: "sumOverall", Value: bson.D{{Key: "$sum", Value: "$dimensionScores.overall"}}},
	}}}
}

// buildStatusPipeline группирует отзывы фильтра по статусу.
func buildStatusPipeline(f ReviewFilter) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: buildMongoFilter(f)}},
		groupStage("status"),
	}
}

// buildCategoryPipeline возвращает limit самых частых непустых категорий.
func buildCategoryPipeline(f ReviewFilter, limit int) mongo.Pipeline {
	match := buildMongoFilter(f)
	if _, ok := match["jobCategory"]; !ok {
		match["jobCategory"] = bson.M{"$nin": bson.A{"", nil}}
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		groupStage("jobCategory"),
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: int64(limit)}},
	}
}

// MongoReviewRepository хранит отзывы в MongoDB.
type MongoReviewRepository struct {
	coll *mongo.Collection
}

func NewMongoReviewRepository(db *mongo.Database) *MongoReviewRepository {
	return &MongoReviewRepository{coll: db.Collection(reviewsCollection)}
}

// EnsureIndexes создаёт уникальный индекс (jobId, reviewerId, reviewType) и индексы выборок.
func (r *MongoReviewRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "jobId", Value: 1}, {Key: "reviewerId", Value: 1}, {Key: "reviewType", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "subjectId", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo review repository: indexes %w", err)
	}
	return nil
}

func (r *MongoReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if _, err := r.coll.InsertOne(ctx, newMongoReview(review)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateReview
		}
		return fmt.Errorf("mongo review repository: create %w", err)
	}
	return nil
}

func (r *MongoReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *MongoReviewRepository) GetByJobAndReviewer(ctx context.Context, jobID, reviewerID uuid.UUID, reviewType valueobject.ReviewType) (*models.Review, error) {
	review, err := r.findOne(ctx, bson.M{
		"jobId":      jobID.String(),
		"reviewerId": reviewerID.String(),
		"reviewType": string(reviewType),
	})
	if errors.Is(err, ErrReviewNotFound) {
		return nil, nil
	}
	return review, err
}

func (r *MongoReviewRepository) Update(ctx context.Context, review *models.Review) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": review.ID.String()}, bson.M{"$set": bson.M{
		"dimensionScores": mongoScores{
			Overall:         review.DimensionScores.Overall,
			Quality:         review.DimensionScores.Quality,
			Communication:   review.DimensionScores.Communication,
			Timeliness:      review.DimensionScores.Timeliness,
			Professionalism: review.DimensionScores.Professionalism,
		},
		"comment":        review.Comment,
		"wouldRecommend": review.WouldRecommend,
		"updatedAt":      review.UpdatedAt.UTC(),
	}})
	if err != nil {
		return fmt.Errorf("mongo review repository: update %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrReviewNotFound
	}
	return nil
}

func (r *MongoReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("mongo review repository: delete %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrReviewNotFound
	}
	return nil
}

func (r *MongoReviewRepository) Find(ctx context.Context, filter ReviewFilter, opts ListOptions) ([]models.Review, int, error) {
	query := buildMongoFilter(filter)
	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo review repository: count %w", err)
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit)).SetSkip(int64(opts.Offset))
	}
	cursor, err := r.coll.Find(ctx, query, findOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo review repository: find %w", err)
	}
	var docs []mongoReview
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("mongo review repository: decode %w", err)
	}

	reviews := make([]models.Review, 0, len(docs))
	for _, d := range docs {
		reviews = append(reviews, d.toModel())
	}
	return reviews, int(total), nil
}

func (r *MongoReviewRepository) ListRatingPoints(ctx context.Context, filter ReviewFilter) ([]models.RatingPoint, error) {
	projection := bson.M{"dimensionScores.overall": 1, "createdAt": 1}
	cursor, err := r.coll.Find(ctx, buildMongoFilter(filter), options.Find().SetProjection(projection))
	if err != nil {
		return nil, fmt.Errorf("mongo review repository: rating points %w", err)
	}
	var docs []mongoReview
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo review repository: decode %w", err)
	}

	points := make([]models.RatingPoint, 0, len(docs))
	for _, d := range docs {
		points = append(points, models.RatingPoint{Overall: d.DimensionScores.Overall, CreatedAt: d.CreatedAt})
	}
	return points, nil
}

// AggregateStats считает статусы и топ категорий через $group на стороне MongoDB.
func (r *MongoReviewRepository) AggregateStats(ctx context.Context, filter ReviewFilter, categoryLimit int) (*models.ReviewStats, error) {
	byStatus, err := r.aggregateGroups(ctx, buildStatusPipeline(filter))
	if err != nil {
		return nil, err
	}
	categories, err := r.aggregateGroups(ctx, buildCategoryPipeline(filter, categoryLimit))
	if err != nil {
		return nil, err
	}
	return &models.ReviewStats{ByStatus: byStatus, TopCategories: categories}, nil
}

func (r *MongoReviewRepository) aggregateGroups(ctx context.Context, pipeline mongo.Pipeline) ([]models.GroupStat, error) {
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongo review repository: aggregate %w", err)
	}
	var groups []mongoGroup
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("mongo review repository: decode %w", err)
	}

	stats := make([]models.GroupStat, 0, len(groups))
	for _, g := range groups {
		stats = append(stats, models.GroupStat{Key: g.Key, Count: g.Count, SumOverall: g.SumOverall})
	}
	return stats, nil
}

// ApplyModeration атомарно меняет статус from -> to и дописывает заметку через $push.
func (r *MongoReviewRepository) ApplyModeration(ctx context.Context, id uuid.UUID, from, to valueobject.ReviewStatus, note models.ModerationNote) (*models.Review, error) {
	update := bson.M{
		"$set":  bson.M{"status": string(to), "updatedAt": note.Timestamp.UTC()},
		"$push": bson.M{"moderationNotes": toMongoNote(note)},
	}
	review, err := r.findOneAndUpdate(ctx, bson.M{"_id": id.String(), "status": string(from)}, update)
	if errors.Is(err, ErrReviewNotFound) {
		return nil, r.missingOrConflict(ctx, id, ErrStatusConflict)
	}
	return review, err
}

func (r *MongoReviewRepository) SetResponse(ctx context.Context, id uuid.UUID, response models.ReviewResponse) (*models.Review, error) {
	filter := bson.M{
		"_id": id.String(),
		"$or": bson.A{bson.M{"response": nil}, bson.M{"response.comment": ""}},
	}
	update := bson.M{"$set": bson.M{
		"response":  mongoResponse{Comment: response.Comment, RespondedAt: response.RespondedAt.UTC()},
		"updatedAt": response.RespondedAt.UTC(),
	}}
	review, err := r.findOneAndUpdate(ctx, filter, update)
	if errors.Is(err, ErrReviewNotFound) {
		return nil, r.missingOrConflict(ctx, id, ErrResponseExists)
	}
	return review, err
}

func (r *MongoReviewRepository) AddHelpfulVote(ctx context.Context, id, voterID uuid.UUID) (int, error) {
	review, err := r.findOneAndUpdate(ctx, bson.M{"_id": id.String()}, bson.M{
		"$addToSet": bson.M{"helpfulVoters": voterID.String()},
	})
	if err != nil {
		return 0, err
	}
	return review.HelpfulVotes, nil
}

func (r *MongoReviewRepository) IncrementReportCount(ctx context.Context, id uuid.UUID) (int, error) {
	review, err := r.findOneAndUpdate(ctx, bson.M{"_id": id.String()}, bson.M{
		"$inc": bson.M{"reportCount": 1},
	})
	if err != nil {
		return 0, err
	}
	return review.ReportCount, nil
}

func (r *MongoReviewRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

func (r *MongoReviewRepository) findOne(ctx context.Context, filter bson.M) (*models.Review, error) {
	var doc mongoReview
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("mongo review repository: find one %w", err)
	}
	review := doc.toModel()
	return &review, nil
}

func (r *MongoReviewRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Review, error) {
	var doc mongoReview
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("mongo review repository: update %w", err)
	}
	review := doc.toModel()
	return &review, nil
}

func (r *MongoReviewRepository) missingOrConflict(ctx context.Context, id uuid.UUID, conflict error) error {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id.String()}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("mongo review repository: exists %w", err)
	}
	if n == 0 {
		return ErrReviewNotFound
	}
	return conflict
}
