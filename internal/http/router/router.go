package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/freelance-reviews/internal/config"
	"github.com/ignatzorin/freelance-reviews/internal/http/handlers"
	"github.com/ignatzorin/freelance-reviews/internal/http/middleware"
	"github.com/ignatzorin/freelance-reviews/internal/service"
	"github.com/ignatzorin/freelance-reviews/internal/validation"
)

// Handlers собирает все HTTP обработчики сервиса.
type Handlers struct {
	Reviews *handlers.ReviewHandler
	Ratings *handlers.RatingHandler
	Admin   *handlers.AdminReviewHandler
	Health  *handlers.HealthHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokenManager *service.TokenManager, limitStore limiter.Store) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	validation.RegisterBindings()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	auth := middleware.AuthMiddleware(tokenManager)
	writeLimit := middleware.RateLimitMiddleware(limitStore, cfg.RateLimitLimit, cfg.RateLimitPeriod)

	// Публичное чтение
	api.GET("/reviews/user/:userId", middleware.UUIDValidator("userId"), h.Reviews.ListUserReviews)
	api.GET("/reviews/job/:jobId", middleware.UUIDValidator("jobId"), h.Reviews.ListJobReviews)
	api.GET("/reviews/:reviewId", middleware.OptionalAuth(tokenManager), middleware.UUIDValidator("reviewId"), h.Reviews.GetReview)
	api.GET("/ratings/worker/:workerId", middleware.UUIDValidator("workerId"), h.Ratings.GetWorkerRating)
	api.GET("/ratings/worker/:workerId/rank-signals", middleware.UUIDValidator("workerId"), h.Ratings.GetRankSignals)

	reviews := api.Group("/reviews")
	reviews.Use(auth, writeLimit)
	{
		reviews.POST("", h.Reviews.CreateReview)
		reviews.PUT("/:reviewId", middleware.UUIDValidator("reviewId"), h.Reviews.UpdateReview)
		reviews.DELETE("/:reviewId", middleware.UUIDValidator("reviewId"), h.Reviews.DeleteReview)
		reviews.PUT("/:reviewId/response", middleware.UUIDValidator("reviewId"), h.Reviews.AddResponse)
		reviews.POST("/:reviewId/helpful", middleware.UUIDValidator("reviewId"), h.Reviews.VoteHelpful)
		reviews.POST("/:reviewId/report", middleware.UUIDValidator("reviewId"), h.Reviews.ReportReview)
	}

	admin := api.Group("/admin/reviews")
	admin.Use(auth, middleware.RequireModerator())
	{
		admin.GET("/queue", h.Admin.Queue)
		admin.GET("/analytics", h.Admin.Analytics)
		admin.POST("/bulk-moderate", h.Admin.BulkModerate)
		admin.GET("/:id", middleware.UUIDValidator("id"), h.Admin.GetReview)
		admin.POST("/:id/moderate", middleware.UUIDValidator("id"), h.Admin.Moderate)
	}

	return r
}
