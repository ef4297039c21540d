package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-reviews/internal/cache"
	"github.com/ignatzorin/freelance-reviews/internal/config"
	"github.com/ignatzorin/freelance-reviews/internal/db"
	"github.com/ignatzorin/freelance-reviews/internal/events"
	"github.com/ignatzorin/freelance-reviews/internal/goroutine"
	httpHandlers "github.com/ignatzorin/freelance-reviews/internal/http/handlers"
	"github.com/ignatzorin/freelance-reviews/internal/http/middleware"
	httpRouter "github.com/ignatzorin/freelance-reviews/internal/http/router"
	"github.com/ignatzorin/freelance-reviews/internal/logger"
	"github.com/ignatzorin/freelance-reviews/internal/repository"
	"github.com/ignatzorin/freelance-reviews/internal/service"
)

// reviewStore дополняет хранилище отзывов проверкой для /health.
type reviewStore interface {
	service.ReviewStore
	httpHandlers.Pinger
}

// summaryCache дополняет кэш сводок проверкой для /health.
type summaryCache interface {
	service.SummaryCache
	httpHandlers.Pinger
}

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel)
	if cfg.Env == "development" {
		logger.SetTextFormatter()
	}
	goroutine.SetLogger(logger.Component("goroutine"))
	mainLog := logger.Component("main")

	store, closeStore, err := openStore(ctx, cfg, mainLog)
	if err != nil {
		mainLog.WithError(err).Fatal("не удалось подключить хранилище отзывов")
	}
	defer closeStore()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = db.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			mainLog.WithError(err).Fatal("не удалось подключиться к Redis")
		}
		defer safeClose(mainLog, "redis", redisClient.Close)
	}

	var ratingCache summaryCache
	if redisClient != nil {
		ratingCache = cache.NewRedisRatingCache(redisClient, cfg.RatingCacheTTL)
	} else {
		ratingCache = cache.NewMemoryRatingCache(cache.NewMemoryStore(ctx, time.Minute), cfg.RatingCacheTTL)
		mainLog.Info("REDIS_URL не задан, сводки рейтинга кэшируются в памяти")
	}

	var publisher service.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger.Component("events"))
		defer safeClose(mainLog, "kafka", kafkaPublisher.Close)
		publisher = kafkaPublisher
	} else {
		mainLog.Info("KAFKA_BROKERS не задан, события не публикуются")
	}

	limitStore, err := middleware.NewRateLimitStore(redisClient)
	if err != nil {
		mainLog.WithError(err).Fatal("не удалось создать хранилище rate limit")
	}

	// Сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret)
	ratingService := service.NewRatingService(store, ratingCache, publisher, logger.Component("rating"))
	reviewService := service.NewReviewService(store, ratingService, publisher, logger.Component("reviews"), cfg.MaxCommentLength)
	moderationService := service.NewModerationService(store, ratingService, publisher, logger.Component("moderation"), cfg.BulkModerateMax)
	analyticsService := service.NewAnalyticsService(store, cfg.AnalyticsWindowDays, logger.Component("analytics"))

	// HTTP хэндлеры.
	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Reviews: httpHandlers.NewReviewHandler(reviewService, moderationService),
		Ratings: httpHandlers.NewRatingHandler(ratingService),
		Admin:   httpHandlers.NewAdminReviewHandler(moderationService, analyticsService),
		Health: httpHandlers.NewHealthHandler(map[string]httpHandlers.Pinger{
			"store": store,
			"cache": ratingCache,
		}),
	}, tokenManager, limitStore)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			mainLog.WithError(err).Error("ошибка остановки http сервера")
		}
	}()

	mainLog.WithFields(logrus.Fields{
		"port":  cfg.HTTPPort,
		"store": cfg.StoreDriver,
	}).Info("HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		mainLog.WithError(err).Fatal("сервер завершился с ошибкой")
	}

	// Дожидаемся фоновой публикации событий.
	goroutine.DefaultRecoveryHandler.Wait()
	mainLog.Info("сервер остановлен")
}

func openStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (reviewStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		client, database, err := db.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewMongoReviewRepository(database)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return repo, func() {
			safeClose(log, "mongo", func() error { return client.Disconnect(context.Background()) })
		}, nil

	default:
		conn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		applied, err := db.RunMigrations(ctx, conn, cfg.MigrationsPath)
		if err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		if len(applied) > 0 {
			log.WithField("migrations", applied).Info("миграции применены")
		}
		return repository.NewReviewRepository(conn), func() {
			safeClose(log, "postgres", conn.Close)
		}, nil
	}
}

func safeClose(log logrus.FieldLogger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.WithError(err).WithField("resource", name).Warn("ошибка при закрытии")
	}
}
