package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ReviewsModerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_moderated_total",
			Help: "Moderation transitions applied, by target status",
		},
		[]string{"status"},
	)

	RatingRecomputes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rating_recomputes_total",
			Help: "Rating summary recomputations, by result",
		},
		[]string{"result"},
	)

	RatingRecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rating_recompute_duration_seconds",
			Help:    "Rating summary recomputation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RatingCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rating_cache_lookups_total",
			Help: "Rating summary cache lookups, by result",
		},
		[]string{"result"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_events_published_total",
			Help: "Domain events handed to the publisher, by type and result",
		},
		[]string{"type", "result"},
	)
)

const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultHit   = "hit"
	ResultMiss  = "miss"
)
