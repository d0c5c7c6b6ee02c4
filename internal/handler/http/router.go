package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/safouanmatmati/ratingboard/internal/service"
	"github.com/safouanmatmati/ratingboard/pkg/health"
	"github.com/safouanmatmati/ratingboard/pkg/middleware"
)

// ServiceName labels metrics and spans emitted by the router.
const ServiceName = "ratingboard"

// RouterOptions tunes the edge middleware of the router.
type RouterOptions struct {
	CORS middleware.CORSConfig
	// RateLimitRPS caps rating API requests per client IP. Zero disables it.
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a chi router with all rating routes registered.
func NewRouter(
	ratingService *service.RatingService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	opts RouterOptions,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(opts.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	ratingHandler := NewRatingHandler(ratingService, logger)
	r.Route("/api/v1/ratings", func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst, logger))
		mountRatingRoutes(r, ratingHandler)
	})

	return r
}

// mountRatingRoutes registers the rating endpoints relative to r.
func mountRatingRoutes(r chi.Router, h *RatingHandler) {
	r.Use(ContentTypeJSON)

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/statistics", h.Statistics)

	r.Route("/{id}", func(r chi.Router) {
		r.Use(RatingIDFromPath)

		r.Get("/", h.Get)
		r.Put("/", h.Replace)
		r.Patch("/", h.Patch)
		r.Delete("/", h.Delete)
		r.Put("/moderation", h.Moderate)
	})
}
