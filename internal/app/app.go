package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/safouanmatmati/ratingboard/internal/config"
	"github.com/safouanmatmati/ratingboard/internal/event"
	handler "github.com/safouanmatmati/ratingboard/internal/handler/http"
	"github.com/safouanmatmati/ratingboard/internal/service"
	"github.com/safouanmatmati/ratingboard/internal/store"
	"github.com/safouanmatmati/ratingboard/pkg/health"
	pkgkafka "github.com/safouanmatmati/ratingboard/pkg/kafka"
	"github.com/safouanmatmati/ratingboard/pkg/middleware"
	"github.com/safouanmatmati/ratingboard/pkg/tracing"
)

// App wires together all dependencies and runs the rating service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	storage        storage
	store          *store.Store
	producer       *pkgkafka.Producer
	tracerShutdown func(context.Context) error
	httpServer     *http.Server

	stopAutosave chan struct{}
	autosaveDone sync.WaitGroup
	shutdownOnce sync.Once
}

// NewApp creates a new application instance, initializing all dependencies
// and loading the persisted ratings.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	return newApp(cfg, logger, prometheus.DefaultRegisterer)
}

func newApp(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize tracing.
	tracingCfg := tracing.DefaultConfig(handler.ServiceName)
	tracingCfg.Environment = cfg.Environment
	tracingCfg.OTLPEndpoint = cfg.OTELEndpoint
	tracingCfg.SampleRate = cfg.OTELSampleRate
	tracingCfg.Enabled = cfg.OTELEnabled
	tracerShutdown, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Open the blob backend and restore the previous session.
	st, err := openStorage(ctx, cfg, logger, reg)
	if err != nil {
		_ = tracerShutdown(context.Background())
		return nil, err
	}
	ratings := store.New(st.blobs, logger, store.WithKey(cfg.StorageKey))
	ratings.Load(ctx)

	// Initialize Kafka producer when brokers are configured.
	var (
		producer  *pkgkafka.Producer
		publisher event.Publisher = event.NopPublisher{}
	)
	if len(cfg.KafkaBrokers) > 0 {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewProducer(producer, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Info("no kafka brokers configured, rating events are disabled")
	}

	// Build the dependency graph.
	ratingService := service.NewRatingService(ratings, publisher, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("storage", ratings.Ping)
	if producer != nil {
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
	}

	// HTTP router.
	router := handler.NewRouter(ratingService, healthHandler, logger, handler.RouterOptions{
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Environment:    cfg.Environment,
		},
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		storage:        st,
		store:          ratings,
		producer:       producer,
		tracerShutdown: tracerShutdown,
		httpServer:     httpServer,
		stopAutosave:   make(chan struct{}),
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.cfg.AutosaveInterval > 0 {
		a.autosaveDone.Add(1)
		go a.autosave(a.cfg.AutosaveInterval)
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// autosave persists the store every interval until Shutdown.
func (a *App) autosave(interval time.Duration) {
	defer a.autosaveDone.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopAutosave:
			return
		case <-ticker.C:
			a.save("autosave")
		}
	}
}

// save writes the store and logs failures. Persistence is best effort.
func (a *App) save(reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.store.Save(ctx); err != nil {
		a.logger.Error("failed to save ratings",
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
		return
	}
	a.logger.Debug("ratings saved",
		slog.String("reason", reason),
		slog.Int("count", a.store.Len()),
	)
}

// Shutdown gracefully stops all components and saves the ratings.
func (a *App) Shutdown() error {
	a.shutdownOnce.Do(a.shutdown)
	return nil
}

func (a *App) shutdown() {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	close(a.stopAutosave)
	a.autosaveDone.Wait()

	// No request can mutate the store any more.
	a.save("shutdown")

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if err := a.storage.Close(); err != nil {
		a.logger.Error("storage close error", slog.String("error", err.Error()))
	}

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
}
