package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/safouanmatmati/ratingboard/internal/blob"
	fileblob "github.com/safouanmatmati/ratingboard/internal/blob/file"
	"github.com/safouanmatmati/ratingboard/internal/blob/memory"
	pgblob "github.com/safouanmatmati/ratingboard/internal/blob/postgres"
	"github.com/safouanmatmati/ratingboard/internal/blob/postgres/migrations"
	redisblob "github.com/safouanmatmati/ratingboard/internal/blob/redis"
	s3blob "github.com/safouanmatmati/ratingboard/internal/blob/s3"
	sqliteblob "github.com/safouanmatmati/ratingboard/internal/blob/sqlite"
	"github.com/safouanmatmati/ratingboard/internal/config"
	"github.com/safouanmatmati/ratingboard/pkg/database"
)

// storage is an opened blob backend plus whatever must be released on
// shutdown.
type storage struct {
	blobs  blob.Store
	closer func() error
}

func (s storage) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// openStorage connects the blob backend selected by cfg.StorageDriver.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage, ratings will not survive a restart")
		return storage{blobs: memory.New()}, nil

	case config.DriverFile:
		store, err := fileblob.New(cfg.FileDir)
		if err != nil {
			return storage{}, fmt.Errorf("open file storage: %w", err)
		}
		logger.Info("using file storage", slog.String("dir", cfg.FileDir))
		return storage{blobs: store}, nil

	case config.DriverRedis:
		rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return storage{}, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		return storage{blobs: redisblob.NewStore(rdb), closer: rdb.Close}, nil

	case config.DriverPostgres:
		pgCfg := database.DefaultPostgresConfig(cfg.PostgresDSN)
		pgCfg.MaxConns = cfg.DBMaxConns
		pgCfg.MinConns = cfg.DBMinConns
		pgCfg.MaxConnLifetime = time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute
		pgCfg.MaxConnIdleTime = time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute

		pool, err := database.NewPostgresPool(ctx, pgCfg, logger)
		if err != nil {
			return storage{}, err
		}
		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			pool.Close()
			return storage{}, fmt.Errorf("run migrations: %w", err)
		}
		if reg != nil {
			if err := database.RegisterPoolMetrics(reg, pool); err != nil {
				logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
			}
		}
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
		logger.Info("connected to PostgreSQL")

		closer := func() error {
			pool.Close()
			return nil
		}
		return storage{blobs: pgblob.NewStore(pool), closer: closer}, nil

	case config.DriverSQLite:
		store, err := sqliteblob.Open(cfg.SQLitePath)
		if err != nil {
			return storage{}, fmt.Errorf("open sqlite storage: %w", err)
		}
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
		logger.Info("using SQLite storage", slog.String("path", cfg.SQLitePath))
		return storage{blobs: store, closer: store.Close}, nil

	case config.DriverS3:
		client, err := s3blob.NewClient(ctx, s3blob.ClientConfig{
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return storage{}, err
		}
		logger.Info("using S3 storage",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return storage{blobs: s3blob.NewStore(client, cfg.S3Bucket, cfg.S3Prefix)}, nil

	default:
		return storage{}, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
