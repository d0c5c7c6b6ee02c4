package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgconfig "github.com/safouanmatmati/ratingboard/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8010, cfg.HTTPPort)
	assert.Equal(t, DriverFile, cfg.StorageDriver)
	assert.Equal(t, "ratings", cfg.StorageKey)
	assert.Equal(t, "./data", cfg.FileDir)
	assert.Zero(t, cfg.AutosaveInterval)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	t.Setenv("RATINGS_HTTP_PORT", "70000")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_UnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "localstorage")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `unknown STORAGE_DRIVER "localstorage"`)
}

func TestLoad_DriverRequirements(t *testing.T) {
	tests := []struct {
		driver  string
		wantErr string
	}{
		{driver: DriverPostgres, wantErr: "POSTGRES_DSN is required"},
		{driver: DriverS3, wantErr: "S3_BUCKET is required"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			t.Setenv("STORAGE_DRIVER", tt.driver)

			cfg, err := Load()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_S3PartialCredentials(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", DriverS3)
	t.Setenv("S3_BUCKET", "ratings")
	t.Setenv("S3_ACCESS_KEY_ID", "AKIA")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be set together")
}

func TestLoad_Postgres(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", DriverPostgres)
	t.Setenv("POSTGRES_DSN", "postgres://u:p@localhost:5432/ratings")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost:5432/ratings", cfg.PostgresDSN)
}

func TestLoad_InvalidOTELSampleRate(t *testing.T) {
	t.Setenv("OTEL_SAMPLE_RATE", "2.0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
}

func TestLoad_AutosaveAndBrokers(t *testing.T) {
	t.Setenv("AUTOSAVE_INTERVAL", "30s")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.AutosaveInterval)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Len(t, cfg.CORSAllowedOrigins, 2)
}

func TestLoad_NegativeAutosave(t *testing.T) {
	t.Setenv("AUTOSAVE_INTERVAL", "-1s")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTOSAVE_INTERVAL")
}

func TestLoad_RateLimit(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "5")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, 5, cfg.RateLimitBurst)
}

func TestLoad_RateLimitInvalid(t *testing.T) {
	t.Run("negative rps", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_RPS", "-1")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RATE_LIMIT_RPS")
	})
	t.Run("zero burst", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_RPS", "1")
		t.Setenv("RATE_LIMIT_BURST", "0")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RATE_LIMIT_BURST")
	})
}

func TestLoad_FromMapWithPrefix(t *testing.T) {
	cfg, err := Load(
		pkgconfig.WithEnvironment(map[string]string{
			"RB_STORAGE_DRIVER": "sqlite",
			"RB_SQLITE_PATH":    "/tmp/ratings.db",
			"STORAGE_DRIVER":    "s3",
		}),
		pkgconfig.WithPrefix("RB_"),
	)

	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.StorageDriver)
	assert.Equal(t, "/tmp/ratings.db", cfg.SQLitePath)
}
