package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safouanmatmati/ratingboard/internal/config"
	"github.com/safouanmatmati/ratingboard/pkg/logger"
)

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Environment:    "test",
		LogLevel:       "error",
		HTTPPort:       0,
		StorageDriver:  driver,
		StorageKey:     "ratings",
		FileDir:        dir,
		SQLitePath:     filepath.Join(dir, "ratings.db"),
		OTELSampleRate: 1.0,
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := newApp(cfg, logger.Discard(), prometheus.NewRegistry())
	require.NoError(t, err)
	return a
}

func rating(business string) map[string]any {
	return map[string]any{
		"business": business,
		"user":     "alice",
		"comment":  "nice",
		"score":    4,
		"lat":      48.85,
		"lng":      2.35,
	}
}

func TestApp_SavesOnShutdownAndLoadsOnStart(t *testing.T) {
	cfg := testConfig(t, config.DriverFile)

	first := newTestApp(t, cfg)
	for _, name := range []string{"a", "b", "c"} {
		_, err := first.store.Post(rating(name))
		require.NoError(t, err)
	}
	require.NoError(t, first.store.Delete("3"))
	require.NoError(t, first.Shutdown())

	second := newTestApp(t, cfg)
	defer second.Shutdown()

	all := second.store.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all["1"].Business)

	id, err := second.store.Post(rating("d"))
	require.NoError(t, err)
	assert.Equal(t, "3", id, "counter restarts from the largest persisted identifier")
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t, config.DriverFile)
	a := newTestApp(t, cfg)
	_, err := a.store.Post(rating("a"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	raw, err := os.ReadFile(filepath.Join(cfg.FileDir, "ratings.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"business":"a"`)
}

func TestApp_Autosave(t *testing.T) {
	cfg := testConfig(t, config.DriverFile)
	cfg.AutosaveInterval = 20 * time.Millisecond
	a := newTestApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	_, err := a.store.Post(rating("autosaved"))
	require.NoError(t, err)

	path := filepath.Join(cfg.FileDir, "ratings.json")
	require.Eventually(t, func() bool {
		raw, err := os.ReadFile(path)
		return err == nil && strings.Contains(string(raw), "autosaved")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestApp_HealthReady(t *testing.T) {
	a := newTestApp(t, testConfig(t, config.DriverMemory))
	defer a.Shutdown()

	rec := httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"storage"`)
}

func TestApp_CorruptDataStartsEmpty(t *testing.T) {
	cfg := testConfig(t, config.DriverFile)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.FileDir, "ratings.json"), []byte("not json"), 0o600))

	a := newTestApp(t, cfg)
	defer a.Shutdown()

	assert.Empty(t, a.store.GetAll())
}

// ============================================================================
// openStorage
// ============================================================================

func TestOpenStorage_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, config.DriverRedis)
	cfg.RedisAddr = mr.Addr()

	a := newTestApp(t, cfg)
	_, err := a.store.Post(rating("redis"))
	require.NoError(t, err)
	require.NoError(t, a.Shutdown())

	raw, err := mr.Get("ratingboard:ratings")
	require.NoError(t, err)
	assert.Contains(t, raw, `"business":"redis"`)
}

func TestOpenStorage_RedisUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t, config.DriverRedis)
	cfg.RedisAddr = addr

	_, err = newApp(cfg, logger.Discard(), prometheus.NewRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestOpenStorage_SQLite(t *testing.T) {
	cfg := testConfig(t, config.DriverSQLite)

	first := newTestApp(t, cfg)
	_, err := first.store.Post(rating("sqlite"))
	require.NoError(t, err)
	require.NoError(t, first.Shutdown())

	second := newTestApp(t, cfg)
	defer second.Shutdown()
	assert.Equal(t, 1, second.store.Len())
}

func TestOpenStorage_UnknownDriver(t *testing.T) {
	cfg := testConfig(t, "floppy")

	_, err := openStorage(context.Background(), cfg, logger.Discard(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown storage driver "floppy"`)
}

func TestOpenStorage_PostgresBadDSN(t *testing.T) {
	cfg := testConfig(t, config.DriverPostgres)
	cfg.PostgresDSN = "://not-a-dsn"

	_, err := openStorage(context.Background(), cfg, logger.Discard(), nil)
	assert.Error(t, err)
}
