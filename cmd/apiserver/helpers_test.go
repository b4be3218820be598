package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncwave/crm/internal/common/config"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.APIServerConfig {
	t.Helper()
	cfg := &config.APIServerConfig{
		Database: config.DatabaseConfig{Type: "sqlite", DBName: filepath.Join(t.TempDir(), "crm.db")},
		JWT:      config.JWTConfig{SecretKey: "this-is-a-very-long-secret-key-for-testing-purposes-only", Duration: time.Hour},
		Provider: config.ProviderConfig{Type: "simulated"},
		Dispatch: config.DispatchConfig{DefaultSendTimeout: time.Millisecond, SchedulerInterval: time.Minute},
		Metrics:  config.MetricsConfig{Enabled: true, Path: "/metrics", Namespace: "crm_test"},
		Cache:    config.CacheConfig{Enabled: true, PrincipalTTL: time.Minute},
	}
	return cfg
}

func TestInitLogger(t *testing.T) {
	lg := initLogger(&config.APIServerConfig{})
	require.NotNil(t, lg)
	_ = lg.Sync()
}

func TestInitDatabase_SQLite(t *testing.T) {
	db := initDatabase(zap.NewNop(), &config.DatabaseConfig{Type: "sqlite", DBName: filepath.Join(t.TempDir(), "crm.db")})
	require.NotNil(t, db)
	t.Cleanup(func() { _ = db.Close() })
}

func TestInitI18n(t *testing.T) {
	initI18n(&config.I18nConfig{DefaultLang: "pt"})
	// a missing overrides directory falls back to the built-in messages
	initI18n(&config.I18nConfig{Path: filepath.Join(t.TempDir(), "missing"), DefaultLang: "en"})
}

func TestInitServices(t *testing.T) {
	cfg := testConfig(t)
	db := initDatabase(zap.NewNop(), &cfg.Database)
	t.Cleanup(func() { _ = db.Close() })

	svc, cleanup, err := initServices(context.Background(), cfg, db, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(cleanup)

	assert.NotNil(t, svc.dispatch)
	assert.NotNil(t, svc.scheduler)
	assert.NotNil(t, svc.metrics)
	assert.NotNil(t, svc.principals)
	assert.Nil(t, svc.redis)
}

func TestInitServices_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis = config.RedisConfig{Addr: mr.Addr(), Prefix: "test:", LockTTL: time.Minute}
	db := initDatabase(zap.NewNop(), &cfg.Database)
	t.Cleanup(func() { _ = db.Close() })

	svc, cleanup, err := initServices(context.Background(), cfg, db, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(cleanup)
	assert.NotNil(t, svc.redis)
}

func TestInitServices_UnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Provider.Type = "carrier-pigeon"
	db := initDatabase(zap.NewNop(), &cfg.Database)
	t.Cleanup(func() { _ = db.Close() })

	_, _, err := initServices(context.Background(), cfg, db, zap.NewNop())
	require.Error(t, err)
}

func TestInitRouter_Constructs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	lg := zap.NewNop()
	db := initDatabase(lg, &cfg.Database)
	t.Cleanup(func() { _ = db.Close() })

	svc, cleanup, err := initServices(context.Background(), cfg, db, lg)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	r := initRouter(db, svc, cfg, lg)
	require.NotNil(t, r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "scheduler")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/contacts", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
