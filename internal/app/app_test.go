package app

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sao-erp/sao-erp/internal/observability"
	"github.com/sao-erp/sao-erp/internal/shared"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PG_DSN", "postgres://u:p@db:5432/sao")
	t.Setenv("BALANCE_CACHE_TTL", "90s")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 90*time.Second, cfg.BalanceCacheTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Equal(t, 7*24*time.Hour, cfg.IdempotencyRetention)
	assert.Equal(t, int32(10), cfg.DB("sao-api").MaxConns)
	assert.Equal(t, "sao-api", cfg.DB("sao-api").AppName)
	assert.Equal(t, "127.0.0.1:6379", cfg.Queue().Addr)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SAO_DOTENV_PROBE=1\nAPP_ENV=production\n"), 0o600))
	t.Setenv("APP_ENV", "")
	require.NoError(t, os.Unsetenv("APP_ENV"))
	t.Cleanup(func() { _ = os.Unsetenv("SAO_DOTENV_PROBE") })

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "1", os.Getenv("SAO_DOTENV_PROBE"))
}

func TestLoadConfigRejectsBadRate(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

func TestConfigLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, (&Config{LogLevel: "DEBUG"}).Level())
	assert.Equal(t, slog.LevelWarn, (&Config{LogLevel: "warning"}).Level())
	assert.Equal(t, slog.LevelInfo, (&Config{LogLevel: "bogus"}).Level())
	assert.Equal(t, slog.LevelInfo, (*Config)(nil).Level())
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, &Config{LogFormat: "json", LogLevel: "warn"}).Info("dropped")
	assert.Empty(t, buf.String())

	newLogger(&buf, &Config{LogFormat: "json"}).Info("kept", slog.Int64("tenant_id", 3))
	assert.Contains(t, buf.String(), `"tenant_id":3`)
}

func TestTenantMiddleware(t *testing.T) {
	var gotTenant, gotActor int64
	h := TenantMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant, _ = shared.TenantFromContext(r.Context())
		gotActor = shared.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		tenant string
		actor  string
		status int
	}{
		{name: "missing tenant", status: http.StatusBadRequest},
		{name: "garbage tenant", tenant: "abc", status: http.StatusBadRequest},
		{name: "zero tenant", tenant: "0", status: http.StatusBadRequest},
		{name: "bad actor", tenant: "4", actor: "x", status: http.StatusBadRequest},
		{name: "tenant only", tenant: "4", status: http.StatusNoContent},
		{name: "tenant and actor", tenant: " 4 ", actor: "9", status: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotTenant, gotActor = 0, 0
			req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
			if tc.tenant != "" {
				req.Header.Set(TenantHeader, tc.tenant)
			}
			if tc.actor != "" {
				req.Header.Set(ActorHeader, tc.actor)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusNoContent {
				assert.EqualValues(t, 4, gotTenant)
			} else {
				assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			}
			if tc.actor == "9" {
				assert.EqualValues(t, 9, gotActor)
			}
		})
	}
}

func TestRouterHealthAndMetrics(t *testing.T) {
	router := NewRouter(RouterParams{
		Logger:  slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Config:  &Config{AppEnv: "development", RateLimitPerMinute: 100},
		Metrics: observability.NewMetrics(),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sao_http_requests_total")
}

func TestInTestModeFollowsEnvironment(t *testing.T) {
	t.Setenv("SAO_TEST_MODE", "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv("SAO_TEST_MODE", "0")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
