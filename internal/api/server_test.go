package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/leadgen-scraper/internal/config"
	"github.com/JakeFAU/leadgen-scraper/internal/storage/memory"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{Port: 8080, RequestTimeout: 5 * time.Second},
	}
}

func newTestServer(engine TaskEngine, cfg config.Config, ready ReadinessCheck) *Server {
	taxonomy := memory.NewTaxonomyStore(nil)
	return NewServer(engine, taxonomy, fixedClock{now: time.Unix(1700000000, 0).UTC()}, cfg, zap.NewNop(), ready)
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServerHealthz(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeEngine{}, testConfig(), nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServerReadyz(t *testing.T) {
	t.Parallel()

	ready := newTestServer(&fakeEngine{}, testConfig(), func(context.Context) error { return nil })
	require.Equal(t, http.StatusOK, serve(ready, httptest.NewRequest(http.MethodGet, "/readyz", nil)).Code)

	failing := newTestServer(&fakeEngine{}, testConfig(), func(context.Context) error {
		return errors.New("pool closed")
	})
	rec := serve(failing, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "not ready")
}

func TestServerPropagatesRequestID(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeEngine{}, testConfig(), nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")

	rec := serve(s, req)
	require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestServerMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeEngine{}, testConfig(), nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServerAPIKeyGate(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, APIKey: "secret"}
	s := newTestServer(&fakeEngine{}, cfg, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/scraper/status", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/scraper/status", nil)
	req.Header.Set("X-API-Key", "secret")
	require.Equal(t, http.StatusOK, serve(s, req).Code)

	query := httptest.NewRequest(http.MethodGet, "/api/scraper/status?api_key=secret", nil)
	require.Equal(t, http.StatusOK, serve(s, query).Code)

	require.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code,
		"health checks stay open when auth is enabled")
}

func TestServerRateLimitsPerClient(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 2}
	s := newTestServer(&fakeEngine{}, cfg, nil)

	status := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/scraper/status", nil)
		req.RemoteAddr = remote
		return serve(s, req).Code
	}
	require.Equal(t, http.StatusOK, status("10.0.0.1:1234"))
	require.Equal(t, http.StatusOK, status("10.0.0.1:5678"))
	require.Equal(t, http.StatusTooManyRequests, status("10.0.0.1:9999"))
	require.Equal(t, http.StatusOK, status("10.0.0.2:1234"))
	require.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
}

func TestClientKey(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:443"
	require.Equal(t, "ip:192.0.2.7", clientKey(req))

	req.Header.Set("X-API-Key", "worker-1")
	require.Equal(t, "key:worker-1", clientKey(req))
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)
	handler := recoverMiddleware(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestLoggingMiddlewareRecordsStatus(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	handler := loggingMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	require.EqualValues(t, http.StatusTeapot, entries[0].ContextMap()["status"])
	require.Equal(t, "/brew", entries[0].ContextMap()["path"])
}
