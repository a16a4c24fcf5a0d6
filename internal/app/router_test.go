package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/vcards/internal/health"
	"github.com/odyssey-erp/vcards/internal/observability"
	"github.com/odyssey-erp/vcards/internal/rbac"
	"github.com/odyssey-erp/vcards/jobs"
)

func newTestRouter(t *testing.T) (http.Handler, *observability.Metrics) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := validConfig()
	metrics := observability.NewMetrics()
	mw := rbac.Middleware{Matrix: rbac.DefaultMatrix(), Logger: logger, Metrics: metrics}
	return NewRouter(RouterParams{
		Logger:             logger,
		Config:             &cfg,
		HealthHandler:      health.NewHandler(logger, nil, mw),
		JobHandler:         jobs.NewHandler(nil, logger),
		PermissionsHandler: rbac.NewPermissionsHandler(rbac.DefaultMatrix(), mw),
		Metrics:            metrics,
	}), metrics
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func TestRouterLiveness(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := serve(router, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestRouterProblemForUnknownRoute(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := serve(router, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	rr = serve(router, http.MethodPost, "/healthz")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRouterGuardsProtectedRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := serve(router, http.MethodGet, "/health")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/permissions/mine").Code)
}

func TestRouterExposesMetricsAndJobs(t *testing.T) {
	router, _ := newTestRouter(t)
	serve(router, http.MethodGet, "/healthz")
	serve(router, http.MethodGet, "/health")

	rr := serve(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, "vcards_http_requests_total"))
	assert.Contains(t, body, `vcards_auth_failures_total{reason="missing_token"} 1`)

	rr = serve(router, http.MethodGet, "/jobs/health")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"queue":"default"`)
}
