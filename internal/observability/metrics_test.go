package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesJobMetrics(t *testing.T) {
	metrics := NewMetrics()
	_ = metrics.Jobs().Track("cards:cleanup").End(nil)

	body := scrape(t, metrics)
	if !strings.Contains(body, `vcards_jobs_total{job="cards:cleanup",status="success"} 1`) {
		t.Fatalf("expected job run to be recorded, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `vcards_http_requests_total{code="418",route="/test"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, `vcards_http_request_duration_seconds_bucket{route="/test"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestRecordAuthFailure(t *testing.T) {
	metrics := NewMetrics()
	metrics.RecordAuthFailure("revoked")
	metrics.RecordAuthFailure("revoked")
	metrics.RecordAuthFailure("forbidden")

	body := scrape(t, metrics)
	if !strings.Contains(body, `vcards_auth_failures_total{reason="revoked"} 2`) {
		t.Fatalf("expected revoked failures, got: %s", body)
	}
	if !strings.Contains(body, `vcards_auth_failures_total{reason="forbidden"} 1`) {
		t.Fatalf("expected forbidden failures, got: %s", body)
	}
}

func TestTrackRevokedTokens(t *testing.T) {
	metrics := NewMetrics()
	size := 3
	metrics.TrackRevokedTokens(func() int { return size })

	if body := scrape(t, metrics); !strings.Contains(body, "vcards_revoked_tokens 3") {
		t.Fatalf("expected gauge value 3, got: %s", body)
	}
	size = 1
	if body := scrape(t, metrics); !strings.Contains(body, "vcards_revoked_tokens 1") {
		t.Fatalf("expected gauge value 1, got: %s", body)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.RecordAuthFailure("invalid")
	metrics.TrackRevokedTokens(func() int { return 0 })

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
