package perf

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/vcards/internal/auth"
	"github.com/odyssey-erp/vcards/internal/rbac"
	"github.com/odyssey-erp/vcards/internal/shared"
)

type singleStore struct {
	identity auth.Identity
}

func (s singleStore) FindByIdentity(ctx context.Context, identity string) (*auth.Identity, error) {
	if identity != s.identity.Principal.Username {
		return nil, shared.ErrNotFound
	}
	copied := s.identity
	return &copied, nil
}

func (s singleStore) FindByID(ctx context.Context, id int64) (*auth.Identity, error) {
	if id != s.identity.Principal.ID {
		return nil, shared.ErrNotFound
	}
	copied := s.identity
	return &copied, nil
}

func guardedRouter(tb testing.TB) (http.Handler, string) {
	tb.Helper()
	codec, err := auth.NewCodec([]byte("perf-secret-perf-secret-perf-secret"), "HS256", 0)
	if err != nil {
		tb.Fatalf("codec: %v", err)
	}
	store := singleStore{identity: auth.Identity{Principal: shared.Principal{ID: 1, Username: "alice", Role: shared.RoleUser}}}
	guard := auth.NewGuard(auth.NewRegistry(), codec, store, nil)
	issued, err := codec.Issue("1", time.Now().UTC(), 0)
	if err != nil {
		tb.Fatalf("issue: %v", err)
	}
	mw := rbac.Middleware{Guard: guard, Matrix: rbac.DefaultMatrix()}
	r := chi.NewRouter()
	r.With(mw.Require(shared.ResourceCards, shared.ActionShowMy)).Get("/cards", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r, issued.Token
}

func TestGuardedRequestLatencyTargets(t *testing.T) {
	router, token := guardedRouter(t)
	samples := make([]time.Duration, 0, 200)
	for i := 0; i < 200; i++ {
		req := httptest.NewRequest(http.MethodGet, "/cards", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		start := time.Now()
		router.ServeHTTP(rr, req)
		samples = append(samples, time.Since(start))
		if rr.Code != http.StatusNoContent {
			t.Fatalf("unexpected status %d", rr.Code)
		}
	}
	if p95 := percentile95(samples); p95 > 50*time.Millisecond {
		t.Fatalf("guarded request latency regression: p95=%s", p95)
	}
}

func BenchmarkGuardedRequest(b *testing.B) {
	router, token := guardedRouter(b)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodGet, "/cards", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
