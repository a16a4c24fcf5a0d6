// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/vcards/internal/platform/clock"
	"github.com/odyssey-erp/vcards/internal/platform/httpx"
	"github.com/odyssey-erp/vcards/internal/rbac"
	"github.com/odyssey-erp/vcards/internal/shared"
)

const checkTimeout = 3 * time.Second

// Check probes one dependency.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Handler exposes /healthz and /health.
type Handler struct {
	checks []Check
	clock  clock.Clock
	logger *slog.Logger
	rbac   rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, clk clock.Clock, rbac rbac.Middleware, checks ...Check) *Handler {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{checks: checks, clock: clk, logger: logger, rbac: rbac}
}

// MountRoutes registers probe routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/healthz", h.liveness)
	r.With(h.rbac.Require(shared.ResourceCheck, shared.ActionHealthCheck)).Get("/health", h.readiness)
}

type report struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	User      string            `json:"user,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func (h *Handler) liveness(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readiness(w http.ResponseWriter, r *http.Request) {
	out := report{Status: "ok", Timestamp: h.clock.Now(), Checks: h.run(r.Context())}
	if p := shared.PrincipalFromContext(r.Context()); p != nil {
		out.User = p.Username
	}
	status := http.StatusOK
	for _, result := range out.Checks {
		if result != "ok" {
			out.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	httpx.JSON(w, status, out)
}

// run probes every dependency concurrently. A failing probe does not
// cancel the others.
func (h *Handler) run(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]string, len(h.checks))
		g       errgroup.Group
	)
	for _, check := range h.checks {
		g.Go(func() error {
			result := "ok"
			if err := check.Probe(ctx); err != nil {
				h.logger.Warn("health check failed", slog.String("check", check.Name), slog.Any("error", err))
				result = "unavailable"
			}
			mu.Lock()
			results[check.Name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}
