package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	authhttp "github.com/odyssey-erp/vcards/internal/auth/http"
	"github.com/odyssey-erp/vcards/internal/cards"
	"github.com/odyssey-erp/vcards/internal/health"
	"github.com/odyssey-erp/vcards/internal/observability"
	"github.com/odyssey-erp/vcards/internal/platform/httpx"
	"github.com/odyssey-erp/vcards/internal/rbac"
	"github.com/odyssey-erp/vcards/internal/transactions"
	"github.com/odyssey-erp/vcards/internal/users"
	"github.com/odyssey-erp/vcards/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	AuthHandler         *authhttp.Handler
	UsersHandler        *users.Handler
	CardsHandler        *cards.Handler
	TransactionsHandler *transactions.Handler
	HealthHandler       *health.Handler
	JobHandler          *jobs.Handler
	PermissionsHandler  *rbac.PermissionsHandler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with vcards defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if params.Config == nil || !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})

	if params.HealthHandler != nil {
		params.HealthHandler.MountRoutes(r)
	}
	if params.AuthHandler != nil {
		if params.AuthHandler.LoginLimiter == nil {
			params.AuthHandler.LoginLimiter = LoginRateLimiter()
		}
		params.AuthHandler.MountRoutes(r)
	}
	if params.UsersHandler != nil {
		params.UsersHandler.MountRoutes(r)
	}
	if params.CardsHandler != nil {
		params.CardsHandler.MountRoutes(r)
	}
	if params.TransactionsHandler != nil {
		params.TransactionsHandler.MountRoutes(r)
	}
	if params.PermissionsHandler != nil {
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
