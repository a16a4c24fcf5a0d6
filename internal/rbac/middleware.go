package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/vcards/internal/auth"
	"github.com/odyssey-erp/vcards/internal/platform/httpx"
	"github.com/odyssey-erp/vcards/internal/shared"
)

// ErrForbidden reports a matrix denial.
var ErrForbidden = errors.New("rbac: not enough permissions")

const (
	unauthenticatedDetail = "Could not validate credentials"
	forbiddenDetail       = "Not enough permissions"
)

// Resolver turns a bearer token into a principal. *auth.Guard satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*shared.Principal, error)
}

// FailureRecorder counts rejected requests by reason.
type FailureRecorder interface {
	RecordAuthFailure(reason string)
}

// Middleware wires authentication and authorization for HTTP handlers.
type Middleware struct {
	Guard   Resolver
	Matrix  *Matrix
	Logger  *slog.Logger
	Metrics FailureRecorder
}

// Require admits requests whose principal may perform action on resource.
func (m Middleware) Require(resource shared.Resource, action shared.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, token, ok := m.authenticate(w, r)
			if !ok {
				return
			}
			if !m.Matrix.Allows(principal.Role, resource, action) {
				m.logDebug("rbac denied",
					slog.Int64("user_id", principal.ID),
					slog.String("role", string(principal.Role)),
					slog.String("resource", string(resource)),
					slog.String("action", string(action)))
				m.record("forbidden")
				httpx.Problem(w, http.StatusForbidden, "Forbidden", forbiddenDetail)
				return
			}
			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal, token)))
		})
	}
}

// Authenticated admits any request carrying a valid session token.
func (m Middleware) Authenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, token, ok := m.authenticate(w, r)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal, token)))
		})
	}
}

func (m Middleware) authenticate(w http.ResponseWriter, r *http.Request) (*shared.Principal, string, bool) {
	token, ok := BearerToken(r)
	if !ok {
		m.record("missing_token")
		unauthorized(w)
		return nil, "", false
	}
	principal, err := m.Guard.Resolve(r.Context(), token)
	if err != nil {
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			m.logDebug("rbac unauthenticated", slog.String("reason", authErr.Kind.String()), slog.Any("error", err))
			m.record(authErr.Kind.String())
			unauthorized(w)
			return nil, "", false
		}
		if m.Logger != nil {
			m.Logger.Error("rbac resolve principal", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return nil, "", false
	}
	return principal, token, true
}

func (m Middleware) record(reason string) {
	if m.Metrics != nil {
		m.Metrics.RecordAuthFailure(reason)
	}
}

func (m Middleware) logDebug(msg string, attrs ...any) {
	if m.Logger != nil {
		m.Logger.Debug(msg, attrs...)
	}
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", unauthenticatedDetail)
}

func withPrincipal(ctx context.Context, principal *shared.Principal, token string) context.Context {
	ctx = shared.ContextWithPrincipal(ctx, principal)
	return shared.ContextWithToken(ctx, token)
}
