// Package authhttp exposes login, registration and logout over HTTP.
package authhttp

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/vcards/internal/auth"
	"github.com/odyssey-erp/vcards/internal/platform/httpx"
	"github.com/odyssey-erp/vcards/internal/rbac"
	"github.com/odyssey-erp/vcards/internal/shared"
	"github.com/odyssey-erp/vcards/internal/users"
)

const loginFailedDetail = "Incorrect username or password"

// Sessions issues and ends session tokens. *auth.Service satisfies it.
type Sessions interface {
	Login(ctx context.Context, identity, secret string) (auth.IssuedToken, *shared.Principal, error)
	Logout(ctx context.Context, token string) time.Time
	TokenTTL() time.Duration
}

// Registrar creates accounts. *users.Service satisfies it.
type Registrar interface {
	Register(ctx context.Context, in users.RegisterInput) (*users.User, error)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	sessions  Sessions
	registrar Registrar
	validator *httpx.Validator
	rbac      rbac.Middleware
	// LoginLimiter, when set, wraps POST /auth/token.
	LoginLimiter func(http.Handler) http.Handler
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, sessions Sessions, registrar Registrar, rbac rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		sessions:  sessions,
		registrar: registrar,
		validator: httpx.NewValidator(),
		rbac:      rbac,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if h.LoginLimiter != nil {
				r.Use(h.LoginLimiter)
			}
			r.Post("/token", h.handleToken)
			r.Post("/register", h.handleRegister)
		})
		r.With(h.rbac.Require(shared.ResourceAccount, shared.ActionLogout)).Post("/logout", h.handleLogout)
	})
	r.With(h.rbac.Authenticated()).Get("/whoami", h.handleWhoami)
}

type loginForm struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type registerRequest struct {
	Username       string `json:"username" validate:"required,max=25,excludes=@"`
	Password       string `json:"password" validate:"required,min=6,max=72"`
	RepeatPassword string `json:"repeat_password" validate:"required,eqfield=Password"`
	Email          string `json:"email" validate:"required,email"`
	PhoneNumber    string `json:"phone_number" validate:"required,len=13,startswith=+"`
	Name           string `json:"name" validate:"required,max=100"`
	Surname        string `json:"surname" validate:"required,max=100"`
	Patronymic     string `json:"patronymic" validate:"max=100"`
	Address        string `json:"address" validate:"max=255"`
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	form, err := h.readLoginForm(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	issued, principal, err := h.sessions.Login(r.Context(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", loginFailedDetail)
			return
		}
		h.logger.Error("login failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	h.logger.Info("token issued", slog.Int64("user_id", principal.ID))
	w.Header().Set("Cache-Control", "no-store")
	httpx.JSON(w, http.StatusOK, tokenResponse{
		AccessToken: issued.Token,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.sessions.TokenTTL() / time.Second),
		ExpiresAt:   issued.ExpiresAt,
	})
}

func (h *Handler) readLoginForm(r *http.Request) (loginForm, error) {
	var form loginForm
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := h.validator.Decode(r, &form); err != nil {
			return form, err
		}
		return form, nil
	}
	if err := r.ParseForm(); err != nil {
		return form, httpx.ErrValidation
	}
	form.Username = r.PostFormValue("username")
	form.Password = r.PostFormValue("password")
	return form, h.validator.Struct(form)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.validator.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	u, err := h.registrar.Register(r.Context(), users.RegisterInput{
		Username:    req.Username,
		Password:    req.Password,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Name:        req.Name,
		Surname:     req.Surname,
		Patronymic:  req.Patronymic,
		Address:     req.Address,
	})
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrDuplicate):
			httpx.Problem(w, http.StatusConflict, "Duplicate", "Username or email already exists")
		case errors.Is(err, users.ErrInvalidInput):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		default:
			h.logger.Error("register failed", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.Message(w, http.StatusCreated, "Welcome "+strings.TrimSpace(u.Name)+"!")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := shared.TokenFromContext(r.Context())
	until := h.sessions.Logout(r.Context(), token)
	if p := shared.PrincipalFromContext(r.Context()); p != nil {
		h.logger.Info("logout", slog.Int64("user_id", p.ID), slog.Time("revoked_until", until))
	}
	httpx.Message(w, http.StatusOK, "You have been logged out")
}

func (h *Handler) handleWhoami(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "Hello, " + p.FullName() + "!",
		"user":    p,
	})
}
