package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/vcards/internal/platform/httpx"
	"github.com/odyssey-erp/vcards/internal/rbac"
	"github.com/odyssey-erp/vcards/internal/shared"
)

// TokenRevoker ends the session behind a bearer token.
type TokenRevoker interface {
	Logout(ctx context.Context, token string) time.Time
}

// Handler manages account and user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	revoker   TokenRevoker
	validator *httpx.Validator
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, revoker TokenRevoker, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, revoker: revoker, validator: httpx.NewValidator(), rbac: rbac}
}

// MountRoutes registers account, user and admin routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/account", func(r chi.Router) {
		r.With(h.rbac.Require(shared.ResourceAccount, shared.ActionShowInfo)).Get("/", h.showAccount)
		r.With(h.rbac.Require(shared.ResourceAccount, shared.ActionChangeInfo)).Patch("/", h.changeAccount)
		r.With(h.rbac.Require(shared.ResourceAccount, shared.ActionDeleteMy)).Delete("/", h.deleteAccount)
	})
	r.With(h.rbac.Require(shared.ResourceUsers, shared.ActionShowAll)).Get("/users", h.listUsers)
	r.Route("/admin/users/{id}", func(r chi.Router) {
		r.With(h.rbac.Require(shared.ResourceUsers, shared.ActionManageRole)).Post("/role", h.changeRole)
		r.With(h.rbac.Require(shared.ResourceUsers, shared.ActionDisableUser)).Post("/disable", h.toggleDisabled)
		r.With(h.rbac.Require(shared.ResourceUsers, shared.ActionDeleteAny)).Delete("/", h.deleteUser)
	})
}

type changeAccountRequest struct {
	CurrentPassword string  `json:"current_password" validate:"required,min=6"`
	Username        *string `json:"username" validate:"omitempty,max=25,excludes=@"`
	Password        *string `json:"password" validate:"omitempty,min=6"`
	Email           *string `json:"email" validate:"omitempty,email"`
	PhoneNumber     *string `json:"phone_number" validate:"omitempty,len=13,startswith=+"`
	Name            *string `json:"name" validate:"omitempty,max=100"`
	Surname         *string `json:"surname" validate:"omitempty,max=100"`
	Patronymic      *string `json:"patronymic" validate:"omitempty,max=100"`
	Address         *string `json:"address" validate:"omitempty,max=255"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user manager admin"`
}

func (h *Handler) showAccount(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, shared.PrincipalFromContext(r.Context()))
}

func (h *Handler) changeAccount(w http.ResponseWriter, r *http.Request) {
	var req changeAccountRequest
	if err := h.validator.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal := shared.PrincipalFromContext(r.Context())
	updated, err := h.service.UpdateAccount(r.Context(), principal.ID, UpdateInput{
		CurrentPassword: req.CurrentPassword,
		Username:        req.Username,
		Password:        req.Password,
		Email:           req.Email,
		PhoneNumber:     req.PhoneNumber,
		Name:            req.Name,
		Surname:         req.Surname,
		Patronymic:      req.Patronymic,
		Address:         req.Address,
	})
	if err != nil {
		h.respondError(w, "change account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "Your info changed", "account": updated.Principal()})
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if err := h.service.DeleteUser(r.Context(), principal.ID); err != nil {
		h.respondError(w, "delete account", err)
		return
	}
	if token := shared.TokenFromContext(r.Context()); token != "" && h.revoker != nil {
		h.revoker.Logout(r.Context(), token)
	}
	httpx.Message(w, http.StatusOK, "This account is deleted")
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.respondError(w, "list users", err)
		return
	}
	out := make([]shared.Principal, 0, len(list))
	for _, u := range list {
		out = append(out, u.Principal())
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	var req changeRoleRequest
	if err := h.validator.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := shared.ParseRole(req.Role)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.SetRole(r.Context(), id, role); err != nil {
		h.respondError(w, "change role", err)
		return
	}
	httpx.Message(w, http.StatusOK, fmt.Sprintf("User %d is now %s", id, role))
}

func (h *Handler) toggleDisabled(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	disabled, err := h.service.ToggleDisabled(r.Context(), id)
	if err != nil {
		h.respondError(w, "toggle disabled", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "disabled": disabled})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		h.respondError(w, "delete user", err)
		return
	}
	httpx.Message(w, http.StatusOK, fmt.Sprintf("User %d is deleted", id))
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrLastAdmin):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrWrongPassword):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Wrong password")
	case errors.Is(err, ErrInvalidInput), errors.Is(err, shared.ErrUnknownRole):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrDuplicate):
		httpx.RespondError(w, err)
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
