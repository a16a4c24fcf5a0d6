package cards

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/vcards/internal/platform/httpx"
	"github.com/odyssey-erp/vcards/internal/rbac"
	"github.com/odyssey-erp/vcards/internal/shared"
)

// Handler exposes card endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *httpx.Validator
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validator: httpx.NewValidator(), rbac: rbac}
}

// MountRoutes registers card routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(shared.ResourceCards, shared.ActionAddMy)).Post("/cards", h.issue)
	r.With(h.rbac.Require(shared.ResourceCards, shared.ActionShowMy)).Get("/cards", h.listMine)
	r.With(h.rbac.Require(shared.ResourceCards, shared.ActionShowAll)).Get("/cards/all", h.listAll)
	r.With(h.rbac.Require(shared.ResourceCards, shared.ActionDeleteMy)).Delete("/cards/{id}", h.deleteMine)
	r.With(h.rbac.Require(shared.ResourceCards, shared.ActionUnfreezeMy)).Post("/cards/{id}/unfreeze", h.unfreezeMine)
	r.With(h.rbac.Require(shared.ResourceCards, shared.ActionDeleteAny)).Delete("/admin/cards/{id}", h.deleteAny)
	r.With(h.rbac.Require(shared.ResourceCards, shared.ActionUnfreezeAny)).Post("/admin/cards/{id}/unfreeze", h.unfreezeAny)
}

type issueRequest struct {
	PaymentSystem string `json:"payment_system" validate:"required,oneof=visa mastercard mir"`
}

type unfreezeRequest struct {
	ExpiresOn string `json:"expires_on" validate:"required,datetime=2006-01-02"`
}

type cardView struct {
	ID            int64         `json:"id"`
	Number        string        `json:"number"`
	CarrierName   string        `json:"carrier_name"`
	ExpiresOn     string        `json:"expires_on"`
	PaymentSystem PaymentSystem `json:"payment_system"`
	Frozen        bool          `json:"frozen"`
	CarrierID     int64         `json:"carrier_id"`
	CreatedAt     time.Time     `json:"created_at"`
}

type issuedView struct {
	cardView
	CVV string `json:"cvv"`
}

func viewOf(c Card) cardView {
	return cardView{
		ID:            c.ID,
		Number:        c.Number,
		CarrierName:   c.CarrierName,
		ExpiresOn:     c.ExpiresOnDate(),
		PaymentSystem: c.PaymentSystem,
		Frozen:        c.Frozen,
		CarrierID:     c.CarrierID,
		CreatedAt:     c.CreatedAt,
	}
}

func viewsOf(list []Card) []cardView {
	out := make([]cardView, 0, len(list))
	for _, c := range list {
		out = append(out, viewOf(c))
	}
	return out
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := h.validator.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal := shared.PrincipalFromContext(r.Context())
	issued, err := h.service.Issue(r.Context(), *principal, PaymentSystem(req.PaymentSystem))
	if err != nil {
		h.respondError(w, "issue card", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, issuedView{cardView: viewOf(issued.Card), CVV: issued.CVV})
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	list, err := h.service.ListMine(r.Context(), principal.ID)
	if err != nil {
		h.respondError(w, "list cards", err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewsOf(list))
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListAll(r.Context())
	if err != nil {
		h.respondError(w, "list all cards", err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewsOf(list))
}

func (h *Handler) deleteMine(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid card id")
		return
	}
	principal := shared.PrincipalFromContext(r.Context())
	if err := h.service.DeleteMine(r.Context(), principal.ID, id); err != nil {
		h.respondError(w, "delete card", err)
		return
	}
	httpx.Message(w, http.StatusOK, "Card deleted")
}

func (h *Handler) deleteAny(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid card id")
		return
	}
	if err := h.service.DeleteAny(r.Context(), id); err != nil {
		h.respondError(w, "delete any card", err)
		return
	}
	httpx.Message(w, http.StatusOK, "Card deleted")
}

func (h *Handler) unfreezeMine(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	h.unfreeze(w, r, func(id int64, expiresOn time.Time) (*Card, error) {
		return h.service.UnfreezeMine(r.Context(), principal.ID, id, expiresOn)
	})
}

func (h *Handler) unfreezeAny(w http.ResponseWriter, r *http.Request) {
	h.unfreeze(w, r, func(id int64, expiresOn time.Time) (*Card, error) {
		return h.service.UnfreezeAny(r.Context(), id, expiresOn)
	})
}

func (h *Handler) unfreeze(w http.ResponseWriter, r *http.Request, apply func(int64, time.Time) (*Card, error)) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid card id")
		return
	}
	var req unfreezeRequest
	if err := h.validator.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	expiresOn, err := time.Parse(time.DateOnly, req.ExpiresOn)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "expires_on must be YYYY-MM-DD")
		return
	}
	card, err := apply(id, expiresOn)
	if err != nil {
		h.respondError(w, "unfreeze card", err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(*card))
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFrozen), errors.Is(err, ErrInvalidExpiry), errors.Is(err, ErrUnknownPaymentSystem):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, err)
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
