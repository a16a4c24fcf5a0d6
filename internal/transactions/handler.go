package transactions

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/vcards/internal/cards"
	"github.com/odyssey-erp/vcards/internal/platform/httpx"
	"github.com/odyssey-erp/vcards/internal/rbac"
	"github.com/odyssey-erp/vcards/internal/shared"
)

// IdempotencyHeader carries the client supplied deduplication key.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes payment endpoints.
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

// MountRoutes registers transaction routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(shared.ResourceTransactions, shared.ActionMakePayment)).Post("/transactions", h.pay)
	r.With(h.rbac.Require(shared.ResourceTransactions, shared.ActionShowAll)).Get("/transactions", h.listAll)
	r.With(h.rbac.Require(shared.ResourceTransactions, shared.ActionShowForMyCard)).Get("/cards/{id}/transactions", h.listForCard)
	r.With(h.rbac.Require(shared.ResourceTransactions, shared.ActionDeleteAny)).Delete("/admin/transactions/{id}", h.delete)
}

type paymentRequest struct {
	CardID   int64   `json:"card_id" validate:"required,gt=0"`
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Merchant string  `json:"merchant" validate:"omitempty,max=255"`
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := h.validator.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal := shared.PrincipalFromContext(r.Context())
	tx, err := h.service.Pay(r.Context(), *principal, PaymentInput{
		CardID:         req.CardID,
		Amount:         req.Amount,
		Merchant:       req.Merchant,
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		h.respondError(w, "pay", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tx)
}

func (h *Handler) listForCard(w http.ResponseWriter, r *http.Request) {
	cardID, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid card id")
		return
	}
	principal := shared.PrincipalFromContext(r.Context())
	list, err := h.service.ListForCard(r.Context(), principal.ID, cardID)
	if err != nil {
		h.respondError(w, "list card transactions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, nonNil(list))
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListAll(r.Context())
	if err != nil {
		h.respondError(w, "list transactions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, nonNil(list))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid transaction id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, "delete transaction", err)
		return
	}
	httpx.Message(w, http.StatusOK, "Transaction deleted")
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, cards.ErrFrozen), errors.Is(err, cards.ErrExpired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, httpx.ErrConflict):
		httpx.RespondError(w, err)
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func nonNil(list []Transaction) []Transaction {
	if list == nil {
		return []Transaction{}
	}
	return list
}
