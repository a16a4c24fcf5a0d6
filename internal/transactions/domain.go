// Package transactions records payments made with virtual cards.
package transactions

import (
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/vcards/internal/platform/httpx"
	"github.com/odyssey-erp/vcards/internal/shared"
)

// DefaultMerchant is stored when a payment names no merchant.
const DefaultMerchant = "Free payment"

// MaxAmount is the largest amount a NUMERIC(14,2) column holds.
const MaxAmount = 999_999_999_999.99

var (
	ErrNotFound      = fmt.Errorf("transaction %w", shared.ErrNotFound)
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrReplayed      = fmt.Errorf("%w: payment with this idempotency key already processed", httpx.ErrConflict)
)

// Status is the outcome of a payment.
type Status string

const (
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
)

// Transaction is a payment posted against a card.
type Transaction struct {
	ID        int64     `json:"id"`
	CardID    int64     `json:"card_id"`
	Amount    float64   `json:"amount"`
	Merchant  string    `json:"merchant"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// PaymentInput carries a payment request.
type PaymentInput struct {
	CardID         int64
	Amount         float64
	Merchant       string
	IdempotencyKey string
}
