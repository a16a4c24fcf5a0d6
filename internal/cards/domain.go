// Package cards issues, lists, freezes and unfreezes virtual payment cards.
package cards

import (
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/vcards/internal/shared"
)

var (
	ErrNotFound             = fmt.Errorf("card %w", shared.ErrNotFound)
	ErrNotFrozen            = errors.New("card is not frozen")
	ErrFrozen               = errors.New("card is frozen")
	ErrExpired              = errors.New("card is expired")
	ErrInvalidExpiry        = errors.New("new expiry date must be after today")
	ErrUnknownPaymentSystem = errors.New("unknown payment system")
	errNumberTaken          = errors.New("card number already issued")
)

// PaymentSystem is the card network.
type PaymentSystem string

const (
	PaymentVisa       PaymentSystem = "visa"
	PaymentMastercard PaymentSystem = "mastercard"
	PaymentMir        PaymentSystem = "mir"
)

// Valid reports whether ps is a supported network.
func (ps PaymentSystem) Valid() bool {
	switch ps {
	case PaymentVisa, PaymentMastercard, PaymentMir:
		return true
	}
	return false
}

// Card is a stored virtual card. The CVV is only kept as a digest.
type Card struct {
	ID            int64         `json:"id"`
	Number        string        `json:"number"`
	CarrierName   string        `json:"carrier_name"`
	ExpiresOn     time.Time     `json:"-"`
	PaymentSystem PaymentSystem `json:"payment_system"`
	CVVHash       string        `json:"-"`
	Frozen        bool          `json:"frozen"`
	CarrierID     int64         `json:"carrier_id"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ExpiresOnDate renders the expiry as YYYY-MM-DD.
func (c Card) ExpiresOnDate() string {
	return c.ExpiresOn.Format(time.DateOnly)
}

// ExpiredAt reports whether the card is past its expiry on day today.
func (c Card) ExpiredAt(today time.Time) bool {
	return c.ExpiresOn.Before(today)
}

// IssuedCard is returned once, at issue time, with the plaintext CVV.
type IssuedCard struct {
	Card
	CVV string
}

// CleanupResult counts what one cleanup pass changed.
type CleanupResult struct {
	FrozenCards        int64 `json:"frozen_cards"`
	PurgedTransactions int64 `json:"purged_transactions"`
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
