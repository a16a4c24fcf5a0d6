package transactions

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/odyssey-erp/vcards/internal/cards"
	"github.com/odyssey-erp/vcards/internal/platform/clock"
	"github.com/odyssey-erp/vcards/internal/shared"
)

const idempotencyModule = "transactions"

// RepositoryPort defines data access methods for transactions.
type RepositoryPort interface {
	Create(ctx context.Context, t Transaction) (*Transaction, error)
	ListByCard(ctx context.Context, cardID int64) ([]Transaction, error)
	ListAll(ctx context.Context) ([]Transaction, error)
	Delete(ctx context.Context, id int64) error
}

// CardReader loads a card held by an owner.
type CardReader interface {
	GetMine(ctx context.Context, ownerID, id int64) (*cards.Card, error)
}

// IdempotencyClaimer claims and releases request keys.
type IdempotencyClaimer interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// Service handles payment business logic.
type Service struct {
	repo   RepositoryPort
	cards  CardReader
	idem   IdempotencyClaimer
	clock  clock.Clock
	logger *slog.Logger
}

// NewService builds Service instance. idem may be nil, in which case
// idempotency keys are ignored.
func NewService(repo RepositoryPort, cardReader CardReader, idem IdempotencyClaimer, clk clock.Clock, logger *slog.Logger) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cards: cardReader, idem: idem, clock: clk, logger: logger}
}

// Pay posts a payment from payer's card.
func (s *Service) Pay(ctx context.Context, payer shared.Principal, in PaymentInput) (tx *Transaction, err error) {
	amount := math.Round(in.Amount*100) / 100
	if math.IsNaN(amount) || amount <= 0 || amount > MaxAmount {
		return nil, ErrInvalidAmount
	}
	merchant := strings.TrimSpace(in.Merchant)
	if merchant == "" {
		merchant = DefaultMerchant
	}

	if key := strings.TrimSpace(in.IdempotencyKey); key != "" && s.idem != nil {
		scope := idempotencyModule + ":" + strconv.FormatInt(payer.ID, 10)
		if err := s.idem.CheckAndInsert(ctx, key, scope); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return nil, ErrReplayed
			}
			return nil, err
		}
		defer func() {
			if err != nil {
				if derr := s.idem.Delete(context.WithoutCancel(ctx), key, scope); derr != nil {
					s.logger.Warn("release idempotency key", slog.Any("error", derr))
				}
			}
		}()
	}

	card, err := s.cards.GetMine(ctx, payer.ID, in.CardID)
	if err != nil {
		return nil, err
	}
	if card.Frozen {
		return nil, cards.ErrFrozen
	}
	if card.ExpiredAt(cards.Day(s.clock.Now())) {
		return nil, cards.ErrExpired
	}

	tx, err = s.repo.Create(ctx, Transaction{
		CardID:   card.ID,
		Amount:   amount,
		Merchant: merchant,
		Status:   StatusApproved,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("payment posted",
		slog.Int64("transaction_id", tx.ID),
		slog.Int64("card_id", card.ID),
		slog.Int64("user_id", payer.ID))
	return tx, nil
}

// ListForCard returns transactions of a card held by ownerID.
func (s *Service) ListForCard(ctx context.Context, ownerID, cardID int64) ([]Transaction, error) {
	if _, err := s.cards.GetMine(ctx, ownerID, cardID); err != nil {
		return nil, err
	}
	return s.repo.ListByCard(ctx, cardID)
}

// ListAll returns every transaction.
func (s *Service) ListAll(ctx context.Context) ([]Transaction, error) {
	return s.repo.ListAll(ctx)
}

// Delete removes transaction id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
