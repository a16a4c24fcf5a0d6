package cards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/vcards/internal/auth"
	"github.com/odyssey-erp/vcards/internal/platform/clock"
	"github.com/odyssey-erp/vcards/internal/shared"
)

const issueAttempts = 3

// RepositoryPort defines data access methods for cards.
type RepositoryPort interface {
	Create(ctx context.Context, c Card) (int64, time.Time, error)
	Get(ctx context.Context, id, ownerID int64) (*Card, error)
	List(ctx context.Context, ownerID int64) ([]Card, error)
	Delete(ctx context.Context, id, ownerID int64) error
	Modify(ctx context.Context, id, ownerID int64, fn func(*Card) error) (*Card, error)
	FreezeExpired(ctx context.Context, today time.Time) (int64, error)
}

// ServiceConfig collects Service collaborators.
type ServiceConfig struct {
	Repo          RepositoryPort
	Hasher        *auth.Hasher
	Numbers       *NumberGenerator
	Clock         clock.Clock
	ValidityYears int
	Logger        *slog.Logger
}

// Service handles card business logic.
type Service struct {
	repo          RepositoryPort
	hasher        *auth.Hasher
	numbers       *NumberGenerator
	clock         clock.Clock
	validityYears int
	logger        *slog.Logger
}

// NewService builds Service instance.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Numbers == nil {
		cfg.Numbers = NewNumberGenerator(nil)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.ValidityYears <= 0 {
		cfg.ValidityYears = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		repo:          cfg.Repo,
		hasher:        cfg.Hasher,
		numbers:       cfg.Numbers,
		clock:         cfg.Clock,
		validityYears: cfg.ValidityYears,
		logger:        cfg.Logger,
	}
}

// Today returns the current date in UTC.
func (s *Service) Today() time.Time {
	return Day(s.clock.Now())
}

// Issue creates a card for owner. The returned CVV is never stored in
// plaintext and cannot be retrieved again.
func (s *Service) Issue(ctx context.Context, owner shared.Principal, ps PaymentSystem) (*IssuedCard, error) {
	if !ps.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPaymentSystem, ps)
	}
	cvv, err := s.numbers.CVV()
	if err != nil {
		return nil, err
	}
	cvvHash, err := s.hasher.Hash(cvv)
	if err != nil {
		return nil, err
	}
	card := Card{
		CarrierName:   CarrierName(owner),
		ExpiresOn:     s.Today().AddDate(s.validityYears, 0, 0),
		PaymentSystem: ps,
		CVVHash:       cvvHash,
		CarrierID:     owner.ID,
	}
	for attempt := 1; ; attempt++ {
		number, err := s.numbers.Number(ps)
		if err != nil {
			return nil, err
		}
		card.Number = number
		id, createdAt, err := s.repo.Create(ctx, card)
		if errors.Is(err, errNumberTaken) && attempt < issueAttempts {
			continue
		}
		if err != nil {
			return nil, err
		}
		card.ID = id
		card.CreatedAt = createdAt
		break
	}
	s.logger.Info("card issued", slog.Int64("card_id", card.ID), slog.Int64("user_id", owner.ID), slog.String("payment_system", string(ps)))
	return &IssuedCard{Card: card, CVV: cvv}, nil
}

// ListMine returns the cards of ownerID.
func (s *Service) ListMine(ctx context.Context, ownerID int64) ([]Card, error) {
	return s.repo.List(ctx, ownerID)
}

// ListAll returns every card.
func (s *Service) ListAll(ctx context.Context) ([]Card, error) {
	return s.repo.List(ctx, AnyOwner)
}

// GetMine returns card id if ownerID holds it.
func (s *Service) GetMine(ctx context.Context, ownerID, id int64) (*Card, error) {
	return s.repo.Get(ctx, id, ownerID)
}

// DeleteMine removes a card held by ownerID.
func (s *Service) DeleteMine(ctx context.Context, ownerID, id int64) error {
	return s.repo.Delete(ctx, id, ownerID)
}

// DeleteAny removes any card.
func (s *Service) DeleteAny(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id, AnyOwner)
}

// UnfreezeMine reactivates a frozen card of ownerID with a new expiry.
func (s *Service) UnfreezeMine(ctx context.Context, ownerID, id int64, expiresOn time.Time) (*Card, error) {
	return s.unfreeze(ctx, ownerID, id, expiresOn)
}

// UnfreezeAny reactivates any frozen card with a new expiry.
func (s *Service) UnfreezeAny(ctx context.Context, id int64, expiresOn time.Time) (*Card, error) {
	return s.unfreeze(ctx, AnyOwner, id, expiresOn)
}

func (s *Service) unfreeze(ctx context.Context, ownerID, id int64, expiresOn time.Time) (*Card, error) {
	expiresOn = Day(expiresOn)
	if !expiresOn.After(s.Today()) {
		return nil, ErrInvalidExpiry
	}
	card, err := s.repo.Modify(ctx, id, ownerID, func(c *Card) error {
		if !c.Frozen {
			return ErrNotFrozen
		}
		c.Frozen = false
		c.ExpiresOn = expiresOn
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("card unfrozen", slog.Int64("card_id", id), slog.String("expires_on", card.ExpiresOnDate()))
	return card, nil
}

// CarrierName renders the embossed name: first name and surname in upper case.
func CarrierName(p shared.Principal) string {
	return cases.Upper(language.Und).String(strings.Join(strings.Fields(p.Name+" "+p.Surname), " "))
}
