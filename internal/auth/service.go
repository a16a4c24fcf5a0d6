package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/odyssey-erp/vcards/internal/platform/clock"
	"github.com/odyssey-erp/vcards/internal/shared"
)

// ServiceConfig collects the collaborators of Service.
type ServiceConfig struct {
	Store    IdentityStore
	Hasher   *Hasher
	Codec    *Codec
	Registry *Registry
	Clock    clock.Clock
	// RevocationTTL is the minimum time a logged-out token stays revoked.
	RevocationTTL time.Duration
	Logger        *slog.Logger
}

// Service wraps authentication business rules.
type Service struct {
	store         IdentityStore
	hasher        *Hasher
	codec         *Codec
	registry      *Registry
	clock         clock.Clock
	revocationTTL time.Duration
	logger        *slog.Logger
	dummyDigest   string
}

// NewService constructs a new Service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RevocationTTL <= 0 {
		cfg.RevocationTTL = DefaultTokenTTL
	}
	s := &Service{
		store:         cfg.Store,
		hasher:        cfg.Hasher,
		codec:         cfg.Codec,
		registry:      cfg.Registry,
		clock:         cfg.Clock,
		revocationTTL: cfg.RevocationTTL,
		logger:        cfg.Logger,
	}
	// Unknown identities are checked against this digest so both failure
	// paths cost one bcrypt comparison.
	if digest, err := cfg.Hasher.Hash("vcards-unknown-identity"); err == nil {
		s.dummyDigest = digest
	}
	return s
}

// Authenticate validates identity (username or email) and secret.
func (s *Service) Authenticate(ctx context.Context, identity, secret string) (*shared.Principal, error) {
	record, err := s.store.FindByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.hasher.Verify(secret, s.dummyDigest)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: find identity: %w", err)
	}
	if !s.hasher.Verify(secret, record.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	principal := record.Principal
	return &principal, nil
}

// Login authenticates and issues a session token with the default TTL.
// Disabled accounts fail like bad credentials.
func (s *Service) Login(ctx context.Context, identity, secret string) (IssuedToken, *shared.Principal, error) {
	principal, err := s.Authenticate(ctx, identity, secret)
	if err != nil {
		return IssuedToken{}, nil, err
	}
	if principal.Disabled {
		s.logger.Info("login rejected for disabled account", slog.Int64("user_id", principal.ID))
		return IssuedToken{}, nil, ErrInvalidCredentials
	}
	issued, err := s.codec.Issue(strconv.FormatInt(principal.ID, 10), s.clock.Now(), 0)
	if err != nil {
		return IssuedToken{}, nil, err
	}
	return issued, principal, nil
}

// Logout revokes token until it would have expired anyway, and for at
// least the configured revocation TTL. It returns the end of the
// revocation window.
func (s *Service) Logout(ctx context.Context, token string) time.Time {
	now := s.clock.Now()
	ttl := s.revocationTTL
	if claims, err := s.codec.Decode(token, now); err == nil {
		if remaining := claims.ExpiresAt.Sub(now); remaining > ttl {
			ttl = remaining
		}
	}
	s.registry.Revoke(token, now, ttl)
	return now.Add(ttl)
}

// TokenTTL exposes the lifetime of issued tokens.
func (s *Service) TokenTTL() time.Duration {
	return s.codec.TTL()
}
