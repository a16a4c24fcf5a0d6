package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/odyssey-erp/vcards/internal/platform/clock"
	"github.com/odyssey-erp/vcards/internal/shared"
)

// Guard resolves bearer tokens into principals.
type Guard struct {
	registry *Registry
	codec    *Codec
	store    IdentityStore
	clock    clock.Clock
}

// NewGuard constructs a Guard.
func NewGuard(registry *Registry, codec *Codec, store IdentityStore, clk clock.Clock) *Guard {
	if clk == nil {
		clk = clock.Real()
	}
	return &Guard{registry: registry, codec: codec, store: store, clock: clk}
}

// Resolve returns the principal owning token. Authentication failures are
// *AuthError; any other error is an infrastructure failure of the store.
func (g *Guard) Resolve(ctx context.Context, token string) (*shared.Principal, error) {
	now := g.clock.Now()
	if g.registry.IsRevoked(token, now) {
		return nil, &AuthError{Kind: AuthRevoked}
	}
	claims, err := g.codec.Decode(token, now)
	if err != nil {
		return nil, &AuthError{Kind: AuthInvalid, Err: err}
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return nil, &AuthError{Kind: AuthInvalid, Err: fmt.Errorf("subject %q is not an account id", claims.Subject)}
	}
	record, err := g.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, &AuthError{Kind: AuthInvalid, Err: err}
		}
		return nil, fmt.Errorf("auth: load principal: %w", err)
	}
	if record.Principal.Disabled {
		return nil, &AuthError{Kind: AuthDisabled}
	}
	principal := record.Principal
	return &principal, nil
}
