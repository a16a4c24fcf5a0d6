package auth

import (
	"context"

	"github.com/odyssey-erp/vcards/internal/shared"
)

// Identity is a stored account together with its password digest.
type Identity struct {
	Principal    shared.Principal
	PasswordHash string
}

// IdentityStore resolves accounts for authentication. Implementations
// return shared.ErrNotFound when no account matches.
type IdentityStore interface {
	// FindByIdentity looks an account up by username or email.
	FindByIdentity(ctx context.Context, identity string) (*Identity, error)
	FindByID(ctx context.Context, id int64) (*Identity, error)
}
