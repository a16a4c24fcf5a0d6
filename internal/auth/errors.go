package auth

import (
	"errors"

	"github.com/odyssey-erp/vcards/internal/shared"
)

var (
	// ErrInvalidCredentials is returned for unknown identities and wrong secrets alike.
	ErrInvalidCredentials = shared.ErrInvalidCredentials
	// ErrSecretTooLong rejects secrets bcrypt would silently truncate.
	ErrSecretTooLong = errors.New("auth: secret exceeds 72 bytes")
	// ErrUnsupportedAlgorithm rejects signing algorithms other than HMAC.
	ErrUnsupportedAlgorithm = errors.New("auth: unsupported signing algorithm")
)

// TokenErrorKind classifies token decoding failures.
type TokenErrorKind int

const (
	// TokenMalformed covers unparsable tokens and unexpected algorithms.
	TokenMalformed TokenErrorKind = iota + 1
	// TokenBadSignature means the signature does not verify with the secret.
	TokenBadSignature
	// TokenExpired means exp is at or before now.
	TokenExpired
	// TokenMissingSubject means the token verified but carries no sub claim.
	TokenMissingSubject
)

func (k TokenErrorKind) String() string {
	switch k {
	case TokenMalformed:
		return "malformed"
	case TokenBadSignature:
		return "bad_signature"
	case TokenExpired:
		return "expired"
	case TokenMissingSubject:
		return "missing_subject"
	}
	return "unknown"
}

// TokenError reports why a token could not be decoded.
type TokenError struct {
	Kind TokenErrorKind
	Err  error
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return "auth: token " + e.Kind.String()
	}
	return "auth: token " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *TokenError) Unwrap() error { return e.Err }

// AuthErrorKind classifies why a request could not be authenticated.
type AuthErrorKind int

const (
	// AuthRevoked means the token was logged out.
	AuthRevoked AuthErrorKind = iota + 1
	// AuthInvalid means the token failed to decode or names no account.
	AuthInvalid
	// AuthDisabled means the account behind the token is disabled.
	AuthDisabled
)

func (k AuthErrorKind) String() string {
	switch k {
	case AuthRevoked:
		return "revoked"
	case AuthInvalid:
		return "invalid"
	case AuthDisabled:
		return "disabled"
	}
	return "unknown"
}

// AuthError is returned by Guard.Resolve. Every kind maps to the same
// unauthenticated response; Kind is kept for diagnostics only.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "auth: unauthenticated (" + e.Kind.String() + ")"
	}
	return "auth: unauthenticated (" + e.Kind.String() + "): " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthError reports whether err carries an *AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
