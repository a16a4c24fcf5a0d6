package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the lifetime of tokens issued without an explicit TTL.
const DefaultTokenTTL = 15 * time.Minute

// Claims is the decoded content of a session token.
type Claims struct {
	Subject   string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IssuedToken is a freshly signed session token.
type IssuedToken struct {
	Token     string
	Subject   string
	ExpiresAt time.Time
}

// Codec signs and verifies session tokens with a single HMAC algorithm.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
}

// NewCodec builds a Codec. algorithm must name an HMAC method (HS256,
// HS384 or HS512); ttl <= 0 selects DefaultTokenTTL.
func NewCodec(secret []byte, algorithm string, ttl time.Duration) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: token secret required")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &Codec{secret: key, method: method, ttl: ttl}, nil
}

// TTL returns the default token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Algorithm returns the signing algorithm identifier.
func (c *Codec) Algorithm() string {
	return c.method.Alg()
}

// Issue signs a token for subject valid from now for ttl. A non-positive
// ttl selects the codec default.
func (c *Codec) Issue(subject string, now time.Time, ttl time.Duration) (IssuedToken, error) {
	if subject == "" {
		return IssuedToken{}, errors.New("auth: token subject required")
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	// exp has whole-second precision; round up so the token lives at least ttl.
	expiry := now.Add(ttl)
	if truncated := expiry.Truncate(time.Second); truncated.Before(expiry) {
		expiry = truncated.Add(time.Second)
	}
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiry),
	}
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return IssuedToken{Token: signed, Subject: subject, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Decode verifies token at now and returns its claims. Failures are
// reported as *TokenError.
func (c *Codec) Decode(token string, now time.Time) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, &TokenError{Kind: TokenMalformed, Err: errors.New("empty token")}
	}
	registered := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	_, err := parser.ParseWithClaims(token, registered, func(t *jwt.Token) (any, error) {
		if t.Method == nil || t.Method.Alg() != c.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, classifyTokenError(err)
	}
	if registered.Subject == "" {
		return Claims{}, &TokenError{Kind: TokenMissingSubject}
	}
	claims := Claims{Subject: registered.Subject, ID: registered.ID}
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Time
	}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}
	return claims, nil
}

func classifyTokenError(err error) *TokenError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &TokenError{Kind: TokenExpired, Err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return &TokenError{Kind: TokenBadSignature, Err: err}
	default:
		return &TokenError{Kind: TokenMalformed, Err: err}
	}
}
