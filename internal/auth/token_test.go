package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func epoch() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec(testSecret, "HS256", 0)
	require.NoError(t, err)
	return codec
}

func tokenKind(t *testing.T, err error) TokenErrorKind {
	t.Helper()
	var tokenErr *TokenError
	if !errors.As(err, &tokenErr) {
		t.Fatalf("expected *TokenError, got %v", err)
	}
	return tokenErr.Kind
}

func TestCodecDefaults(t *testing.T) {
	codec := newTestCodec(t)
	assert.Equal(t, DefaultTokenTTL, codec.TTL())
	assert.Equal(t, "HS256", codec.Algorithm())
}

func TestNewCodecRejectsNonHMAC(t *testing.T) {
	for _, alg := range []string{"none", "RS256", "ES256", "bogus"} {
		_, err := NewCodec(testSecret, alg, 0)
		assert.ErrorIs(t, err, ErrUnsupportedAlgorithm, alg)
	}
	_, err := NewCodec(nil, "HS256", 0)
	assert.Error(t, err)
}

func TestIssueAndDecodeWithinLifetime(t *testing.T) {
	codec := newTestCodec(t)
	start := epoch()

	issued, err := codec.Issue("alice", start, 0)
	require.NoError(t, err)
	assert.Equal(t, start.Add(15*time.Minute), issued.ExpiresAt)

	claims, err := codec.Decode(issued.Token, start.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, start, claims.IssuedAt)
	assert.Equal(t, issued.ExpiresAt, claims.ExpiresAt)
}

func TestDecodeAfterExpiry(t *testing.T) {
	codec := newTestCodec(t)
	start := epoch()

	issued, err := codec.Issue("alice", start, 0)
	require.NoError(t, err)

	_, err = codec.Decode(issued.Token, start.Add(16*time.Minute))
	assert.Equal(t, TokenExpired, tokenKind(t, err))

	_, err = codec.Decode(issued.Token, issued.ExpiresAt)
	assert.Equal(t, TokenExpired, tokenKind(t, err))
}

func TestIssueRoundsExpiryUp(t *testing.T) {
	codec := newTestCodec(t)
	start := epoch().Add(400 * time.Millisecond)

	issued, err := codec.Issue("alice", start, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, epoch().Add(61*time.Second), issued.ExpiresAt)
}

func TestIssueUsesDistinctTokenIDs(t *testing.T) {
	codec := newTestCodec(t)
	first, err := codec.Issue("alice", epoch(), 0)
	require.NoError(t, err)
	second, err := codec.Issue("alice", epoch(), 0)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)
}

func TestIssueRequiresSubject(t *testing.T) {
	_, err := newTestCodec(t).Issue("", epoch(), 0)
	assert.Error(t, err)
}

func TestDecodeRejectsForeignSecret(t *testing.T) {
	other, err := NewCodec([]byte("another-secret-another-secret-xx"), "HS256", 0)
	require.NoError(t, err)
	issued, err := other.Issue("alice", epoch(), 0)
	require.NoError(t, err)

	_, err = newTestCodec(t).Decode(issued.Token, epoch())
	assert.Equal(t, TokenBadSignature, tokenKind(t, err))
}

func TestDecodeRejectsOtherAlgorithm(t *testing.T) {
	hs512, err := NewCodec(testSecret, "HS512", 0)
	require.NoError(t, err)
	issued, err := hs512.Issue("alice", epoch(), 0)
	require.NoError(t, err)

	_, err = newTestCodec(t).Decode(issued.Token, epoch())
	assert.Equal(t, TokenBadSignature, tokenKind(t, err))
}

func TestDecodeRejectsUnsignedToken(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(epoch().Add(time.Hour)),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestCodec(t).Decode(unsigned, epoch())
	assert.Equal(t, TokenBadSignature, tokenKind(t, err))
}

func TestDecodeRejectsTamperedPayload(t *testing.T) {
	codec := newTestCodec(t)
	issued, err := codec.Issue("alice", epoch(), 0)
	require.NoError(t, err)
	forged, err := codec.Issue("admin", epoch(), 0)
	require.NoError(t, err)

	parts := strings.Split(issued.Token, ".")
	forgedParts := strings.Split(forged.Token, ".")
	tampered := parts[0] + "." + forgedParts[1] + "." + parts[2]

	_, err = codec.Decode(tampered, epoch())
	assert.Equal(t, TokenBadSignature, tokenKind(t, err))
}

func TestDecodeMalformed(t *testing.T) {
	codec := newTestCodec(t)
	for _, raw := range []string{"", "   ", "not-a-token", "a.b.c"} {
		_, err := codec.Decode(raw, epoch())
		assert.Equal(t, TokenMalformed, tokenKind(t, err), "token %q", raw)
	}
}

func TestDecodeMissingSubject(t *testing.T) {
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(epoch().Add(time.Hour))}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = newTestCodec(t).Decode(raw, epoch())
	assert.Equal(t, TokenMissingSubject, tokenKind(t, err))
}

func TestDecodeRequiresExpiry(t *testing.T) {
	claims := jwt.RegisteredClaims{Subject: "alice"}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = newTestCodec(t).Decode(raw, epoch())
	assert.Error(t, err)
}
