package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardResolvesActiveAccount(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	issued, _, err := f.service.Login(ctx, "alice", "wonderland")
	require.NoError(t, err)

	principal, err := f.guard.Resolve(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", principal.Username)
}

func TestGuardRevokedBeforeDecode(t *testing.T) {
	f := newServiceFixture(t)

	f.registry.Revoke("garbage", f.clock.Now(), time.Minute)
	_, err := f.guard.Resolve(context.Background(), "garbage")
	assertAuthKind(t, err, AuthRevoked)
}

func TestGuardRejectsInvalidTokens(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.guard.Resolve(ctx, "garbage")
	assertAuthKind(t, err, AuthInvalid)

	expired, err := f.codec.Issue("7", f.clock.Now(), time.Minute)
	require.NoError(t, err)
	f.clock.Advance(2 * time.Minute)
	_, err = f.guard.Resolve(ctx, expired.Token)
	assertAuthKind(t, err, AuthInvalid)
}

func TestGuardRejectsUnknownOrNonNumericSubject(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	for _, subject := range []string{"alice", "0", "404"} {
		issued, err := f.codec.Issue(subject, f.clock.Now(), 0)
		require.NoError(t, err)
		_, err = f.guard.Resolve(ctx, issued.Token)
		assertAuthKind(t, err, AuthInvalid)
	}
}

func TestGuardDeletedAccount(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	issued, _, err := f.service.Login(ctx, "alice", "wonderland")
	require.NoError(t, err)
	f.store.remove(7)

	_, err = f.guard.Resolve(ctx, issued.Token)
	assertAuthKind(t, err, AuthInvalid)
}

func TestGuardNeverAuthenticatesDisabledAccount(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	issued, _, err := f.service.Login(ctx, "alice", "wonderland")
	require.NoError(t, err)
	f.store.setDisabled(7, true)

	_, err = f.guard.Resolve(ctx, issued.Token)
	assertAuthKind(t, err, AuthDisabled)

	f.store.setDisabled(7, false)
	_, err = f.guard.Resolve(ctx, issued.Token)
	assert.NoError(t, err)
}

func TestGuardStoreFailureIsNotAuthError(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	issued, _, err := f.service.Login(ctx, "alice", "wonderland")
	require.NoError(t, err)
	f.store.err = errStoreDown

	_, err = f.guard.Resolve(ctx, issued.Token)
	assert.ErrorIs(t, err, errStoreDown)
	assert.False(t, IsAuthError(err))
}
