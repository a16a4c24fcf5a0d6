package shared_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/vcards/internal/shared"
)

func newStore(t *testing.T, ttl time.Duration) (*shared.IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return shared.NewIdempotencyStore(client, ttl), mr
}

func TestIdempotencyStoreRejectsReplay(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.CheckAndInsert(ctx, "key-1", "payments"))
	err := store.CheckAndInsert(ctx, "key-1", "payments")
	assert.ErrorIs(t, err, shared.ErrIdempotencyConflict)

	// Same key in another module is independent.
	assert.NoError(t, store.CheckAndInsert(ctx, "key-1", "refunds"))
}

func TestIdempotencyStoreExpiresKeys(t *testing.T) {
	store, mr := newStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.CheckAndInsert(ctx, "key-2", "payments"))
	mr.FastForward(2 * time.Minute)
	assert.NoError(t, store.CheckAndInsert(ctx, "key-2", "payments"))
}

func TestIdempotencyStoreDeleteReleasesKey(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.CheckAndInsert(ctx, "key-3", "payments"))
	require.NoError(t, store.Delete(ctx, "key-3", "payments"))
	assert.NoError(t, store.CheckAndInsert(ctx, "key-3", "payments"))
}

func TestIdempotencyStoreValidatesInput(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	ctx := context.Background()

	assert.Error(t, store.CheckAndInsert(ctx, "", "payments"))
	assert.Error(t, store.CheckAndInsert(ctx, "k", ""))

	var nilStore *shared.IdempotencyStore
	assert.Error(t, nilStore.CheckAndInsert(ctx, "k", "payments"))
}
