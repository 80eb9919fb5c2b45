package processing

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuard(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	release, ok, err := g.TryAcquire(ctx, "m1")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = g.TryAcquire(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while held")

	_, ok, _ = g.TryAcquire(ctx, "m2")
	assert.True(t, ok, "other meetings are independent")

	busy, _ := g.Busy(ctx, "m1")
	assert.True(t, busy)

	release()
	release()

	busy, _ = g.Busy(ctx, "m1")
	assert.False(t, busy)

	_, ok, _ = g.TryAcquire(ctx, "m1")
	assert.True(t, ok)
}

func newRedisGuard(t *testing.T, ttl time.Duration) (*RedisGuard, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisGuard(client, "", ttl), mr
}

func TestRedisGuard(t *testing.T) {
	g, mr := newRedisGuard(t, time.Minute)
	ctx := context.Background()

	release, ok, err := g.TryAcquire(ctx, "m1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("minutes:processing:m1"))

	_, ok, err = g.TryAcquire(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, ok)

	busy, err := g.Busy(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, busy)

	release()
	assert.False(t, mr.Exists("minutes:processing:m1"))

	busy, err = g.Busy(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, busy)
}

func TestRedisGuardExpiredLockIsNotStolen(t *testing.T) {
	g, mr := newRedisGuard(t, time.Second)
	ctx := context.Background()

	staleRelease, ok, err := g.TryAcquire(ctx, "m1")
	require.NoError(t, err)
	require.True(t, ok)

	// The first holder outlives its TTL and a second run takes over
	mr.FastForward(2 * time.Second)

	_, ok, err = g.TryAcquire(ctx, "m1")
	require.NoError(t, err)
	require.True(t, ok)

	staleRelease()
	assert.True(t, mr.Exists("minutes:processing:m1"), "a stale release must not drop the new holder's lock")
}

func TestRedisGuardUnavailable(t *testing.T) {
	g, mr := newRedisGuard(t, time.Minute)
	mr.Close()

	_, ok, err := g.TryAcquire(context.Background(), "m1")
	assert.Error(t, err)
	assert.False(t, ok)
}
