package distributed

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a disposable Redis, e.g. GEOLATENCY_TEST_REDIS=localhost:6379.
func TestLease(t *testing.T) {
	addr := os.Getenv("GEOLATENCY_TEST_REDIS")
	if addr == "" {
		t.Skip("GEOLATENCY_TEST_REDIS not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	key := "geolatency:test:lease:" + t.Name()
	defer client.Del(ctx, key)

	a := NewLease(client, key, time.Second)
	b := NewLease(client, key, time.Second)

	held, err := a.Hold(ctx)
	require.NoError(t, err)
	assert.True(t, held)

	held, err = b.Hold(ctx)
	require.NoError(t, err)
	assert.False(t, held)

	held, err = a.Hold(ctx)
	require.NoError(t, err)
	assert.True(t, held, "owner renews")

	require.NoError(t, b.Release(ctx))
	held, err = b.Hold(ctx)
	require.NoError(t, err)
	assert.False(t, held, "release by a non-owner is a no-op")

	require.NoError(t, a.Release(ctx))
	held, err = b.Hold(ctx)
	require.NoError(t, err)
	assert.True(t, held)
}

func TestNewLease_DistinctOwners(t *testing.T) {
	a := NewLease(nil, "k", time.Second)
	b := NewLease(nil, "k", time.Second)
	assert.NotEqual(t, a.value, b.value)
	assert.Equal(t, "k", a.Key())
}
