//go:build integration

package redis_test

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/asidecache/backend/redis"
)

const testRedisURL = "redis://localhost:6379/0"

func newTestClient(t *testing.T) goredis.UniversalClient {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = testRedisURL
	}

	ctx := context.Background()
	client, err := redis.Open(ctx, url, redis.WithRetry(1, 0))
	require.NoError(t, err, "failed to connect to Redis")

	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newBackend(t *testing.T, prefix string) *redis.Redis {
	t.Helper()
	be, err := redis.New(redis.Config{Client: newTestClient(t), Prefix: prefix})
	require.NoError(t, err)
	t.Cleanup(func() { _ = be.FlushAll(context.Background()) })
	return be
}

func TestRedis_GetSetDel(t *testing.T) {
	ctx := context.Background()
	be := newBackend(t, "it-getsetdel")

	_, ok, err := be.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, be.Set(ctx, "k", []byte("v"), time.Minute))
	got, ok, err := be.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), got)

	require.NoError(t, be.Del(ctx, "k"))
	_, ok, err = be.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedis_TTL(t *testing.T) {
	ctx := context.Background()
	be := newBackend(t, "it-ttl")

	require.NoError(t, be.Set(ctx, "k", []byte("v"), 50*time.Millisecond))
	time.Sleep(150 * time.Millisecond)

	_, ok, err := be.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedis_FlushAllWithPrefixKeepsOtherKeys(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	mine, err := redis.New(redis.Config{Client: client, Prefix: "it-flush-mine"})
	require.NoError(t, err)
	other, err := redis.New(redis.Config{Client: client, Prefix: "it-flush-other"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = other.FlushAll(ctx) })

	require.NoError(t, mine.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, mine.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, other.Set(ctx, "a", []byte("3"), 0))

	require.NoError(t, mine.FlushAll(ctx))

	_, ok, _ := mine.Get(ctx, "a")
	require.False(t, ok)
	_, ok, _ = other.Get(ctx, "a")
	require.True(t, ok)
}

func TestRedis_ConditionalOps(t *testing.T) {
	ctx := context.Background()
	be := newBackend(t, "it-cond")

	ok, err := be.SetNX(ctx, "lock", []byte("t1"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = be.SetNX(ctx, "lock", []byte("t2"), time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = be.DelIfValue(ctx, "lock", []byte("t2"))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = be.DelIfValue(ctx, "lock", []byte("t1"))
	require.NoError(t, err)
	require.True(t, ok)
}
