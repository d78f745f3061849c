package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

func newBackends(t *testing.T) map[string]Service {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	mem := NewMemoryCache(WithMemoryMaxSize(10))
	t.Cleanup(func() { _ = mem.Close() })

	return map[string]Service{
		"redis":  NewRedisCache(client, WithRedisPrefix("test")),
		"memory": mem,
	}
}

func TestServiceRoundTrip(t *testing.T) {
	for name, svc := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var missing payload
			require.ErrorIs(t, svc.Get(ctx, "absent", &missing), ErrCacheMiss)

			require.NoError(t, svc.Set(ctx, "k1", payload{ID: "a", Score: 0.5}, time.Minute))
			var got payload
			require.NoError(t, svc.Get(ctx, "k1", &got))
			assert.Equal(t, payload{ID: "a", Score: 0.5}, got)

			require.NoError(t, svc.Set(ctx, "s", "plain", time.Minute))
			var s string
			require.NoError(t, svc.Get(ctx, "s", &s))
			assert.Equal(t, "plain", s)

			ok, err := svc.Exists(ctx, "k1")
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, svc.Delete(ctx, "k1", "s"))
			require.ErrorIs(t, svc.Get(ctx, "k1", &got), ErrCacheMiss)
			ok, err = svc.Exists(ctx, "k1", "s")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestRedisCachePrefixesKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisCache(client, WithRedisPrefix("signals"))
	require.NoError(t, c.Set(context.Background(), GenerateKey("signal:latest", "t1"), "x", time.Minute))

	assert.True(t, mr.Exists("signals:signal:latest:t1"))
	assert.Equal(t, time.Minute, mr.TTL("signals:signal:latest:t1"))

	mr.FastForward(2 * time.Minute)
	var s string
	require.ErrorIs(t, c.Get(context.Background(), "signal:latest:t1", &s), ErrCacheMiss)
}

func TestRedisCacheSurfacesConnectionErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	c := NewRedisCache(client)
	var s string
	err := c.Get(context.Background(), "k", &s)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpires(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	ctx := context.Background()
	require.NoError(t, mc.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(25 * time.Millisecond)

	var s string
	require.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)
	assert.Equal(t, 0, mc.Len())
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	ctx := context.Background()
	require.NoError(t, mc.Set(ctx, "a", "1", time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", "2", time.Minute))
	time.Sleep(time.Millisecond)

	var s string
	require.NoError(t, mc.Get(ctx, "a", &s))
	time.Sleep(time.Millisecond)

	require.NoError(t, mc.Set(ctx, "c", "3", time.Minute))

	assert.Equal(t, 2, mc.Len())
	require.ErrorIs(t, mc.Get(ctx, "b", &s), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &s))
	require.NoError(t, mc.Get(ctx, "c", &s))
}

func TestMemoryCacheCloseIsIdempotent(t *testing.T) {
	mc := NewMemoryCache()
	require.NoError(t, mc.Close())
	require.NoError(t, mc.Close())
}
