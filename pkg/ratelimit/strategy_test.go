package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRateLimiter_IsLimited_IsPerKey(t *testing.T) {
	limiter := NewInMemoryRateLimiter(1, time.Second)
	ctx := context.Background()

	limited, err := limiter.IsLimited(ctx, "client-a")
	require.NoError(t, err)
	assert.False(t, limited, "first request for client-a should pass")

	limited, err = limiter.IsLimited(ctx, "client-a")
	require.NoError(t, err)
	assert.True(t, limited, "second immediate request for client-a should be limited")

	limited, err = limiter.IsLimited(ctx, "client-b")
	require.NoError(t, err)
	assert.False(t, limited, "client-b has its own bucket")
}

func TestInMemoryRateLimiter_AllowsBurstUpToLimit(t *testing.T) {
	limiter := NewInMemoryRateLimiter(30, time.Minute)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		limited, err := limiter.IsLimited(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.False(t, limited, "request %d should pass", i+1)
	}

	limited, err := limiter.IsLimited(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, limited)

	requests, window := limiter.GetLimitDetails()
	assert.Equal(t, 30, requests)
	assert.Equal(t, time.Minute, window)
}

func TestNewRateLimiter_SelectsStrategy(t *testing.T) {
	assert.IsType(t, &InMemoryRateLimiter{}, NewRateLimiter(&RateLimitConfig{Requests: 1, Window: time.Second}))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	assert.IsType(t, &RedisRateLimiter{}, NewRateLimiter(&RateLimitConfig{Requests: 1, Window: time.Second, Redis: client}))
}

func TestRedisRateLimiter_IsLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRedisRateLimiter(client, 2, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		limited, err := limiter.IsLimited(ctx, "ratelimit:10.0.0.1")
		require.NoError(t, err)
		assert.False(t, limited)
	}

	limited, err := limiter.IsLimited(ctx, "ratelimit:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, limited)

	limited, err = limiter.IsLimited(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.False(t, limited)
	assert.True(t, mr.Exists("ratelimit:10.0.0.2"))
}

func TestRedisRateLimiter_SurfacesRedisErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	limiter := NewRedisRateLimiter(client, 2, time.Minute, nil)

	limited, err := limiter.IsLimited(context.Background(), "10.0.0.3")
	assert.Error(t, err)
	assert.False(t, limited)
}

func TestRedisRateLimiter_PrefixesKeepWindowsApart(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	global := NewRateLimiter(&RateLimitConfig{Requests: 1, Window: time.Minute, Redis: client, KeyPrefix: "ratelimit:global:"})
	chat := NewRateLimiter(&RateLimitConfig{Requests: 1, Window: time.Minute, Redis: client, KeyPrefix: "ratelimit:chat:"})
	ctx := context.Background()

	limited, err := global.IsLimited(ctx, "10.0.0.9")
	require.NoError(t, err)
	assert.False(t, limited)

	limited, err = chat.IsLimited(ctx, "10.0.0.9")
	require.NoError(t, err)
	assert.False(t, limited)

	assert.True(t, mr.Exists("ratelimit:global:10.0.0.9"))
	assert.True(t, mr.Exists("ratelimit:chat:10.0.0.9"))
}
