package factory

import (
	"time"

	"github.com/akeren/mehfil-api/pkg/ratelimit"
	"github.com/go-redis/redis/v8"
)

type RedisClientProvider interface {
	GetClient() *redis.Client
}

// RateLimiterFactory builds named limiters. With a Redis-backed cache every
// limiter shares the client; otherwise each limiter keeps in-memory buckets.
type RateLimiterFactory interface {
	CreateRateLimiter(name string, requests int, window time.Duration) ratelimit.RateLimiter
	Distributed() bool
}

type DefaultRateLimiterFactory struct {
	redis  *redis.Client
	logger ratelimit.Logger
}

// NewRateLimiterFactory accepts any cache; only caches exposing a Redis
// client enable distributed limiting.
func NewRateLimiterFactory(cache any, logger ratelimit.Logger) *DefaultRateLimiterFactory {
	f := &DefaultRateLimiterFactory{logger: logger}

	if provider, ok := cache.(RedisClientProvider); ok && provider != nil {
		f.redis = provider.GetClient()
	}

	return f
}

func (f *DefaultRateLimiterFactory) CreateRateLimiter(name string, requests int, window time.Duration) ratelimit.RateLimiter {
	return ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Requests:  requests,
		Window:    window,
		Redis:     f.redis,
		Logger:    f.logger,
		KeyPrefix: "ratelimit:" + name + ":",
	})
}

func (f *DefaultRateLimiterFactory) Distributed() bool {
	return f.redis != nil
}
