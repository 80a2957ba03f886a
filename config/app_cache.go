package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akeren/mehfil-api/internal/log"
	pkgredis "github.com/akeren/mehfil-api/pkg/redis"
	"github.com/kelseyhightower/envconfig"
)

// Cache is the optional shared cache. The API runs without one.
type Cache interface {
	// Get returns ("", nil) for a missing key.
	Get(ctx context.Context, key string) (string, error)
	// Set with ttl=0 keeps the key forever.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

var ErrCacheNotConfigured = errors.New("cache host is not configured")

type CacheConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     string `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// LoadCacheConfig never fails on a bad REDIS_DB; it falls back to database 0.
func LoadCacheConfig() *CacheConfig {
	var cfg CacheConfig
	if err := envconfig.Process("", &cfg); err != nil || cfg.DB < 0 {
		cfg.DB = 0
	}

	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Port = strings.TrimSpace(cfg.Port)
	if cfg.Port == "" {
		cfg.Port = "6379"
	}

	return &cfg
}

func (cc *CacheConfig) IsConfigured() bool {
	return cc.Host != ""
}

func (cc *CacheConfig) Connect(logger *log.Logger) (Cache, error) {
	if !cc.IsConfigured() {
		return nil, ErrCacheNotConfigured
	}

	cache, err := pkgredis.NewRedisCache(&pkgredis.Config{
		Host:     cc.Host,
		Port:     cc.Port,
		Password: cc.Password,
		DB:       cc.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	logger.Info("Redis cache ready", "host", cc.Host, "port", cc.Port, "db", cc.DB)
	return cache, nil
}

// ConnectOrNil degrades to no cache: in-memory rate limits, uncached stats.
func (cc *CacheConfig) ConnectOrNil(logger *log.Logger) Cache {
	cache, err := cc.Connect(logger)
	switch {
	case errors.Is(err, ErrCacheNotConfigured):
		logger.Info("REDIS_HOST not set; running without a shared cache")
		return nil
	case err != nil:
		logger.Error("Redis unavailable; running without a shared cache", "error", err)
		return nil
	}

	return cache
}

func CloseCache(cache Cache, logger *log.Logger) error {
	if cache == nil {
		return nil
	}

	if err := cache.Close(); err != nil {
		logger.Error("Failed to close cache", "error", err)
		return err
	}

	logger.Info("Cache connection closed")
	return nil
}
