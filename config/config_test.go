package config

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/akeren/mehfil-api/internal/log"
	"github.com/akeren/mehfil-api/pkg/completion"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAutoMigrateAllowed(t *testing.T) {
	for _, env := range []string{"", "dev", "development", "local", "test", "testing", "DEV", "  Local  "} {
		assert.NoError(t, ValidateAutoMigrateAllowed(env), env)
	}

	for _, env := range []string{"prod", "production", "staging", "preprod", " Production ", "qa"} {
		assert.Error(t, ValidateAutoMigrateAllowed(env), env)
	}
}

func TestLoadStoreConfig(t *testing.T) {
	t.Run("mongo requires a connection string", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "mongo")
		t.Setenv("MONGODB_URI", "")

		_, err := LoadStoreConfig()
		assert.ErrorContains(t, err, "MONGODB_URI")
	})

	t.Run("mongo defaults", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", " Mongo ")
		t.Setenv("MONGODB_URI", "mongodb://localhost:27017")

		cfg, err := LoadStoreConfig()
		require.NoError(t, err)
		assert.Equal(t, StoreDriverMongo, cfg.Driver)
		assert.Equal(t, "mehfil", cfg.MongoDatabase)
		assert.Equal(t, "waitlist", cfg.MongoCollection)
		assert.Equal(t, 10*time.Second, cfg.MongoConnectTimeout)
	})

	t.Run("rejects unknown drivers", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "dynamodb")

		_, err := LoadStoreConfig()
		assert.ErrorContains(t, err, "unsupported STORE_DRIVER")
	})
}

func TestNewStore_SQLite(t *testing.T) {
	logger := log.NewLoggerWithJSONOutput()

	store, err := NewStore(logger, &StoreConfig{Driver: StoreDriverSQLite, SQLitePath: "file::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(logger) })

	assert.True(t, store.IsSQL())
	assert.NoError(t, store.Ping(context.Background()))
}

func TestNewStore_MongoIsLazy(t *testing.T) {
	logger := log.NewLoggerWithJSONOutput()

	store, err := NewStore(logger, &StoreConfig{
		Driver:          StoreDriverMongo,
		MongoURI:        "mongodb://127.0.0.1:1",
		MongoDatabase:   "mehfil",
		MongoCollection: "waitlist",
	})
	require.NoError(t, err)

	assert.False(t, store.IsSQL())
	assert.False(t, store.Mongo.Connected())
	store.Close(logger)
}

func TestLoadChatConfig(t *testing.T) {
	t.Run("openai defaults", func(t *testing.T) {
		t.Setenv("CHAT_PROVIDER", "")
		t.Setenv("CHAT_MODEL", "")
		t.Setenv("CHAT_TEMPERATURE", "")
		os.Unsetenv("CHAT_TEMPERATURE")

		cfg, err := LoadChatConfig()
		require.NoError(t, err)
		assert.Equal(t, completion.ProviderOpenAI, cfg.Provider)
		assert.Equal(t, "gpt-4o", cfg.Model)
		assert.Equal(t, 500, cfg.MaxTokens)
		assert.InDelta(t, 0.7, cfg.Temperature, 0.0001)
		assert.Equal(t, MehfilSystemPrompt, cfg.SystemPrompt)
	})

	t.Run("bedrock picks a bedrock model", func(t *testing.T) {
		t.Setenv("CHAT_PROVIDER", "bedrock")
		t.Setenv("CHAT_MODEL", "")

		cfg, err := LoadChatConfig()
		require.NoError(t, err)
		assert.Equal(t, completion.DefaultBedrockModel, cfg.Model)
	})

	t.Run("explicit zero temperature is kept", func(t *testing.T) {
		t.Setenv("CHAT_PROVIDER", "openai")
		t.Setenv("CHAT_TEMPERATURE", "0")

		cfg, err := LoadChatConfig()
		require.NoError(t, err)
		assert.Zero(t, cfg.Temperature)
	})

	t.Run("system prompt is the fixed Mehfil FAQ instruction", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(MehfilSystemPrompt, "You are the persuasive FAQ assistant for Mehfil"))
		assert.True(t, strings.HasSuffix(MehfilSystemPrompt, "Mehfil's incredible business-boosting solutions."))
	})

	t.Run("rejects unknown providers", func(t *testing.T) {
		t.Setenv("CHAT_PROVIDER", "cohere")

		_, err := LoadChatConfig()
		assert.Error(t, err)
	})

	t.Run("breaker overrides", func(t *testing.T) {
		t.Setenv("CHAT_PROVIDER", "openai")
		t.Setenv("CHAT_BREAKER_FAILURES", "3")
		t.Setenv("CHAT_BREAKER_COOLDOWN", "10s")

		cfg, err := LoadChatConfig()
		require.NoError(t, err)

		breaker := cfg.BreakerConfig()
		assert.Equal(t, 3, breaker.FailureThreshold)
		assert.Equal(t, 10*time.Second, breaker.RecoveryTimeout)
	})
}

func TestNewCompletionClientOrNil_MissingKey(t *testing.T) {
	client := NewCompletionClientOrNil(context.Background(), log.NewLoggerWithJSONOutput(), &ChatConfig{Provider: completion.ProviderOpenAI})
	assert.Nil(t, client)
}

func TestParseOTLPEndpoint(t *testing.T) {
	target, err := parseOTLPEndpoint("http://collector:4318")
	require.NoError(t, err)
	assert.Equal(t, otlpTarget{hostport: "collector:4318", path: "/v1/traces", insecure: true}, target)

	target, err = parseOTLPEndpoint("https://otel.example.com/custom/traces")
	require.NoError(t, err)
	assert.Equal(t, otlpTarget{hostport: "otel.example.com", path: "/custom/traces", insecure: false}, target)

	target, err = parseOTLPEndpoint("collector:4318")
	require.NoError(t, err)
	assert.Equal(t, "collector:4318", target.hostport)

	_, err = parseOTLPEndpoint("collector:4318/v1/traces")
	assert.Error(t, err)

	_, err = parseOTLPEndpoint("grpc://collector:4317")
	assert.Error(t, err)
}

func TestSanitizeEnv(t *testing.T) {
	assert.Equal(t, "secret", sanitizeEnv(` "secret" `))
	assert.Equal(t, "secret", sanitizeEnv(`'secret'`))
	assert.Equal(t, `"mismatched'`, sanitizeEnv(`"mismatched'`))
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("REDIS_HOST", "  cache.internal ")
	t.Setenv("REDIS_PORT", "")
	t.Setenv("REDIS_DB", "-2")

	cfg := LoadCacheConfig()
	assert.Equal(t, "cache.internal", cfg.Host)
	assert.Equal(t, "6379", cfg.Port)
	assert.Equal(t, 0, cfg.DB)
	assert.True(t, cfg.IsConfigured())
}

func TestCacheConfig_Connect(t *testing.T) {
	logger := log.NewLoggerWithJSONOutput()

	t.Run("unconfigured", func(t *testing.T) {
		_, err := (&CacheConfig{}).Connect(logger)
		assert.ErrorIs(t, err, ErrCacheNotConfigured)
		assert.Nil(t, (&CacheConfig{}).ConnectOrNil(logger))
	})

	t.Run("unreachable host degrades to nil", func(t *testing.T) {
		assert.Nil(t, (&CacheConfig{Host: "127.0.0.1", Port: "1"}).ConnectOrNil(logger))
	})

	t.Run("miniredis", func(t *testing.T) {
		mr := miniredis.RunT(t)

		cache, err := (&CacheConfig{Host: mr.Host(), Port: mr.Port()}).Connect(logger)
		require.NoError(t, err)

		ctx := context.Background()
		require.NoError(t, cache.Set(ctx, "k", "v", time.Minute))
		got, err := cache.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v", got)
		assert.NoError(t, CloseCache(cache, logger))
	})
}
