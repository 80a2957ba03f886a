package config

import (
	"context"
	"time"

	"github.com/akeren/mehfil-api/config/router"
	"github.com/akeren/mehfil-api/internal/log"
	"github.com/akeren/mehfil-api/internal/models"
	"github.com/akeren/mehfil-api/pkg/completion"
	"github.com/akeren/mehfil-api/pkg/constants"
	"github.com/akeren/mehfil-api/pkg/retry"
	"github.com/akeren/mehfil-api/pkg/utils"
)

type ApplicationConfig struct {
	Store           *Store
	RouterService   *router.RouterService
	Logger          *log.Logger
	Cache           Cache
	Config          *AppConfig
	Chat            *ChatConfig
	Completion      completion.Client
	TracingShutdown func(context.Context) error
}

type AppConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration
	StatsCacheTTL     time.Duration // 0 disables the stats cache
}

func NewAppConfig() *AppConfig {
	statsTTL := constants.DefaultStatsCacheTTL
	if raw := utils.GetEnvTrimmed("STATS_CACHE_TTL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed >= 0 {
			statsTTL = parsed
		}
	}

	return &AppConfig{
		RateLimitRequests: utils.GetEnvPositiveInt("RATE_LIMIT_REQUESTS", constants.DefaultRateLimitRequests),
		RateLimitWindow:   utils.GetEnvPositiveDuration("RATE_LIMIT_WINDOW", constants.DefaultRateLimitWindow()),
		RequestTimeout:    utils.GetEnvPositiveDuration("REQUEST_TIMEOUT", 30*time.Second),
		StatsCacheTTL:     statsTTL,
	}
}

func (ac *ApplicationConfig) Cleanup() {
	if ac.TracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ac.TracingShutdown(ctx); err != nil {
			ac.Logger.Error("Failed to shutdown tracer provider", "error", err)
		}
	}

	if ac.RouterService != nil {
		ac.RouterService.Cleanup()
	}

	ac.Store.Close(ac.Logger)
	_ = CloseCache(ac.Cache, ac.Logger)

	ac.Logger.Info("Application cleanup completed")
}

func LoadApplicationConfiguration(logger *log.Logger, autoMigrate bool) (*ApplicationConfig, error) {
	InitializeEnvFile(logger)

	if autoMigrate {
		appEnv := GetAppEnv()
		if err := ValidateAutoMigrateAllowed(appEnv); err != nil {
			return nil, err
		}
		if appEnv == "" {
			logger.Warn("APP_ENV not set; allowing --auto-migrate as development")
		}
	}

	tracingShutdown, err := SetupTracing(logger)
	if err != nil {
		return nil, err
	}

	storeCfg, err := LoadStoreConfig()
	if err != nil {
		return nil, err
	}

	store, err := NewStore(logger, storeCfg)
	if err != nil {
		return nil, err
	}

	if autoMigrate {
		if err := migrateStore(logger, store); err != nil {
			store.Close(logger)
			return nil, err
		}
	} else if store.Mongo != nil && storeCfg.MongoEnsureIndexes {
		bootstrapMongoIndexes(logger, store)
	}

	chatCfg, err := LoadChatConfig()
	if err != nil {
		store.Close(logger)
		return nil, err
	}

	appConfig := NewAppConfig()
	cache := LoadCacheConfig().ConnectOrNil(logger)

	routerService := router.CreateRouterService(logger, cache, &router.RouterConfig{
		RateLimitRequests: appConfig.RateLimitRequests,
		RateLimitWindow:   appConfig.RateLimitWindow,
		RequestTimeout:    appConfig.RequestTimeout,
	})

	logger.Info("Application configuration loaded",
		"store", store.Driver,
		"chat_provider", chatCfg.Provider,
		"cache", cache != nil,
	)

	return &ApplicationConfig{
		Store:           store,
		RouterService:   routerService,
		Logger:          logger,
		Cache:           cache,
		Config:          appConfig,
		Chat:            chatCfg,
		Completion:      NewCompletionClientOrNil(context.Background(), logger, chatCfg),
		TracingShutdown: tracingShutdown,
	}, nil
}

func migrateStore(logger *log.Logger, store *Store) error {
	if store.IsSQL() {
		return AutoMigrate(logger, store.DB, models.ModelRegistry...)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	return EnsureMongoIndexes(ctx, logger, store)
}

// EnsureMongoIndexes retries transient connection failures while the
// document store comes up.
func EnsureMongoIndexes(ctx context.Context, logger *log.Logger, store *Store) error {
	policy := retry.NewExponentialBackoff(&retry.Config{
		MaxAttempts: 5,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
		Multiplier:  2,
	})

	err := policy.Execute(ctx, func(ctx context.Context) error {
		return store.Mongo.EnsureIndexes(ctx)
	})
	if err != nil {
		logger.Error("Failed to ensure document store indexes", "error", err)
		return err
	}

	logger.Info("Document store indexes ensured")
	return nil
}

// bootstrapMongoIndexes runs in the background and only logs failures.
// `cli ensure-indexes` is the blocking variant.
func bootstrapMongoIndexes(logger *log.Logger, store *Store) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		_ = EnsureMongoIndexes(ctx, logger, store)
	}()
}
