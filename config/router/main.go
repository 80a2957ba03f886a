package router

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/akeren/mehfil-api/internal/log"
	"github.com/akeren/mehfil-api/pkg/factory"
	"github.com/akeren/mehfil-api/pkg/ratelimit"
	"github.com/akeren/mehfil-api/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const DefaultTimeoutDuration = 30 * time.Second

type Cache interface {
	Ping(ctx context.Context) error
}

type RouterService struct {
	engine             *gin.Engine
	server             *http.Server
	logger             *log.Logger
	rateLimiter        ratelimit.RateLimiter
	rateLimiterFactory factory.RateLimiterFactory
	requestTimeout     time.Duration
	registry           *prometheus.Registry

	handlerToControllerMap map[string]*RESTController
	rateLimitOverrides     map[string]ratelimit.RateLimiter
	ownedLimiters          []ratelimit.RateLimiter
}

type RouterConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration
}

func CreateRouterService(logger *log.Logger, cache Cache, routerConfig *RouterConfig) *RouterService {
	if mode, ok := os.LookupEnv("GIN_MODE"); ok && mode != "" {
		gin.SetMode(mode)
	}

	if routerConfig.RequestTimeout <= 0 {
		routerConfig.RequestTimeout = DefaultTimeoutDuration
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	if utils.IsTracingEnabled() {
		engine.Use(otelgin.Middleware(utils.OTelServiceName()))
		logger.Info("Tracing middleware enabled")
	}

	// ClientIP() only honours X-Forwarded-For from TRUSTED_PROXIES.
	trustedProxies := parseTrustedProxiesEnv(os.Getenv("TRUSTED_PROXIES"))
	if err := engine.SetTrustedProxies(trustedProxies); err != nil {
		logger.Error("Invalid TRUSTED_PROXIES; disabling trusted proxies", "error", err)
		_ = engine.SetTrustedProxies(nil)
	}

	rs := &RouterService{
		engine:                 engine,
		logger:                 logger,
		requestTimeout:         routerConfig.RequestTimeout,
		rateLimitOverrides:     make(map[string]ratelimit.RateLimiter),
		handlerToControllerMap: make(map[string]*RESTController),
	}

	rs.rateLimiterFactory = newRateLimiterFactory(logger, cache)
	rs.rateLimiter = rs.rateLimiterFactory.CreateRateLimiter("global", routerConfig.RateLimitRequests, routerConfig.RateLimitWindow)
	rs.ownedLimiters = append(rs.ownedLimiters, rs.rateLimiter)
	logger.Info("Rate limiting initialized",
		"requests", routerConfig.RateLimitRequests,
		"window", routerConfig.RateLimitWindow,
		"distributed", rs.rateLimiterFactory.Distributed(),
	)

	rs.mountMetrics()

	engine.Use(rs.correlationIDMiddleware())
	engine.Use(rs.loggerInjectionMiddleware())
	engine.Use(rs.securityHeadersMiddleware())
	engine.Use(rs.maxBodySizeMiddleware())
	engine.Use(rs.corsMiddleware())
	engine.Use(rs.rateLimitMiddleware())
	engine.Use(rs.timeoutMiddleware())
	engine.Use(rs.requestLoggingMiddleware())

	engine.HandleMethodNotAllowed = true
	engine.RedirectTrailingSlash = true

	engine.NoRoute(func(c *gin.Context) {
		rs.logger.WithCorrelationID(c.Request.Context()).Warn("Route not found", "path", c.Request.URL.Path)
		c.JSON(http.StatusNotFound, NotFoundResult("Route not found").Body())
	})

	engine.NoMethod(func(c *gin.Context) {
		rs.logger.WithCorrelationID(c.Request.Context()).Warn("Method not allowed", "method", c.Request.Method, "path", c.Request.URL.Path)
		c.JSON(http.StatusMethodNotAllowed, ErrorResult(http.StatusMethodNotAllowed, "Method not allowed", nil).Body())
	})

	// Gin's Context is not goroutine-safe, so deadlines are enforced by the
	// server timeouts rather than by running handlers in a goroutine.
	rs.server = &http.Server{
		Addr:              ":8080",
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       routerConfig.RequestTimeout,
		WriteTimeout:      routerConfig.RequestTimeout,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("Router service initialized")
	return rs
}

// newRateLimiterFactory falls back to in-memory limiting when the cache is
// missing or unreachable.
func newRateLimiterFactory(logger *log.Logger, cache Cache) factory.RateLimiterFactory {
	if cache == nil {
		return factory.NewRateLimiterFactory(nil, logger)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := cache.Ping(ctx); err != nil {
		logger.Warn("Cache unreachable for rate limiting, falling back to in-memory", "error", err)
		return factory.NewRateLimiterFactory(nil, logger)
	}

	return factory.NewRateLimiterFactory(cache, logger)
}

func parseTrustedProxiesEnv(v string) []string {
	s := strings.TrimSpace(v)
	switch s {
	case "":
		return nil
	case "*":
		return []string{"0.0.0.0/0", "::/0"}
	}

	var proxies []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			proxies = append(proxies, p)
		}
	}
	return proxies
}

// NewRateLimiter builds a route limiter on the same backend as the global one.
func (routerService *RouterService) NewRateLimiter(name string, requests int, window time.Duration) ratelimit.RateLimiter {
	return routerService.rateLimiterFactory.CreateRateLimiter(name, requests, window)
}

// RegisterMetrics adds collectors to /metrics. It is a no-op when metrics are disabled.
func (routerService *RouterService) RegisterMetrics(collectors ...prometheus.Collector) {
	if routerService.registry == nil {
		return
	}
	for _, c := range collectors {
		if err := routerService.registry.Register(c); err != nil {
			routerService.logger.Warn("Failed to register metric collector", "error", err)
		}
	}
}

func (routerService *RouterService) GetEngine() *gin.Engine {
	return routerService.engine
}

func (routerService *RouterService) GetLogger(c *RequestContext) *log.Logger {
	return routerService.logger.WithCorrelationID(c.Request.Context())
}

func (routerService *RouterService) Cleanup() {
	for _, limiter := range routerService.ownedLimiters {
		if err := limiter.Close(); err != nil {
			routerService.logger.Error("Failed to close rate limiter", "error", err)
		}
	}
	routerService.logger.Info("Router service cleanup completed")
}

func (routerService *RouterService) MountController(controller *RESTController) {
	controller.prepare(routerService, controller)

	routerService.logger.Info("Controller mounted",
		"name", controller.name,
		"path", controller.mountPoint,
		"handlers", controller.handlerCount,
	)
}

func (routerService *RouterService) RunHTTPServer() error {
	routerService.server.Addr = ":" + utils.GetEnvTrimmedOrDefault("APP_PORT", "8080")

	routerService.logger.Info("Starting HTTP server", "addr", routerService.server.Addr)

	if err := routerService.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		routerService.logger.Error("Failed to start HTTP server", "error", err)
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

func (routerService *RouterService) Shutdown(ctx context.Context) error {
	routerService.logger.Info("Shutting down HTTP server gracefully")
	return routerService.server.Shutdown(ctx)
}
