package monitoring

import (
	"context"
	"time"

	"github.com/akeren/mehfil-api/config/router"
	"github.com/akeren/mehfil-api/internal/log"
	"github.com/akeren/mehfil-api/pkg/constants"
	"github.com/gin-gonic/gin"
)

const checkTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

// CompletionProbe reports whether chat requests can currently be served.
type CompletionProbe interface {
	Available() bool
}

type HealthStatus struct {
	Store      int `json:"store"`      // 1 = healthy, 0 = unhealthy
	Cache      int `json:"cache"`      // 1 = healthy, 0 = unhealthy/not configured
	Completion int `json:"completion"` // 1 = client configured and breaker not open
	Uptime     int `json:"uptime"`     // seconds
}

type MonitoringController struct {
	store      Pinger
	cache      Pinger
	completion CompletionProbe
	startTime  time.Time
}

func NewMonitoringController(store Pinger, cache Pinger, completion CompletionProbe) *router.RESTController {
	ctrl := &MonitoringController{
		store:      store,
		cache:      cache,
		completion: completion,
		startTime:  time.Now(),
	}

	return router.NewRESTController(
		"MonitoringController",
		"/",
		func(rs *router.RouterService, controller *router.RESTController) {
			monitoringRateLimiter := rs.NewRateLimiter("monitoring", constants.MonitoringRequestsPerMinute, time.Minute)
			controller.RateLimitWith(rs, monitoringRateLimiter)

			rs.AddGetHandler(controller, nil, "", ctrl.liveness)
			rs.AddGetHandler(controller, nil, "health", ctrl.healthCheck)
		},
	)
}

func (ctrl *MonitoringController) liveness(_ *router.RequestContext) *router.ServiceResult {
	return router.OKResult(gin.H{"status": "ok"})
}

func (ctrl *MonitoringController) healthCheck(c *router.RequestContext) *router.ServiceResult {
	logger := router.GetLogger(c)
	return router.OKResult(ctrl.performHealthChecks(c.Request.Context(), logger))
}

func (ctrl *MonitoringController) performHealthChecks(ctx context.Context, logger *log.Logger) HealthStatus {
	status := HealthStatus{
		Uptime: int(time.Since(ctrl.startTime).Seconds()),
	}

	status.Store = probe(ctx, "store", ctrl.store, logger)
	status.Cache = probe(ctx, "cache", ctrl.cache, logger)

	if ctrl.completion != nil && ctrl.completion.Available() {
		status.Completion = 1
	} else {
		logger.Warn("Completion health check failed")
	}

	return status
}

func probe(ctx context.Context, name string, target Pinger, logger *log.Logger) int {
	if target == nil {
		logger.Info("Health check skipped; dependency not configured", "dependency", name)
		return 0
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := target.Ping(ctx); err != nil {
		logger.Error("Health check failed", "dependency", name, "error", err)
		return 0
	}
	return 1
}
