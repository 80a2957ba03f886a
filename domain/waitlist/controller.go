package waitlist

import (
	"time"

	"github.com/akeren/mehfil-api/config/router"
	"github.com/akeren/mehfil-api/pkg/constants"
)

func NewWaitlistController(service WaitlistService, metrics *Metrics) *router.RESTController {
	return router.NewRESTController(
		"WaitlistController",
		"/waitlist",
		func(rs *router.RouterService, c *router.RESTController) {
			rs.RegisterMetrics(metrics.Collectors()...)

			signupLimiter := rs.NewRateLimiter("waitlist-signup", constants.WaitlistSignupRequestsPerMinute, time.Minute)

			rs.AddPostHandler(c, signupLimiter, "", registerHandler(service))
			rs.AddGetHandler(c, nil, "", statsHandler(service))
		},
	)
}

func registerHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		var req RegisterRequest
		if res := router.BindJSON(ctx, &req); res != nil {
			return res
		}

		response, err := service.Register(ctx.Request.Context(), &req)
		if err != nil {
			return router.ErrorResultFrom(err)
		}

		return router.CreatedResult(response)
	}
}

func statsHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		response, err := service.GetStats(ctx.Request.Context())
		if err != nil {
			return router.ErrorResultFrom(err)
		}

		return router.OKResult(response)
	}
}
