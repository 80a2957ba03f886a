package chat

import (
	"time"

	"github.com/akeren/mehfil-api/config/router"
	"github.com/akeren/mehfil-api/pkg/constants"
)

func NewChatController(service ChatService, metrics *Metrics) *router.RESTController {
	return router.NewRESTController(
		"ChatController",
		"/chat",
		func(rs *router.RouterService, c *router.RESTController) {
			rs.RegisterMetrics(metrics.Collectors()...)

			chatLimiter := rs.NewRateLimiter("chat", constants.ChatRequestsPerMinute, time.Minute)
			rs.AddPostHandler(c, chatLimiter, "", relayHandler(service))
		},
	)
}

func relayHandler(service ChatService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		var req ChatRequest
		if res := router.BindJSON(ctx, &req); res != nil {
			return res
		}

		response, err := service.Relay(ctx.Request.Context(), &req)
		if err != nil {
			return router.ErrorResultFrom(err)
		}

		return router.OKResult(response)
	}
}
