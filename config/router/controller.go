package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/akeren/mehfil-api/pkg/ratelimit"
)

func normalizePath(controller *RESTController, relativePath string) string {
	path := controller.mountPoint
	if relativePath != "" {
		path += "/" + relativePath
	}

	path = "/" + strings.Trim(path, "/")
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	return path
}

func keyForPathAndMethod(path, method string) string {
	return method + "-" + path
}

func (controller *RESTController) bindHandlerToController(routerService *RouterService, path, method string) {
	key := keyForPathAndMethod(path, method)
	if other, found := routerService.handlerToControllerMap[key]; found {
		panic(fmt.Sprintf("A handler is already registered for %s %s by controller '%s'", method, path, other.name))
	}

	routerService.handlerToControllerMap[key] = controller
}

func (routerService *RouterService) bindOverrideRateLimiter(key string, limiter ratelimit.RateLimiter) {
	if limiter == nil {
		return
	}

	if _, found := routerService.rateLimitOverrides[key]; found {
		panic(fmt.Sprintf("A rate limiter is already registered for '%s'", key))
	}

	routerService.rateLimitOverrides[key] = limiter
	routerService.ownedLimiters = append(routerService.ownedLimiters, limiter)
}

func createHandler(handler HandlerFunction) MiddlewareFunc {
	return func(c *RequestContext) {
		result := handler(c)

		if result == nil {
			GetLogger(c).Error("Handler returned no result", "path", c.FullPath())
			result = InternalServerErrorResult()
		}

		c.JSON(result.StatusCode, result.Body())
	}
}

func NewRESTController(name, mountPoint string, prepare func(*RouterService, *RESTController)) *RESTController {
	return &RESTController{
		name:       name,
		mountPoint: "/" + strings.Trim(mountPoint, "/"),
		prepare:    prepare,
	}
}

// RateLimitWith applies limiter to every handler of the controller that has
// no handler-level override.
func (controller *RESTController) RateLimitWith(routerService *RouterService, limiter ratelimit.RateLimiter) *RESTController {
	routerService.bindOverrideRateLimiter(controller.mountPoint, limiter)
	return controller
}

// AddHandler registers handler under the controller's mount point. A non-nil
// limiter replaces the controller and global limiters for this route.
func (routerService *RouterService) AddHandler(
	controller *RESTController,
	method string,
	limiter ratelimit.RateLimiter,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	controller.handlerCount++
	route := normalizePath(controller, path)

	controller.bindHandlerToController(routerService, route, method)
	routerService.bindOverrideRateLimiter(keyForPathAndMethod(route, method), limiter)
	routerService.engine.Handle(method, route, append(middlewares, createHandler(handler))...)

	routerService.logger.Debug("Handler registered", "method", method, "path", route)
}

func (routerService *RouterService) AddGetHandler(controller *RESTController, limiter ratelimit.RateLimiter, path string, handler HandlerFunction, middlewares ...MiddlewareFunc) {
	routerService.AddHandler(controller, http.MethodGet, limiter, path, handler, middlewares...)
}

func (routerService *RouterService) AddPostHandler(controller *RESTController, limiter ratelimit.RateLimiter, path string, handler HandlerFunction, middlewares ...MiddlewareFunc) {
	routerService.AddHandler(controller, http.MethodPost, limiter, path, handler, middlewares...)
}
