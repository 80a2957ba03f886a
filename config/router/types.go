package router

import (
	"github.com/gin-gonic/gin"
)

type RequestContext = gin.Context

type MiddlewareFunc = gin.HandlerFunc

// ServiceResult is what every handler returns. Successful results render Data
// as the response body; failures render {"error": Message} plus optional
// details.
type ServiceResult struct {
	StatusCode int
	Data       any
	Message    string
	Details    any
}

type RateLimitResponse struct {
	Limit      int    `json:"limit"`
	Window     string `json:"window"`
	RetryAfter string `json:"retry_after"`
}

type HandlerFunction func(*RequestContext) *ServiceResult

type RESTController struct {
	name         string
	mountPoint   string
	handlerCount int
	prepare      func(*RouterService, *RESTController)
}

func (result *ServiceResult) Body() any {
	if result.IsSuccess() {
		if result.Data == nil {
			return gin.H{}
		}
		return result.Data
	}

	body := gin.H{"error": result.Message}
	if result.Details != nil {
		body["details"] = result.Details
	}
	return body
}

func (result *ServiceResult) IsSuccess() bool {
	return result.StatusCode >= 200 && result.StatusCode < 300
}
