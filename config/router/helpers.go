package router

import (
	"net/http"

	"github.com/akeren/mehfil-api/internal/log"
	apperrors "github.com/akeren/mehfil-api/pkg/errors"
)

func GetLogger(ctx *RequestContext) *log.Logger {
	return log.GetLoggerInstanceFromContext(ctx.Request.Context(), nil)
}

func OKResult(data any) *ServiceResult {
	return &ServiceResult{StatusCode: http.StatusOK, Data: data}
}

func CreatedResult(data any) *ServiceResult {
	return &ServiceResult{StatusCode: http.StatusCreated, Data: data}
}

func ErrorResult(statusCode int, message string, details any) *ServiceResult {
	return &ServiceResult{StatusCode: statusCode, Message: message, Details: details}
}

func BadRequestResult(message string, details any) *ServiceResult {
	return ErrorResult(http.StatusBadRequest, message, details)
}

func NotFoundResult(message string) *ServiceResult {
	return ErrorResult(http.StatusNotFound, message, nil)
}

func InternalServerErrorResult() *ServiceResult {
	return ErrorResult(http.StatusInternalServerError, apperrors.GenericErrorMessage, nil)
}

func TooManyRequestsResult(details RateLimitResponse) *ServiceResult {
	return ErrorResult(http.StatusTooManyRequests, "Too many requests", details)
}

// ErrorResultFrom maps an error to its status code and caller-safe message.
func ErrorResultFrom(err error) *ServiceResult {
	return ErrorResult(apperrors.HTTPStatusCode(err), apperrors.GetHumanReadableMessage(err), nil)
}

// BindJSON decodes the request body into dst. On failure it returns the 400
// result to send back, with per-field details when available.
func BindJSON(ctx *RequestContext, dst any) *ServiceResult {
	if err := ctx.ShouldBindJSON(dst); err != nil {
		GetLogger(ctx).Warn("Failed to bind request body", "error", err)

		if details := apperrors.FormatValidationErrors(err, dst); len(details) > 0 {
			return BadRequestResult("Invalid request payload", details)
		}
		return BadRequestResult("Invalid request body", nil)
	}
	return nil
}
