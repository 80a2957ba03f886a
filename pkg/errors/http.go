package errors

import (
	"errors"
)

func HTTPStatusCode(err error) int {
	if err == nil {
		return StatusInternalServerError
	}

	switch GetErrorType(err) {
	case ErrorTypeNotFound:
		return StatusNotFound
	case ErrorTypeInvalidRequest:
		return StatusBadRequest
	case ErrorTypeConflict:
		return StatusConflict
	case ErrorTypeTooManyRequests:
		return StatusTooManyRequests
	case ErrorTypeRequestTimeout:
		return StatusRequestTimeout
	case ErrorTypeMethodNotAllowed:
		return StatusMethodNotAllowed
	default:
		return StatusInternalServerError
	}
}

func GetHumanReadableMessage(err error) string {
	if err == nil {
		return GenericErrorMessage
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		// SECURITY: avoid leaking internal error strings (DB errors, stack messages, etc.)
		return GenericErrorMessage
	}

	switch appErr.Type {
	case ErrorTypeDatabaseError, ErrorTypeUpstream, ErrorTypeInternalServerError, ErrorTypeUnknown:
		return GenericErrorMessage
	default:
		return appErr.Message
	}
}
