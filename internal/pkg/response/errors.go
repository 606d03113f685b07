package response

import (
	"net/http"
	"time"
)

// ErrorCode is the machine-readable error code returned in the error envelope.
type ErrorCode string

const (
	CodeBadRequest    ErrorCode = "BAD_REQUEST"
	CodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	CodeForbidden     ErrorCode = "FORBIDDEN"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeProviderError ErrorCode = "PROVIDER_ERROR"
	CodeRateLimited   ErrorCode = "RATE_LIMITED"
	CodeInternal      ErrorCode = "INTERNAL"
)

// AppError is an error with an HTTP status and a stable code. Handlers pass it
// to Error which renders the uniform {"error": {...}} envelope.
type AppError struct {
	Status  int
	Code    ErrorCode
	Message string
	Details interface{}

	// ResetAt is set for rate-limit errors only.
	ResetAt time.Time
}

func (e *AppError) Error() string { return e.Message }

// BadRequest builds a 400 error. Details may carry per-field validation info.
func BadRequest(message string, details interface{}) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: CodeBadRequest, Message: message, Details: details}
}

// Unauthorized builds a 401 error.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "Unauthorized"
	}
	return &AppError{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: message}
}

// Forbidden builds a 403 error.
func Forbidden(message string) *AppError {
	if message == "" {
		message = "Forbidden"
	}
	return &AppError{Status: http.StatusForbidden, Code: CodeForbidden, Message: message}
}

// NotFound builds a 404 error.
func NotFound(message string) *AppError {
	if message == "" {
		message = "Not found"
	}
	return &AppError{Status: http.StatusNotFound, Code: CodeNotFound, Message: message}
}

// Provider builds a 502 error for upstream generation failures.
func Provider(message string, details interface{}) *AppError {
	if message == "" {
		message = "Provider error"
	}
	return &AppError{Status: http.StatusBadGateway, Code: CodeProviderError, Message: message, Details: details}
}

// RateLimited builds a 429 error carrying the next window boundary.
func RateLimited(message string, resetAt time.Time) *AppError {
	if message == "" {
		message = "Too many requests"
	}
	return &AppError{
		Status:  http.StatusTooManyRequests,
		Code:    CodeRateLimited,
		Message: message,
		Details: map[string]interface{}{"resetAt": resetAt.UnixMilli()},
		ResetAt: resetAt,
	}
}

// Internal wraps an unexpected error as a 500.
func Internal(err error) *AppError {
	message := "Internal error"
	if err != nil {
		message = err.Error()
	}
	return &AppError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: message}
}
