package errors

import (
	"fmt"
	"net/http"
)

// Error codes used across the API. The taxonomy maps one-to-one onto HTTP
// statuses: InvalidInput 400, Unauthenticated/InvalidToken 401, NotFound 404
// (ownership mismatch deliberately conflated with non-existence),
// UpstreamUnavailable 429, everything else 500.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeUnauthenticated     = "AUTH_REQUIRED"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeNotFound            = "NOT_FOUND"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeInternal            = "INTERNAL_ERROR"
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// NewError creates a new application error
func NewError(statusCode int, code string, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
}

// NewInvalidInputError creates a 400 Bad Request error
func NewInvalidInputError(message string) *AppError {
	return NewError(http.StatusBadRequest, CodeInvalidInput, message)
}

// NewUnauthenticatedError creates a 401 error for a missing/malformed credential
func NewUnauthenticatedError(message string) *AppError {
	return NewError(http.StatusUnauthorized, CodeUnauthenticated, message)
}

// NewInvalidTokenError creates a 401 error for a failed signature or expiry check
func NewInvalidTokenError(message string) *AppError {
	return NewError(http.StatusUnauthorized, CodeInvalidToken, message)
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(message string) *AppError {
	return NewError(http.StatusNotFound, CodeNotFound, message)
}

// NewUpstreamUnavailableError creates a 429 for upstream quota/rate failures
func NewUpstreamUnavailableError(message string) *AppError {
	return NewError(http.StatusTooManyRequests, CodeUpstreamUnavailable, message)
}

// NewInternalServerError creates a 500 Internal Server Error
func NewInternalServerError(message string) *AppError {
	return NewError(http.StatusInternalServerError, CodeInternal, message)
}

// FromError converts a standard error to an AppError.
// If the error is already an AppError, it is returned as-is.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	return NewInternalServerError("An unexpected error occurred")
}

// GetStatusCode extracts the HTTP status code, 500 if not an AppError
func GetStatusCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
