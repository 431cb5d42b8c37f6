// Package errors classifies failures at the service boundaries. The code
// decides both the HTTP status and whether the retry policy tries again.
package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	// Language model and Kakao callback outcomes.
	ErrCodeUpstreamTransient ErrorCode = "UPSTREAM_TRANSIENT"
	ErrCodeUpstreamMalformed ErrorCode = "UPSTREAM_MALFORMED"
	ErrCodeUpstreamRejected  ErrorCode = "UPSTREAM_REJECTED"

	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeDatabase         ErrorCode = "DATABASE_ERROR"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// AppError carries a code and a client-safe message. The cause is kept for
// logs and errors.Is but never serialized.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

func (e *AppError) Error() string {
	if e.cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
}

func (e *AppError) Unwrap() error { return e.cause }

func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, cause: cause}
}

func Unauthorized(message string) *AppError    { return New(ErrCodeUnauthorized, message) }
func ValidationError(message string) *AppError { return New(ErrCodeValidation, message) }
func Internal(message string) *AppError        { return New(ErrCodeInternal, message) }

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, field+" is required").
		WithDetails(map[string]string{"field": field})
}

// UpstreamTransient marks a failure worth retrying: 5xx, 429, timeouts and
// connection errors.
func UpstreamTransient(service string, cause error) *AppError {
	return Wrap(ErrCodeUpstreamTransient, "Transient failure from "+service, cause)
}

func UpstreamMalformed(service, reason string) *AppError {
	return New(ErrCodeUpstreamMalformed, fmt.Sprintf("Malformed response from %s: %s", service, reason))
}

func UpstreamRejected(service string, status int) *AppError {
	return New(ErrCodeUpstreamRejected, fmt.Sprintf("%s rejected request with status %d", service, status))
}

func StoreUnavailable(cause error) *AppError {
	return Wrap(ErrCodeStoreUnavailable, "Session store unavailable", cause)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// GetCode falls back to ErrCodeInternal for unclassified errors.
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

func IsTransient(err error) bool {
	return err != nil && GetCode(err) == ErrCodeUpstreamTransient
}
