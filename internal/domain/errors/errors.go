package errors

import (
	"errors"
	"fmt"
)

// ErrorType partitions failures by how callers must react to them.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation" // bad input, never retried
	ErrorTypeData       ErrorType = "data"       // unparseable item, skipped by callers
	ErrorTypeExternal   ErrorType = "external"   // collaborator failure, transient
	ErrorTypeRateLimit  ErrorType = "rate_limit" // collaborator throttling, retryable
	ErrorTypePermanent  ErrorType = "permanent"  // collaborator refusal (404, plan limits)
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict" // duplicate key, idempotent success for ledger writes
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError is a structured application error.
type AppError struct {
	Type      ErrorType
	Code      string
	Message   string
	Cause     error
	Retryable bool
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

func NewDataError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeData,
		Code:    code,
		Message: message,
	}
}

func NewExternalError(code, message string) *AppError {
	return &AppError{
		Type:      ErrorTypeExternal,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

func NewRateLimitError(message string) *AppError {
	return &AppError{
		Type:      ErrorTypeRateLimit,
		Code:      "RATE_LIMITED",
		Message:   message,
		Retryable: true,
	}
}

func NewPermanentError(code, message string) *AppError {
	return &AppError{
		Type:    ErrorTypePermanent,
		Code:    code,
		Message: message,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Code:    "RESOURCE_NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
}

// Wrap wraps an error with a message using fmt.Errorf with %w.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsType checks if an error is of a specific type.
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsRetryable reports whether err (anywhere in its chain) is a transient
// failure worth retrying at the client layer.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// IsRateLimit reports whether err is a collaborator throttling signal.
func IsRateLimit(err error) bool {
	return IsType(err, ErrorTypeRateLimit)
}

// IsNotFound reports whether err is a missing-resource condition.
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsConflict reports whether err is a duplicate-key condition. Ledger callers
// treat these as idempotent success.
func IsConflict(err error) bool {
	return IsType(err, ErrorTypeConflict)
}
