package errors

import (
	"errors"
	"fmt"
)

// Error is the structured error type for semdex.
// It provides rich context for error handling, logging, and user presentation.
type Error struct {
	// Code is the unique error code (e.g., "ERR_302_RATE_LIMITED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Provider, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with Error.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an Error from an existing error.
// The error's message becomes the Error message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}

// TransportError creates a transient network error. Retryable.
func TransportError(message string, cause error) *Error {
	return New(ErrCodeTransport, message, cause)
}

// RateLimitedError creates a provider-quota error. Retryable with backoff.
func RateLimitedError(message string, cause error) *Error {
	return New(ErrCodeRateLimited, message, cause)
}

// UnauthorizedError creates a credential-level error. Never retried.
func UnauthorizedError(message string, cause error) *Error {
	return New(ErrCodeUnauthorized, message, cause)
}

// BusyError creates the typed rejection for concurrent index requests.
func BusyError() *Error {
	return New(ErrCodeBusy, "an indexing operation is already in progress", nil)
}

// IndexingError creates the aggregated failure for an indexing run.
func IndexingError(message string, cause error) *Error {
	return New(ErrCodeIndexing, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error (or any error in its chain) is a retryable Error.
func IsRetryable(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// IsBusy reports whether err is the typed busy rejection.
func IsBusy(err error) bool {
	return HasCode(err, ErrCodeBusy)
}

// HasCode reports whether err (or its chain) carries the given code.
func HasCode(err error, code string) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// GetCode extracts the error code from an Error in the chain.
// Returns empty string if none is present.
func GetCode(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category from an Error in the chain.
// Returns empty string if none is present.
func GetCategory(err error) Category {
	var se *Error
	if errors.As(err, &se) {
		return se.Category
	}
	return ""
}
