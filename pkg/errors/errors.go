package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeDirectory   ErrorType = "directory"
	ErrorTypeWrite       ErrorType = "write"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a typed acquisition error
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error wrapping cause
func New(errorType ErrorType, message string, cause error) *Error {
	return &Error{Type: errorType, Message: message, Err: cause}
}

// Directory creates a directory provisioning error for path
func Directory(path string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeDirectory,
		Message: fmt.Sprintf("cannot create directory %s: %v", path, cause),
		Err:     cause,
	}
}

// Write creates a local write error for path
func Write(path string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeWrite,
		Message: fmt.Sprintf("cannot write %s: %v", path, cause),
		Err:     cause,
	}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err is a typed error of the given type
func Is(err error, errorType ErrorType) bool {
	var typed *Error
	return errors.As(err, &typed) && typed.Type == errorType
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 408, 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
