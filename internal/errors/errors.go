// Package errors defines the structured error taxonomy shared across the
// slidesmith client: transport, protocol, application, and lifecycle failures,
// plus the usual not-found/validation categories for local argument errors.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeTransport indicates the stream connection dropped or was refused.
	// Transport errors are recovered automatically by the connection manager
	// and are never surfaced as task failures.
	ErrCodeTransport ErrorCode = "transport"
	// ErrCodeProtocol indicates a malformed or unparseable stream frame.
	// Protocol errors are logged and dropped without closing the connection.
	ErrCodeProtocol ErrorCode = "protocol"
	// ErrCodeApplication indicates the server reported a task or sample
	// failure via an error event. Terminal for that task/sample.
	ErrCodeApplication ErrorCode = "application"
	// ErrCodeLifecycle indicates a non-2xx response from a lifecycle API
	// call (create/list/rename/delete/upload/download).
	ErrCodeLifecycle ErrorCode = "lifecycle"
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// StatusCode is the HTTP status of a failed lifecycle call (optional)
	StatusCode int
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Transport creates a new Transport error wrapping the connection failure.
func Transport(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeTransport,
		Message: message,
		Cause:   err,
	}
}

// Protocol creates a new Protocol error wrapping the decode failure.
func Protocol(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeProtocol,
		Message: message,
		Cause:   err,
	}
}

// Application creates a new Application error carrying the server-reported reason.
func Application(message string) *AppError {
	return &AppError{
		Code:    ErrCodeApplication,
		Message: message,
	}
}

// Lifecycle creates a new Lifecycle error for a failed API call.
func Lifecycle(statusCode int, message string) *AppError {
	return &AppError{
		Code:       ErrCodeLifecycle,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: message,
	}
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsTransport checks if an error is a Transport error.
func IsTransport(err error) bool {
	return isCode(err, ErrCodeTransport)
}

// IsProtocol checks if an error is a Protocol error.
func IsProtocol(err error) bool {
	return isCode(err, ErrCodeProtocol)
}

// IsApplication checks if an error is an Application error.
func IsApplication(err error) bool {
	return isCode(err, ErrCodeApplication)
}

// IsLifecycle checks if an error is a Lifecycle error.
func IsLifecycle(err error) bool {
	return isCode(err, ErrCodeLifecycle)
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// StatusCode extracts the HTTP status from a lifecycle error, or 0.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 0
}
