// Package errors provides the structured error shape shared by the client.
// Every failure that reaches a caller, whether raised locally or received from
// the remote API, is an *AppError with a human readable Message.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents an error code
type ErrorCode string

const (
	// Local errors
	CodeInvalidArgument  ErrorCode = "INVALID_ARGUMENT"
	CodeConfiguration    ErrorCode = "CONFIGURATION"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeStorage          ErrorCode = "STORAGE_ERROR"

	// Transport errors (no response was received)
	CodeTimeout   ErrorCode = "TIMEOUT"
	CodeNetwork   ErrorCode = "NETWORK"
	CodeCancelled ErrorCode = "CANCELLED"

	// Remote API errors (4xx/5xx)
	CodeBadRequest         ErrorCode = "BAD_REQUEST"
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeConflict           ErrorCode = "CONFLICT"
	CodeTooManyRequests    ErrorCode = "TOO_MANY_REQUESTS"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	CodeAPIError           ErrorCode = "API_ERROR"
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// AppError is the normalized error value. StatusCode is zero when the failure
// never produced an HTTP response. Metadata carries the remaining top-level
// fields of the original error body.
type AppError struct {
	Code       ErrorCode      `json:"-"`
	Message    string         `json:"message"`
	Details    string         `json:"-"`
	StatusCode int            `json:"statusCode,omitempty"`
	Metadata   map[string]any `json:"-"`
	Cause      error          `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Details)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// HasStatus reports whether the error came with an HTTP status code.
func (e *AppError) HasStatus() bool {
	return e.StatusCode > 0
}

// MarshalJSON flattens the error to {message, statusCode?, ...metadata}.
func (e *AppError) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Metadata)+2)
	for k, v := range e.Metadata {
		out[k] = v
	}
	out["message"] = e.Message
	if e.StatusCode > 0 {
		out["statusCode"] = e.StatusCode
	} else {
		delete(out, "statusCode")
	}
	return json.Marshal(out)
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value any) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithStatus sets the HTTP status code
func (e *AppError) WithStatus(status int) *AppError {
	e.StatusCode = status
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewInvalidArgumentError is raised synchronously for bad caller input.
func NewInvalidArgumentError(message string) *AppError {
	return NewAppError(CodeInvalidArgument, message, "")
}

// NewConfigurationError reports a deployment misconfiguration.
func NewConfigurationError(message string) *AppError {
	return NewAppError(CodeConfiguration, message, "")
}

// NewValidationError creates a validation error
func NewValidationError(details string) *AppError {
	return NewAppError(CodeValidationFailed, "Validation failed", details)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	message := "Resource not found"
	if resource != "" {
		message = fmt.Sprintf("%s not found", resource)
	}
	return NewAppError(CodeNotFound, message, "").WithStatus(http.StatusNotFound)
}

// NewStorageError wraps a durable storage failure.
func NewStorageError(operation string, cause error) *AppError {
	return NewAppError(
		CodeStorage,
		"Storage operation failed",
		fmt.Sprintf("failed to %s", operation),
	).WithCause(cause)
}

// CodeForStatus maps an HTTP status to an error code.
func CodeForStatus(status int) ErrorCode {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return CodeBadRequest
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusForbidden:
		return CodeForbidden
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusConflict:
		return CodeConflict
	case status == http.StatusTooManyRequests:
		return CodeTooManyRequests
	case status == http.StatusServiceUnavailable:
		return CodeServiceUnavailable
	case status >= 500:
		return CodeInternal
	default:
		return CodeAPIError
	}
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is checks if an error is of a specific error code
func Is(err error, code ErrorCode) bool {
	if appErr, ok := As(err); ok {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

// Message returns the human readable message for any error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}

// Wrap wraps an error as an internal error if it's not already an AppError
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	return NewAppError(CodeInternal, message, "").WithCause(err)
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	if len(v) == 1 {
		return v[0].Message
	}
	msg := v[0].Message
	for _, err := range v[1:] {
		msg += "; " + err.Message
	}
	return msg
}

// NewValidationErrors creates validation errors from validator errors
func NewValidationErrors(errs []ValidationError) *AppError {
	validationErrs := ValidationErrors(errs)
	return NewAppError(
		CodeValidationFailed,
		validationErrs.Error(),
		"",
	).WithMetadata("validation_errors", validationErrs)
}
