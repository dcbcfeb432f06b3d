// Package errors provides the structured error type shared by the storage,
// transfer and endpoint layers of the catalog service.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured application error with HTTP status and error code.
type AppError struct {
	// Code is a machine-readable error code (e.g., "VALIDATION_FAILED").
	Code string `json:"code"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// HTTPStatus is the corresponding HTTP status code.
	HTTPStatus int `json:"-"`

	// Params carries structured context for the log line; it is not rendered to clients.
	Params map[string]interface{} `json:"params,omitempty"`

	// FieldErrors carries field-level validation details, one entry per failed check.
	FieldErrors []FieldError `json:"field_errors,omitempty"`

	// Err is the wrapped underlying error.
	Err error `json:"-"`
}

// FieldError describes a field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an existing error into an AppError.
func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// WithParams attaches structured parameters to the error.
func (e *AppError) WithParams(params map[string]interface{}) *AppError {
	if e == nil || len(params) == 0 {
		return e
	}
	e.Params = params
	return e
}

// WithFieldErrors attaches field-level errors to the AppError.
func (e *AppError) WithFieldErrors(fieldErrors []FieldError) *AppError {
	if e == nil || len(fieldErrors) == 0 {
		return e
	}
	e.FieldErrors = fieldErrors
	return e
}

// Common error constructors.

// NotFound creates a 404 error.
func NotFound(code, message string) *AppError {
	return New(code, message, http.StatusNotFound)
}

// BadRequest creates a 400 error.
func BadRequest(code, message string) *AppError {
	return New(code, message, http.StatusBadRequest)
}

// Fields returns the names of all fields that carry an error, in report order.
func (e *AppError) Fields() []string {
	if e == nil {
		return nil
	}
	names := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		names = append(names, fe.Field)
	}
	return names
}

// IsAppError checks if an error is an AppError and returns it.
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
