package errors

import (
	"fmt"
	"net/http"
)

// Error codes returned in the "code" field of every error body.
// Messages are English; clients key on the code.

// Request error codes.
const (
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeMalformedRequest     = "MALFORMED_REQUEST"
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
)

// Routing error codes.
const (
	CodeRouteNotFound    = "ROUTE_NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// CodeInternal is reported for every unexpected server-side failure.
const CodeInternal = "INTERNAL_ERROR"

// Field error codes carried in FieldError.Code.
const (
	FieldRequired      = "REQUIRED"
	FieldNull          = "NULL"
	FieldBlank         = "BLANK"
	FieldInvalid       = "INVALID"
	FieldMaxLength     = "MAX_LENGTH"
	FieldIncorrectType = "INCORRECT_TYPE"
	FieldDoesNotExist  = "DOES_NOT_EXIST"
)

// NonFieldErrors is the field name used for errors that concern the payload as a whole.
const NonFieldErrors = "non_field_errors"

// Convenience constructors using predefined codes.

// ErrValidationFailed creates a 400 error carrying per-field details.
func ErrValidationFailed(fieldErrors []FieldError) *AppError {
	return BadRequest(CodeValidationFailed, "request validation failed").WithFieldErrors(fieldErrors)
}

// ErrMalformedRequestf creates a 400 error for bodies that cannot be parsed.
// The formatted message names the failing format, e.g. "JSON parse error - ...".
func ErrMalformedRequestf(format string, args ...any) *AppError {
	return BadRequest(CodeMalformedRequest, fmt.Sprintf(format, args...))
}

// ErrUnsupportedMediaType creates a 415 error for request bodies in an unknown format.
func ErrUnsupportedMediaType(contentType string) *AppError {
	return New(
		CodeUnsupportedMediaType,
		"unsupported media type \""+contentType+"\" in request",
		http.StatusUnsupportedMediaType,
	)
}

// ErrRouteNotFound creates the 404 returned for unknown paths.
func ErrRouteNotFound(path string) *AppError {
	return NotFound(CodeRouteNotFound, "route not found").
		WithParams(map[string]interface{}{"path": path})
}

// ErrMethodNotAllowed creates the 405 returned for unsupported methods on a known path.
func ErrMethodNotAllowed(method string) *AppError {
	return New(CodeMethodNotAllowed, "method \""+method+"\" not allowed", http.StatusMethodNotAllowed)
}
