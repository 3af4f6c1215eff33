package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// RPCCode returns the JSON-RPC error code for this error.
func (e *AppError) RPCCode() int { return RPCCodeFor(e.Code) }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Protocol ---

// ParseError creates an AppError for a frame that is not valid JSON.
func ParseError(cause error) *AppError {
	return &AppError{
		Code: ErrCodeParseError, Message: "Parse error: request is not valid JSON.",
		HTTPStatus: http.StatusBadRequest, Cause: cause,
	}
}

// InvalidRequest creates an AppError for a JSON value that is not a valid request envelope.
func InvalidRequest(reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidRequest, Message: fmt.Sprintf("Invalid request: %s", reason),
		HTTPStatus: http.StatusBadRequest,
	}
}

// MethodNotFound creates an AppError for an unknown method or tool name.
func MethodNotFound(kind, name string) *AppError {
	return &AppError{
		Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("Unknown %s: %s", kind, name),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{kind: name},
	}
}

// SessionNotFound creates an AppError for an unknown, closed or expired session.
func SessionNotFound(id string) *AppError {
	return &AppError{
		Code: ErrCodeSessionNotFound, Message: "Session not found or expired.",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"session_id": id},
	}
}

// Cancelled creates an AppError for a request cancelled by the caller.
func Cancelled(reason string) *AppError {
	msg := "Request cancelled."
	if reason != "" {
		msg = fmt.Sprintf("Request cancelled: %s", reason)
	}
	return &AppError{Code: ErrCodeCancelled, Message: msg, HTTPStatus: 499}
}

// --- Validation ---

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"field": field},
	}
}

// --- Resources and collaborators ---

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Details: details,
	}
}

// DependencyMissing creates an AppError for an external tool or model that is not installed.
func DependencyMissing(name, hint string) *AppError {
	msg := fmt.Sprintf("%s is not installed.", name)
	if hint != "" {
		msg = fmt.Sprintf("%s is not installed. %s", name, hint)
	}
	return &AppError{
		Code: ErrCodeDependencyMissing, Message: msg,
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"dependency": name},
	}
}

// Timeout creates a new AppError for an operation that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("%s took too long.", operation),
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// ServiceUnavailable creates a new AppError for a service that is temporarily unavailable.
func ServiceUnavailable(service string) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// ExternalServiceError creates a new AppError for an error from an external service.
func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeExternalService, Message: fmt.Sprintf("The %s service encountered an error.", service),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"service": service}, Cause: cause,
	}
}

// --- Authentication ---

// Unauthorized creates a new AppError for unauthorized access.
func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "Authentication required."
	}
	return &AppError{
		Code: ErrCodeUnauthorized, Message: reason,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// TokenExpired creates a new AppError for an expired bearer token.
func TokenExpired() *AppError {
	return &AppError{
		Code: ErrCodeTokenExpired, Message: "Bearer token has expired.",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// InvalidToken creates a new AppError for a malformed or unverifiable bearer token.
func InvalidToken() *AppError {
	return &AppError{
		Code: ErrCodeInvalidToken, Message: "Invalid bearer token.",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a new AppError for a caller whose token does not grant
// permission.
func Forbidden(permission string) *AppError {
	return &AppError{
		Code: ErrCodeForbidden, Message: fmt.Sprintf("Token scope does not grant %s.", permission),
		HTTPStatus: http.StatusForbidden,
		Details:    map[string]any{"permission": permission},
	}
}

// Internal creates a new AppError for an internal server error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}
