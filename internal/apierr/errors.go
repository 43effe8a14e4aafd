package apierr

import (
	"encoding/json"
	"net/http"

	"github.com/onnwee/indevice-proxy/internal/logger"
)

// ErrorCode represents a structured error code
type ErrorCode string

const (
	// VALIDATION_ - Request validation errors
	ErrValidationMissingField ErrorCode = "VALIDATION_MISSING_FIELD"

	// FETCH_ - Upstream fetch errors
	ErrFetchFailed      ErrorCode = "FETCH_FAILED"
	ErrFetchUnavailable ErrorCode = "FETCH_UNAVAILABLE"

	// SYSTEM_ - System and server errors
	ErrSystemInternal ErrorCode = "SYSTEM_INTERNAL"

	// RESOURCE_ - Routing errors
	ErrResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"

	// RATE_LIMIT_ - Rate limiting errors
	ErrRateLimitGlobal ErrorCode = "RATE_LIMIT_GLOBAL"
	ErrRateLimitIP     ErrorCode = "RATE_LIMIT_IP"
)

// UsageHint is returned when a fetch request carries no target identifier.
const UsageHint = "Please provide ?TARGET_URL=<video_url>"

// Error is a structured API error. It serializes flat so that clients can
// always read the human-readable message from the "error" field.
type Error struct {
	Message   string    `json:"error"`
	Code      ErrorCode `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
	status    int
}

// New creates a new API error
func New(code ErrorCode, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		status:  status,
	}
}

// WithRequestID adds a request ID to the error
func (e *Error) WithRequestID(requestID string) *Error {
	e.RequestID = requestID
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Status returns the HTTP status code
func (e *Error) Status() int {
	return e.status
}

// WriteError writes a structured error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status())
	_ = json.NewEncoder(w).Encode(err)
}

// WriteErrorWithContext writes a structured error response with request ID from context
func WriteErrorWithContext(w http.ResponseWriter, r *http.Request, err *Error) {
	if reqID := logger.RequestID(r.Context()); reqID != "" {
		err = err.WithRequestID(reqID)
	}
	WriteError(w, err)
}

// MissingTarget is returned when no target identifier was supplied.
func MissingTarget() *Error {
	return New(ErrValidationMissingField, UsageHint, http.StatusBadRequest)
}

// FetchFailed wraps an upstream fetch failure; the message is surfaced verbatim.
func FetchFailed(message string) *Error {
	if message == "" {
		message = "Upstream fetch failed"
	}
	return New(ErrFetchFailed, message, http.StatusInternalServerError)
}

// FetchUnavailable is returned while the upstream circuit breaker is open.
func FetchUnavailable(message string) *Error {
	if message == "" {
		message = "Upstream temporarily unavailable"
	}
	return New(ErrFetchUnavailable, message, http.StatusServiceUnavailable)
}

// SystemInternal creates an internal server error
func SystemInternal(message string) *Error {
	if message == "" {
		message = "Internal server error"
	}
	return New(ErrSystemInternal, message, http.StatusInternalServerError)
}

// NotFound is returned for unknown routes.
func NotFound() *Error {
	return New(ErrResourceNotFound, "Not found", http.StatusNotFound)
}

// MethodNotAllowed is returned for known routes hit with an unsupported method.
func MethodNotAllowed() *Error {
	return New(ErrMethodNotAllowed, "Method not allowed", http.StatusMethodNotAllowed)
}

// RateLimitGlobal creates a global rate limit error
func RateLimitGlobal() *Error {
	return New(ErrRateLimitGlobal, "Rate limit exceeded - too many requests globally", http.StatusTooManyRequests)
}

// RateLimitIP creates an IP rate limit error
func RateLimitIP() *Error {
	return New(ErrRateLimitIP, "Rate limit exceeded - too many requests from your IP", http.StatusTooManyRequests)
}
