// Package errors maps failures from handlers and upstream providers onto
// typed HTTP errors with a JSON body and an error metric.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pscheid92/tickerpulse/internal/domain"
)

// ErrorType is the category of an HTTP error. It is used as the metric label
// and echoed in the response body.
type ErrorType string

const (
	TypeValidation  ErrorType = "validation"   // 400
	TypeNotFound    ErrorType = "not_found"    // 404
	TypeRateLimited ErrorType = "rate_limited" // 429
	TypeInternal    ErrorType = "internal"     // 500
	TypeExternal    ErrorType = "external"     // 502
	TypeUnavailable ErrorType = "unavailable"  // 503
)

type typeInfo struct {
	status int
	level  slog.Level
	logMsg string
}

var types = map[ErrorType]typeInfo{
	TypeValidation:  {http.StatusBadRequest, slog.LevelInfo, "Validation error"},
	TypeNotFound:    {http.StatusNotFound, slog.LevelInfo, "Not found"},
	TypeRateLimited: {http.StatusTooManyRequests, slog.LevelWarn, "Rate limited"},
	TypeInternal:    {http.StatusInternalServerError, slog.LevelError, "Internal error"},
	TypeExternal:    {http.StatusBadGateway, slog.LevelError, "Upstream error"},
	TypeUnavailable: {http.StatusServiceUnavailable, slog.LevelWarn, "Service unavailable"},
}

var unknownType = typeInfo{http.StatusInternalServerError, slog.LevelError, "Unknown error type"}

func infoFor(t ErrorType) typeInfo {
	if info, ok := types[t]; ok {
		return info
	}
	return unknownType
}

// Error is a structured HTTP error.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

func newError(t ErrorType, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause, Context: make(map[string]any)}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the status code for the error type. Unknown types map to 500.
func (e *Error) HTTPStatus() int {
	return infoFor(e.Type).status
}

// WithContext adds a field to the response context (chainable).
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func ValidationError(message string) *Error {
	return newError(TypeValidation, message, nil)
}

func NotFoundError(message string) *Error {
	return newError(TypeNotFound, message, nil)
}

func InternalError(message string, cause error) *Error {
	return newError(TypeInternal, message, cause)
}

func ExternalError(message string, cause error) *Error {
	return newError(TypeExternal, message, cause)
}

func RateLimitedError(message string, cause error) *Error {
	return newError(TypeRateLimited, message, cause)
}

// UnavailableError reports a dependency that is not configured or not ready.
func UnavailableError(message string, cause error) *Error {
	return newError(TypeUnavailable, message, cause)
}

// FromProvider maps a provider failure onto an HTTP error.
// InvalidSymbol becomes not-found, RateLimited becomes 429 and every other
// kind is reported as an upstream failure.
func FromProvider(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	var providerErr *domain.ProviderError
	if !errors.As(err, &providerErr) {
		return ExternalError("upstream request failed", err)
	}

	var result *Error
	switch providerErr.Kind {
	case domain.KindInvalidSymbol:
		result = newError(TypeNotFound, "unknown symbol", err)
	case domain.KindRateLimited:
		result = RateLimitedError("upstream rate limit reached, retry later", err)
	default:
		result = ExternalError("upstream request failed", err)
	}

	result.WithContext("provider", providerErr.Provider).WithContext("kind", string(providerErr.Kind))
	if providerErr.Symbol != "" {
		result.WithContext("symbol", string(providerErr.Symbol))
	}
	return result
}

// AsStructuredError returns err as an *Error. Anything that is not already
// structured becomes an internal error.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}
	return InternalError("internal server error", err)
}

// ErrorResponse is the JSON body sent to clients.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Type    ErrorType      `json:"type"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error:   e.Message,
		Type:    e.Type,
		Context: e.Context,
	}
}
