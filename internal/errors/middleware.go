package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/pscheid92/tickerpulse/internal/domain"
)

// HTTPErrorsTotal counts errors returned by handlers, by error type.
var HTTPErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_errors_total",
		Help: "Total HTTP errors by error type",
	},
	[]string{"type"},
)

var statusTypes = map[int]ErrorType{
	http.StatusBadRequest:          TypeValidation,
	http.StatusNotFound:            TypeNotFound,
	http.StatusTooManyRequests:     TypeRateLimited,
	http.StatusBadGateway:          TypeExternal,
	http.StatusServiceUnavailable:  TypeUnavailable,
	http.StatusInternalServerError: TypeInternal,
}

// Middleware renders handler errors as JSON. Provider failures go through
// FromProvider. Echo's own HTTP errors, such as those from the rate limiter
// or the router, are counted and handed back to Echo unchanged.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				HTTPErrorsTotal.WithLabelValues(string(WrapHTTPError(httpErr).Type)).Inc()
				return err
			}

			structured := classify(err)
			HTTPErrorsTotal.WithLabelValues(string(structured.Type)).Inc()
			logError(c, structured)

			if err := c.JSON(structured.HTTPStatus(), structured.ToResponse()); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

func classify(err error) *Error {
	var providerErr *domain.ProviderError
	if errors.As(err, &providerErr) {
		return FromProvider(err)
	}
	return AsStructuredError(err)
}

func logError(c echo.Context, err *Error) {
	req := c.Request()
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", req.URL.Path,
		"method", req.Method,
		"status", err.HTTPStatus(),
	}
	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}
	if clientID := c.Get("clientID"); clientID != nil {
		attrs = append(attrs, "client_id", clientID)
	}

	info := infoFor(err.Type)
	if err.Cause != nil && info.level >= slog.LevelError {
		attrs = append(attrs, "cause", err.Cause)
	}
	slog.Log(req.Context(), info.level, info.logMsg, attrs...)
}

// WrapHTTPError converts an Echo HTTPError to a structured error. Statuses
// without a dedicated type become internal errors.
func WrapHTTPError(httpErr *echo.HTTPError) *Error {
	message := "internal server error"
	if msg, ok := httpErr.Message.(string); ok {
		message = msg
	}

	errType, ok := statusTypes[httpErr.Code]
	if !ok {
		errType = TypeInternal
	}
	return newError(errType, message, httpErr.Internal)
}
