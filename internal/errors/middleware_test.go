package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runMiddleware(t *testing.T, handlerErr error) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("clientID", uuid.New())

	handler := Middleware()(func(c echo.Context) error {
		return handlerErr
	})

	require.NoError(t, handler(c))
	return rec
}

func TestMiddlewareWithStructuredError(t *testing.T) {
	HTTPErrorsTotal.Reset()

	rec := runMiddleware(t, ValidationError("invalid input"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid input", resp.Error)
	assert.Equal(t, TypeValidation, resp.Type)
	assert.Equal(t, 1.0, testutil.ToFloat64(HTTPErrorsTotal.WithLabelValues("validation")))
}

func TestMiddlewareWithStandardError(t *testing.T) {
	HTTPErrorsTotal.Reset()

	rec := runMiddleware(t, fmt.Errorf("standard error"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "internal server error", resp.Error)
	assert.Equal(t, 1.0, testutil.ToFloat64(HTTPErrorsTotal.WithLabelValues("internal")))
}

func TestMiddlewareWithProviderError(t *testing.T) {
	HTTPErrorsTotal.Reset()

	cause := domain.NewProviderError(domain.KindRateLimited, "finnhub", "", nil)
	rec := runMiddleware(t, fmt.Errorf("lookup symbols: %w", cause))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, TypeRateLimited, resp.Type)
	assert.Equal(t, "finnhub", resp.Context["provider"])
	assert.Equal(t, 1.0, testutil.ToFloat64(HTTPErrorsTotal.WithLabelValues("rate_limited")))
}

func TestMiddlewareWithNoError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorsTotal.Reset()

	handler := Middleware()(func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", rec.Body.String())
	assert.Equal(t, 0.0, testutil.ToFloat64(HTTPErrorsTotal.WithLabelValues("validation")))
}

func TestMiddlewarePassesEchoHTTPError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorsTotal.Reset()

	httpErr := echo.NewHTTPError(http.StatusTooManyRequests, "too many connections")
	handler := Middleware()(func(c echo.Context) error {
		return httpErr
	})

	err := handler(c)
	assert.Equal(t, httpErr, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(HTTPErrorsTotal.WithLabelValues("rate_limited")))
}

func TestWrapHTTPError(t *testing.T) {
	tests := []struct {
		name     string
		httpErr  *echo.HTTPError
		wantType ErrorType
	}{
		{"bad_request", echo.NewHTTPError(http.StatusBadRequest, "bad request"), TypeValidation},
		{"not_found", echo.NewHTTPError(http.StatusNotFound, "not found"), TypeNotFound},
		{"too_many_requests", echo.NewHTTPError(http.StatusTooManyRequests, "slow"), TypeRateLimited},
		{"bad_gateway", echo.NewHTTPError(http.StatusBadGateway, "bad gateway"), TypeExternal},
		{"service_unavailable", echo.NewHTTPError(http.StatusServiceUnavailable, "unavailable"), TypeUnavailable},
		{"internal_server_error", echo.NewHTTPError(http.StatusInternalServerError, "internal"), TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapHTTPError(tt.httpErr)
			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, tt.httpErr.Code, err.HTTPStatus())
		})
	}
}

func TestWrapHTTPErrorWithInternalCause(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	httpErr := echo.NewHTTPError(http.StatusInternalServerError, "wrapped")
	httpErr.Internal = cause

	err := WrapHTTPError(httpErr)

	assert.Equal(t, cause, err.Cause)
}

func TestWrapHTTPErrorWithNonStringMessage(t *testing.T) {
	err := WrapHTTPError(echo.NewHTTPError(http.StatusBadRequest, 12345))

	assert.Equal(t, "internal server error", err.Message)
	assert.Equal(t, TypeValidation, err.Type)
}
