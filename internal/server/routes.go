package server

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	apperrors "github.com/pscheid92/tickerpulse/internal/errors"
	"github.com/pscheid92/tickerpulse/internal/platform/correlation"
	"golang.org/x/time/rate"
)

const apiLimiterExpiry = 5 * time.Minute

func (s *Server) registerRoutes() {
	s.echo.Use(requestLogger())
	s.echo.Use(middleware.Recover())
	s.echo.Use(correlationMiddleware)
	s.echo.Use(apperrors.Middleware())
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	s.registerHealthRoutes()
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Feed
	s.echo.GET("/ws", s.handleFeed)
	s.echo.GET("/ws/", s.handleLegacyFeed)
	s.echo.GET("/ws/:symbol", s.handleLegacyFeed)

	// Lookups
	api := s.echo.Group("/api", apiRateLimiter(s.config.APIRate, s.config.APIBurst))
	api.GET("/symbol-lookup/:query", s.handleSymbolLookup)
	api.GET("/company-peers/:symbol", s.handleCompanyPeers)
}

func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := correlation.WithID(c.Request().Context(), correlation.NewID())
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// requestLogger logs one line per request. Server errors log at error level,
// client errors at warn. Probes and scrapes are skipped.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		Skipper: func(c echo.Context) bool {
			switch c.Path() {
			case "/metrics", "/health/live", "/health/ready":
				return true
			}
			return false
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			switch {
			case v.Status >= 500:
				level = slog.LevelError
			case v.Status >= 400:
				level = slog.LevelWarn
			}

			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.Log(c.Request().Context(), level, "Request", attrs...)
			return nil
		},
	})
}

// apiRateLimiter throttles the REST lookups per client address. A zero rate
// disables it.
func apiRateLimiter(ratePerSecond float64, burst int) echo.MiddlewareFunc {
	if ratePerSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(ratePerSecond),
		Burst:     burst,
		ExpiresIn: apiLimiterExpiry,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		// The limiter reports denials through c.Error, outside the error
		// middleware, so the response is written here.
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			denied := apperrors.RateLimitedError("lookup rate limit exceeded", err).WithContext("remote_ip", identifier)
			apperrors.HTTPErrorsTotal.WithLabelValues(string(denied.Type)).Inc()
			return c.JSON(denied.HTTPStatus(), denied.ToResponse())
		},
	})
}
