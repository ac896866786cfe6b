package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/tickerpulse/internal/platform/version"
)

const readinessProbeTimeout = 5 * time.Second

// HealthCheck is a named readiness check.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type livenessResponse struct {
	Status  string  `json:"status"`
	Uptime  float64 `json:"uptime"`
	Clients int     `json:"clients"`
}

type readinessResponse struct {
	Status      string `json:"status"`
	FailedCheck string `json:"failed_check,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleLiveness(c echo.Context) error {
	return writeJSON(c, http.StatusOK, livenessResponse{
		Status:  "ok",
		Uptime:  s.clock.Since(s.startTime).Seconds(),
		Clients: s.hub.ClientCount(),
	})
}

// handleReadiness runs the checks in order and reports the first failure.
func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessProbeTimeout)
	defer cancel()

	for _, hc := range s.healthChecks {
		if err := hc.Check(ctx); err != nil {
			return writeJSON(c, http.StatusServiceUnavailable, readinessResponse{
				Status:      "unhealthy",
				FailedCheck: hc.Name,
				Error:       err.Error(),
			})
		}
	}
	return writeJSON(c, http.StatusOK, readinessResponse{Status: "ready"})
}

func (s *Server) handleVersion(c echo.Context) error {
	return writeJSON(c, http.StatusOK, version.Get())
}

func writeJSON(c echo.Context, status int, body any) error {
	if err := c.JSON(status, body); err != nil {
		return fmt.Errorf("failed to write %s response: %w", c.Path(), err)
	}
	return nil
}
