package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/tickerpulse/internal/domain"
)

// FeedHub is the part of the broadcast hub the WebSocket handler drives.
type FeedHub interface {
	Register(clientID uuid.UUID, conn *websocket.Conn) error
	Unregister(clientID uuid.UUID)
	Retain(clientID uuid.UUID, symbol domain.Symbol)
	ClientCount() int
}

// Subscriber applies a client's subscribe request.
type Subscriber interface {
	Subscribe(clientID uuid.UUID, symbol domain.Symbol) (domain.Symbol, error)
}

// Config holds the HTTP-facing settings.
type Config struct {
	Port          string
	AppEnv        string
	DefaultSymbol domain.Symbol

	// AllowedOrigins restricts browser origins on /ws. Empty allows any.
	AllowedOrigins []string
	Limits         LimitsConfig

	APIRate  float64
	APIBurst int
}

type Server struct {
	echo   *echo.Echo
	config Config
	clock  clockwork.Clock

	hub       FeedHub
	registry  Subscriber
	directory domain.Directory
	limits    *ConnectionLimits
	upgrader  websocket.Upgrader
	newID     func() uuid.UUID

	healthChecks []HealthCheck
	startTime    time.Time
}

// NewServer wires routes. directory may be nil, in which case the REST
// lookups answer 503.
func NewServer(cfg Config, clock clockwork.Clock, hub FeedHub, registry Subscriber, directory domain.Directory, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if cfg.DefaultSymbol == "" {
		cfg.DefaultSymbol = domain.DefaultSymbol
	}

	srv := &Server{
		echo:         e,
		config:       cfg,
		clock:        clock,
		hub:          hub,
		registry:     registry,
		directory:    directory,
		limits:       NewConnectionLimits(clock, cfg.Limits),
		upgrader:     newUpgrader(cfg),
		newID:        uuid.New,
		healthChecks: healthChecks,
		startTime:    clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests. Hijacked feed connections end when the
// hub closes them.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Handler exposes the router for httptest.
func (s *Server) Handler() *echo.Echo {
	return s.echo
}
