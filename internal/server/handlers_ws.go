package server

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/tickerpulse/internal/domain"
	apperrors "github.com/pscheid92/tickerpulse/internal/errors"
	"github.com/pscheid92/tickerpulse/internal/metrics"
	"github.com/pscheid92/tickerpulse/internal/wire"
)

func newUpgrader(cfg Config) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     newCheckOrigin(cfg.AllowedOrigins, cfg.AppEnv == "development"),
	}
}

// handleFeed serves GET /ws. The client picks its symbol with a subscribe
// message.
func (s *Server) handleFeed(c echo.Context) error {
	return s.serveFeed(c, "")
}

// handleLegacyFeed serves GET /ws/:symbol, subscribing on open.
func (s *Server) handleLegacyFeed(c echo.Context) error {
	symbol := s.config.DefaultSymbol
	if raw := c.Param("symbol"); raw != "" {
		parsed, err := domain.ParseSymbol(raw)
		if err != nil {
			return apperrors.ValidationError("invalid symbol").WithContext("symbol", raw)
		}
		symbol = parsed
	}
	return s.serveFeed(c, symbol)
}

func (s *Server) serveFeed(c echo.Context, initial domain.Symbol) error {
	ip := c.RealIP()
	if ok, reason := s.limits.Acquire(ip); !ok {
		metrics.WebSocketConnectionsTotal.WithLabelValues(string(reason)).Inc()
		if reason == LimitReasonGlobal {
			return apperrors.UnavailableError("connection limit reached", nil)
		}
		return apperrors.RateLimitedError("too many connections", nil).WithContext("reason", string(reason))
	}
	defer s.limits.Release(ip)

	ctx := c.Request().Context()

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		metrics.WebSocketConnectionsTotal.WithLabelValues("upgrade_failed").Inc()
		slog.InfoContext(ctx, "WebSocket upgrade failed", "error", err)
		return nil
	}
	conn.SetReadLimit(wire.MaxInboundSize)

	clientID := s.newID()
	if err := s.hub.Register(clientID, conn); err != nil {
		metrics.WebSocketConnectionsTotal.WithLabelValues("register_failed").Inc()
		slog.WarnContext(ctx, "Failed to register client", "client_id", clientID, "error", err)
		_ = conn.Close()
		return nil
	}
	metrics.WebSocketConnectionsTotal.WithLabelValues("accepted").Inc()
	slog.InfoContext(ctx, "Client connected", "client_id", clientID, "remote_ip", ip)

	if initial != "" {
		s.subscribe(ctx, clientID, initial)
	}

	s.readLoop(ctx, clientID, conn)

	s.hub.Unregister(clientID)
	slog.InfoContext(ctx, "Client disconnected", "client_id", clientID)
	return nil
}

// readLoop blocks until the connection fails or is closed by the hub.
// Malformed messages are counted and skipped.
func (s *Server) readLoop(ctx context.Context, clientID uuid.UUID, conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				slog.DebugContext(ctx, "WebSocket read ended", "client_id", clientID, "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			metrics.WebSocketInboundInvalidTotal.WithLabelValues("binary").Inc()
			continue
		}

		symbol, err := wire.DecodeSubscribe(data)
		if err != nil {
			reason := wire.Reason(err)
			metrics.WebSocketInboundInvalidTotal.WithLabelValues(reason).Inc()
			slog.InfoContext(ctx, "Rejected client message", "client_id", clientID, "reason", reason, "error", err)
			continue
		}
		s.subscribe(ctx, clientID, symbol)
	}
}

func (s *Server) subscribe(ctx context.Context, clientID uuid.UUID, symbol domain.Symbol) {
	previous, err := s.registry.Subscribe(clientID, symbol)
	if err != nil {
		slog.WarnContext(ctx, "Subscribe failed", "client_id", clientID, "symbol", symbol, "error", err)
		return
	}
	if previous != symbol {
		s.hub.Retain(clientID, symbol)
	}
	slog.InfoContext(ctx, "Client subscribed", "client_id", clientID, "symbol", symbol, "previous", previous)
}
