// Package client is a reconnecting feed consumer for the /ws endpoint.
//
// The connection lifecycle is an explicit state machine:
//
//	Connecting -> Open -> Reconnecting -> Open ... -> Closed
//
// Every reconnect is spaced by exponential backoff. Failed dials and
// connections that drop before delivering a message count as consecutive
// failures, bounded by Config.MaxRetries. Close cancels any pending dial or
// wait.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/platform/retry"
	"github.com/pscheid92/tickerpulse/internal/wire"
)

type State int

const (
	StateConnecting State = iota
	StateOpen
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrClosed           = errors.New("client: closed")
	ErrRetriesExhausted = errors.New("client: reconnect attempts exhausted")
	ErrAlreadyRunning   = errors.New("client: already running")
)

const (
	writeTimeout = 5 * time.Second
	closeTimeout = time.Second
)

// Dialer is satisfied by *websocket.Dialer.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

type Config struct {
	URL    string
	Symbol domain.Symbol

	// MaxRetries bounds consecutive failed attempts. Zero means no retries.
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// ReadTimeout closes a silent connection. The server pings every 30s.
	ReadTimeout time.Duration
}

func DefaultConfig(url string, symbol domain.Symbol) Config {
	return Config{
		URL:          url,
		Symbol:       symbol,
		MaxRetries:   10,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		ReadTimeout:  90 * time.Second,
	}
}

// Message is one decoded server envelope. Data is left raw for the caller.
type Message struct {
	Type   wire.MessageType `json:"type"`
	Symbol domain.Symbol    `json:"symbol"`
	Data   json.RawMessage  `json:"data"`
}

// Handlers are called from the Run goroutine.
type Handlers struct {
	OnMessage func(Message)
	OnState   func(from, to State)
}

type Client struct {
	cfg      Config
	dialer   Dialer
	clock    clockwork.Clock // drives backoff only; socket deadlines use wall time
	handlers Handlers
	backoff  retry.Backoff

	mu      sync.Mutex
	state   State
	symbol  domain.Symbol
	conn    *websocket.Conn
	cancel  context.CancelFunc
	running bool
	closed  bool
	done    chan struct{}
}

func New(cfg Config, dialer Dialer, clock clockwork.Clock, handlers Handlers) *Client {
	return &Client{
		cfg:      cfg,
		dialer:   dialer,
		clock:    clock,
		handlers: handlers,
		backoff:  retry.Backoff{Base: cfg.InitialDelay, Max: max(cfg.MaxDelay, cfg.InitialDelay)},
		state:    StateConnecting,
		symbol:   cfg.Symbol,
		done:     make(chan struct{}),
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe switches the feed to symbol. It is remembered across reconnects.
func (c *Client) Subscribe(symbol domain.Symbol) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.symbol = symbol
	if c.conn == nil {
		return nil
	}
	return writeSubscribe(c.conn, symbol)
}

// Run drives the state machine until Close, ctx cancellation or exhausted
// retries. Only the last case returns an error.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	defer close(c.done)
	defer cancel()

	failures := 0
	for {
		conn, action, err := c.dial(ctx)
		if err == nil {
			var delivered bool
			delivered, err = c.serve(ctx, conn)
			if ctx.Err() != nil {
				c.setState(StateClosed)
				return nil
			}
			if delivered {
				failures = 0
			}
			action = closeAction(err)
			slog.Info("Feed connection lost", "delivered", delivered, "error", err)
		} else if ctx.Err() != nil {
			c.setState(StateClosed)
			return nil
		}

		failures++
		if failures > c.cfg.MaxRetries {
			slog.Warn("Giving up on feed", "url", c.cfg.URL, "attempts", failures, "error", err)
			c.setState(StateClosed)
			return fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
		}

		delay := c.backoff.Delay(failures, action)
		slog.Info("Reconnecting to feed", "attempt", failures, "retry_in", delay, "error", err)
		c.setState(StateReconnecting)
		select {
		case <-ctx.Done():
			c.setState(StateClosed)
			return nil
		case <-c.clock.After(delay):
		}
	}
}

// closeAction maps a server close onto the backoff policy. "Try again later"
// waits the full max delay, like a 429 handshake.
func closeAction(err error) retry.Action {
	if websocket.IsCloseError(err, websocket.CloseTryAgainLater) {
		return retry.After
	}
	return retry.Retry
}

// Close stops Run and closes the connection. It waits for Run to return if
// Run was started.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	running := c.running
	cancel := c.cancel
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(closeTimeout)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
	}
	if cancel != nil {
		cancel()
	}
	if running {
		<-c.done
	} else {
		c.setState(StateClosed)
	}
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, retry.Action, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			return nil, retry.After, fmt.Errorf("dial %s: %s: %w", c.cfg.URL, resp.Status, err)
		}
		return nil, retry.Retry, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	return conn, retry.Retry, nil
}

// serve owns conn until it fails or ctx ends. delivered reports whether at
// least one message arrived.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) (delivered bool, err error) {
	conn.SetPingHandler(func(appData string) error {
		c.extendReadDeadline(conn)
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeTimeout))
	})

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c.mu.Lock()
	c.conn = conn
	if c.symbol != "" {
		err = writeSubscribe(conn, c.symbol)
	}
	c.mu.Unlock()
	if err != nil {
		return false, err
	}

	c.setState(StateOpen)

	for {
		c.extendReadDeadline(conn)
		_, data, err := conn.ReadMessage()
		if err != nil {
			return delivered, err
		}
		delivered = true

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("Discarding undecodable feed message", "error", err)
			continue
		}
		if c.handlers.OnMessage != nil {
			c.handlers.OnMessage(msg)
		}
	}
}

func (c *Client) extendReadDeadline(conn *websocket.Conn) {
	if c.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	}
}

func (c *Client) setState(to State) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()

	if from != to && c.handlers.OnState != nil {
		c.handlers.OnState(from, to)
	}
}

// writeSubscribe must be called with mu held; gorilla allows one writer.
func writeSubscribe(conn *websocket.Conn, symbol domain.Symbol) error {
	payload, err := json.Marshal(wire.Inbound{Action: wire.ActionSubscribe, Symbol: string(symbol)})
	if err != nil {
		return fmt.Errorf("failed to encode subscribe: %w", err)
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}
