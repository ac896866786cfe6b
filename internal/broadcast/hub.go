package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/metrics"
	"github.com/pscheid92/tickerpulse/internal/wire"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second

	// CloseTryAgainLater is sent to connections evicted for backpressure.
	CloseTryAgainLater = 1013
)

var (
	ErrStopped         = errors.New("hub stopped")
	ErrDuplicateClient = errors.New("client already registered")
)

// Subscriptions is the Registry as seen by the hub.
type Subscriptions interface {
	SubscribersOf(symbol domain.Symbol) []uuid.UUID
	Unsubscribe(clientID uuid.UUID)
}

type Config struct {
	QueueSize int
	NewsCap   int
}

func DefaultConfig() Config {
	return Config{QueueSize: 32, NewsCap: 16}
}

// hubCmd is the command interface for the Hub actor.
type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	clientID     uuid.UUID
	connection   wsConn
	errorChannel chan error
}

type unregisterCmd struct {
	baseHubCmd
	clientID uuid.UUID
}

type retainCmd struct {
	baseHubCmd
	clientID uuid.UUID
	symbol   domain.Symbol
}

type publishCmd struct {
	baseHubCmd
	message outbound
}

type countCmd struct {
	baseHubCmd
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// terminalEvent is the last error event of a symbol and the clients that
// already received it.
type terminalEvent struct {
	message   outbound
	delivered map[uuid.UUID]struct{}
}

// Hub fans poller output out to WebSocket connections. All connection state
// is owned by a single actor goroutine; the Registry decides who receives what.
type Hub struct {
	cmdCh         chan hubCmd
	clock         clockwork.Clock
	subscriptions Subscriptions
	clients       map[uuid.UUID]*clientWriter
	terminal      map[domain.Symbol]*terminalEvent
	cfg           Config
	done          chan struct{}
	stopTimeout   time.Duration
}

func NewHub(subscriptions Subscriptions, clock clockwork.Clock, cfg Config) *Hub {
	h := &Hub{
		cmdCh:         make(chan hubCmd, 256),
		clock:         clock,
		subscriptions: subscriptions,
		clients:       make(map[uuid.UUID]*clientWriter),
		terminal:      make(map[domain.Symbol]*terminalEvent),
		cfg:           cfg,
		done:          make(chan struct{}),
		stopTimeout:   stopTimeout,
	}
	go h.run()
	return h
}

// Register attaches a connection to clientID. The hub owns all writes to
// conn from here on.
func (h *Hub) Register(clientID uuid.UUID, conn *websocket.Conn) error {
	return h.register(clientID, conn)
}

func (h *Hub) register(clientID uuid.UUID, conn wsConn) error {
	errCh := make(chan error, 1)
	if err := h.send(context.Background(), registerCmd{clientID: clientID, connection: conn, errorChannel: errCh}); err != nil {
		return err
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister detaches and closes the client's connection and drops its
// subscriptions.
func (h *Hub) Unregister(clientID uuid.UUID) {
	if err := h.send(context.Background(), unregisterCmd{clientID: clientID}); err != nil {
		h.subscriptions.Unsubscribe(clientID)
	}
}

// Retain drops messages still queued for clientID that belong to other symbols.
// A client joining a symbol whose polling already ended with an error is sent
// that error event.
func (h *Hub) Retain(clientID uuid.UUID, symbol domain.Symbol) {
	_ = h.send(context.Background(), retainCmd{clientID: clientID, symbol: symbol})
}

func (h *Hub) PublishQuote(ctx context.Context, quote domain.Quote) error {
	return h.publish(ctx, wire.QuoteMessage(quote))
}

func (h *Hub) PublishNews(ctx context.Context, symbol domain.Symbol, articles []domain.ScoredArticle) error {
	return h.publish(ctx, wire.NewsMessage(symbol, articles))
}

func (h *Hub) PublishError(ctx context.Context, symbol domain.Symbol, err error) error {
	return h.publish(ctx, wire.ErrorMessage(symbol, err))
}

func (h *Hub) publish(ctx context.Context, env wire.Envelope) error {
	data, err := wire.Encode(env)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", env.Type, err)
	}
	return h.send(ctx, publishCmd{message: outbound{kind: env.Type, symbol: env.Symbol, data: data}})
}

// ClientCount returns the number of registered connections, or -1 if the
// hub did not answer in time.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	if err := h.send(context.Background(), countCmd{replyChannel: replyCh}); err != nil {
		return -1
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop closes every connection and waits for the actor to exit.
func (h *Hub) Stop() {
	if err := h.send(context.Background(), stopCmd{}); err != nil {
		return
	}

	timeout := h.clock.NewTimer(h.stopTimeout)
	defer timeout.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Hub stop timeout exceeded", "timeout", h.stopTimeout)
		metrics.HubStopTimeoutsTotal.Inc()
	}
}

func (h *Hub) send(ctx context.Context, cmd hubCmd) error {
	select {
	case <-h.done:
		return ErrStopped
	default:
	}

	select {
	case h.cmdCh <- cmd:
		return nil
	case <-h.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) run() {
	defer close(h.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Hub panic recovered", "panic", r)
			metrics.HubPanicsTotal.Inc()
			h.closeAllClients(websocket.CloseInternalServerErr, "hub failure")
		}
	}()

	depthTicker := h.clock.NewTicker(time.Second)
	defer depthTicker.Stop()

	for {
		select {
		case <-depthTicker.Chan():
			depth := len(h.cmdCh)
			metrics.HubCommandChannelDepth.Set(float64(depth))
			if depth > cap(h.cmdCh)*4/5 {
				slog.Warn("Command channel near capacity", "depth", depth, "capacity", cap(h.cmdCh))
			}
			h.pruneTerminal()

		case cmd := <-h.cmdCh:
			switch c := cmd.(type) {
			case registerCmd:
				h.handleRegister(c)
			case unregisterCmd:
				h.handleUnregister(c)
			case retainCmd:
				h.handleRetain(c)
			case publishCmd:
				h.handlePublish(c)
			case countCmd:
				c.replyChannel <- len(h.clients)
			case stopCmd:
				h.handleStop()
				return
			default:
				slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	if _, exists := h.clients[c.clientID]; exists {
		c.errorChannel <- ErrDuplicateClient
		return
	}

	queue := newOutboundQueue(h.cfg.QueueSize, h.cfg.NewsCap)
	h.clients[c.clientID] = newClientWriter(c.connection, queue, h.clock)
	metrics.HubConnectedClients.Set(float64(len(h.clients)))

	slog.Debug("Client registered", "client_id", c.clientID, "total_clients", len(h.clients))
	c.errorChannel <- nil
}

func (h *Hub) handleUnregister(c unregisterCmd) {
	h.subscriptions.Unsubscribe(c.clientID)

	cw, exists := h.clients[c.clientID]
	if !exists {
		return
	}
	delete(h.clients, c.clientID)
	metrics.HubConnectedClients.Set(float64(len(h.clients)))

	// The writer can sit in a write for up to writeDeadline.
	go cw.stop()
	slog.Debug("Client unregistered", "client_id", c.clientID, "remaining_clients", len(h.clients))
}

func (h *Hub) handleRetain(c retainCmd) {
	cw, exists := h.clients[c.clientID]
	if !exists {
		return
	}
	if n := cw.queue.retain(c.symbol); n > 0 {
		metrics.HubQuotesDroppedTotal.WithLabelValues("switch").Add(float64(n))
	}
	h.replayTerminal(c.clientID, cw, c.symbol)
}

// replayTerminal sends a symbol's recorded error event to a client that
// joined after it was published. A sole subscriber activated the symbol
// afresh, so the stale record is dropped and the new task reports on its own.
func (h *Hub) replayTerminal(clientID uuid.UUID, cw *clientWriter, symbol domain.Symbol) {
	event, ok := h.terminal[symbol]
	if !ok {
		return
	}
	if _, seen := event.delivered[clientID]; seen {
		return
	}

	subscribers := h.subscriptions.SubscribersOf(symbol)
	if !slices.Contains(subscribers, clientID) {
		return
	}
	if len(subscribers) == 1 {
		delete(h.terminal, symbol)
		return
	}

	event.delivered[clientID] = struct{}{}
	h.enqueue(clientID, cw, event.message)
}

// pruneTerminal forgets error events of symbols nobody subscribes to.
func (h *Hub) pruneTerminal() {
	for symbol := range h.terminal {
		if len(h.subscriptions.SubscribersOf(symbol)) == 0 {
			delete(h.terminal, symbol)
		}
	}
}

func (h *Hub) handlePublish(c publishCmd) {
	start := h.clock.Now()
	defer func() {
		metrics.HubPublishDuration.Observe(h.clock.Since(start).Seconds())
	}()

	msg := c.message
	var event *terminalEvent
	if msg.kind == wire.TypeError {
		event = &terminalEvent{message: msg, delivered: make(map[uuid.UUID]struct{})}
		h.terminal[msg.symbol] = event
	} else {
		delete(h.terminal, msg.symbol)
	}

	for _, clientID := range h.subscriptions.SubscribersOf(msg.symbol) {
		cw, exists := h.clients[clientID]
		if !exists {
			continue
		}
		if event != nil {
			event.delivered[clientID] = struct{}{}
		}
		h.enqueue(clientID, cw, msg)
	}
}

func (h *Hub) enqueue(clientID uuid.UUID, cw *clientWriter, msg outbound) {
	switch cw.queue.push(msg) {
	case pushed:
		metrics.HubMessagesEnqueuedTotal.WithLabelValues(string(msg.kind)).Inc()
	case droppedOldest:
		metrics.HubMessagesEnqueuedTotal.WithLabelValues(string(msg.kind)).Inc()
		metrics.HubQuotesDroppedTotal.WithLabelValues("coalesced").Inc()
	case droppedIncoming:
		metrics.HubQuotesDroppedTotal.WithLabelValues("queue_full").Inc()
	case overflow:
		h.evict(clientID, cw)
	}
}

// evict closes a connection that cannot keep up with news or error delivery.
func (h *Hub) evict(clientID uuid.UUID, cw *clientWriter) {
	slog.Warn("Disconnecting client for backpressure", "client_id", clientID, "queued", cw.queue.len())
	metrics.HubBackpressureDisconnectsTotal.Inc()

	delete(h.clients, clientID)
	metrics.HubConnectedClients.Set(float64(len(h.clients)))
	h.subscriptions.Unsubscribe(clientID)

	go cw.stopWithClose(CloseTryAgainLater, "backpressure")
}

func (h *Hub) handleStop() {
	slog.Info("Hub shutting down", "total_clients", len(h.clients))
	h.closeAllClients(websocket.CloseGoingAway, "Server shutting down")
}

// closeAllClients closes every connection. Used on shutdown and after a panic.
func (h *Hub) closeAllClients(code int, reason string) {
	for clientID, cw := range h.clients {
		cw.stopWithClose(code, reason)
		delete(h.clients, clientID)
		h.subscriptions.Unsubscribe(clientID)
	}
	metrics.HubConnectedClients.Set(0)
}
