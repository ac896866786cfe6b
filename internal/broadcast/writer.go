package broadcast

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tickerpulse/internal/metrics"
)

const (
	writeDeadline = 5 * time.Second
	pingInterval  = 30 * time.Second
	pongDeadline  = 60 * time.Second
)

// wsConn is the part of *websocket.Conn the writer needs.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// clientWriter owns all writes to one connection. It drains the outbound
// queue and keeps the connection alive with pings.
type clientWriter struct {
	connection wsConn
	clock      clockwork.Clock
	queue      *outboundQueue
	done       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

func newClientWriter(connection wsConn, queue *outboundQueue, clock clockwork.Clock) *clientWriter {
	cw := &clientWriter{
		connection: connection,
		clock:      clock,
		queue:      queue,
		done:       make(chan struct{}),
	}
	cw.configurePongHandler()
	cw.wg.Add(1)
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	ticker := cw.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer cw.wg.Done()

	for {
		select {
		case <-cw.queue.ready():
			if !cw.flush() {
				return
			}
		case <-ticker.Chan():
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				metrics.WebSocketPingFailures.Inc()
				_ = cw.connection.Close()
				return
			}
		case <-cw.done:
			return
		}
	}
}

// flush writes queued messages until the queue is empty. It reports false
// when the writer must exit.
func (cw *clientWriter) flush() bool {
	for {
		select {
		case <-cw.done:
			return false
		default:
		}

		msg, ok := cw.queue.pop()
		if !ok {
			return true
		}

		start := cw.clock.Now()
		cw.updateWriteDeadline()
		if err := cw.connection.WriteMessage(websocket.TextMessage, msg.data); err != nil {
			slog.Debug("Client write failed", "type", msg.kind, "symbol", msg.symbol, "error", err)
			_ = cw.connection.Close()
			return false
		}
		metrics.WebSocketMessageSendDuration.Observe(cw.clock.Since(start).Seconds())
	}
}

func (cw *clientWriter) stop() {
	cw.stopOnce.Do(func() {
		close(cw.done)
		_ = cw.connection.Close()
	})
	cw.wg.Wait()
}

// stopWithClose sends a close frame with code and reason before closing.
func (cw *clientWriter) stopWithClose(code int, reason string) {
	cw.stopOnce.Do(func() {
		close(cw.done)

		// The run goroutine must be gone before the close frame is written.
		cw.wg.Wait()

		closeMsg := websocket.FormatCloseMessage(code, reason)
		cw.updateWriteDeadline()
		_ = cw.connection.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = cw.connection.Close()
	})
}

func (cw *clientWriter) configurePongHandler() {
	cw.updateReadDeadline()
	cw.connection.SetPongHandler(func(string) error {
		cw.updateReadDeadline()
		return nil
	})
}

func (cw *clientWriter) updateWriteDeadline() {
	_ = cw.connection.SetWriteDeadline(cw.clock.Now().Add(writeDeadline))
}

func (cw *clientWriter) updateReadDeadline() {
	_ = cw.connection.SetReadDeadline(cw.clock.Now().Add(pongDeadline))
}
