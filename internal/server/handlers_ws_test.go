package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tickerpulse/internal/broadcast"
	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedFixture struct {
	hub      *broadcast.Hub
	registry *registry.Registry
	url      string
}

func newFeedFixture(t *testing.T, opts ...serverOption) *feedFixture {
	t.Helper()
	reg := registry.New()
	hub := broadcast.NewHub(reg, clockwork.NewRealClock(), broadcast.DefaultConfig())
	t.Cleanup(hub.Stop)

	opts = append([]serverOption{withHub(hub), withRegistry(reg), withClock(clockwork.NewRealClock())}, opts...)
	srv := newTestServer(t, opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &feedFixture{
		hub:      hub,
		registry: reg,
		url:      "ws" + strings.TrimPrefix(ts.URL, "http"),
	}
}

func (f *feedFixture) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(f.url+path, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (f *feedFixture) waitSubscribers(t *testing.T, symbol domain.Symbol, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(f.registry.SubscribersOf(symbol)) == n
	}, 2*time.Second, 5*time.Millisecond)
}

func sendSubscribe(t *testing.T, conn *websocket.Conn, symbol string) {
	t.Helper()
	msg := `{"action":"subscribe","symbol":"` + symbol + `"}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env map[string]any
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestFeed_SubscribeThenReceiveQuote(t *testing.T) {
	f := newFeedFixture(t)
	conn := f.dial(t, "/ws")

	sendSubscribe(t, conn, "aapl")
	f.waitSubscribers(t, "AAPL", 1)

	require.NoError(t, f.hub.PublishQuote(context.Background(), domain.Quote{Symbol: "AAPL", Price: 187.5}))

	env := readMessage(t, conn)
	assert.Equal(t, "stock_data", env["type"])
	assert.Equal(t, "AAPL", env["symbol"])
}

func TestFeed_SwitchKeepsOneSubscription(t *testing.T) {
	f := newFeedFixture(t)
	conn := f.dial(t, "/ws")

	sendSubscribe(t, conn, "AAPL")
	f.waitSubscribers(t, "AAPL", 1)
	sendSubscribe(t, conn, "MSFT")
	f.waitSubscribers(t, "MSFT", 1)

	assert.Empty(t, f.registry.SubscribersOf("AAPL"))
	assert.Equal(t, []domain.Symbol{"MSFT"}, f.registry.ActiveSymbols())
}

func TestFeed_MalformedMessageKeepsConnectionOpen(t *testing.T) {
	f := newFeedFixture(t)
	conn := f.dial(t, "/ws")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"unsubscribe","symbol":"AAPL"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"subscribe","symbol":"AAPL","extra":1}`)))
	sendSubscribe(t, conn, "TSLA")
	f.waitSubscribers(t, "TSLA", 1)

	assert.Equal(t, []domain.Symbol{"TSLA"}, f.registry.ActiveSymbols())
}

func TestFeed_LegacyPathSubscribesOnOpen(t *testing.T) {
	f := newFeedFixture(t)
	f.dial(t, "/ws/nvda")

	f.waitSubscribers(t, "NVDA", 1)
}

func TestFeed_LegacyPathDefaultsToBCS(t *testing.T) {
	f := newFeedFixture(t)
	f.dial(t, "/ws/")

	f.waitSubscribers(t, "BCS", 1)
}

func TestFeed_LegacyPathRejectsBadSymbol(t *testing.T) {
	f := newFeedFixture(t)

	_, resp, err := websocket.DefaultDialer.Dial(f.url+"/ws/bad%20symbol", nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFeed_DisconnectUnsubscribes(t *testing.T) {
	f := newFeedFixture(t)
	conn := f.dial(t, "/ws")
	sendSubscribe(t, conn, "AAPL")
	f.waitSubscribers(t, "AAPL", 1)

	require.NoError(t, conn.Close())

	f.waitSubscribers(t, "AAPL", 0)
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestFeed_PerIPLimitRejectsUpgrade(t *testing.T) {
	f := newFeedFixture(t, withLimits(LimitsConfig{
		MaxConnections: 10,
		MaxPerIP:       1,
		RatePerIP:      100,
		BurstPerIP:     100,
	}))
	f.dial(t, "/ws")

	_, resp, err := websocket.DefaultDialer.Dial(f.url+"/ws", nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestFeed_GlobalLimitRejectsUpgrade(t *testing.T) {
	f := newFeedFixture(t, withLimits(LimitsConfig{
		MaxConnections: 1,
		MaxPerIP:       10,
		RatePerIP:      100,
		BurstPerIP:     100,
	}))
	f.dial(t, "/ws")

	_, resp, err := websocket.DefaultDialer.Dial(f.url+"/ws", nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestFeed_LimitSlotReleasedOnDisconnect(t *testing.T) {
	f := newFeedFixture(t, withLimits(LimitsConfig{
		MaxConnections: 1,
		MaxPerIP:       1,
		RatePerIP:      100,
		BurstPerIP:     100,
	}))
	conn := f.dial(t, "/ws")
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		c, resp, err := websocket.DefaultDialer.Dial(f.url+"/ws", nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			return false
		}
		_ = c.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)
}
