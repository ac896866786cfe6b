package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tickerpulse/internal/broadcast"
	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/poller"
	"github.com/pscheid92/tickerpulse/internal/provider"
	"github.com/pscheid92/tickerpulse/internal/registry"
	"github.com/pscheid92/tickerpulse/internal/sentiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedQuotes answers from a fixed script and repeats the last entry.
type scriptedQuotes struct {
	mu     sync.Mutex
	script []quoteResult
	calls  int
}

type quoteResult struct {
	quote domain.Quote
	err   error
}

func (s *scriptedQuotes) FetchQuote(_ context.Context, _ domain.Symbol) (domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.script[min(s.calls, len(s.script)-1)]
	s.calls++
	return r.quote, r.err
}

func (s *scriptedQuotes) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fixedNews struct {
	articles []domain.NewsArticle
}

func (f fixedNews) FetchNews(context.Context, domain.Symbol) ([]domain.NewsArticle, error) {
	return f.articles, nil
}

type feedMessage struct {
	Type   string          `json:"type"`
	Symbol string          `json:"symbol"`
	Data   json.RawMessage `json:"data"`
}

func dialFeed(t *testing.T) (server, client *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ready := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		ready <- conn
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	server = <-ready
	return server, client
}

func readFeed(t *testing.T, conn *websocket.Conn) feedMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg feedMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

// blockUntilSleeping waits until both pollers of the symbol are parked on clock.
func blockUntilSleeping(t *testing.T, clock *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 2), "pollers never went to sleep")
}

func TestPipeline_QuoteNewsAndStaleReachSubscriber(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC))
	bcs := domain.Quote{Name: "Barclays PLC", Price: 2.41, Change: 0.03, Volume: 41_000_000}
	timeout := domain.NewProviderError(domain.KindTimeout, "test", "BCS", nil)
	quotes := &scriptedQuotes{script: []quoteResult{
		{quote: bcs},
		{quote: bcs},
		{err: timeout},
	}}
	article := domain.NewsArticle{
		ID:          "bcs-1",
		Headline:    "Barclays profit beats expectations",
		Summary:     "Barclays reported strong growth and record profit.",
		Source:      "Reuters",
		URL:         "https://example.com/bcs-1",
		PublishedAt: clock.Now().Add(-time.Hour),
	}

	analyzer, err := sentiment.New(sentiment.DefaultConfig())
	require.NoError(t, err)

	reg := registry.New()
	hub := broadcast.NewHub(reg, clockwork.NewRealClock(), broadcast.DefaultConfig())
	t.Cleanup(hub.Stop)

	quotePoller := poller.NewQuotePoller(quotes, hub, provider.Classify, clock, poller.QuoteConfig{
		Interval:       10 * time.Second,
		MaxBackoff:     10 * time.Second,
		FetchTimeout:   time.Second,
		StaleThreshold: 3,
	})
	newsPoller := poller.NewNewsPoller(fixedNews{articles: []domain.NewsArticle{article}}, analyzer, hub, provider.Classify, clock, poller.NewsConfig{
		Interval:     time.Hour,
		MaxBackoff:   time.Hour,
		FetchTimeout: time.Second,
		Retention:    24 * time.Hour,
		MaxSeenIDs:   10,
	})
	scheduler := NewScheduler(quotePoller, newsPoller, hub)
	t.Cleanup(scheduler.Stop)
	reg.AddListener(scheduler)

	server, client := dialFeed(t)
	clientID := uuid.New()
	require.NoError(t, hub.Register(clientID, server))
	_, err = reg.Subscribe(clientID, "BCS")
	require.NoError(t, err)

	first := map[string]feedMessage{}
	for range 2 {
		msg := readFeed(t, client)
		first[msg.Type] = msg
	}
	require.Contains(t, first, "stock_data")
	require.Contains(t, first, "news_data")

	var fresh domain.Quote
	require.NoError(t, json.Unmarshal(first["stock_data"].Data, &fresh))
	assert.Equal(t, "BCS", first["stock_data"].Symbol)
	assert.Equal(t, 2.41, fresh.Price)
	assert.False(t, fresh.Stale)

	var articles []struct {
		Headline  string `json:"headline"`
		Sentiment struct {
			CustomScore float64 `json:"custom_score"`
			Category    string  `json:"category"`
		} `json:"sentiment"`
	}
	require.NoError(t, json.Unmarshal(first["news_data"].Data, &articles))
	require.Len(t, articles, 1)
	assert.Equal(t, article.Headline, articles[0].Headline)
	assert.Equal(t, "positive", articles[0].Sentiment.Category)
	assert.Greater(t, articles[0].Sentiment.CustomScore, 0.0)

	// One identical fetch, then three timeouts.
	for range 4 {
		blockUntilSleeping(t, clock)
		clock.Advance(10 * time.Second)
	}

	msg := readFeed(t, client)
	require.Equal(t, "stock_data", msg.Type, "the identical second fetch must not be emitted")
	var stale domain.Quote
	require.NoError(t, json.Unmarshal(msg.Data, &stale))
	assert.True(t, stale.Stale)
	assert.Equal(t, 2.41, stale.Price)
	assert.True(t, stale.ObservedAt.After(fresh.ObservedAt))
	assert.Equal(t, 5, quotes.Calls())

	blockUntilSleeping(t, clock)
	require.NoError(t, client.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = client.ReadMessage()
	assert.Error(t, err, "no further events expected")
}
