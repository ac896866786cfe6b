package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/metrics"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	mu         sync.Mutex
	messages   []kafka.Message
	shouldFail bool
	closed     bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return errors.New("kafka error")
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func TestMirror_PublishQuote(t *testing.T) {
	w := &mockWriter{}
	m := NewMirror(w)

	require.NoError(t, m.PublishQuote(context.Background(), domain.Quote{Symbol: "AAPL", Price: 187.25}))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "AAPL", string(msg.Key))
	assert.Equal(t, "stock_data", headerValue(msg, typeHeader))

	var env map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, "stock_data", env["type"])
	assert.Equal(t, 187.25, env["data"].(map[string]any)["price"])
}

func TestMirror_PublishNewsAndError(t *testing.T) {
	w := &mockWriter{}
	m := NewMirror(w)

	batch := []domain.ScoredArticle{{NewsArticle: domain.NewsArticle{ID: "a1", Headline: "Record quarter"}}}
	require.NoError(t, m.PublishNews(context.Background(), "MSFT", batch))
	require.NoError(t, m.PublishError(context.Background(), "XYZ",
		domain.NewProviderError(domain.KindInvalidSymbol, "test", "XYZ", nil)))

	require.Len(t, w.messages, 2)
	assert.Equal(t, "news_data", headerValue(w.messages[0], typeHeader))
	assert.Equal(t, "MSFT", string(w.messages[0].Key))
	assert.Equal(t, "error", headerValue(w.messages[1], typeHeader))
	assert.Equal(t, "XYZ", string(w.messages[1].Key))
}

func TestMirror_WriteFailure(t *testing.T) {
	w := &mockWriter{shouldFail: true}
	m := NewMirror(w)
	before := testutil.ToFloat64(metrics.MirrorMessagesTotal.WithLabelValues("stock_data", "failed"))

	err := m.PublishQuote(context.Background(), domain.Quote{Symbol: "AAPL"})
	assert.ErrorContains(t, err, "kafka error")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.MirrorMessagesTotal.WithLabelValues("stock_data", "failed")))
}

func TestReportDelivery_CountsByType(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{{Key: typeHeader, Value: []byte("news_data")}}}
	delivered := metrics.MirrorMessagesTotal.WithLabelValues("news_data", "delivered")
	failed := metrics.MirrorMessagesTotal.WithLabelValues("news_data", "failed")
	beforeDelivered, beforeFailed := testutil.ToFloat64(delivered), testutil.ToFloat64(failed)

	reportDelivery([]kafka.Message{msg, msg}, nil)
	reportDelivery([]kafka.Message{msg}, errors.New("broker down"))

	assert.Equal(t, beforeDelivered+2, testutil.ToFloat64(delivered))
	assert.Equal(t, beforeFailed+1, testutil.ToFloat64(failed))
}

func TestMirror_Close(t *testing.T) {
	w := &mockWriter{}
	require.NoError(t, NewMirror(w).Close())
	assert.True(t, w.closed)
}

func TestNewWriter(t *testing.T) {
	w := NewWriter([]string{"localhost:9092"}, "tickerpulse.events")
	assert.Equal(t, "tickerpulse.events", w.Topic)
	assert.True(t, w.Async)
}
