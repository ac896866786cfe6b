// Package kafka mirrors emitted events to a Kafka topic so other services can
// consume the same stream the dashboard sees. Messages are keyed by symbol,
// which keeps each symbol's events ordered within one partition.
package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/metrics"
	"github.com/pscheid92/tickerpulse/internal/wire"
	"github.com/segmentio/kafka-go"
)

const (
	writeTimeout = 2 * time.Second
	typeHeader   = "type"
)

// Writer is the part of *kafka.Writer the mirror uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter builds an asynchronous writer. Delivery results are reported
// through metrics and logs, never back to the pollers.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion:             reportDelivery,
	}
}

func reportDelivery(messages []kafka.Message, err error) {
	status := "delivered"
	if err != nil {
		status = "failed"
		slog.Warn("Kafka mirror delivery failed", "messages", len(messages), "error", err)
	}
	for _, m := range messages {
		metrics.MirrorMessagesTotal.WithLabelValues(headerValue(m, typeHeader), status).Inc()
	}
}

func headerValue(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Mirror is an EventSink that republishes the wire envelopes to Kafka.
type Mirror struct {
	writer Writer
}

var _ domain.EventSink = (*Mirror)(nil)

func NewMirror(writer Writer) *Mirror {
	return &Mirror{writer: writer}
}

func (m *Mirror) PublishQuote(ctx context.Context, quote domain.Quote) error {
	return m.publish(ctx, wire.QuoteMessage(quote))
}

func (m *Mirror) PublishNews(ctx context.Context, symbol domain.Symbol, articles []domain.ScoredArticle) error {
	return m.publish(ctx, wire.NewsMessage(symbol, articles))
}

func (m *Mirror) PublishError(ctx context.Context, symbol domain.Symbol, err error) error {
	return m.publish(ctx, wire.ErrorMessage(symbol, err))
}

func (m *Mirror) publish(ctx context.Context, env wire.Envelope) error {
	data, err := wire.Encode(env)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", env.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:     []byte(env.Symbol),
		Value:   data,
		Headers: []kafka.Header{{Key: typeHeader, Value: []byte(env.Type)}},
	}
	if err := m.writer.WriteMessages(ctx, msg); err != nil {
		metrics.MirrorMessagesTotal.WithLabelValues(string(env.Type), "failed").Inc()
		return fmt.Errorf("failed to mirror %s for %s: %w", env.Type, env.Symbol, err)
	}
	metrics.MirrorMessagesTotal.WithLabelValues(string(env.Type), "queued").Inc()
	return nil
}

func (m *Mirror) Close() error {
	return m.writer.Close()
}
