package correlation

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewID_Length(t *testing.T) {
	assert.Len(t, NewID(), 8)
}

func TestNewID_Unique(t *testing.T) {
	ids := make(map[string]struct{}, 100)
	for range 100 {
		ids[NewID()] = struct{}{}
	}
	assert.Len(t, ids, 100)
}

func TestWithID_and_ID_Roundtrip(t *testing.T) {
	ctx := WithID(context.Background(), "abc12345")
	id, ok := ID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc12345", id)
}

func TestID_EmptyString(t *testing.T) {
	id, ok := ID(WithID(context.Background(), ""))
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestHandler_AddsCorrelationAndSymbol(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	ctx := WithSymbol(WithID(context.Background(), "test1234"), "BCS")
	logger.InfoContext(ctx, "Quote fetched", "price", 10.5)

	output := buf.String()
	assert.Contains(t, output, "correlation_id=test1234")
	assert.Contains(t, output, "symbol=BCS")
	assert.Contains(t, output, "price=10.5")
}

func TestHandler_NoAttributes_WhenMissing(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "plain")

	assert.NotContains(t, buf.String(), "correlation_id")
	assert.NotContains(t, buf.String(), "symbol=")
}

func TestHandler_WithAttrsKeepsInjection(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil))).With("component", "poller")

	logger.InfoContext(WithID(context.Background(), "cafe0001"), "tick")

	assert.Contains(t, buf.String(), "component=poller")
	assert.Contains(t, buf.String(), "correlation_id=cafe0001")
}
