package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/pscheid92/tickerpulse/internal/platform/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNew_JSONIncludesCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "json")

	ctx := correlation.WithSymbol(correlation.WithID(context.Background(), "deadbeef"), "AAPL")
	logger.InfoContext(ctx, "News batch emitted", "articles", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "deadbeef", record["correlation_id"])
	assert.Equal(t, "AAPL", record["symbol"])
	assert.Equal(t, float64(3), record["articles"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "text")

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
