package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/metrics"
	"github.com/pscheid92/tickerpulse/internal/platform/correlation"
)

// QuoteSink receives emitted quotes.
type QuoteSink interface {
	PublishQuote(ctx context.Context, quote domain.Quote) error
}

// NewsSink receives scored article batches.
type NewsSink interface {
	PublishNews(ctx context.Context, symbol domain.Symbol, articles []domain.ScoredArticle) error
}

// cycleContext tags one fetch cycle for logging.
func cycleContext(ctx context.Context, symbol domain.Symbol) context.Context {
	return correlation.WithSymbol(correlation.WithID(ctx, correlation.NewID()), string(symbol))
}

// guard runs fn and turns a panic into a ProviderUnavailable error so a bad
// payload cannot take down the loop.
func guard(ctx context.Context, kind string, symbol domain.Symbol, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.PollerPanicsTotal.WithLabelValues(kind).Inc()
			slog.ErrorContext(ctx, "Poller panic recovered", "poller", kind, "panic", r, "stack", string(debug.Stack()))
			err = domain.NewProviderError(domain.KindProviderUnavailable, kind+"-poller", symbol, fmt.Errorf("panic: %v", r))
		}
	}()
	return fn()
}

// wait blocks until after fires. It reports false if ctx ended first.
func wait(ctx context.Context, after <-chan time.Time) bool {
	select {
	case <-ctx.Done():
		return false
	case <-after:
		return true
	}
}
