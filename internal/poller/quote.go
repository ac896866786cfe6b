package poller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/metrics"
	"github.com/pscheid92/tickerpulse/internal/platform/retry"
)

type QuoteConfig struct {
	Interval       time.Duration
	MaxBackoff     time.Duration
	FetchTimeout   time.Duration
	StaleThreshold int
}

func DefaultQuoteConfig() QuoteConfig {
	return QuoteConfig{
		Interval:       10 * time.Second,
		MaxBackoff:     160 * time.Second,
		FetchTimeout:   8 * time.Second,
		StaleThreshold: 3,
	}
}

// QuotePoller fetches quotes for one symbol at a time per Run call.
type QuotePoller struct {
	provider domain.QuoteProvider
	sink     QuoteSink
	clock    clockwork.Clock
	classify retry.Classify
	backoff  retry.Backoff
	cfg      QuoteConfig
}

func NewQuotePoller(provider domain.QuoteProvider, sink QuoteSink, classify retry.Classify, clock clockwork.Clock, cfg QuoteConfig) *QuotePoller {
	return &QuotePoller{
		provider: provider,
		sink:     sink,
		clock:    clock,
		classify: classify,
		backoff:  retry.Backoff{Base: cfg.Interval, Max: max(cfg.MaxBackoff, cfg.Interval)},
		cfg:      cfg,
	}
}

// quoteState is owned by a single Run call.
type quoteState struct {
	failures    int
	lastSuccess time.Time
	last        domain.Quote
	hasLast     bool
}

// Run polls until ctx is cancelled, returning nil, or until the provider
// reports the symbol as invalid, returning that error. The first fetch is
// immediate and each delay is measured from the end of the previous fetch.
func (p *QuotePoller) Run(ctx context.Context, symbol domain.Symbol) error {
	var state quoteState
	for {
		action, err := p.poll(ctx, symbol, &state)
		if ctx.Err() != nil {
			return nil
		}
		if action == retry.Stop {
			return err
		}

		if !wait(ctx, p.clock.After(p.backoff.Delay(state.failures, action))) {
			return nil
		}
	}
}

func (p *QuotePoller) poll(ctx context.Context, symbol domain.Symbol, state *quoteState) (retry.Action, error) {
	cycleCtx := cycleContext(ctx, symbol)

	var quote domain.Quote
	start := time.Now()
	err := guard(cycleCtx, "quote", symbol, func() error {
		fetchCtx, cancel := context.WithTimeout(cycleCtx, p.cfg.FetchTimeout)
		defer cancel()

		var err error
		quote, err = p.provider.FetchQuote(fetchCtx, symbol)
		if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
			err = domain.NewProviderError(domain.KindTimeout, "quote", symbol, err)
		}
		return err
	})
	metrics.PollerFetchDuration.WithLabelValues("quote").Observe(time.Since(start).Seconds())

	if ctx.Err() != nil {
		return retry.Retry, nil
	}

	if err != nil {
		return p.fail(cycleCtx, symbol, state, err)
	}

	metrics.PollerFetchesTotal.WithLabelValues("quote", "success").Inc()
	state.failures = 0
	state.lastSuccess = p.clock.Now()

	quote.Symbol = symbol
	quote.Stale = false
	if state.hasLast && !state.last.Stale && quote.SameMarketData(state.last) {
		metrics.QuotesUnchangedTotal.Inc()
		return retry.Retry, nil
	}

	p.emit(cycleCtx, state, quote)
	return retry.Retry, nil
}

func (p *QuotePoller) fail(ctx context.Context, symbol domain.Symbol, state *quoteState, err error) (retry.Action, error) {
	kind := domain.KindOf(err)
	metrics.PollerFetchesTotal.WithLabelValues("quote", string(kind)).Inc()

	action := p.classify(err)
	if action == retry.Stop {
		slog.WarnContext(ctx, "Quote poll stopped", "symbol", symbol, "kind", kind, "error", err)
		return action, err
	}

	state.failures++
	attrs := []any{"symbol", symbol, "kind", kind, "failures", state.failures, "error", err}
	if !state.lastSuccess.IsZero() {
		attrs = append(attrs, "last_success", state.lastSuccess)
	}
	if kind == domain.KindMalformedResponse {
		slog.WarnContext(ctx, "Quote response malformed", attrs...)
	} else {
		slog.InfoContext(ctx, "Quote poll failed", attrs...)
	}

	if state.failures == p.cfg.StaleThreshold && state.hasLast {
		stale := state.last
		stale.Stale = true
		p.emit(ctx, state, stale)
	}
	return action, err
}

// emit stamps observedAt, strictly after the previous emission, and hands
// the quote to the sink.
func (p *QuotePoller) emit(ctx context.Context, state *quoteState, quote domain.Quote) {
	observed := p.clock.Now().UTC().Truncate(time.Millisecond)
	if state.hasLast && !observed.After(state.last.ObservedAt) {
		observed = state.last.ObservedAt.Add(time.Millisecond)
	}
	quote.ObservedAt = observed

	state.last = quote
	state.hasLast = true

	freshness := "fresh"
	if quote.Stale {
		freshness = "stale"
	}
	metrics.QuotesEmittedTotal.WithLabelValues(freshness).Inc()

	if err := p.sink.PublishQuote(ctx, quote); err != nil {
		slog.WarnContext(ctx, "Quote publish failed", "symbol", quote.Symbol, "error", err)
	}
}
