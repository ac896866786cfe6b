package poller

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/metrics"
	"github.com/pscheid92/tickerpulse/internal/platform/retry"
)

type NewsConfig struct {
	Interval     time.Duration
	MaxBackoff   time.Duration
	FetchTimeout time.Duration
	Retention    time.Duration
	MaxSeenIDs   int
}

func DefaultNewsConfig() NewsConfig {
	return NewsConfig{
		Interval:     5 * time.Minute,
		MaxBackoff:   15 * time.Minute,
		FetchTimeout: 15 * time.Second,
		Retention:    7 * 24 * time.Hour,
		MaxSeenIDs:   500,
	}
}

// NewsPoller fetches news for one symbol per Run call and emits only
// articles it has not emitted before.
type NewsPoller struct {
	provider domain.NewsProvider
	scorer   domain.Scorer
	sink     NewsSink
	clock    clockwork.Clock
	classify retry.Classify
	backoff  retry.Backoff
	cfg      NewsConfig
}

func NewNewsPoller(provider domain.NewsProvider, scorer domain.Scorer, sink NewsSink, classify retry.Classify, clock clockwork.Clock, cfg NewsConfig) *NewsPoller {
	return &NewsPoller{
		provider: provider,
		scorer:   scorer,
		sink:     sink,
		clock:    clock,
		classify: classify,
		backoff:  retry.Backoff{Base: cfg.Interval, Max: max(cfg.MaxBackoff, cfg.Interval)},
		cfg:      cfg,
	}
}

type newsState struct {
	failures    int
	lastSuccess time.Time
	seen        *seenCache
}

// Run polls until ctx is cancelled, returning nil, or until the provider
// reports the symbol as invalid, returning that error.
func (p *NewsPoller) Run(ctx context.Context, symbol domain.Symbol) error {
	state := newsState{seen: newSeenCache(p.cfg.Retention, p.cfg.MaxSeenIDs)}
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

func (p *NewsPoller) poll(ctx context.Context, symbol domain.Symbol, state *newsState) (retry.Action, error) {
	cycleCtx := cycleContext(ctx, symbol)
	state.seen.evict(p.clock.Now())

	var articles []domain.NewsArticle
	start := time.Now()
	err := guard(cycleCtx, "news", symbol, func() error {
		fetchCtx, cancel := context.WithTimeout(cycleCtx, p.cfg.FetchTimeout)
		defer cancel()

		var err error
		articles, err = p.provider.FetchNews(fetchCtx, symbol)
		if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
			err = domain.NewProviderError(domain.KindTimeout, "news", symbol, err)
		}
		return err
	})
	metrics.PollerFetchDuration.WithLabelValues("news").Observe(time.Since(start).Seconds())

	if ctx.Err() != nil {
		return retry.Retry, nil
	}
	if err != nil {
		return p.fail(cycleCtx, symbol, state, err)
	}

	metrics.PollerFetchesTotal.WithLabelValues("news", "success").Inc()
	state.failures = 0
	state.lastSuccess = p.clock.Now()

	batch := p.fresh(articles, state.seen)
	slog.DebugContext(cycleCtx, "News poll done", "symbol", symbol, "fetched", len(articles), "new", len(batch), "seen", state.seen.len())
	if len(batch) == 0 {
		return retry.Retry, nil
	}

	if err := p.sink.PublishNews(cycleCtx, symbol, batch); err != nil {
		slog.WarnContext(cycleCtx, "News publish failed", "symbol", symbol, "error", err)
	}
	return retry.Retry, nil
}

// fresh scores and marks every unseen article, newest first.
func (p *NewsPoller) fresh(articles []domain.NewsArticle, seen *seenCache) []domain.ScoredArticle {
	now := p.clock.Now()
	var batch []domain.ScoredArticle
	for _, a := range articles {
		if a.ID == "" || seen.has(a.ID) {
			metrics.NewsArticlesTotal.WithLabelValues("duplicate").Inc()
			continue
		}
		seen.add(a.ID, now)

		score := p.scorer.Score(a.Text())
		metrics.SentimentScoredTotal.WithLabelValues(string(score.Category)).Inc()
		metrics.NewsArticlesTotal.WithLabelValues("new").Inc()
		batch = append(batch, domain.ScoredArticle{NewsArticle: a, Sentiment: score})
	}

	slices.SortStableFunc(batch, func(a, b domain.ScoredArticle) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})
	return batch
}

func (p *NewsPoller) fail(ctx context.Context, symbol domain.Symbol, state *newsState, err error) (retry.Action, error) {
	kind := domain.KindOf(err)
	metrics.PollerFetchesTotal.WithLabelValues("news", string(kind)).Inc()

	action := p.classify(err)
	if action == retry.Stop {
		slog.WarnContext(ctx, "News poll stopped", "symbol", symbol, "kind", kind, "error", err)
		return action, err
	}

	state.failures++
	attrs := []any{"symbol", symbol, "kind", kind, "failures", state.failures, "error", err}
	if !state.lastSuccess.IsZero() {
		attrs = append(attrs, "last_success", state.lastSuccess)
	}
	if kind == domain.KindMalformedResponse {
		slog.WarnContext(ctx, "News response malformed", attrs...)
	} else {
		slog.InfoContext(ctx, "News poll failed", attrs...)
	}
	return action, err
}
