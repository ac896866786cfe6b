package provider

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/platform/retry"
	"golang.org/x/sync/singleflight"
)

// CachedDirectory fronts a Directory with a TTL cache. Concurrent misses for
// the same key share one upstream call, which is retried on transient errors.
type CachedDirectory struct {
	next   domain.Directory
	cache  domain.Cache
	ttl    time.Duration
	policy retry.Policy
	group  singleflight.Group
}

func NewCachedDirectory(next domain.Directory, cache domain.Cache, ttl time.Duration, clock clockwork.Clock) *CachedDirectory {
	return &CachedDirectory{
		next:  next,
		cache: cache,
		ttl:   ttl,
		policy: retry.Policy{
			MaxAttempts:      3,
			InitialBackoff:   200 * time.Millisecond,
			RateLimitBackoff: 2 * time.Second,
			Clock:            clock,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				slog.Warn("Directory lookup failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
			},
		},
	}
}

var _ domain.Directory = (*CachedDirectory)(nil)

func (d *CachedDirectory) LookupSymbols(ctx context.Context, query string) ([]domain.SymbolMatch, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	return shared(ctx, &d.group, "lookup:"+key, func(ctx context.Context) ([]domain.SymbolMatch, error) {
		return cached(ctx, d.cache, "lookup", key, d.ttl, func(ctx context.Context) ([]domain.SymbolMatch, error) {
			return retry.Do(ctx, d.policy, Classify, func(ctx context.Context) ([]domain.SymbolMatch, error) {
				return d.next.LookupSymbols(ctx, query)
			})
		})
	})
}

func (d *CachedDirectory) CompanyPeers(ctx context.Context, symbol domain.Symbol) (map[domain.Symbol]string, error) {
	return shared(ctx, &d.group, "peers:"+string(symbol), func(ctx context.Context) (map[domain.Symbol]string, error) {
		return cached(ctx, d.cache, "peers", string(symbol), d.ttl, func(ctx context.Context) (map[domain.Symbol]string, error) {
			return retry.Do(ctx, d.policy, Classify, func(ctx context.Context) (map[domain.Symbol]string, error) {
				return d.next.CompanyPeers(ctx, symbol)
			})
		})
	})
}

// shared collapses concurrent calls for key. The shared call runs detached
// from any single caller's cancellation; each caller still returns when its
// own ctx ends.
func shared[T any](ctx context.Context, group *singleflight.Group, key string, fn func(context.Context) (T, error)) (T, error) {
	ch := group.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
