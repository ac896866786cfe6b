package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/pscheid92/tickerpulse/internal/domain"
)

// Names resolves display names through an optional upstream resolver, a cache
// and finally the built-in company table. It never fails.
type Names struct {
	upstream domain.NameResolver
	cache    domain.Cache
	ttl      time.Duration
}

func NewNames(upstream domain.NameResolver, cache domain.Cache, ttl time.Duration) *Names {
	return &Names{upstream: upstream, cache: cache, ttl: ttl}
}

// CompanyName implements domain.NameResolver.
func (n *Names) CompanyName(ctx context.Context, symbol domain.Symbol) (string, error) {
	if name, ok := domain.KnownCompanyName(symbol); ok {
		return name, nil
	}
	if n.upstream == nil {
		return string(symbol), nil
	}

	name, err := cached(ctx, n.cache, "name", string(symbol), n.ttl, func(ctx context.Context) (string, error) {
		return n.upstream.CompanyName(ctx, symbol)
	})
	if err != nil || name == "" {
		if err != nil {
			slog.DebugContext(ctx, "Name lookup failed, using symbol", "symbol", symbol, "error", err)
		}
		return string(symbol), nil
	}
	return name, nil
}
