package provider

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/metrics"
)

// cached returns the value stored under namespace:key, or calls load and
// stores its result for ttl. A failing cache is logged and bypassed.
func cached[T any](ctx context.Context, cache domain.Cache, namespace, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	fullKey := namespace + ":" + key

	if cache != nil {
		data, hit, err := cache.Get(ctx, fullKey)
		switch {
		case err != nil:
			metrics.CacheRequestsTotal.WithLabelValues(namespace, "error").Inc()
			slog.WarnContext(ctx, "Cache read failed, loading from provider", "key", fullKey, "error", err)
		case hit:
			var v T
			if err := json.Unmarshal(data, &v); err == nil {
				metrics.CacheRequestsTotal.WithLabelValues(namespace, "hit").Inc()
				return v, nil
			}
			slog.WarnContext(ctx, "Discarding undecodable cache entry", "key", fullKey)
		default:
			metrics.CacheRequestsTotal.WithLabelValues(namespace, "miss").Inc()
		}
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	if cache != nil {
		data, err := json.Marshal(v)
		if err == nil {
			err = cache.Set(ctx, fullKey, data, ttl)
		}
		if err != nil {
			slog.WarnContext(ctx, "Cache write failed", "key", fullKey, "error", err)
		}
	}
	return v, nil
}
