package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	goredis "github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

// Client wraps a go-redis client with the metrics and circuit breaker hooks installed.
type Client struct {
	rdb     *goredis.Client
	breaker *CircuitBreakerHook
}

// NewClient connects to redisURL (e.g. "redis://localhost:6379/0") and pings it.
func NewClient(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := goredis.NewClient(opts)
	breaker := NewCircuitBreakerHook("redis")
	rdb.AddHook(&MetricsHook{})
	rdb.AddHook(breaker)

	c := &Client{rdb: rdb, breaker: breaker}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return c, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// BreakerState reports the circuit breaker state for readiness checks.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}
