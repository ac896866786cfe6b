//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupContainerClient(t *testing.T) *Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := NewClient(ctx, "redis://"+endpoint)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCacheIntegration_RoundTripAndExpiry(t *testing.T) {
	client := setupContainerClient(t)
	cache := NewCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "fundamentals:AAPL", []byte(`{"marketCap":1}`), time.Second))

	val, ok, err := cache.Get(ctx, "fundamentals:AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"marketCap":1}`, string(val))

	assert.Eventually(t, func() bool {
		_, ok, err := cache.Get(ctx, "fundamentals:AAPL")
		return err == nil && !ok
	}, 5*time.Second, 100*time.Millisecond)
}
