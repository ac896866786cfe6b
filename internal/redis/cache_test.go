package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := NewClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestCache_SetGet(t *testing.T) {
	client, mr := setupMiniredis(t)
	cache := NewCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "quote:AAPL", []byte(`{"price":1}`), time.Minute))

	val, ok, err := cache.Get(ctx, "quote:AAPL")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"price":1}`, string(val))
	assert.True(t, mr.Exists(keyPrefix+"quote:AAPL"))
}

func TestCache_Miss(t *testing.T) {
	client, _ := setupMiniredis(t)

	val, ok, err := NewCache(client).Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestCache_Expiry(t *testing.T) {
	client, mr := setupMiniredis(t)
	cache := NewCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Minute))
	mr.FastForward(61 * time.Second)

	_, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_NonPositiveTTLDeletes(t *testing.T) {
	client, mr := setupMiniredis(t)
	cache := NewCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, cache.Set(ctx, "k", []byte("v"), 0))
	assert.False(t, mr.Exists(keyPrefix+"k"))
}

func TestCache_ServerError(t *testing.T) {
	client, mr := setupMiniredis(t)
	cache := NewCache(client)

	mr.SetError("ERR simulated failure")
	_, ok, err := cache.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, circuitbreaker.ClosedState, client.BreakerState())
}

func TestNewClient_BadURL(t *testing.T) {
	_, err := NewClient(context.Background(), "://nope")
	assert.ErrorContains(t, err, "parse redis URL")
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewClient(context.Background(), "redis://"+addr)
	assert.ErrorContains(t, err, "connect to redis")
}
