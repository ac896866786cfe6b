package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_Miss(t *testing.T) {
	cache := NewMemory(clockwork.NewFakeClock())

	value, hit, err := cache.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, value)
}

func TestMemory_Hit(t *testing.T) {
	ctx := context.Background()
	cache := NewMemory(clockwork.NewFakeClock())

	require.NoError(t, cache.Set(ctx, "lookup:apple", []byte(`[{"symbol":"AAPL"}]`), time.Minute))

	value, hit, err := cache.Get(ctx, "lookup:apple")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.JSONEq(t, `[{"symbol":"AAPL"}]`, string(value))
}

func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	cache := NewMemory(clock)

	require.NoError(t, cache.Set(ctx, "key", []byte("v"), 10*time.Second))

	clock.Advance(9 * time.Second)
	_, hit, _ := cache.Get(ctx, "key")
	assert.True(t, hit, "should still hit at 9 seconds")

	clock.Advance(time.Second)
	_, hit, _ = cache.Get(ctx, "key")
	assert.False(t, hit, "should miss once the TTL has elapsed")
}

func TestMemory_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	cache := NewMemory(clockwork.NewFakeClock())

	original := []byte("abc")
	require.NoError(t, cache.Set(ctx, "key", original, time.Minute))
	original[0] = 'x'

	value, _, _ := cache.Get(ctx, "key")
	assert.Equal(t, "abc", string(value))

	value[1] = 'y'
	again, _, _ := cache.Get(ctx, "key")
	assert.Equal(t, "abc", string(again))
}

func TestMemory_NonPositiveTTLDeletes(t *testing.T) {
	ctx := context.Background()
	cache := NewMemory(clockwork.NewFakeClock())

	require.NoError(t, cache.Set(ctx, "key", []byte("v"), time.Minute))
	require.NoError(t, cache.Set(ctx, "key", []byte("v"), 0))

	_, hit, _ := cache.Get(ctx, "key")
	assert.False(t, hit)
	assert.Equal(t, 0, cache.Size())
}

func TestMemory_EvictExpired(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	cache := NewMemory(clock)

	for i := 0; i < 3; i++ {
		require.NoError(t, cache.Set(ctx, fmt.Sprintf("short-%d", i), []byte("v"), 5*time.Second))
	}
	require.NoError(t, cache.Set(ctx, "long", []byte("v"), time.Minute))

	clock.Advance(6 * time.Second)

	assert.Equal(t, 3, cache.EvictExpired())
	assert.Equal(t, 1, cache.Size())
}

func TestMemory_EvictionTimer(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	cache := NewMemory(clock)

	require.NoError(t, cache.Set(ctx, "key", []byte("v"), 5*time.Second))

	stop := cache.StartEvictionTimer(time.Minute)
	defer stop()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)

	assert.Eventually(t, func() bool { return cache.Size() == 0 }, time.Second, 5*time.Millisecond)

	stop()
	stop()
}
