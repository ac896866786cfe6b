// Package cache provides the in-process implementation of domain.Cache.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tickerpulse/internal/metrics"
)

// Memory is a TTL cache of byte values. It is used when no Redis URL is
// configured and shares the domain.Cache contract with the Redis cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	clock   clockwork.Clock
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewMemory(clock clockwork.Clock) *Memory {
	return &Memory{
		entries: make(map[string]cacheEntry),
		clock:   clock,
	}
}

// Get returns a copy of the cached value. Expired entries are misses and are
// left for EvictExpired.
func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || !c.clock.Now().Before(entry.expiresAt) {
		return nil, false, nil
	}

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

// Set stores value for ttl. A non-positive ttl deletes the key.
func (c *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		delete(c.entries, key)
		return nil
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	c.entries[key] = cacheEntry{value: stored, expiresAt: c.clock.Now().Add(ttl)}
	return nil
}

// Size returns the current number of entries in the cache (including expired).
func (c *Memory) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// EvictExpired removes all expired entries and returns the count evicted.
func (c *Memory) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	evicted := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}

// StartEvictionTimer periodically evicts expired entries until the returned
// stop function is called.
func (c *Memory) StartEvictionTimer(interval time.Duration) func() {
	ticker := c.clock.NewTicker(interval)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case <-ticker.Chan():
				evicted := c.EvictExpired()
				if evicted > 0 {
					slog.Debug("Evicted expired cache entries",
						"count", evicted,
						"remaining", c.Size(),
					)
					metrics.CacheEvictions.Add(float64(evicted))
				}
				metrics.CacheSize.Set(float64(c.Size()))

			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}
