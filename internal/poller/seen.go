package poller

import (
	"time"

	"github.com/pscheid92/tickerpulse/internal/metrics"
)

// seenCache remembers article ids in insertion order. Ids are dropped once
// older than retention, then oldest-first while more than maxIDs remain.
type seenCache struct {
	firstSeen map[string]time.Time
	order     []string
	retention time.Duration
	maxIDs    int
}

func newSeenCache(retention time.Duration, maxIDs int) *seenCache {
	return &seenCache{
		firstSeen: make(map[string]time.Time),
		retention: retention,
		maxIDs:    maxIDs,
	}
}

func (c *seenCache) has(id string) bool {
	_, ok := c.firstSeen[id]
	return ok
}

func (c *seenCache) add(id string, now time.Time) {
	if c.has(id) {
		return
	}
	c.firstSeen[id] = now
	c.order = append(c.order, id)
}

func (c *seenCache) len() int { return len(c.order) }

// evict returns the number of ids removed.
func (c *seenCache) evict(now time.Time) int {
	n := 0
	if c.retention > 0 {
		cutoff := now.Add(-c.retention)
		for n < len(c.order) && c.firstSeen[c.order[n]].Before(cutoff) {
			n++
		}
	}
	if c.maxIDs > 0 && len(c.order)-n > c.maxIDs {
		n = len(c.order) - c.maxIDs
	}
	if n == 0 {
		return 0
	}

	for _, id := range c.order[:n] {
		delete(c.firstSeen, id)
	}
	c.order = append([]string(nil), c.order[n:]...)
	metrics.NewsSeenEvictionsTotal.Add(float64(n))
	return n
}
