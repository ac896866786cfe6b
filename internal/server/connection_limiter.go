package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const (
	rateLimiterSweepInterval = 5 * time.Minute
	rateLimiterIdleTTL       = 10 * time.Minute
)

// globalLimiter caps concurrent feed connections per instance.
type globalLimiter struct {
	current atomic.Int64
	max     int64
}

func (l *globalLimiter) acquire() bool {
	for {
		current := l.current.Load()
		if current >= l.max {
			return false
		}
		if l.current.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

func (l *globalLimiter) release() {
	l.current.Add(-1)
}

// ipLimiter caps concurrent connections from one address.
type ipLimiter struct {
	mu     sync.Mutex
	ips    map[string]int
	maxPer int
}

func (l *ipLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ips[ip] >= l.maxPer {
		return false
	}
	l.ips[ip]++
	return true
}

func (l *ipLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if count := l.ips[ip]; count > 1 {
		l.ips[ip] = count - 1
	} else {
		delete(l.ips, ip)
	}
}

func (l *ipLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ips[ip]
}

// connectRateLimiter is a token bucket per address for new upgrades.
type connectRateLimiter struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	limiters map[string]*rateEntry
	rate     rate.Limit
	burst    int
	sweepAt  time.Time
}

type rateEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (l *connectRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if now.After(l.sweepAt) {
		l.sweep(now)
		l.sweepAt = now.Add(rateLimiterSweepInterval)
	}

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &rateEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// sweep must be called with mu held.
func (l *connectRateLimiter) sweep(now time.Time) {
	cutoff := now.Add(-rateLimiterIdleTTL)
	for ip, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, ip)
		}
	}
}

func (l *connectRateLimiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// LimitReason describes why a connection was rejected. It doubles as the
// result label on websocket_connections_total.
type LimitReason string

const (
	LimitReasonGlobal LimitReason = "global_limit"
	LimitReasonPerIP  LimitReason = "per_ip_limit"
	LimitReasonRate   LimitReason = "rate_limit"
)

// ConnectionLimits combines the global, per-address and connect-rate limits.
type ConnectionLimits struct {
	global *globalLimiter
	perIP  *ipLimiter
	rate   *connectRateLimiter
}

// LimitsConfig mirrors the MAX_WEBSOCKET_CONNECTIONS family of settings.
type LimitsConfig struct {
	MaxConnections int
	MaxPerIP       int
	RatePerIP      float64
	BurstPerIP     int
}

func NewConnectionLimits(clock clockwork.Clock, cfg LimitsConfig) *ConnectionLimits {
	return &ConnectionLimits{
		global: &globalLimiter{max: int64(cfg.MaxConnections)},
		perIP:  &ipLimiter{ips: make(map[string]int), maxPer: cfg.MaxPerIP},
		rate: &connectRateLimiter{
			clock:    clock,
			limiters: make(map[string]*rateEntry),
			rate:     rate.Limit(cfg.RatePerIP),
			burst:    cfg.BurstPerIP,
			sweepAt:  clock.Now().Add(rateLimiterSweepInterval),
		},
	}
}

// Acquire takes a slot for ip. On failure nothing is held.
func (l *ConnectionLimits) Acquire(ip string) (bool, LimitReason) {
	if !l.rate.allow(ip) {
		return false, LimitReasonRate
	}
	if !l.global.acquire() {
		return false, LimitReasonGlobal
	}
	if !l.perIP.acquire(ip) {
		l.global.release()
		return false, LimitReasonPerIP
	}
	return true, ""
}

func (l *ConnectionLimits) Release(ip string) {
	l.perIP.release(ip)
	l.global.release()
}

// Current returns the number of held slots.
func (l *ConnectionLimits) Current() int64 {
	return l.global.current.Load()
}
