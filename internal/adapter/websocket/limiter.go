package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const (
	rateLimiterIdleTTL      = 10 * time.Minute
	rateLimiterCleanupEvery = 5 * time.Minute
)

// LimitReason describes why a connection was refused.
type LimitReason string

const (
	LimitReasonGlobal LimitReason = "global_limit"
	LimitReasonPerIP  LimitReason = "per_ip_limit"
	LimitReasonRate   LimitReason = "rate_limit"
)

// globalLimiter caps concurrent connections on this instance.
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

// ipLimiter caps concurrent connections per remote address.
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

// admissionRate is a token bucket per remote address for new connections.
type admissionRate struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	limiters  map[string]*rateEntry
	rate      rate.Limit
	burst     int
	cleanupAt time.Time
}

type rateEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (l *admissionRate) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if now.After(l.cleanupAt) {
		cutoff := now.Add(-rateLimiterIdleTTL)
		for key, entry := range l.limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(l.limiters, key)
			}
		}
		l.cleanupAt = now.Add(rateLimiterCleanupEvery)
	}

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &rateEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// LimitsConfig configures connection admission.
// Zero values disable the corresponding check.
type LimitsConfig struct {
	MaxConnections int64
	MaxPerIP       int
	PerIPRate      float64
	PerIPBurst     int
}

// ConnectionLimits decides whether a new WebSocket connection may be admitted.
// It bounds total connections, connections per IP, and the rate of new
// connections per IP. It never looks at traffic on established connections.
type ConnectionLimits struct {
	global *globalLimiter
	perIP  *ipLimiter
	rate   *admissionRate
}

func NewConnectionLimits(cfg LimitsConfig, clock clockwork.Clock) *ConnectionLimits {
	l := &ConnectionLimits{}
	if cfg.MaxConnections > 0 {
		l.global = &globalLimiter{max: cfg.MaxConnections}
	}
	if cfg.MaxPerIP > 0 {
		l.perIP = &ipLimiter{ips: make(map[string]int), maxPer: cfg.MaxPerIP}
	}
	if cfg.PerIPRate > 0 {
		burst := cfg.PerIPBurst
		if burst < 1 {
			burst = 1
		}
		l.rate = &admissionRate{
			clock:     clock,
			limiters:  make(map[string]*rateEntry),
			rate:      rate.Limit(cfg.PerIPRate),
			burst:     burst,
			cleanupAt: clock.Now().Add(rateLimiterCleanupEvery),
		}
	}
	return l
}

// Acquire reserves a slot for ip. On success the caller must call Release.
func (l *ConnectionLimits) Acquire(ip string) (bool, LimitReason) {
	if l.rate != nil && !l.rate.allow(ip) {
		return false, LimitReasonRate
	}
	if l.global != nil && !l.global.acquire() {
		return false, LimitReasonGlobal
	}
	if l.perIP != nil && !l.perIP.acquire(ip) {
		if l.global != nil {
			l.global.release()
		}
		return false, LimitReasonPerIP
	}
	return true, ""
}

// Release frees the slot taken by a successful Acquire.
func (l *ConnectionLimits) Release(ip string) {
	if l.perIP != nil {
		l.perIP.release(ip)
	}
	if l.global != nil {
		l.global.release()
	}
}

// Current returns the number of admitted connections, or -1 when unbounded.
func (l *ConnectionLimits) Current() int64 {
	if l.global == nil {
		return -1
	}
	return l.global.current.Load()
}

// CapacityPct returns global utilization as a percentage.
func (l *ConnectionLimits) CapacityPct() float64 {
	if l.global == nil || l.global.max == 0 {
		return 0
	}
	return float64(l.global.current.Load()) / float64(l.global.max) * 100
}

// PerIP returns the number of admitted connections from ip.
func (l *ConnectionLimits) PerIP(ip string) int {
	if l.perIP == nil {
		return 0
	}
	return l.perIP.count(ip)
}
