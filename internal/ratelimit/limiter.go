// SPDX-License-Identifier: MIT

// Package ratelimit throttles player-facing commands per key (session id or
// client address) on top of a global ceiling.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var rateLimitExceeded = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "playreward",
		Name:      "ratelimit_exceeded_total",
		Help:      "Total rate limit rejections",
	},
	[]string{"limit_type", "scope"},
)

// Config holds rate limiting configuration.
type Config struct {
	// Scope labels rejections in metrics (e.g. "next").
	Scope string

	GlobalRate  rate.Limit
	GlobalBurst int

	PerKeyRate  rate.Limit
	PerKeyBurst int

	// IdleTTL drops per-key limiters not used for this long.
	IdleTTL time.Duration
}

// PerMinute builds a config allowing n requests per minute per key, with a
// burst of n and a global ceiling a hundred times larger.
func PerMinute(scope string, n int) Config {
	if n <= 0 {
		n = 1
	}
	perKey := rate.Limit(float64(n) / 60)
	return Config{
		Scope:       scope,
		GlobalRate:  perKey * 100,
		GlobalBurst: n * 100,
		PerKeyRate:  perKey,
		PerKeyBurst: n,
		IdleTTL:     10 * time.Minute,
	}
}

type keyed struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter applies a global and a per-key token bucket.
type Limiter struct {
	config Config
	now    func() time.Time

	global *rate.Limiter

	mu          sync.Mutex
	perKey      map[string]*keyed
	lastCleanup time.Time
}

// New creates a limiter.
func New(config Config) *Limiter {
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	return &Limiter{
		config:      config,
		now:         time.Now,
		global:      rate.NewLimiter(config.GlobalRate, config.GlobalBurst),
		perKey:      make(map[string]*keyed),
		lastCleanup: time.Now(),
	}
}

// Allow reports whether a request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
	if !l.global.Allow() {
		rateLimitExceeded.WithLabelValues("global", l.config.Scope).Inc()
		return false
	}

	now := l.now()
	l.mu.Lock()
	k, ok := l.perKey[key]
	if !ok {
		k = &keyed{limiter: rate.NewLimiter(l.config.PerKeyRate, l.config.PerKeyBurst)}
		l.perKey[key] = k
	}
	k.lastSeen = now
	l.cleanupLocked(now)
	l.mu.Unlock()

	if !k.limiter.AllowN(now, 1) {
		rateLimitExceeded.WithLabelValues("per_key", l.config.Scope).Inc()
		return false
	}
	return true
}

// Keys returns the number of tracked keys.
func (l *Limiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.perKey)
}

func (l *Limiter) cleanupLocked(now time.Time) {
	if now.Sub(l.lastCleanup) < l.config.IdleTTL {
		return
	}
	for key, k := range l.perKey {
		if now.Sub(k.lastSeen) >= l.config.IdleTTL {
			delete(l.perKey, key)
		}
	}
	l.lastCleanup = now
}

// ClientIP extracts the client address from the request, preferring the
// first X-Forwarded-For hop, then X-Real-IP, then RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
