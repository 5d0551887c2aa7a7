// SPDX-License-Identifier: MIT

package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestLimiter_PerKeyBurst(t *testing.T) {
	l := New(Config{Scope: "test_burst", GlobalRate: 1000, GlobalBurst: 1000, PerKeyRate: rate.Every(time.Hour), PerKeyBurst: 3})

	allowed := 0
	for range 5 {
		if l.Allow("session-1") {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed)
	assert.True(t, l.Allow("session-2"), "keys are independent")
	assert.Equal(t, 2.0, testutil.ToFloat64(rateLimitExceeded.WithLabelValues("per_key", "test_burst")))
}

func TestLimiter_GlobalCeiling(t *testing.T) {
	l := New(Config{Scope: "test_global", GlobalRate: rate.Every(time.Hour), GlobalBurst: 2, PerKeyRate: 100, PerKeyBurst: 100})

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
	assert.False(t, l.Allow("c"))
	assert.Equal(t, 1.0, testutil.ToFloat64(rateLimitExceeded.WithLabelValues("global", "test_global")))
}

func TestLimiter_Refill(t *testing.T) {
	l := New(Config{GlobalRate: 1000, GlobalBurst: 1000, PerKeyRate: rate.Every(time.Minute), PerKeyBurst: 1})
	now := time.Now()
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("s"))
	assert.False(t, l.Allow("s"))

	now = now.Add(time.Minute)
	assert.True(t, l.Allow("s"))
}

func TestLimiter_IdleKeysAreDropped(t *testing.T) {
	l := New(Config{GlobalRate: 1000, GlobalBurst: 1000, PerKeyRate: 1, PerKeyBurst: 1, IdleTTL: time.Minute})
	now := time.Now()
	l.now = func() time.Time { return now }

	l.Allow("old")
	assert.Equal(t, 1, l.Keys())

	now = now.Add(2 * time.Minute)
	l.Allow("new")
	assert.Equal(t, 1, l.Keys())
}

func TestPerMinute(t *testing.T) {
	cfg := PerMinute("next", 6)
	assert.Equal(t, 6, cfg.PerKeyBurst)
	assert.InDelta(t, 0.1, float64(cfg.PerKeyRate), 1e-9)
	assert.Equal(t, 1, PerMinute("next", 0).PerKeyBurst)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"forwarded chain", "10.0.0.1, 10.0.0.2", "", "127.0.0.1:1234", "10.0.0.1"},
		{"real ip", "", "10.0.0.3", "127.0.0.1:1234", "10.0.0.3"},
		{"remote addr", "", "", "192.168.1.5:4000", "192.168.1.5"},
		{"remote without port", "", "", "192.168.1.5", "192.168.1.5"},
		{"blank forwarded", " , 10.0.0.2", "", "127.0.0.1:1", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}
