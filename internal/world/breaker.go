// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package world

import (
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/playreward/internal/metrics"
)

const breakerComponent = "world"

// BreakerState is the state of a CircuitBreaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

// ErrCircuitOpen is returned while the host is considered down.
var ErrCircuitOpen = errors.New("world: circuit breaker is open")

// CircuitBreaker stops calling the host after consecutive failures and
// probes it again once resetTimeout has passed.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            BreakerState
	failures         int
	failureThreshold int
	resetTimeout     time.Duration
	lastFailure      time.Time
	now              func() time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(threshold int, resetTimeout time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	cb := &CircuitBreaker{
		failureThreshold: threshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
	}
	metrics.SetCircuitBreakerState(breakerComponent, cb.state.String())
	return cb
}

// Allow reports whether a call may be attempted.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerOpen:
		if cb.now().Sub(cb.lastFailure) <= cb.resetTimeout {
			return false
		}
		cb.setState(BreakerHalfOpen)
		return true
	default:
		return true
	}
}

// Record feeds the outcome of an allowed call back into the breaker.
func (cb *CircuitBreaker) Record(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !failed {
		cb.failures = 0
		cb.setState(BreakerClosed)
		return
	}

	cb.failures++
	cb.lastFailure = cb.now()
	if cb.state == BreakerHalfOpen {
		cb.setState(BreakerOpen)
		metrics.RecordCircuitBreakerTrip(breakerComponent, "probe_failed")
		return
	}
	if cb.state == BreakerClosed && cb.failures >= cb.failureThreshold {
		cb.setState(BreakerOpen)
		metrics.RecordCircuitBreakerTrip(breakerComponent, "threshold")
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) setState(s BreakerState) {
	if cb.state == s {
		return
	}
	cb.state = s
	metrics.SetCircuitBreakerState(breakerComponent, s.String())
}

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}
