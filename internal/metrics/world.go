// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	worldRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "playreward_world_request_duration_seconds",
		Help:    "Host world API call latency by operation and result",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"operation", "result"})

	worldLookupCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playreward_world_lookup_cache_total",
		Help: "Item template and faction lookups by kind and cache result",
	}, []string{"kind", "result"}) // result=hit|miss

	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "playreward_circuit_breaker_state",
		Help: "Circuit breaker state by component (1 for the active state, 0 otherwise)",
	}, []string{"component", "state"})

	circuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playreward_circuit_breaker_trips_total",
		Help: "Transitions of a circuit breaker to the open state",
	}, []string{"component", "reason"})
)

var circuitStates = []string{"closed", "half-open", "open"}

// ObserveWorldRequest records one host API call.
func ObserveWorldRequest(operation, result string, d time.Duration) {
	worldRequestDuration.WithLabelValues(operation, result).Observe(d.Seconds())
}

// IncWorldLookup counts a cached lookup.
func IncWorldLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	worldLookupCache.WithLabelValues(kind, result).Inc()
}

// SetCircuitBreakerState records the active circuit breaker state for a component.
func SetCircuitBreakerState(component, state string) {
	for _, s := range circuitStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		circuitBreakerState.WithLabelValues(component, s).Set(value)
	}
}

// RecordCircuitBreakerTrip increments the trip counter when a breaker opens.
func RecordCircuitBreakerTrip(component, reason string) {
	circuitBreakerTrips.WithLabelValues(component, reason).Inc()
}
