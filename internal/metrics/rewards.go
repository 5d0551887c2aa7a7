// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics exposes the Prometheus collectors of the reward daemon.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tick metrics
	rewardTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playreward_ticks_total",
		Help: "Reward ticks by result",
	}, []string{"result"}) // result=ok|empty_world|world_error

	rewardTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "playreward_tick_duration_seconds",
		Help:    "Duration of one evaluate-deliver-flush cycle",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	rewardGrantsStaged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playreward_grants_staged_total",
		Help: "Grants staged by the evaluator",
	})

	rewardGrantsWithheld = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playreward_grants_withheld_total",
		Help: "Due grants dropped because the session's origin was over its cap",
	})

	rewardGrantsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playreward_grants_delivered_total",
		Help: "Processed grants by delivery outcome",
	}, []string{"outcome"}) // outcome=direct|mail|reputation_only|session_missing|reward_missing

	rewardSessionsThrottled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playreward_sessions_throttled",
		Help: "Sessions excluded by the origin throttle in the last tick",
	})

	// State metrics
	rewardCatalogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playreward_catalog_rewards",
		Help: "Reward definitions currently loaded",
	})

	rewardHistoryRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playreward_history_records",
		Help: "Sessions with an in-memory reward history",
	})

	rewardHistoryFlushFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playreward_history_flush_failures_total",
		Help: "History flushes that failed and were left for the next tick",
	})

	rewardFeatureEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playreward_feature_enabled",
		Help: "Whether online rewards are active (1) or disabled (0)",
	})

	invariantViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playreward_invariant_violations_total",
		Help: "Internal invariant violations by kind",
	}, []string{"kind"})

	// Admin metrics
	adminCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playreward_admin_commands_total",
		Help: "Administrative commands by name and outcome",
	}, []string{"command", "outcome"}) // outcome=ok|failed|rejected
)

func IncRewardTick(result string)          { rewardTicksTotal.WithLabelValues(result).Inc() }
func ObserveRewardTick(d time.Duration)    { rewardTickDuration.Observe(d.Seconds()) }
func AddGrantsStaged(n int)                { rewardGrantsStaged.Add(float64(n)) }
func AddGrantsWithheld(n int)              { rewardGrantsWithheld.Add(float64(n)) }
func RecordSessionsThrottled(n int)        { rewardSessionsThrottled.Set(float64(n)) }
func RecordCatalogSize(n int)              { rewardCatalogSize.Set(float64(n)) }
func RecordHistoryRecords(n int)           { rewardHistoryRecords.Set(float64(n)) }
func IncHistoryFlushFailure()              { rewardHistoryFlushFailures.Inc() }
func IncInvariantViolation(kind string)    { invariantViolations.WithLabelValues(kind).Inc() }
func IncAdminCommand(name, outcome string) { adminCommandsTotal.WithLabelValues(name, outcome).Inc() }

// AddGrantsDelivered counts n grants that ended with outcome.
func AddGrantsDelivered(outcome string, n int) {
	if n <= 0 {
		return
	}
	rewardGrantsDelivered.WithLabelValues(outcome).Add(float64(n))
}

// RecordFeatureEnabled flips the feature gauge.
func RecordFeatureEnabled(enabled bool) {
	if enabled {
		rewardFeatureEnabled.Set(1)
		return
	}
	rewardFeatureEnabled.Set(0)
}
