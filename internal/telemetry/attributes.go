// SPDX-License-Identifier: MIT

// Package telemetry provides OpenTelemetry tracing utilities for the reward daemon.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	// Reward tick attributes
	RewardRunIDKey     = "reward.run_id"
	RewardSessionsKey  = "reward.sessions"
	RewardStagedKey    = "reward.staged"
	RewardWithheldKey  = "reward.withheld"
	RewardDeliveredKey = "reward.delivered"

	// Admin command attributes
	AdminCommandKey = "admin.command"
	AdminOutcomeKey = "admin.outcome"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// RewardTickAttributes creates span attributes summarizing one reward tick.
func RewardTickAttributes(runID string, sessions, staged, withheld, delivered int) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 5)
	if runID != "" {
		attrs = append(attrs, attribute.String(RewardRunIDKey, runID))
	}
	return append(attrs,
		attribute.Int(RewardSessionsKey, sessions),
		attribute.Int(RewardStagedKey, staged),
		attribute.Int(RewardWithheldKey, withheld),
		attribute.Int(RewardDeliveredKey, delivered),
	)
}

// AdminAttributes creates admin command span attributes.
func AdminAttributes(command, outcome string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AdminCommandKey, command),
		attribute.String(AdminOutcomeKey, outcome),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
