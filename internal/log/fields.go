// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRewardID  = "reward_id"
	FieldRunID     = "run_id"
	FieldRequestID = "request_id"
	FieldCommand   = "command"
	FieldActor     = "actor"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Reward fields
	FieldOrigin    = "origin"
	FieldPlayed    = "played_seconds"
	FieldThreshold = "threshold_seconds"
	FieldItemID    = "item_id"
	FieldFactionID = "faction_id"
	FieldCount     = "count"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"
)
