// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import "errors"

// Catalog errors returned by add/delete.
var (
	ErrDuplicateID      = errors.New("reward id already exists")
	ErrInvalidThreshold = errors.New("reward threshold must be greater than zero")
	ErrInvalidLevel     = errors.New("reward min level out of range")
	ErrEmptyPayload     = errors.New("reward has no valid items or reputations")
	ErrNotFound         = errors.New("reward not found")
	ErrFeatureDisabled  = errors.New("online rewards are disabled")
	ErrNoData           = errors.New("no valid reward definitions")
)

// Per-entry validation errors. These never fail an add on their own; the
// offending entry is dropped and logged.
var (
	ErrMalformedEntry  = errors.New("malformed payload entry")
	ErrUnknownItem     = errors.New("item template not found")
	ErrUnknownFaction  = errors.New("faction not found")
	ErrNoReputation    = errors.New("faction cannot have reputation")
	ErrReputationCap   = errors.New("reputation exceeds cap")
	ErrSessionNotFound = errors.New("session not found")
)
