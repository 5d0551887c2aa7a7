// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package model defines the reward domain types shared by the catalog,
// history, evaluation and delivery components.
package model

import (
	"fmt"
	"time"
)

// Level bounds accepted for a reward's minimum session level.
const (
	MinLevel = 1
	MaxLevel = 80
)

// ReputationCap is the largest standing a reward may set for a faction.
const ReputationCap = 42999

// SessionID is the stable identity of a participant across sessions.
type SessionID uint64

// RewardID identifies a reward definition.
type RewardID uint32

// Category distinguishes one-shot from recurring rewards.
type Category string

const (
	// CategoryPerOnline rewards are granted once, the first time the threshold is reached.
	CategoryPerOnline Category = "per_online"
	// CategoryPerTime rewards are granted once per threshold multiple reached.
	CategoryPerTime Category = "per_time"
)

// ItemGrant is one (item, quantity) payload entry.
type ItemGrant struct {
	ItemID uint32 `json:"itemId"`
	Count  uint32 `json:"count"`
}

// ReputationGrant is one (faction, standing) payload entry.
type ReputationGrant struct {
	FactionID uint32 `json:"factionId"`
	Amount    uint32 `json:"amount"`
}

// Definition is an immutable reward definition. It is never mutated in place;
// replacing a reward means deleting and re-adding it.
type Definition struct {
	ID          RewardID          `json:"id"`
	Recurring   bool              `json:"recurring"`
	Threshold   time.Duration     `json:"threshold"`
	MinLevel    uint8             `json:"minLevel"`
	Items       []ItemGrant       `json:"items,omitempty"`
	Reputations []ReputationGrant `json:"reputations,omitempty"`
}

// Category reports whether d is a one-shot or recurring reward.
func (d Definition) Category() Category {
	if d.Recurring {
		return CategoryPerTime
	}
	return CategoryPerOnline
}

// HasItems reports whether the reward carries an item payload.
func (d Definition) HasItems() bool { return len(d.Items) > 0 }

// ItemSpec renders the item payload in "id:count,id:count" form.
func (d Definition) ItemSpec() string {
	pairs := make([]Pair, len(d.Items))
	for i, it := range d.Items {
		pairs[i] = Pair{ID: it.ItemID, Amount: it.Count}
	}
	return FormatPairs(pairs)
}

// ReputationSpec renders the reputation payload in "faction:amount,..." form.
func (d Definition) ReputationSpec() string {
	pairs := make([]Pair, len(d.Reputations))
	for i, r := range d.Reputations {
		pairs[i] = Pair{ID: r.FactionID, Amount: r.Amount}
	}
	return FormatPairs(pairs)
}

// ThresholdSeconds returns the threshold in whole seconds.
func (d Definition) ThresholdSeconds() int64 {
	return int64(d.Threshold / time.Second)
}

func (d Definition) String() string {
	return fmt.Sprintf("reward#%d(%s, %s, lvl>=%d)", d.ID, d.Category(), d.Threshold, d.MinLevel)
}

// DefinitionRecord is the persisted row form of a Definition. Payloads are kept
// as spec strings so that rows are validated through the same path as manual
// additions when the catalog loads.
type DefinitionRecord struct {
	ID               RewardID
	Recurring        bool
	ThresholdSeconds int64
	MinLevel         int
	Items            string
	Reputations      string
}

// Record converts d to its persisted form.
func (d Definition) Record() DefinitionRecord {
	return DefinitionRecord{
		ID:               d.ID,
		Recurring:        d.Recurring,
		ThresholdSeconds: d.ThresholdSeconds(),
		MinLevel:         int(d.MinLevel),
		Items:            d.ItemSpec(),
		Reputations:      d.ReputationSpec(),
	}
}
