// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import "time"

// Session is a snapshot of a connected participant as reported by the host.
type Session struct {
	ID      SessionID     `json:"id"`
	Name    string        `json:"name"`
	Level   uint8         `json:"level"`
	Played  time.Duration `json:"played"`
	Origin  string        `json:"origin"`
	Locale  string        `json:"locale"`
	InWorld bool          `json:"inWorld"`
}

// HistoryEntry is the persisted high-water mark of one reward for one session.
type HistoryEntry struct {
	RewardID RewardID
	Seconds  time.Duration
}

// Mail is one offline delivery, picked up by the host's mail service.
type Mail struct {
	Receiver string
	Subject  string
	Body     string
	ItemID   uint32
	Count    uint32
	SenderID uint32
}

// ItemTemplate is the subset of the host's item catalog used for validation
// and display.
type ItemTemplate struct {
	ID      uint32            `json:"id"`
	Name    string            `json:"name"`
	Quality uint8             `json:"quality"`
	Names   map[string]string `json:"names,omitempty"`
}

// LocalizedName returns the name for locale, falling back to the default name.
func (t ItemTemplate) LocalizedName(locale string) string {
	if n := t.Names[locale]; n != "" {
		return n
	}
	return t.Name
}

// Faction is the subset of the host's faction table used for validation.
type Faction struct {
	ID               uint32 `json:"id"`
	Name             string `json:"name"`
	ReputationListID int    `json:"reputationListId"`
}

// SupportsReputation reports whether standing can be set for the faction.
func (f Faction) SupportsReputation() bool { return f.ReputationListID >= 0 }
