// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ports

import (
	"context"
	"errors"

	"github.com/ManuGH/playreward/internal/domain/reward/model"
)

// ErrInventoryFull is returned by Inventory.AddItem when the session has no room.
var ErrInventoryFull = errors.New("inventory full")

// SessionRegistry enumerates and resolves live sessions.
type SessionRegistry interface {
	ActiveSessions(ctx context.Context) ([]model.Session, error)
	// Session resolves one session; ok is false if it is no longer connected.
	Session(ctx context.Context, id model.SessionID) (s model.Session, ok bool, err error)
}

// Inventory grants items directly to a live session.
type Inventory interface {
	// CanStore reports whether every item fits at once.
	CanStore(ctx context.Context, id model.SessionID, items []model.ItemGrant) (bool, error)
	AddItem(ctx context.Context, id model.SessionID, item model.ItemGrant) error
}

// Reputation sets faction standing and notifies the session of the change.
type Reputation interface {
	SetReputation(ctx context.Context, id model.SessionID, grant model.ReputationGrant) error
}

// Notifier sends system-channel text to a session.
type Notifier interface {
	SendSystemText(ctx context.Context, id model.SessionID, text string) error
}

// ItemCatalog resolves item templates. Unknown ids return model.ErrUnknownItem.
type ItemCatalog interface {
	ItemTemplate(ctx context.Context, itemID uint32) (model.ItemTemplate, error)
}

// FactionCatalog resolves factions. Unknown ids return model.ErrUnknownFaction.
type FactionCatalog interface {
	Faction(ctx context.Context, factionID uint32) (model.Faction, error)
}

// World is the full host surface used by the engine.
type World interface {
	SessionRegistry
	Inventory
	Reputation
	Notifier
	ItemCatalog
	FactionCatalog
}
