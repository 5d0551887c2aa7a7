// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ports declares the collaborators the reward engine depends on.
// Implementations live in the store and world packages; tests provide fakes.
package ports

import (
	"context"

	"github.com/ManuGH/playreward/internal/domain/reward/model"
)

// DefinitionStore persists reward definitions.
type DefinitionStore interface {
	ListDefinitions(ctx context.Context) ([]model.DefinitionRecord, error)
	InsertDefinition(ctx context.Context, rec model.DefinitionRecord) error
	// DeleteDefinition reports whether a row was removed.
	DeleteDefinition(ctx context.Context, id model.RewardID) (bool, error)
}

// HistoryRepository persists per-session reward high-water marks.
type HistoryRepository interface {
	// LoadHistory returns the persisted entries of one session (empty when none).
	LoadHistory(ctx context.Context, session model.SessionID) ([]model.HistoryEntry, error)
	// ReplaceHistory rewrites the rows of every given session wholesale in a
	// single atomic transaction.
	ReplaceHistory(ctx context.Context, records map[model.SessionID][]model.HistoryEntry) error
}

// MailQueue is the offline delivery channel. Enqueue succeeds from the
// caller's perspective; the host delivers later.
type MailQueue interface {
	EnqueueMail(ctx context.Context, mail model.Mail) error
}

// Store bundles every persistence port behind one handle.
type Store interface {
	DefinitionStore
	HistoryRepository
	MailQueue
	Close() error
}
