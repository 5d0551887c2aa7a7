// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package store provides the persistence backends of the reward engine.
package store

import (
	"context"
	"fmt"

	"github.com/ManuGH/playreward/internal/domain/reward/model"
	"github.com/ManuGH/playreward/internal/domain/reward/ports"
)

// Store is a ports.Store that can also list its offline mail queue.
type Store interface {
	ports.Store
	PendingMail(ctx context.Context) ([]model.Mail, error)
}

var (
	_ Store = (*SqliteStore)(nil)
	_ Store = (*BadgerStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// Open creates a Store based on the backend configuration.
func Open(backend, path string) (Store, error) {
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "memory":
		return NewMemoryStore(), nil
	case "badger":
		return OpenBadgerStore(path)
	case "sqlite":
		return NewSqliteStore(path)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", backend)
	}
}
