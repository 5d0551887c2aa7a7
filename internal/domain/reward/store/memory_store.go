// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ManuGH/playreward/internal/domain/reward/model"
)

// MemoryStore implements ports.Store in process memory. It backs the
// "memory" storage backend and the engine tests.
type MemoryStore struct {
	mu      sync.Mutex
	defs    map[model.RewardID]model.DefinitionRecord
	history map[model.SessionID][]model.HistoryEntry
	mail    []model.Mail

	// FailReplace makes ReplaceHistory fail, for exercising flush error paths.
	FailReplace error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		defs:    make(map[model.RewardID]model.DefinitionRecord),
		history: make(map[model.SessionID][]model.HistoryEntry),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) ListDefinitions(_ context.Context) ([]model.DefinitionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.DefinitionRecord, 0, len(m.defs))
	for _, rec := range m.defs {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) InsertDefinition(_ context.Context, rec model.DefinitionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.defs[rec.ID]; ok {
		return fmt.Errorf("insert reward %d: %w", rec.ID, model.ErrDuplicateID)
	}
	m.defs[rec.ID] = rec
	return nil
}

func (m *MemoryStore) DeleteDefinition(_ context.Context, id model.RewardID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.defs[id]; !ok {
		return false, nil
	}
	delete(m.defs, id)
	return true, nil
}

func (m *MemoryStore) LoadHistory(_ context.Context, session model.SessionID) ([]model.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.HistoryEntry(nil), m.history[session]...), nil
}

func (m *MemoryStore) ReplaceHistory(_ context.Context, records map[model.SessionID][]model.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReplace != nil {
		return m.FailReplace
	}
	for id, entries := range records {
		m.history[id] = append([]model.HistoryEntry(nil), entries...)
	}
	return nil
}

func (m *MemoryStore) EnqueueMail(_ context.Context, mail model.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mail = append(m.mail, mail)
	return nil
}

// PendingMail returns a copy of every queued mail.
func (m *MemoryStore) PendingMail(_ context.Context) ([]model.Mail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Mail(nil), m.mail...), nil
}

// SetFailReplace toggles ReplaceHistory failures under the store lock.
func (m *MemoryStore) SetFailReplace(err error) {
	m.mu.Lock()
	m.FailReplace = err
	m.mu.Unlock()
}
