// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/playreward/internal/domain/reward/model"
	"github.com/ManuGH/playreward/internal/domain/reward/ports"
)

// fakeWorld is an in-memory host world.
type fakeWorld struct {
	mu       sync.Mutex
	order    []model.SessionID
	sessions map[model.SessionID]model.Session
	items    map[uint32]model.ItemTemplate
	factions map[uint32]model.Faction

	full      map[model.SessionID]bool
	addBudget map[model.SessionID]int // direct grants allowed before AddItem fails
	granted   map[model.SessionID][]model.ItemGrant
	reps      map[model.SessionID][]model.ReputationGrant
	messages  map[model.SessionID][]string

	listErr   error
	lookupErr error
	canErr    error
}

var _ ports.World = (*fakeWorld)(nil)

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		sessions:  make(map[model.SessionID]model.Session),
		items:     map[uint32]model.ItemTemplate{1000: {ID: 1000, Name: "Hearthstone", Quality: 1}, 2000: {ID: 2000, Name: "Runecloth", Quality: 1}, 3000: {ID: 3000, Name: "Badge", Quality: 4}},
		factions:  map[uint32]model.Faction{72: {ID: 72, Name: "Stormwind", ReputationListID: 7}, 169: {ID: 169, Name: "Steamwheedle", ReputationListID: -1}},
		full:      make(map[model.SessionID]bool),
		addBudget: make(map[model.SessionID]int),
		granted:   make(map[model.SessionID][]model.ItemGrant),
		reps:      make(map[model.SessionID][]model.ReputationGrant),
		messages:  make(map[model.SessionID][]string),
	}
}

func (w *fakeWorld) put(s model.Session) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.sessions[s.ID]; !ok {
		w.order = append(w.order, s.ID)
	}
	s.InWorld = true
	if s.Locale == "" {
		s.Locale = "en-US"
	}
	if s.Name == "" {
		s.Name = fmt.Sprintf("player%d", s.ID)
	}
	w.sessions[s.ID] = s
}

func (w *fakeWorld) setPlayed(id model.SessionID, played time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.sessions[id]
	s.Played = played
	w.sessions[id] = s
}

func (w *fakeWorld) drop(id model.SessionID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.sessions, id)
	for i, v := range w.order {
		if v == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

func (w *fakeWorld) ActiveSessions(context.Context) ([]model.Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.listErr != nil {
		return nil, w.listErr
	}
	out := make([]model.Session, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.sessions[id])
	}
	return out, nil
}

func (w *fakeWorld) Session(_ context.Context, id model.SessionID) (model.Session, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sessions[id]
	return s, ok, nil
}

func (w *fakeWorld) CanStore(_ context.Context, id model.SessionID, _ []model.ItemGrant) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.canErr != nil {
		return false, w.canErr
	}
	return !w.full[id], nil
}

func (w *fakeWorld) AddItem(_ context.Context, id model.SessionID, item model.ItemGrant) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if budget, limited := w.addBudget[id]; limited {
		if budget <= 0 {
			return ports.ErrInventoryFull
		}
		w.addBudget[id] = budget - 1
	}
	w.granted[id] = append(w.granted[id], item)
	return nil
}

func (w *fakeWorld) SetReputation(_ context.Context, id model.SessionID, g model.ReputationGrant) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reps[id] = append(w.reps[id], g)
	return nil
}

func (w *fakeWorld) SendSystemText(_ context.Context, id model.SessionID, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages[id] = append(w.messages[id], text)
	return nil
}

func (w *fakeWorld) ItemTemplate(_ context.Context, itemID uint32) (model.ItemTemplate, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lookupErr != nil {
		return model.ItemTemplate{}, w.lookupErr
	}
	t, ok := w.items[itemID]
	if !ok {
		return model.ItemTemplate{}, model.ErrUnknownItem
	}
	return t, nil
}

func (w *fakeWorld) Faction(_ context.Context, id uint32) (model.Faction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lookupErr != nil {
		return model.Faction{}, w.lookupErr
	}
	f, ok := w.factions[id]
	if !ok {
		return model.Faction{}, model.ErrUnknownFaction
	}
	return f, nil
}

func (w *fakeWorld) grantedTo(id model.SessionID) []model.ItemGrant {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]model.ItemGrant(nil), w.granted[id]...)
}

func (w *fakeWorld) messagesTo(id model.SessionID) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.messages[id]...)
}

// fakeTexts renders "key[args]" unless a format override is registered.
type fakeTexts struct {
	formats map[string]string
}

func (f fakeTexts) Text(_ string, key string, args ...any) string {
	if format, ok := f.formats[key]; ok {
		return fmt.Sprintf(format, args...)
	}
	if len(args) == 0 {
		return key
	}
	return fmt.Sprintf("%s%v", key, args)
}

func (fakeTexts) Duration(_ string, d time.Duration) string { return d.String() }

// countingRepo records ReplaceHistory calls and can block loads.
type countingRepo struct {
	mu       sync.Mutex
	rows     map[model.SessionID][]model.HistoryEntry
	loadErr  error
	gate     chan struct{}
	replaces int
	lastSave map[model.SessionID][]model.HistoryEntry
}

func newCountingRepo() *countingRepo {
	return &countingRepo{rows: make(map[model.SessionID][]model.HistoryEntry)}
}

func (r *countingRepo) LoadHistory(ctx context.Context, id model.SessionID) ([]model.HistoryEntry, error) {
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.rows[id], nil
}

func (r *countingRepo) ReplaceHistory(_ context.Context, records map[model.SessionID][]model.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaces++
	r.lastSave = records
	return nil
}

func (r *countingRepo) replaceCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replaces
}
