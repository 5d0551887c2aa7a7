// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/playreward/internal/domain/reward/model"
)

func drainUntil(t *testing.T, h *History, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		h.Drain()
		return cond()
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHistory_LoadInstallsRecord(t *testing.T) {
	repo := newCountingRepo()
	repo.rows[7] = []model.HistoryEntry{{RewardID: 1, Seconds: time.Hour}}
	h := NewHistory(repo)
	defer h.Close()

	assert.Zero(t, h.SecondsAtLastGrant(7, 1))
	h.EnsureLoaded(7)
	assert.True(t, h.Loading(7))
	h.EnsureLoaded(7)

	drainUntil(t, h, func() bool { return h.Loaded(7) })
	assert.False(t, h.Loading(7))
	assert.Equal(t, time.Hour, h.SecondsAtLastGrant(7, 1))
	assert.Zero(t, h.SecondsAtLastGrant(7, 2))

	h.EnsureLoaded(7)
	assert.False(t, h.Loading(7), "loaded sessions are not fetched again")
}

func TestHistory_EmptyResultInstallsEmptyRecord(t *testing.T) {
	h := NewHistory(newCountingRepo())
	defer h.Close()

	h.EnsureLoaded(3)
	drainUntil(t, h, func() bool { return h.Loaded(3) })
	assert.Equal(t, 1, h.Len())
}

func TestHistory_LoadErrorRetries(t *testing.T) {
	repo := newCountingRepo()
	repo.loadErr = errors.New("db down")
	h := NewHistory(repo)
	defer h.Close()

	h.EnsureLoaded(3)
	drainUntil(t, h, func() bool { return !h.Loading(3) })
	assert.False(t, h.Loaded(3))

	repo.mu.Lock()
	repo.loadErr = nil
	repo.mu.Unlock()
	h.EnsureLoaded(3)
	drainUntil(t, h, func() bool { return h.Loaded(3) })
}

func TestHistory_RemoveDropsInflightLoad(t *testing.T) {
	repo := newCountingRepo()
	repo.gate = make(chan struct{})
	h := NewHistory(repo)
	defer h.Close()

	h.EnsureLoaded(5)
	h.Remove(5)
	close(repo.gate)

	// The completion arrives but belongs to a forgotten request.
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, h.Drain())
	assert.False(t, h.Loaded(5))
}

func TestHistory_DuplicateInstallReplaces(t *testing.T) {
	h := NewHistory(newCountingRepo())
	defer h.Close()

	h.RecordProgress(9, 1, time.Minute)
	h.inflight[9] = 42
	installed := h.apply(loadResult{session: 9, gen: 42, entries: []model.HistoryEntry{{RewardID: 1, Seconds: time.Hour}}})
	assert.True(t, installed)
	assert.Equal(t, time.Hour, h.SecondsAtLastGrant(9, 1))
}

func TestHistory_RetainDropsDepartedSessions(t *testing.T) {
	h := NewHistory(newCountingRepo())
	defer h.Close()

	h.RecordProgress(1, 1, time.Minute)
	h.RecordProgress(2, 1, time.Minute)
	h.RecordProgress(4, 1, time.Minute)
	h.inflight[4] = 7

	assert.Equal(t, 1, h.Retain(map[model.SessionID]bool{1: true}))
	assert.True(t, h.Loaded(1))
	assert.False(t, h.Loaded(2))
	assert.True(t, h.Loaded(4), "sessions with a fetch in flight are kept")
	assert.Zero(t, h.Retain(map[model.SessionID]bool{1: true}))
}

func TestHistory_RecordProgressIsMonotonic(t *testing.T) {
	h := NewHistory(newCountingRepo())
	defer h.Close()

	h.RecordProgress(1, 1, time.Hour)
	h.RecordProgress(1, 1, 30*time.Minute)
	assert.Equal(t, time.Hour, h.SecondsAtLastGrant(1, 1))
	h.RecordProgress(1, 1, 2*time.Hour)
	assert.Equal(t, 2*time.Hour, h.SecondsAtLastGrant(1, 1))
}

func TestHistory_Flush(t *testing.T) {
	repo := newCountingRepo()
	h := NewHistory(repo)
	defer h.Close()

	require.NoError(t, h.Flush(context.Background()))
	assert.Zero(t, repo.replaceCount(), "nothing to flush")

	h.RecordProgress(1, 1, time.Hour)
	h.RecordProgress(1, 2, time.Hour)
	h.RecordProgress(2, 1, time.Minute)
	require.NoError(t, h.Flush(context.Background()))
	assert.Equal(t, 1, repo.replaceCount())
	assert.Len(t, repo.lastSave, 2)
	assert.ElementsMatch(t, []model.HistoryEntry{{RewardID: 1, Seconds: time.Hour}, {RewardID: 2, Seconds: time.Hour}}, repo.lastSave[1])

	h.Remove(1)
	h.Remove(2)
	h.Remove(99)
	require.NoError(t, h.Flush(context.Background()))
	assert.Equal(t, 1, repo.replaceCount())
}

func TestHistory_CloseUnblocksLoads(t *testing.T) {
	repo := newCountingRepo()
	repo.gate = make(chan struct{})
	h := NewHistory(repo)

	h.EnsureLoaded(1)
	h.EnsureLoaded(2)
	h.Close()

	h.EnsureLoaded(3)
	assert.False(t, h.Loading(3), "closed history accepts no loads")
}
