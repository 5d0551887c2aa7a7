// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/playreward/internal/domain/reward/model"
	"github.com/ManuGH/playreward/internal/domain/reward/ports"
	"github.com/ManuGH/playreward/internal/log"
)

const historyLoadTimeout = 10 * time.Second

// loadResult is posted by a history fetch goroutine and applied by Drain.
type loadResult struct {
	session model.SessionID
	gen     uint64
	entries []model.HistoryEntry
	err     error
}

// History keeps the per-session reward high-water marks.
//
// Fetches run on their own goroutines and post a loadResult to a channel;
// the owner applies them serially through Drain. Every other method must be
// called by that same owner, so the maps need no lock.
type History struct {
	repo   ports.HistoryRepository
	logger zerolog.Logger

	records  map[model.SessionID]map[model.RewardID]time.Duration
	inflight map[model.SessionID]uint64
	gen      uint64

	done      chan loadResult
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewHistory creates an empty history store reading from repo.
func NewHistory(repo ports.HistoryRepository) *History {
	ctx, cancel := context.WithCancel(context.Background())
	return &History{
		repo:     repo,
		logger:   log.WithComponent("reward.history"),
		records:  make(map[model.SessionID]map[model.RewardID]time.Duration),
		inflight: make(map[model.SessionID]uint64),
		done:     make(chan loadResult, 64),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// EnsureLoaded starts an asynchronous fetch unless the session already has a
// record or a fetch in flight.
func (h *History) EnsureLoaded(session model.SessionID) {
	if _, ok := h.records[session]; ok {
		return
	}
	if _, ok := h.inflight[session]; ok {
		return
	}
	if h.ctx.Err() != nil {
		return
	}

	h.gen++
	gen := h.gen
	h.inflight[session] = gen

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(h.ctx, historyLoadTimeout)
		defer cancel()

		entries, err := h.repo.LoadHistory(ctx, session)
		select {
		case h.done <- loadResult{session: session, gen: gen, entries: entries, err: err}:
		case <-h.ctx.Done():
		}
	}()
}

// Drain applies every completed fetch without blocking and returns how many
// records were installed.
func (h *History) Drain() int {
	installed := 0
	for {
		select {
		case res := <-h.done:
			if h.apply(res) {
				installed++
			}
		default:
			return installed
		}
	}
}

func (h *History) apply(res loadResult) bool {
	gen, ok := h.inflight[res.session]
	if !ok || gen != res.gen {
		h.logger.Debug().Uint64(log.FieldSessionID, uint64(res.session)).Msg("dropping stale history load")
		return false
	}
	delete(h.inflight, res.session)

	if res.err != nil {
		h.logger.Error().Err(res.err).Uint64(log.FieldSessionID, uint64(res.session)).Msg("history load failed, will retry")
		return false
	}

	if _, exists := h.records[res.session]; exists {
		h.logger.WithLevel(zerolog.FatalLevel).
			Str(log.FieldEvent, "history.duplicate_install").
			Uint64(log.FieldSessionID, uint64(res.session)).
			Msg("history record already present, replacing")
	}

	rec := make(map[model.RewardID]time.Duration, len(res.entries))
	for _, e := range res.entries {
		rec[e.RewardID] = e.Seconds
	}
	h.records[res.session] = rec
	h.logger.Debug().Uint64(log.FieldSessionID, uint64(res.session)).Int(log.FieldCount, len(rec)).Msg("history installed")
	return true
}

// Loaded reports whether the session has a record.
func (h *History) Loaded(session model.SessionID) bool {
	_, ok := h.records[session]
	return ok
}

// Loading reports whether a fetch for the session is in flight.
func (h *History) Loading(session model.SessionID) bool {
	_, ok := h.inflight[session]
	return ok
}

// SecondsAtLastGrant returns the high-water mark, or 0 when unknown.
func (h *History) SecondsAtLastGrant(session model.SessionID, reward model.RewardID) time.Duration {
	return h.records[session][reward]
}

// RecordProgress raises the high-water mark to played. Lower values are
// ignored so the mark never decreases.
func (h *History) RecordProgress(session model.SessionID, reward model.RewardID, played time.Duration) {
	rec, ok := h.records[session]
	if !ok {
		rec = make(map[model.RewardID]time.Duration)
		h.records[session] = rec
	}
	if cur, seen := rec[reward]; !seen || played > cur {
		rec[reward] = played
	}
}

// Remove forgets the session, including any fetch still in flight.
func (h *History) Remove(session model.SessionID) {
	delete(h.records, session)
	delete(h.inflight, session)
}

// Retain drops the records of sessions missing from active. Sessions with a
// fetch in flight are left alone. It returns the number of dropped records.
func (h *History) Retain(active map[model.SessionID]bool) int {
	dropped := 0
	for session := range h.records {
		if active[session] || h.Loading(session) {
			continue
		}
		delete(h.records, session)
		dropped++
	}
	return dropped
}

// Len returns the number of sessions with a record.
func (h *History) Len() int { return len(h.records) }

// Flush rewrites the persisted rows of every recorded session in one
// transaction. It is a no-op when no session has a record.
func (h *History) Flush(ctx context.Context) error {
	if len(h.records) == 0 {
		return nil
	}
	snapshot := make(map[model.SessionID][]model.HistoryEntry, len(h.records))
	for session, rec := range h.records {
		entries := make([]model.HistoryEntry, 0, len(rec))
		for id, secs := range rec {
			entries = append(entries, model.HistoryEntry{RewardID: id, Seconds: secs})
		}
		snapshot[session] = entries
	}
	return h.repo.ReplaceHistory(ctx, snapshot)
}

// Close stops accepting loads and waits for in-flight fetches to return.
func (h *History) Close() {
	h.closeOnce.Do(func() {
		h.cancel()
		h.wg.Wait()
	})
}
