// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/playreward/internal/domain/reward/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAll(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	out := map[string]Store{"memory": NewMemoryStore()}

	sq, err := Open("sqlite", filepath.Join(dir, "rewards.sqlite"))
	require.NoError(t, err)
	out["sqlite"] = sq

	bg, err := Open("badger", filepath.Join(dir, "rewards.badger"))
	require.NoError(t, err)
	out["badger"] = bg

	t.Cleanup(func() {
		for _, s := range out {
			_ = s.Close()
		}
	})
	return out
}

func TestStore_Definitions(t *testing.T) {
	ctx := context.Background()
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			recs := []model.DefinitionRecord{
				{ID: 2, Recurring: true, ThresholdSeconds: 1800, MinLevel: 10, Items: "2000:5", Reputations: ""},
				{ID: 1, Recurring: false, ThresholdSeconds: 3600, MinLevel: 1, Items: "1000:1", Reputations: "72:500"},
			}
			for _, r := range recs {
				require.NoError(t, s.InsertDefinition(ctx, r))
			}

			got, err := s.ListDefinitions(ctx)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, recs[1], got[0])
			assert.Equal(t, recs[0], got[1])

			deleted, err := s.DeleteDefinition(ctx, 1)
			require.NoError(t, err)
			assert.True(t, deleted)

			deleted, err = s.DeleteDefinition(ctx, 1)
			require.NoError(t, err)
			assert.False(t, deleted)

			got, err = s.ListDefinitions(ctx)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, model.RewardID(2), got[0].ID)
		})
	}
}

func TestStore_DuplicateDefinition(t *testing.T) {
	ctx := context.Background()
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			rec := model.DefinitionRecord{ID: 9, ThresholdSeconds: 60, MinLevel: 1, Items: "1:1"}
			require.NoError(t, s.InsertDefinition(ctx, rec))
			assert.Error(t, s.InsertDefinition(ctx, rec))
		})
	}
}

func TestStore_ReplaceHistory(t *testing.T) {
	ctx := context.Background()
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			entries, err := s.LoadHistory(ctx, 42)
			require.NoError(t, err)
			assert.Empty(t, entries)

			require.NoError(t, s.ReplaceHistory(ctx, map[model.SessionID][]model.HistoryEntry{
				42: {{RewardID: 1, Seconds: 10 * time.Minute}, {RewardID: 2, Seconds: 20 * time.Minute}},
				43: {{RewardID: 1, Seconds: time.Hour}},
			}))

			// Replacing drops rows no longer present for that session only.
			require.NoError(t, s.ReplaceHistory(ctx, map[model.SessionID][]model.HistoryEntry{
				42: {{RewardID: 2, Seconds: 25 * time.Minute}},
			}))

			entries, err = s.LoadHistory(ctx, 42)
			require.NoError(t, err)
			assert.Equal(t, []model.HistoryEntry{{RewardID: 2, Seconds: 25 * time.Minute}}, entries)

			entries, err = s.LoadHistory(ctx, 43)
			require.NoError(t, err)
			assert.Equal(t, []model.HistoryEntry{{RewardID: 1, Seconds: time.Hour}}, entries)

			require.NoError(t, s.ReplaceHistory(ctx, nil))
		})
	}
}

func TestStore_MailQueue(t *testing.T) {
	ctx := context.Background()
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			first := model.Mail{Receiver: "Arthas", Subject: "Reward for online 1 hour", Body: "Hi", ItemID: 1000, Count: 1, SenderID: 37688}
			second := first
			second.ItemID = 2000
			second.Count = 5
			require.NoError(t, s.EnqueueMail(ctx, first))
			require.NoError(t, s.EnqueueMail(ctx, second))

			got, err := s.PendingMail(ctx)
			require.NoError(t, err)
			assert.Equal(t, []model.Mail{first, second}, got)
		})
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open("bolt", t.TempDir())
	assert.ErrorContains(t, err, "unknown store backend")
}

func TestOpen_DefaultsToSqlite(t *testing.T) {
	s, err := Open("", filepath.Join(t.TempDir(), "r.sqlite"))
	require.NoError(t, err)
	defer s.Close()
	_, ok := s.(*SqliteStore)
	assert.True(t, ok)
}

func TestMemoryStore_FailReplace(t *testing.T) {
	s := NewMemoryStore()
	s.SetFailReplace(assert.AnError)
	err := s.ReplaceHistory(context.Background(), map[model.SessionID][]model.HistoryEntry{1: nil})
	assert.ErrorIs(t, err, assert.AnError)
}
