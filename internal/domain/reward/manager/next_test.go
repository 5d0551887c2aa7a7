// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/playreward/internal/domain/reward/model"
)

func TestNextGrant(t *testing.T) {
	oneShot := model.Definition{Threshold: time.Hour}
	recurring := model.Definition{Threshold: 30 * time.Minute, Recurring: true}

	tests := []struct {
		name   string
		def    model.Definition
		played time.Duration
		last   time.Duration
		want   []time.Duration
	}{
		{"one-shot pending", oneShot, 20 * time.Minute, 20 * time.Minute, []time.Duration{40 * time.Minute}},
		{"one-shot due next tick", oneShot, 2 * time.Hour, 50 * time.Minute, []time.Duration{0}},
		{"one-shot granted", oneShot, 2 * time.Hour, time.Hour, nil},
		{"recurring mid window", recurring, 40 * time.Minute, 40 * time.Minute, []time.Duration{20 * time.Minute}},
		{"recurring exact multiple evaluated", recurring, 60 * time.Minute, 60 * time.Minute, []time.Duration{30 * time.Minute}},
		{"recurring crossed twice unevaluated", recurring, 70 * time.Minute, 5 * time.Minute, []time.Duration{0, 0, 20 * time.Minute}},
		{"recurring fresh session", recurring, 10 * time.Minute, 0, []time.Duration{20 * time.Minute}},
		{"zero threshold", model.Definition{}, time.Hour, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextGrant(tt.def, tt.played, tt.last))
		})
	}
}

func TestNextGrant_MatchesSmallestMultipleAbovePlayed(t *testing.T) {
	def := model.Definition{Threshold: 7 * time.Minute, Recurring: true}
	for played := time.Minute; played < 2*time.Hour; played += 3 * time.Minute {
		got := NextGrant(def, played, played)
		want := (played/def.Threshold + 1) * def.Threshold
		assert.Equal(t, []time.Duration{want - played}, got, "played %s", played)
	}
}

func TestNextRenderer_Lines(t *testing.T) {
	w := newFakeWorld()
	r := nextRenderer{items: w, factions: w, texts: fakeTexts{}}
	s := model.Session{ID: 1, Locale: "en-US"}
	def := model.Definition{
		Items:       []model.ItemGrant{{ItemID: 1000, Count: 2}, {ItemID: 4242, Count: 1}},
		Reputations: []model.ReputationGrant{{FactionID: 72, Amount: 500}},
	}

	lines := r.lines(context.Background(), s, def, 0)
	assert.Equal(t, []string{
		"reward.next.item[|cffffffff|Hitem:1000:0:0:0:0:0:0:0:0|h[Hearthstone]|h|r 2 reward.next.at_tick]",
		"reward.next.item[|cffffffff|Hitem:4242:0:0:0:0:0:0:0:0|h[4242]|h|r 1 reward.next.at_tick]",
		"reward.next.reputation[Stormwind 500 reward.next.at_tick]",
	}, lines)

	lines = r.lines(context.Background(), s, model.Definition{Items: []model.ItemGrant{{ItemID: 2000, Count: 5}}}, 90*time.Second)
	assert.Equal(t, []string{"reward.next.item[|cffffffff|Hitem:2000:0:0:0:0:0:0:0:0|h[Runecloth]|h|r 5 1m30s]"}, lines)
}
