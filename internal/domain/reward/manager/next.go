// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"strconv"
	"time"

	"github.com/ManuGH/playreward/internal/domain/reward/model"
	"github.com/ManuGH/playreward/internal/domain/reward/ports"
)

// NextGrant returns the time left until the upcoming grants of def. Each
// element is one grant; zero means the grant is already due and will be
// staged by the next tick. It returns nil when nothing is left to grant.
func NextGrant(def model.Definition, played, last time.Duration) []time.Duration {
	t := def.Threshold
	if t <= 0 {
		return nil
	}
	if !def.Recurring {
		if last >= t {
			return nil
		}
		return []time.Duration{max(t-played, 0)}
	}

	if last < 0 {
		last = 0
	}
	var out []time.Duration
	next := t * (last/t + 1)
	for next <= played {
		out = append(out, 0)
		next += t
	}
	return append(out, next-played)
}

// nextRenderer formats next-reward lines in the session's locale.
type nextRenderer struct {
	items    ports.ItemCatalog
	factions ports.FactionCatalog
	texts    ports.Localizer
}

func (r nextRenderer) lines(ctx context.Context, s model.Session, def model.Definition, left time.Duration) []string {
	leftText := r.texts.Text(s.Locale, ports.TextAtNextTick)
	if left > 0 {
		leftText = r.texts.Duration(s.Locale, left)
	}

	out := make([]string, 0, len(def.Items)+len(def.Reputations))
	for _, it := range def.Items {
		tpl, err := r.items.ItemTemplate(ctx, it.ItemID)
		if err != nil {
			tpl = model.ItemTemplate{ID: it.ItemID, Name: strconv.FormatUint(uint64(it.ItemID), 10), Quality: 1}
		}
		out = append(out, r.texts.Text(s.Locale, ports.TextNextItem, tpl.Link(s.Locale), it.Count, leftText))
	}
	for _, rep := range def.Reputations {
		name := strconv.FormatUint(uint64(rep.FactionID), 10)
		if f, err := r.factions.Faction(ctx, rep.FactionID); err == nil && f.Name != "" {
			name = f.Name
		}
		out = append(out, r.texts.Text(s.Locale, ports.TextNextReputation, name, rep.Amount, leftText))
	}
	return out
}
