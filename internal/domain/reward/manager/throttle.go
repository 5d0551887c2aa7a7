// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"sort"

	"github.com/ManuGH/playreward/internal/domain/reward/model"
)

// OriginThrottle caps how many sessions per network origin are eligible for
// rewards in one tick. Within an origin the longest-played sessions win; equal
// played time is broken by ascending session id.
type OriginThrottle struct {
	max       int
	eligible  map[model.SessionID]struct{}
	origins   int
	throttled int
}

// NewOriginThrottle creates a throttle keeping at most limit sessions per origin.
func NewOriginThrottle(limit int) *OriginThrottle {
	t := &OriginThrottle{eligible: make(map[model.SessionID]struct{})}
	t.SetMax(limit)
	return t
}

// SetMax changes the per-origin cap for the next Rebuild. Values below 1 are
// raised to 1.
func (t *OriginThrottle) SetMax(limit int) {
	if limit < 1 {
		limit = 1
	}
	t.max = limit
}

// Rebuild recomputes eligibility from the in-world sessions of this tick.
func (t *OriginThrottle) Rebuild(sessions []model.Session) {
	clear(t.eligible)
	t.throttled = 0

	groups := make(map[string][]model.Session)
	for _, s := range sessions {
		if !s.InWorld {
			continue
		}
		groups[s.Origin] = append(groups[s.Origin], s)
	}
	t.origins = len(groups)

	for _, group := range groups {
		if len(group) > 1 {
			sort.Slice(group, func(i, j int) bool {
				if group[i].Played != group[j].Played {
					return group[i].Played > group[j].Played
				}
				return group[i].ID < group[j].ID
			})
		}
		keep := min(t.max, len(group))
		for _, s := range group[:keep] {
			t.eligible[s.ID] = struct{}{}
		}
		t.throttled += len(group) - keep
	}
}

// IsEligible reports whether the session survived truncation. Sessions not
// seen by the last Rebuild are ineligible.
func (t *OriginThrottle) IsEligible(id model.SessionID) bool {
	_, ok := t.eligible[id]
	return ok
}

// Throttled is the number of sessions excluded by the last Rebuild.
func (t *OriginThrottle) Throttled() int { return t.throttled }

// Origins is the number of distinct origins seen by the last Rebuild.
func (t *OriginThrottle) Origins() int { return t.origins }
