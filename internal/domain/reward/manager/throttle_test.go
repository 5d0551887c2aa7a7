// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/playreward/internal/domain/reward/model"
)

func sess(id model.SessionID, origin string, played time.Duration) model.Session {
	return model.Session{ID: id, Origin: origin, Played: played, Level: 80, InWorld: true}
}

func TestOriginThrottle_KeepsLongestPlayed(t *testing.T) {
	th := NewOriginThrottle(2)
	th.Rebuild([]model.Session{
		sess(1, "10.0.0.1", time.Hour),
		sess(2, "10.0.0.1", 3*time.Hour),
		sess(3, "10.0.0.1", 2*time.Hour),
		sess(4, "10.0.0.2", time.Minute),
	})

	assert.False(t, th.IsEligible(1))
	assert.True(t, th.IsEligible(2))
	assert.True(t, th.IsEligible(3))
	assert.True(t, th.IsEligible(4))
	assert.Equal(t, 1, th.Throttled())
	assert.Equal(t, 2, th.Origins())
}

func TestOriginThrottle_FewerThanMax(t *testing.T) {
	th := NewOriginThrottle(5)
	th.Rebuild([]model.Session{sess(1, "a", time.Hour), sess(2, "a", time.Hour)})
	assert.True(t, th.IsEligible(1))
	assert.True(t, th.IsEligible(2))
	assert.Zero(t, th.Throttled())
}

func TestOriginThrottle_TieBreaksBySessionID(t *testing.T) {
	th := NewOriginThrottle(1)
	th.Rebuild([]model.Session{sess(9, "a", time.Hour), sess(4, "a", time.Hour), sess(7, "a", time.Hour)})
	assert.True(t, th.IsEligible(4))
	assert.False(t, th.IsEligible(7))
	assert.False(t, th.IsEligible(9))
}

func TestOriginThrottle_FailsClosed(t *testing.T) {
	th := NewOriginThrottle(3)
	out := sess(2, "a", time.Hour)
	out.InWorld = false
	th.Rebuild([]model.Session{sess(1, "a", time.Hour), out})

	assert.True(t, th.IsEligible(1))
	assert.False(t, th.IsEligible(2), "sessions outside the world are not grouped")
	assert.False(t, th.IsEligible(42), "unknown sessions are ineligible")
}

func TestOriginThrottle_RebuildResets(t *testing.T) {
	th := NewOriginThrottle(1)
	th.Rebuild([]model.Session{sess(1, "a", time.Hour)})
	assert.True(t, th.IsEligible(1))
	th.Rebuild(nil)
	assert.False(t, th.IsEligible(1))
}

func TestOriginThrottle_NeverExceedsMax(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	origins := []string{"a", "b", "c"}
	for limit := 1; limit <= 4; limit++ {
		th := NewOriginThrottle(limit)
		var sessions []model.Session
		for i := 1; i <= 40; i++ {
			sessions = append(sessions, sess(model.SessionID(i), origins[rng.Intn(len(origins))], time.Duration(rng.Intn(5))*time.Hour))
		}
		th.Rebuild(sessions)

		perOrigin := make(map[string]int)
		for _, s := range sessions {
			if th.IsEligible(s.ID) {
				perOrigin[s.Origin]++
			}
		}
		for origin, n := range perOrigin {
			assert.LessOrEqual(t, n, limit, "origin %s", origin)
		}
	}
}

func TestOriginThrottle_NonPositiveMax(t *testing.T) {
	th := NewOriginThrottle(0)
	th.Rebuild([]model.Session{sess(1, "a", 2*time.Hour), sess(2, "a", time.Hour)})
	assert.True(t, th.IsEligible(1))
	assert.False(t, th.IsEligible(2))
}
