// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"time"

	"github.com/ManuGH/playreward/internal/domain/reward/model"
)

// Categories selects which reward kinds are evaluated.
type Categories struct {
	PerOnline bool
	PerTime   bool
}

// Allows reports whether rewards of category c are enabled.
func (c Categories) Allows(cat model.Category) bool {
	switch cat {
	case model.CategoryPerOnline:
		return c.PerOnline
	case model.CategoryPerTime:
		return c.PerTime
	default:
		return false
	}
}

// Any reports whether at least one category is enabled.
func (c Categories) Any() bool { return c.PerOnline || c.PerTime }

// EvalStats summarizes one session's evaluation.
type EvalStats struct {
	Evaluated int // rewards whose high-water mark was recorded
	Staged    int // grants added to the pending buffer
	Withheld  int // due grants dropped by the origin throttle
}

func (s *EvalStats) add(o EvalStats) {
	s.Evaluated += o.Evaluated
	s.Staged += o.Staged
	s.Withheld += o.Withheld
}

// Evaluator decides which grants are due. It holds no state of its own.
type Evaluator struct {
	catalog  *Catalog
	history  *History
	throttle *OriginThrottle
}

// NewEvaluator wires an evaluator over the shared engine state.
func NewEvaluator(catalog *Catalog, history *History, throttle *OriginThrottle) *Evaluator {
	return &Evaluator{catalog: catalog, history: history, throttle: throttle}
}

// Evaluate stages every due grant for s into pending and advances the
// session's high-water marks.
func (e *Evaluator) Evaluate(s model.Session, cats Categories, pending *model.PendingGrants) EvalStats {
	var stats EvalStats
	if s.Played <= 0 {
		return stats
	}
	eligible := e.throttle.IsEligible(s.ID)

	for _, def := range e.catalog.List() {
		if !cats.Allows(def.Category()) {
			continue
		}
		if s.Level < def.MinLevel {
			continue
		}

		last := e.history.SecondsAtLastGrant(s.ID, def.ID)
		if due := DueCount(def, s.Played, last); due > 0 {
			if eligible {
				for range due {
					pending.Stage(s.ID, def.ID)
				}
				stats.Staged += due
			} else {
				stats.Withheld += due
			}
		}

		e.history.RecordProgress(s.ID, def.ID, s.Played)
		stats.Evaluated++
	}
	return stats
}

// DueCount returns how many grants of def are due for a session that has
// played for played and whose high-water mark is last.
//
// A one-shot reward is due once when played reaches the threshold and the
// mark is still below it. A recurring reward is due once for every multiple
// k*threshold with last < k*threshold <= played.
func DueCount(def model.Definition, played, last time.Duration) int {
	t := def.Threshold
	if t <= 0 || played < t {
		return 0
	}
	if !def.Recurring {
		if last < t {
			return 1
		}
		return 0
	}
	if last < 0 {
		last = 0
	}
	n := int64(played/t) - int64(last/t)
	if n <= 0 {
		return 0
	}
	return int(n)
}
