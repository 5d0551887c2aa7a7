// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/playreward/internal/log"
)

// Default scheduling periods.
const (
	DefaultInitialDelay = 30 * time.Second
	DefaultInterval     = time.Minute
)

// ErrAlreadyRunning is returned when a tick is requested from inside a tick.
var ErrAlreadyRunning = errors.New("reward tick already running")

// State is the scheduler state.
type State int

const (
	StateDisabled State = iota
	StateIdle
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Scheduler is a single recurring timer advanced by elapsed time rather than
// wall clock. It runs the tick function on the caller's goroutine.
type Scheduler struct {
	state        State
	remaining    time.Duration
	initialDelay time.Duration
	interval     time.Duration
	tick         func(ctx context.Context)
	logger       zerolog.Logger
}

// NewScheduler creates a disabled scheduler that runs tick when due.
func NewScheduler(initialDelay, interval time.Duration, tick func(ctx context.Context)) *Scheduler {
	s := &Scheduler{tick: tick, logger: log.WithComponent("reward.scheduler")}
	s.SetPeriods(initialDelay, interval)
	return s
}

// SetPeriods changes the delays used by the next Arm or re-arm.
func (s *Scheduler) SetPeriods(initialDelay, interval time.Duration) {
	if initialDelay < 0 {
		initialDelay = DefaultInitialDelay
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	s.initialDelay = initialDelay
	s.interval = interval
}

// Arm schedules the first tick after the initial delay.
func (s *Scheduler) Arm() {
	s.remaining = s.initialDelay
	s.transition(StateIdle)
}

// Cancel drops the outstanding timer. Called during a tick, it keeps the
// scheduler from re-arming afterwards.
func (s *Scheduler) Cancel() {
	s.remaining = 0
	s.transition(StateDisabled)
}

// Advance consumes diff and runs the tick when the timer expires. It reports
// whether a tick ran.
func (s *Scheduler) Advance(ctx context.Context, diff time.Duration) bool {
	if s.state != StateIdle {
		return false
	}
	s.remaining -= diff
	if s.remaining > 0 {
		return false
	}
	s.run(ctx)
	if s.state == StateRunning {
		s.remaining = s.interval
		s.transition(StateIdle)
	}
	return true
}

// RunNow cancels the timer, runs one tick synchronously and re-arms with the
// initial delay.
func (s *Scheduler) RunNow(ctx context.Context) error {
	if s.state == StateRunning {
		return ErrAlreadyRunning
	}
	s.run(ctx)
	if s.state == StateRunning {
		s.Arm()
	}
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	s.transition(StateRunning)
	s.tick(ctx)
}

// Interval is the period between ticks.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// State returns the current state.
func (s *Scheduler) State() State { return s.state }

// Remaining is the time left until the next tick while idle.
func (s *Scheduler) Remaining() time.Duration {
	if s.state != StateIdle {
		return 0
	}
	return s.remaining
}

func (s *Scheduler) transition(next State) {
	if s.state == next {
		return
	}
	s.logger.Debug().
		Str(log.FieldOldState, s.state.String()).
		Str(log.FieldNewState, next.String()).
		Msg("scheduler transition")
	s.state = next
}
