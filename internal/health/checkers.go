// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"time"
)

// FuncChecker reports unhealthy when its probe returns an error.
type FuncChecker struct {
	name    string
	timeout time.Duration
	probe   func(ctx context.Context) error
}

// NewFuncChecker wraps probe. A zero timeout means two seconds.
func NewFuncChecker(name string, timeout time.Duration, probe func(ctx context.Context) error) *FuncChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &FuncChecker{name: name, timeout: timeout, probe: probe}
}

func (c *FuncChecker) Name() string { return c.name }

func (c *FuncChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.probe(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

type informational struct {
	Checker
}

// Informational downgrades unhealthy results of c to degraded, so c never
// fails readiness.
func Informational(c Checker) Checker {
	return informational{Checker: c}
}

func (i informational) Check(ctx context.Context) CheckResult {
	res := i.Checker.Check(ctx)
	if res.Status == StatusUnhealthy {
		res.Status = StatusDegraded
	}
	return res
}

// LastRunChecker watches the reward tick cadence.
type LastRunChecker struct {
	maxAge time.Duration
	now    func() time.Time
	state  func() (enabled bool, lastRun time.Time)
}

// NewLastRunChecker reports degraded when the engine is disabled or has not
// completed a run within maxAge.
func NewLastRunChecker(maxAge time.Duration, state func() (enabled bool, lastRun time.Time)) *LastRunChecker {
	return &LastRunChecker{maxAge: maxAge, now: time.Now, state: state}
}

func (c *LastRunChecker) Name() string {
	return "reward_run"
}

func (c *LastRunChecker) Check(_ context.Context) CheckResult {
	enabled, lastRun := c.state()
	if !enabled {
		return CheckResult{Status: StatusDegraded, Message: "online rewards disabled"}
	}
	if lastRun.IsZero() {
		return CheckResult{Status: StatusHealthy, Message: "waiting for first run"}
	}
	if age := c.now().Sub(lastRun); c.maxAge > 0 && age > c.maxAge {
		return CheckResult{Status: StatusDegraded, Message: "last run " + age.Truncate(time.Second).String() + " ago"}
	}
	return CheckResult{Status: StatusHealthy, Message: "last run " + lastRun.UTC().Format(time.RFC3339)}
}
