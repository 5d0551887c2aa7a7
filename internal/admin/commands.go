// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package admin exposes the operator commands of the reward engine as a typed
// command table and serves it over HTTP.
package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ManuGH/playreward/internal/domain/reward/manager"
	"github.com/ManuGH/playreward/internal/domain/reward/model"
	"github.com/ManuGH/playreward/internal/domain/reward/ports"
	"github.com/ManuGH/playreward/internal/metrics"
)

// Command names.
const (
	CmdAdd          = "add"
	CmdDelete       = "delete"
	CmdList         = "list"
	CmdNext         = "next"
	CmdReload       = "reload"
	CmdRun          = "run"
	CmdSessionStart = "session-start"
	CmdSessionEnd   = "session-end"
	CmdStatus       = "status"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArguments   = errors.New("invalid command arguments")
)

// Result is what every command returns: success plus display lines.
type Result struct {
	OK    bool     `json:"ok"`
	Lines []string `json:"lines"`
}

func ok(lines ...string) Result   { return Result{OK: true, Lines: lines} }
func fail(lines ...string) Result { return Result{OK: false, Lines: lines} }

// AddArgs are the arguments of "add". ID 0 picks the next free id.
type AddArgs struct {
	ID          uint32 `json:"id,omitempty"`
	Recurring   bool   `json:"recurring"`
	Seconds     int64  `json:"seconds"`
	MinLevel    int    `json:"minLevel"`
	Items       string `json:"items,omitempty"`
	Reputations string `json:"reputations,omitempty"`
}

// RewardArgs select one reward.
type RewardArgs struct {
	ID uint32 `json:"id"`
}

// SessionArgs select one session.
type SessionArgs struct {
	SessionID uint64 `json:"sessionId"`
}

// NoArgs is accepted by commands without parameters.
type NoArgs struct{}

// Engine is the part of the reward service the commands drive.
type Engine interface {
	AddReward(ctx context.Context, req manager.AddRequest) (model.Definition, error)
	DeleteReward(ctx context.Context, id model.RewardID) error
	Rewards() []model.Definition
	Next(ctx context.Context, id model.SessionID) ([]string, error)
	ReloadCatalog(ctx context.Context) (int, error)
	RunNow(ctx context.Context) (manager.TickReport, error)
	SessionStarted(id model.SessionID)
	SessionEnded(id model.SessionID)
	Status() manager.Status
}

// ReloadFunc reloads configuration and re-applies it to the engine.
type ReloadFunc func(ctx context.Context) error

type handler func(ctx context.Context, raw json.RawMessage) (Result, error)

// Commands is the command table.
type Commands struct {
	engine Engine
	texts  ports.Localizer
	reload ReloadFunc
	table  map[string]handler
}

// NewCommands builds the table. A nil reload makes "reload" re-read only the
// reward catalog.
func NewCommands(engine Engine, texts ports.Localizer, reload ReloadFunc) *Commands {
	c := &Commands{engine: engine, texts: texts, reload: reload}
	c.table = map[string]handler{
		CmdAdd:          typed(c.add),
		CmdDelete:       typed(c.delete),
		CmdList:         typed(c.list),
		CmdNext:         typed(c.next),
		CmdReload:       typed(c.reloadAll),
		CmdRun:          typed(c.run),
		CmdSessionStart: typed(c.sessionStart),
		CmdSessionEnd:   typed(c.sessionEnd),
		CmdStatus:       typed(c.status),
	}
	return c
}

// typed adapts a handler with a concrete argument struct. Unknown fields are
// rejected.
func typed[A any](fn func(context.Context, A) Result) handler {
	return func(ctx context.Context, raw json.RawMessage) (Result, error) {
		var args A
		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
			dec := json.NewDecoder(bytes.NewReader(trimmed))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&args); err != nil {
				return Result{}, fmt.Errorf("%w: %v", ErrBadArguments, err)
			}
		}
		return fn(ctx, args), nil
	}
}

// Names lists the registered commands.
func (c *Commands) Names() []string {
	names := make([]string, 0, len(c.table))
	for n := range c.table {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Execute runs a command. The error is reserved for unknown commands and
// undecodable arguments; command failures are reported in the Result.
func (c *Commands) Execute(ctx context.Context, name string, raw json.RawMessage) (Result, error) {
	h, found := c.table[name]
	if !found {
		metrics.IncAdminCommand("unknown", "rejected")
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	res, err := h(ctx, raw)
	switch {
	case err != nil:
		metrics.IncAdminCommand(name, "rejected")
	case res.OK:
		metrics.IncAdminCommand(name, "ok")
	default:
		metrics.IncAdminCommand(name, "failed")
	}
	return res, err
}

func (c *Commands) add(ctx context.Context, a AddArgs) Result {
	if a.Seconds <= 0 {
		return fail("> The number of seconds must be specified")
	}
	def, err := c.engine.AddReward(ctx, manager.AddRequest{
		ID:               model.RewardID(a.ID),
		Recurring:        a.Recurring,
		ThresholdSeconds: a.Seconds,
		MinLevel:         a.MinLevel,
		Items:            a.Items,
		Reputations:      a.Reputations,
	})
	if err != nil {
		return fail("> Reward not added: " + err.Error())
	}
	return ok(fmt.Sprintf("> Reward %d added", def.ID))
}

func (c *Commands) delete(ctx context.Context, a RewardArgs) Result {
	if err := c.engine.DeleteReward(ctx, model.RewardID(a.ID)); err != nil {
		return fail(fmt.Sprintf("> Reward %d was not deleted: %v", a.ID, err))
	}
	return ok(fmt.Sprintf("> Reward %d was deleted", a.ID))
}

func (c *Commands) list(_ context.Context, _ NoArgs) Result {
	defs := c.engine.Rewards()
	if len(defs) == 0 {
		return ok("> No online rewards")
	}
	return ok(FormatList(defs, c.texts)...)
}

func (c *Commands) next(ctx context.Context, a SessionArgs) Result {
	lines, err := c.engine.Next(ctx, model.SessionID(a.SessionID))
	if err != nil {
		return fail("> " + err.Error())
	}
	if len(lines) == 0 {
		return ok("> No upcoming rewards")
	}
	return ok(lines...)
}

func (c *Commands) reloadAll(ctx context.Context, _ NoArgs) Result {
	if c.reload != nil {
		if err := c.reload(ctx); err != nil {
			return fail("> Reload failed: " + err.Error())
		}
		st := c.engine.Status()
		if !st.Enabled {
			return ok("> Configuration reloaded, online rewards are disabled")
		}
		return ok(fmt.Sprintf("> Configuration reloaded, %d rewards loaded", st.Rewards))
	}
	n, err := c.engine.ReloadCatalog(ctx)
	if err != nil {
		return fail("> Reload failed: " + err.Error())
	}
	return ok(fmt.Sprintf("> Rewards reloaded (%d)", n))
}

func (c *Commands) run(ctx context.Context, _ NoArgs) Result {
	report, err := c.engine.RunNow(ctx)
	if err != nil {
		return fail("> Reward run failed: " + err.Error())
	}
	if report.Skipped != "" {
		return ok(fmt.Sprintf("> Reward run %s skipped: %s", report.RunID, report.Skipped))
	}
	return ok(fmt.Sprintf("> Reward run %s: %d sessions, %d staged, %d withheld, %d delivered",
		report.RunID, report.Sessions, report.Eval.Staged, report.Eval.Withheld, report.Delivery.Total()))
}

func (c *Commands) sessionStart(_ context.Context, a SessionArgs) Result {
	c.engine.SessionStarted(model.SessionID(a.SessionID))
	return ok()
}

func (c *Commands) sessionEnd(_ context.Context, a SessionArgs) Result {
	c.engine.SessionEnded(model.SessionID(a.SessionID))
	return ok()
}

func (c *Commands) status(_ context.Context, _ NoArgs) Result {
	st := c.engine.Status()
	lines := []string{
		fmt.Sprintf("> Enabled: %t", st.Enabled),
		fmt.Sprintf("> Scheduler: %s", st.State),
		fmt.Sprintf("> Rewards: %d, histories: %d", st.Rewards, st.Histories),
	}
	if st.State == manager.StateIdle {
		lines = append(lines, fmt.Sprintf("> Next run in: %s", st.Remaining))
	}
	if st.Retrying {
		lines = append(lines, "> Rewards could not be loaded, retrying")
	}
	return ok(lines...)
}

// FormatList renders the catalog for operators: one numbered header per
// reward followed by its "-- Items:" and "-- Reputation:" blocks.
func FormatList(defs []model.Definition, texts ports.Localizer) []string {
	lines := []string{"> Online rewards:"}
	for i, def := range defs {
		perOnline := def.Category() == model.CategoryPerOnline
		lines = append(lines, fmt.Sprintf("%d. %s. IsPerOnline? %t", i+1, texts.Duration("", def.Threshold), perOnline))
		if len(def.Items) > 0 {
			lines = append(lines, "-- Items:")
			for _, it := range def.Items {
				lines = append(lines, fmt.Sprintf("> %d/%d", it.ItemID, it.Count))
			}
		}
		if len(def.Reputations) > 0 {
			lines = append(lines, "-- Reputation:")
			for _, rep := range def.Reputations {
				lines = append(lines, fmt.Sprintf("> %d/%d", rep.FactionID, rep.Amount))
			}
		}
		lines = append(lines, "--")
	}
	return lines
}

// Summary joins result lines for logs.
func (r Result) Summary() string {
	return strings.Join(r.Lines, " | ")
}
