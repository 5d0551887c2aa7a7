// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package admin

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/playreward/internal/domain/reward/manager"
	"github.com/ManuGH/playreward/internal/domain/reward/model"
)

type fakeEngine struct {
	mu       sync.Mutex
	defs     []model.Definition
	added    []manager.AddRequest
	addErr   error
	next     map[model.SessionID][]string
	reloaded int
	started  []model.SessionID
	ended    []model.SessionID
	status   manager.Status
	runErr   error
}

func (f *fakeEngine) AddReward(_ context.Context, req manager.AddRequest) (model.Definition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return model.Definition{}, f.addErr
	}
	f.added = append(f.added, req)
	id := req.ID
	if id == 0 {
		id = model.RewardID(len(f.defs) + 1)
	}
	return model.Definition{ID: id}, nil
}

func (f *fakeEngine) DeleteReward(_ context.Context, id model.RewardID) error {
	if id != 1 {
		return model.ErrNotFound
	}
	return nil
}

func (f *fakeEngine) Rewards() []model.Definition { return f.defs }

func (f *fakeEngine) Next(_ context.Context, id model.SessionID) ([]string, error) {
	lines, found := f.next[id]
	if !found {
		return nil, model.ErrSessionNotFound
	}
	return lines, nil
}

func (f *fakeEngine) ReloadCatalog(context.Context) (int, error) {
	f.reloaded++
	return len(f.defs), nil
}

func (f *fakeEngine) RunNow(context.Context) (manager.TickReport, error) {
	if f.runErr != nil {
		return manager.TickReport{}, f.runErr
	}
	return manager.TickReport{RunID: "run-1", Sessions: 2, Eval: manager.EvalStats{Staged: 3}, Delivery: manager.DeliveryStats{manager.OutcomeDirect: 3}}, nil
}

func (f *fakeEngine) SessionStarted(id model.SessionID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, id)
}

func (f *fakeEngine) SessionEnded(id model.SessionID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, id)
}

func (f *fakeEngine) Status() manager.Status { return f.status }

type plainTexts struct{}

func (plainTexts) Text(_ string, key string, _ ...any) string { return key }
func (plainTexts) Duration(_ string, d time.Duration) string  { return d.String() }

func exec(t *testing.T, c *Commands, name string, args string) Result {
	t.Helper()
	res, err := c.Execute(context.Background(), name, json.RawMessage(args))
	require.NoError(t, err)
	return res
}

func TestCommands_Add(t *testing.T) {
	eng := &fakeEngine{}
	c := NewCommands(eng, plainTexts{}, nil)

	res := exec(t, c, CmdAdd, `{"recurring":true,"seconds":3600,"minLevel":10,"items":"6948:1"}`)
	assert.Equal(t, Result{OK: true, Lines: []string{"> Reward 1 added"}}, res)
	assert.Equal(t, []manager.AddRequest{{Recurring: true, ThresholdSeconds: 3600, MinLevel: 10, Items: "6948:1"}}, eng.added)

	res = exec(t, c, CmdAdd, `{"seconds":0}`)
	assert.False(t, res.OK)

	eng.addErr = model.ErrEmptyPayload
	res = exec(t, c, CmdAdd, `{"seconds":60,"items":"1:1"}`)
	assert.False(t, res.OK)
	assert.Contains(t, res.Lines[0], model.ErrEmptyPayload.Error())
}

func TestCommands_RejectsBadInput(t *testing.T) {
	c := NewCommands(&fakeEngine{}, plainTexts{}, nil)

	_, err := c.Execute(context.Background(), "explode", nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = c.Execute(context.Background(), CmdAdd, json.RawMessage(`{"seconds":"soon"}`))
	assert.ErrorIs(t, err, ErrBadArguments)

	_, err = c.Execute(context.Background(), CmdDelete, json.RawMessage(`{"id":1,"force":true}`))
	assert.ErrorIs(t, err, ErrBadArguments, "unknown fields are rejected")
}

func TestCommands_Delete(t *testing.T) {
	c := NewCommands(&fakeEngine{}, plainTexts{}, nil)

	assert.Equal(t, Result{OK: true, Lines: []string{"> Reward 1 was deleted"}}, exec(t, c, CmdDelete, `{"id":1}`))
	res := exec(t, c, CmdDelete, `{"id":9}`)
	assert.False(t, res.OK)
	assert.Contains(t, res.Lines[0], "was not deleted")
}

func TestCommands_List(t *testing.T) {
	eng := &fakeEngine{defs: []model.Definition{
		{ID: 1, Recurring: true, Threshold: time.Hour, Items: []model.ItemGrant{{ItemID: 6948, Count: 1}}},
		{ID: 2, Threshold: 30 * time.Minute, Reputations: []model.ReputationGrant{{FactionID: 72, Amount: 500}}},
	}}
	c := NewCommands(eng, plainTexts{}, nil)

	assert.Equal(t, []string{
		"> Online rewards:",
		"1. 1h0m0s. IsPerOnline? false",
		"-- Items:",
		"> 6948/1",
		"--",
		"2. 30m0s. IsPerOnline? true",
		"-- Reputation:",
		"> 72/500",
		"--",
	}, exec(t, c, CmdList, ``).Lines)

	empty := NewCommands(&fakeEngine{}, plainTexts{}, nil)
	assert.Equal(t, []string{"> No online rewards"}, exec(t, empty, CmdList, `null`).Lines)
}

func TestCommands_Next(t *testing.T) {
	eng := &fakeEngine{next: map[model.SessionID][]string{1: {"line a", "line b"}, 2: nil}}
	c := NewCommands(eng, plainTexts{}, nil)

	assert.Equal(t, []string{"line a", "line b"}, exec(t, c, CmdNext, `{"sessionId":1}`).Lines)
	assert.Equal(t, []string{"> No upcoming rewards"}, exec(t, c, CmdNext, `{"sessionId":2}`).Lines)
	assert.False(t, exec(t, c, CmdNext, `{"sessionId":3}`).OK)
}

func TestCommands_Reload(t *testing.T) {
	eng := &fakeEngine{defs: []model.Definition{{ID: 1}}, status: manager.Status{Enabled: true, Rewards: 4}}

	catalogOnly := NewCommands(eng, plainTexts{}, nil)
	assert.Equal(t, []string{"> Rewards reloaded (1)"}, exec(t, catalogOnly, CmdReload, `{}`).Lines)
	assert.Equal(t, 1, eng.reloaded)

	calls := 0
	withConfig := NewCommands(eng, plainTexts{}, func(context.Context) error { calls++; return nil })
	assert.Equal(t, []string{"> Configuration reloaded, 4 rewards loaded"}, exec(t, withConfig, CmdReload, `{}`).Lines)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, eng.reloaded, "config reload does not hit the catalog directly")

	failing := NewCommands(eng, plainTexts{}, func(context.Context) error { return errors.New("bad yaml") })
	res := exec(t, failing, CmdReload, `{}`)
	assert.False(t, res.OK)
	assert.Equal(t, []string{"> Reload failed: bad yaml"}, res.Lines)
}

func TestCommands_Run(t *testing.T) {
	eng := &fakeEngine{}
	c := NewCommands(eng, plainTexts{}, nil)

	assert.Equal(t, []string{"> Reward run run-1: 2 sessions, 3 staged, 0 withheld, 3 delivered"}, exec(t, c, CmdRun, ``).Lines)

	eng.runErr = model.ErrFeatureDisabled
	assert.False(t, exec(t, c, CmdRun, ``).OK)
}

func TestCommands_SessionHooksAndStatus(t *testing.T) {
	eng := &fakeEngine{status: manager.Status{Enabled: true, State: manager.StateIdle, Remaining: 30 * time.Second, Rewards: 2, Histories: 5}}
	c := NewCommands(eng, plainTexts{}, nil)

	assert.True(t, exec(t, c, CmdSessionStart, `{"sessionId":7}`).OK)
	assert.True(t, exec(t, c, CmdSessionEnd, `{"sessionId":7}`).OK)
	assert.Equal(t, []model.SessionID{7}, eng.started)
	assert.Equal(t, []model.SessionID{7}, eng.ended)

	assert.Equal(t, []string{
		"> Enabled: true",
		"> Scheduler: idle",
		"> Rewards: 2, histories: 5",
		"> Next run in: 30s",
	}, exec(t, c, CmdStatus, ``).Lines)

	eng.status = manager.Status{Retrying: true}
	assert.Equal(t, []string{
		"> Enabled: false",
		"> Scheduler: disabled",
		"> Rewards: 0, histories: 0",
		"> Rewards could not be loaded, retrying",
	}, exec(t, c, CmdStatus, ``).Lines)
}

func TestCommands_Names(t *testing.T) {
	c := NewCommands(&fakeEngine{}, plainTexts{}, nil)
	assert.Equal(t, []string{"add", "delete", "list", "next", "reload", "run", "session-end", "session-start", "status"}, c.Names())
}
