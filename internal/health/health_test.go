// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/playreward/internal/config"
)

type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(context.Context) CheckResult {
	return CheckResult{Status: m.status}
}

func TestManager_Health(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "healthy", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
}

func TestManager_Ready(t *testing.T) {
	m := NewManager("v1.0.0")
	assert.True(t, m.Ready(context.Background()).Ready, "no checkers means ready")

	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})
	resp := m.Ready(context.Background())
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusDegraded, resp.Status)

	m.RegisterChecker(&mockChecker{name: "down", status: StatusUnhealthy})
	resp = m.Ready(context.Background())
	assert.False(t, resp.Ready)
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestServeReady_StatusCodes(t *testing.T) {
	m := NewManager("v1")
	m.RegisterChecker(NewFuncChecker("store", time.Second, func(context.Context) error { return errors.New("locked") }))

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "locked", resp.Checks["store"].Error)

	rec = httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "liveness stays 200")
}

func TestFuncChecker_AppliesTimeout(t *testing.T) {
	c := NewFuncChecker("slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	res := c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Contains(t, res.Error, "deadline")
}

func TestInformational(t *testing.T) {
	c := Informational(&mockChecker{name: "world", status: StatusUnhealthy})
	assert.Equal(t, "world", c.Name())
	assert.Equal(t, StatusDegraded, c.Check(context.Background()).Status)
}

func TestLastRunChecker(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		enabled bool
		lastRun time.Time
		want    Status
	}{
		{"disabled", false, now, StatusDegraded},
		{"no run yet", true, time.Time{}, StatusHealthy},
		{"recent", true, now.Add(-time.Minute), StatusHealthy},
		{"stale", true, now.Add(-time.Hour), StatusDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewLastRunChecker(10*time.Minute, func() (bool, time.Time) { return tt.enabled, tt.lastRun })
			c.now = func() time.Time { return now }
			assert.Equal(t, tt.want, c.Check(context.Background()).Status)
		})
	}
}

func TestPerformStartupChecks(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, PerformStartupChecks(config.AppConfig{Storage: config.StorageConfig{Backend: config.BackendMemory}}))

	nested := filepath.Join(dir, "a", "b", "playreward.sqlite")
	require.NoError(t, PerformStartupChecks(config.AppConfig{Storage: config.StorageConfig{Backend: config.BackendSQLite, Path: nested}}))
	assert.DirExists(t, filepath.Dir(nested))

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	err := PerformStartupChecks(config.AppConfig{Storage: config.StorageConfig{Backend: config.BackendBadger, Path: file}})
	assert.Error(t, err)
}
