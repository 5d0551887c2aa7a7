// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/playreward/internal/admin"
	"github.com/ManuGH/playreward/internal/config"
	"github.com/ManuGH/playreward/internal/domain/reward/manager"
	"github.com/ManuGH/playreward/internal/domain/reward/model"
)

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.AppConfig{
		Reward: config.RewardConfig{
			Enabled:            true,
			PerOnlineEnabled:   true,
			ForceMail:          true,
			MaxSameOriginCount: 2,
		},
		Schedule: config.ScheduleConfig{InitialDelay: 5 * time.Second, Interval: time.Minute, UpdateInterval: time.Second},
		Mail:     config.MailConfig{SenderID: 42},
	}

	want := manager.Settings{
		Enabled:            true,
		PerOnline:          true,
		ForceMail:          true,
		MaxSameOriginCount: 2,
		InitialDelay:       5 * time.Second,
		Interval:           time.Minute,
		MailSenderID:       42,
	}
	if diff := cmp.Diff(want, SettingsFromConfig(cfg)); diff != "" {
		t.Errorf("SettingsFromConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestAdminServerConfig(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.AdminConfig
		anonymous bool
	}{
		{"loopback without token", config.AdminConfig{ListenAddr: "127.0.0.1:8089"}, true},
		{"localhost without token", config.AdminConfig{ListenAddr: "localhost:8089"}, true},
		{"ipv6 loopback", config.AdminConfig{ListenAddr: "[::1]:8089"}, true},
		{"all interfaces without token", config.AdminConfig{ListenAddr: ":8089"}, false},
		{"public address", config.AdminConfig{ListenAddr: "10.1.2.3:8089"}, false},
		{"token set", config.AdminConfig{ListenAddr: "127.0.0.1:8089", Token: "s3cret"}, false},
		{"malformed", config.AdminConfig{ListenAddr: "127.0.0.1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdminServerConfig(tt.cfg)
			assert.Equal(t, tt.anonymous, got.AllowAnonymous)
			assert.Equal(t, tt.cfg.Token, got.Token)
		})
	}
}

// worldHost is a minimal world server with one eligible session.
type worldHost struct {
	mu    sync.Mutex
	items []model.ItemGrant
	texts []string
}

func (h *worldHost) handler() http.Handler {
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	session := map[string]any{
		"id": 1, "name": "Arthas", "level": 80, "playedSeconds": 7200,
		"origin": "10.0.0.1", "locale": "enUS", "inWorld": true,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sessions", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"sessions": []any{session}})
	})
	mux.HandleFunc("GET /api/sessions/1", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, session)
	})
	mux.HandleFunc("POST /api/sessions/1/items/check", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]bool{"fits": true})
	})
	mux.HandleFunc("POST /api/sessions/1/items", func(w http.ResponseWriter, r *http.Request) {
		var item model.ItemGrant
		_ = json.NewDecoder(r.Body).Decode(&item)
		h.mu.Lock()
		h.items = append(h.items, item)
		h.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/sessions/1/messages", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		h.mu.Lock()
		h.texts = append(h.texts, in.Text)
		h.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/items/6948", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, model.ItemTemplate{ID: 6948, Name: "Hearthstone", Quality: 1})
	})
	return mux
}

func (h *worldHost) delivered() []model.ItemGrant {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]model.ItemGrant(nil), h.items...)
}

func TestRuntime_EndToEnd(t *testing.T) {
	host := &worldHost{}
	world := httptest.NewServer(host.handler())
	t.Cleanup(world.Close)

	adminAddr := reserveListenAddr(t)
	metricsAddr := reserveListenAddr(t)
	cfg := config.AppConfig{
		Version:    "test",
		LogService: "playreward",
		Reward:     config.RewardConfig{Enabled: true, PerOnlineEnabled: true, PerTimeEnabled: true, MaxSameOriginCount: 3},
		Schedule:   config.ScheduleConfig{InitialDelay: time.Hour, Interval: time.Hour, UpdateInterval: 10 * time.Millisecond},
		Storage:    config.StorageConfig{Backend: config.BackendMemory},
		World:      config.WorldConfig{BaseURL: world.URL, Timeout: 2 * time.Second},
		Mail:       config.MailConfig{SenderID: 1},
		Cache:      config.CacheConfig{TTL: time.Minute},
		Admin:      config.AdminConfig{ListenAddr: adminAddr, Token: "s3cret"},
		Metrics:    config.MetricsConfig{ListenAddr: metricsAddr},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := NewRuntime(ctx, cfg, nil)
	require.NoError(t, err)
	assert.False(t, rt.Service.Status().Enabled, "an empty catalog disables the engine")

	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()
	require.NoError(t, waitForListen(adminAddr, 2*time.Second))

	client := admin.NewClient(adminAddr, "s3cret")
	res, err := client.Execute(ctx, admin.CmdAdd, admin.AddArgs{Seconds: 60, MinLevel: 1, Items: "6948:1"})
	require.NoError(t, err)
	require.True(t, res.OK, res.Summary())
	assert.True(t, rt.Service.Status().Enabled)

	res, err = client.Execute(ctx, admin.CmdSessionStart, admin.SessionArgs{SessionID: 1})
	require.NoError(t, err)
	require.True(t, res.OK)

	require.Eventually(t, func() bool {
		res, err := client.Execute(ctx, admin.CmdRun, nil)
		return err == nil && res.OK && len(host.delivered()) > 0
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, []model.ItemGrant{{ItemID: 6948, Count: 1}}, host.delivered())

	res, err = client.Execute(ctx, admin.CmdRun, nil)
	require.NoError(t, err)
	require.True(t, res.OK)
	assert.Len(t, host.delivered(), 1, "one-shot rewards are granted once")

	metricsRes, err := http.Get("http://" + metricsAddr + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(metricsRes.Body)
	_ = metricsRes.Body.Close()
	assert.Contains(t, string(body), "playreward_")

	readyRes, err := http.Get("http://" + adminAddr + "/readyz")
	require.NoError(t, err)
	var ready struct {
		Ready  bool                      `json:"ready"`
		Checks map[string]map[string]any `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(readyRes.Body).Decode(&ready))
	_ = readyRes.Body.Close()
	assert.True(t, ready.Ready)
	assert.Equal(t, "healthy", ready.Checks["store"]["status"])
	assert.Equal(t, "healthy", ready.Checks["world"]["status"])

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runtime did not stop")
	}
}

func TestNewRuntime_InvalidWorldURL(t *testing.T) {
	cfg := config.AppConfig{
		Storage: config.StorageConfig{Backend: config.BackendMemory},
		World:   config.WorldConfig{BaseURL: "ftp://nope"},
	}
	_, err := NewRuntime(context.Background(), cfg, nil)
	require.Error(t, err)
}
