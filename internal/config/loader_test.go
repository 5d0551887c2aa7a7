// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoader_Defaults(t *testing.T) {
	t.Setenv("PLAYREWARD_DATA_DIR", t.TempDir())

	cfg, err := NewLoader("", "v-test").Load()
	require.NoError(t, err)

	assert.Equal(t, "v-test", cfg.Version)
	assert.False(t, cfg.Reward.Enabled)
	assert.False(t, cfg.Reward.FeatureEnabled())
	assert.Equal(t, DefaultMaxSameOriginCount, cfg.Reward.MaxSameOriginCount)
	assert.Equal(t, 30*time.Second, cfg.Schedule.InitialDelay)
	assert.Equal(t, time.Minute, cfg.Schedule.Interval)
	assert.Equal(t, uint32(37688), cfg.Mail.SenderID)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(cfg.DataDir, DefaultDBFile), cfg.Storage.Path)
}

func TestLoader_FileThenEnvPrecedence(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, `
dataDir: `+dataDir+`
enabled: true
perOnline:
  enabled: true
perTime:
  enabled: false
forceMail: true
maxSameOriginCount: 5
schedule:
  initialDelay: 10s
  interval: 2m
world:
  baseUrl: http://world.local:9000
mail:
  senderId: 42
`)

	t.Setenv("PLAYREWARD_PER_TIME_ENABLED", "yes")
	t.Setenv("PLAYREWARD_MAX_SAME_ORIGIN", "2")

	cfg, err := NewLoader(path, "v1").Load()
	require.NoError(t, err)

	assert.True(t, cfg.Reward.Enabled)
	assert.True(t, cfg.Reward.PerOnlineEnabled)
	assert.True(t, cfg.Reward.PerTimeEnabled, "env must override file")
	assert.True(t, cfg.Reward.ForceMail)
	assert.Equal(t, 2, cfg.Reward.MaxSameOriginCount, "env must override file")
	assert.Equal(t, 10*time.Second, cfg.Schedule.InitialDelay)
	assert.Equal(t, 2*time.Minute, cfg.Schedule.Interval)
	assert.Equal(t, "http://world.local:9000", cfg.World.BaseURL)
	assert.Equal(t, uint32(42), cfg.Mail.SenderID)
	assert.True(t, cfg.Reward.FeatureEnabled())
}

func TestLoader_InvalidEnvFallsBackToFileValue(t *testing.T) {
	path := writeConfig(t, "dataDir: "+t.TempDir()+"\nmaxSameOriginCount: 4\n")
	t.Setenv("PLAYREWARD_MAX_SAME_ORIGIN", "many")

	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Reward.MaxSameOriginCount)
}

func TestLoader_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, "enabled: true\nOR.Enable: true\n")

	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownConfigField), "got %v", err)
}

func TestLoader_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoader_BadDurationInFile(t *testing.T) {
	path := writeConfig(t, "schedule:\n  interval: soon\n")

	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule.interval")
}

func TestLoader_ValidationFailure(t *testing.T) {
	path := writeConfig(t, "dataDir: "+t.TempDir()+"\nmaxSameOriginCount: 0\n")

	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MaxSameOriginCount")
}

func TestLoader_EmptyFile(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("PLAYREWARD_DATA_DIR", t.TempDir())

	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxSameOriginCount, cfg.Reward.MaxSameOriginCount)
}

func TestLoader_MemoryBackendHasNoPath(t *testing.T) {
	t.Setenv("PLAYREWARD_DATA_DIR", t.TempDir())
	t.Setenv("PLAYREWARD_STORAGE_BACKEND", "MEMORY")

	cfg, err := NewLoader("", "").Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Empty(t, cfg.Storage.Path)
}

func TestRewardConfig_FeatureEnabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  RewardConfig
		want bool
	}{
		{"master off", RewardConfig{Enabled: false, PerOnlineEnabled: true, PerTimeEnabled: true}, false},
		{"no categories", RewardConfig{Enabled: true}, false},
		{"per online only", RewardConfig{Enabled: true, PerOnlineEnabled: true}, true},
		{"per time only", RewardConfig{Enabled: true, PerTimeEnabled: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.FeatureEnabled())
		})
	}
}
