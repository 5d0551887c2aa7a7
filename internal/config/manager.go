// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// Manager handles configuration persistence.
type Manager struct {
	configPath string
}

// NewManager creates a new configuration manager.
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
	}
}

// Save writes the configuration to disk atomically (fsync + rename).
func (m *Manager) Save(cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0750); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	data, err := yaml.Marshal(ToFileConfig(cfg))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := renameio.WriteFile(m.configPath, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ToFileConfig maps a resolved configuration back to its YAML form. The admin
// token is never written out.
func ToFileConfig(cfg AppConfig) FileConfig {
	senderID := cfg.Mail.SenderID
	return FileConfig{
		DataDir:            cfg.DataDir,
		LogLevel:           cfg.LogLevel,
		Enabled:            boolPtr(cfg.Reward.Enabled),
		PerOnline:          ToggleConfig{Enabled: boolPtr(cfg.Reward.PerOnlineEnabled)},
		PerTime:            ToggleConfig{Enabled: boolPtr(cfg.Reward.PerTimeEnabled)},
		ForceMail:          boolPtr(cfg.Reward.ForceMail),
		MaxSameOriginCount: intPtr(cfg.Reward.MaxSameOriginCount),
		Schedule: ScheduleFileConfig{
			InitialDelay:   cfg.Schedule.InitialDelay.String(),
			Interval:       cfg.Schedule.Interval.String(),
			UpdateInterval: cfg.Schedule.UpdateInterval.String(),
		},
		Storage: StorageFileConfig{Backend: cfg.Storage.Backend, Path: cfg.Storage.Path},
		World: WorldFileConfig{
			BaseURL:   cfg.World.BaseURL,
			Timeout:   cfg.World.Timeout.String(),
			RateLimit: intPtr(cfg.World.RateLimit),
			RateBurst: intPtr(cfg.World.RateBurst),
		},
		Mail:    MailFileConfig{SenderID: &senderID},
		Cache:   CacheFileConfig{RedisAddr: cfg.Cache.RedisAddr, TTL: cfg.Cache.TTL.String()},
		Admin:   AdminFileConfig{ListenAddr: strPtr(cfg.Admin.ListenAddr), NextPerMinute: intPtr(cfg.Admin.NextPerMinute)},
		Metrics: MetricsFileConfig{ListenAddr: strPtr(cfg.Metrics.ListenAddr)},
		Tracing: TracingFileConfig{
			Enabled:      boolPtr(cfg.Tracing.Enabled),
			ExporterType: cfg.Tracing.ExporterType,
			Endpoint:     cfg.Tracing.Endpoint,
			SamplingRate: &cfg.Tracing.SamplingRate,
			Environment:  cfg.Tracing.Environment,
		},
	}
}

func boolPtr(b bool) *bool    { return &b }
func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }
