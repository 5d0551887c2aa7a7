// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration management for the reward daemon.
package config

import (
	"strings"

	"github.com/ManuGH/playreward/internal/validate"
	"github.com/rs/zerolog"
)

// Validate validates an AppConfig using the centralized validation package
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.NotEmpty("DataDir", cfg.DataDir)
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		v.AddError("LogLevel", err.Error(), cfg.LogLevel)
	}

	v.Range("MaxSameOriginCount", cfg.Reward.MaxSameOriginCount, 1, 1000)

	v.PositiveDuration("Schedule.InitialDelay", cfg.Schedule.InitialDelay)
	v.PositiveDuration("Schedule.Interval", cfg.Schedule.Interval)
	v.PositiveDuration("Schedule.UpdateInterval", cfg.Schedule.UpdateInterval)

	v.OneOf("Storage.Backend", cfg.Storage.Backend, []string{BackendSQLite, BackendBadger, BackendMemory})
	if cfg.Storage.Backend != BackendMemory {
		v.NotEmpty("Storage.Path", cfg.Storage.Path)
	}

	v.URL("World.BaseURL", cfg.World.BaseURL, []string{"http", "https"})
	v.PositiveDuration("World.Timeout", cfg.World.Timeout)
	v.Positive("World.RateLimit", cfg.World.RateLimit)
	v.Positive("World.RateBurst", cfg.World.RateBurst)

	if cfg.Mail.SenderID == 0 {
		v.AddError("Mail.SenderID", "sender id must be non-zero", cfg.Mail.SenderID)
	}

	if strings.TrimSpace(cfg.Cache.RedisAddr) != "" {
		v.ListenAddr("Cache.RedisAddr", cfg.Cache.RedisAddr)
	}
	v.PositiveDuration("Cache.TTL", cfg.Cache.TTL)

	v.ListenAddr("Admin.ListenAddr", cfg.Admin.ListenAddr)
	v.Range("Admin.NextPerMinute", cfg.Admin.NextPerMinute, 1, 600)
	v.ListenAddr("Metrics.ListenAddr", cfg.Metrics.ListenAddr)

	if cfg.Tracing.Enabled {
		v.OneOf("Tracing.ExporterType", cfg.Tracing.ExporterType, []string{"grpc", "http"})
		v.NotEmpty("Tracing.Endpoint", cfg.Tracing.Endpoint)
		if cfg.Tracing.SamplingRate < 0 || cfg.Tracing.SamplingRate > 1 {
			v.AddError("Tracing.SamplingRate", "sampling rate must be between 0 and 1", cfg.Tracing.SamplingRate)
		}
	}

	return v.Err()
}
