// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied before the file and environment layers.
const (
	DefaultDataDir            = "/var/lib/playreward"
	DefaultMaxSameOriginCount = 3
	DefaultInitialDelay       = 30 * time.Second
	DefaultInterval           = time.Minute
	DefaultUpdateInterval     = 250 * time.Millisecond
	DefaultWorldURL           = "http://127.0.0.1:7878"
	DefaultWorldTimeout       = 5 * time.Second
	DefaultWorldRateLimit     = 50
	DefaultWorldRateBurst     = 100
	DefaultMailSenderID       = 37688
	DefaultCacheTTL           = 10 * time.Minute
	DefaultAdminListenAddr    = "127.0.0.1:8089"
	DefaultNextPerMinute      = 6
	DefaultMetricsListenAddr  = "127.0.0.1:9469"
	DefaultDBFile             = "playreward.sqlite"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// ConfigPath returns the file this loader reads, or "" for env-only mode.
func (l *Loader) ConfigPath() string {
	return l.configPath
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults
// It enforces Strict Validated Order: Parse File (Strict) -> Apply Env -> Validate
func (l *Loader) Load() (AppConfig, error) {
	cfg := AppConfig{}

	// 1. Set defaults
	l.setDefaults(&cfg)

	// 2. Load from file (if provided)
	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	// 3. Override with environment variables (highest priority)
	l.mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.Storage.Path == "" && cfg.Storage.Backend != BackendMemory {
		name := DefaultDBFile
		if cfg.Storage.Backend == BackendBadger {
			name = "playreward.badger"
		}
		cfg.Storage.Path = filepath.Join(cfg.DataDir, name)
	}

	// 4. Version from binary
	cfg.Version = l.version

	// 5. Validate final configuration
	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (l *Loader) setDefaults(cfg *AppConfig) {
	cfg.DataDir = DefaultDataDir
	cfg.LogLevel = "info"
	cfg.LogService = "playreward"

	cfg.Reward = RewardConfig{MaxSameOriginCount: DefaultMaxSameOriginCount}
	cfg.Schedule = ScheduleConfig{
		InitialDelay:   DefaultInitialDelay,
		Interval:       DefaultInterval,
		UpdateInterval: DefaultUpdateInterval,
	}
	cfg.Storage = StorageConfig{Backend: BackendSQLite}
	cfg.World = WorldConfig{
		BaseURL:   DefaultWorldURL,
		Timeout:   DefaultWorldTimeout,
		RateLimit: DefaultWorldRateLimit,
		RateBurst: DefaultWorldRateBurst,
	}
	cfg.Mail = MailConfig{SenderID: DefaultMailSenderID}
	cfg.Cache = CacheConfig{TTL: DefaultCacheTTL}
	cfg.Admin = AdminConfig{ListenAddr: DefaultAdminListenAddr, NextPerMinute: DefaultNextPerMinute}
	cfg.Metrics = MetricsConfig{ListenAddr: DefaultMetricsListenAddr}
	cfg.Tracing = TracingConfig{ExporterType: "grpc", SamplingRate: 1.0, Environment: "production"}
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, f *FileConfig) error {
	if f.DataDir != "" {
		cfg.DataDir = os.ExpandEnv(f.DataDir)
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}

	setBool(&cfg.Reward.Enabled, f.Enabled)
	setBool(&cfg.Reward.PerOnlineEnabled, f.PerOnline.Enabled)
	setBool(&cfg.Reward.PerTimeEnabled, f.PerTime.Enabled)
	setBool(&cfg.Reward.ForceMail, f.ForceMail)
	setInt(&cfg.Reward.MaxSameOriginCount, f.MaxSameOriginCount)

	if err := setDuration(&cfg.Schedule.InitialDelay, "schedule.initialDelay", f.Schedule.InitialDelay); err != nil {
		return err
	}
	if err := setDuration(&cfg.Schedule.Interval, "schedule.interval", f.Schedule.Interval); err != nil {
		return err
	}
	if err := setDuration(&cfg.Schedule.UpdateInterval, "schedule.updateInterval", f.Schedule.UpdateInterval); err != nil {
		return err
	}

	if f.Storage.Backend != "" {
		cfg.Storage.Backend = strings.ToLower(f.Storage.Backend)
	}
	if f.Storage.Path != "" {
		cfg.Storage.Path = os.ExpandEnv(f.Storage.Path)
	}

	if f.World.BaseURL != "" {
		cfg.World.BaseURL = f.World.BaseURL
	}
	if err := setDuration(&cfg.World.Timeout, "world.timeout", f.World.Timeout); err != nil {
		return err
	}
	setInt(&cfg.World.RateLimit, f.World.RateLimit)
	setInt(&cfg.World.RateBurst, f.World.RateBurst)

	if f.Mail.SenderID != nil {
		cfg.Mail.SenderID = *f.Mail.SenderID
	}

	if f.Cache.RedisAddr != "" {
		cfg.Cache.RedisAddr = f.Cache.RedisAddr
	}
	if err := setDuration(&cfg.Cache.TTL, "cache.ttl", f.Cache.TTL); err != nil {
		return err
	}

	if f.Admin.ListenAddr != nil {
		cfg.Admin.ListenAddr = *f.Admin.ListenAddr
	}
	if f.Admin.Token != "" {
		cfg.Admin.Token = os.ExpandEnv(f.Admin.Token)
	}
	setInt(&cfg.Admin.NextPerMinute, f.Admin.NextPerMinute)

	if f.Metrics.ListenAddr != nil {
		cfg.Metrics.ListenAddr = *f.Metrics.ListenAddr
	}

	setBool(&cfg.Tracing.Enabled, f.Tracing.Enabled)
	if f.Tracing.ExporterType != "" {
		cfg.Tracing.ExporterType = f.Tracing.ExporterType
	}
	if f.Tracing.Endpoint != "" {
		cfg.Tracing.Endpoint = f.Tracing.Endpoint
	}
	if f.Tracing.SamplingRate != nil {
		cfg.Tracing.SamplingRate = *f.Tracing.SamplingRate
	}
	if f.Tracing.Environment != "" {
		cfg.Tracing.Environment = f.Tracing.Environment
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = l.envString(EnvPrefix+"DATA_DIR", cfg.DataDir)
	cfg.LogLevel = l.envString(EnvPrefix+"LOG_LEVEL", cfg.LogLevel)

	cfg.Reward.Enabled = l.envBool(EnvPrefix+"ENABLED", cfg.Reward.Enabled)
	cfg.Reward.PerOnlineEnabled = l.envBool(EnvPrefix+"PER_ONLINE_ENABLED", cfg.Reward.PerOnlineEnabled)
	cfg.Reward.PerTimeEnabled = l.envBool(EnvPrefix+"PER_TIME_ENABLED", cfg.Reward.PerTimeEnabled)
	cfg.Reward.ForceMail = l.envBool(EnvPrefix+"FORCE_MAIL", cfg.Reward.ForceMail)
	cfg.Reward.MaxSameOriginCount = l.envInt(EnvPrefix+"MAX_SAME_ORIGIN", cfg.Reward.MaxSameOriginCount)

	cfg.Schedule.InitialDelay = l.envDuration(EnvPrefix+"INITIAL_DELAY", cfg.Schedule.InitialDelay)
	cfg.Schedule.Interval = l.envDuration(EnvPrefix+"INTERVAL", cfg.Schedule.Interval)
	cfg.Schedule.UpdateInterval = l.envDuration(EnvPrefix+"UPDATE_INTERVAL", cfg.Schedule.UpdateInterval)

	cfg.Storage.Backend = strings.ToLower(l.envString(EnvPrefix+"STORAGE_BACKEND", cfg.Storage.Backend))
	cfg.Storage.Path = l.envString(EnvPrefix+"DB_PATH", cfg.Storage.Path)

	cfg.World.BaseURL = l.envString(EnvPrefix+"WORLD_URL", cfg.World.BaseURL)
	cfg.World.Timeout = l.envDuration(EnvPrefix+"WORLD_TIMEOUT", cfg.World.Timeout)
	cfg.World.RateLimit = l.envInt(EnvPrefix+"WORLD_RATE", cfg.World.RateLimit)
	cfg.World.RateBurst = l.envInt(EnvPrefix+"WORLD_RATE_BURST", cfg.World.RateBurst)

	l.ConsumedEnvKeys[EnvPrefix+"MAIL_SENDER"] = struct{}{}
	cfg.Mail.SenderID = ParseUint32(EnvPrefix+"MAIL_SENDER", cfg.Mail.SenderID)

	cfg.Cache.RedisAddr = l.envString(EnvPrefix+"REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.TTL = l.envDuration(EnvPrefix+"CACHE_TTL", cfg.Cache.TTL)

	cfg.Admin.ListenAddr = l.envString(EnvPrefix+"ADMIN_ADDR", cfg.Admin.ListenAddr)
	cfg.Admin.Token = l.envString(EnvPrefix+"ADMIN_TOKEN", cfg.Admin.Token)
	cfg.Admin.NextPerMinute = l.envInt(EnvPrefix+"NEXT_PER_MINUTE", cfg.Admin.NextPerMinute)

	cfg.Metrics.ListenAddr = l.envString(EnvPrefix+"METRICS_ADDR", cfg.Metrics.ListenAddr)

	cfg.Tracing.Enabled = l.envBool(EnvPrefix+"TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.ExporterType = l.envString(EnvPrefix+"TRACING_EXPORTER", cfg.Tracing.ExporterType)
	cfg.Tracing.Endpoint = l.envString(EnvPrefix+"TRACING_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = l.envFloat(EnvPrefix+"TRACING_SAMPLING_RATE", cfg.Tracing.SamplingRate)
	cfg.Tracing.Environment = l.envString(EnvPrefix+"TRACING_ENVIRONMENT", cfg.Tracing.Environment)
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, field, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, raw, err)
	}
	*dst = d
	return nil
}
