// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"
)

// Storage backends understood by the reward store factory.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// AppConfig is the fully resolved runtime configuration (defaults, file and
// environment merged, validated).
type AppConfig struct {
	Version    string
	DataDir    string
	LogLevel   string
	LogService string

	Reward   RewardConfig
	Schedule ScheduleConfig
	Storage  StorageConfig
	World    WorldConfig
	Mail     MailConfig
	Cache    CacheConfig
	Admin    AdminConfig
	Metrics  MetricsConfig
	Tracing  TracingConfig
}

// RewardConfig holds the feature switches of the reward engine.
type RewardConfig struct {
	Enabled            bool
	PerOnlineEnabled   bool
	PerTimeEnabled     bool
	ForceMail          bool
	MaxSameOriginCount int
}

// FeatureEnabled reports whether the engine should run at all: the master
// switch must be on and at least one reward category must be enabled.
func (r RewardConfig) FeatureEnabled() bool {
	return r.Enabled && (r.PerOnlineEnabled || r.PerTimeEnabled)
}

// ScheduleConfig controls the tick cadence.
type ScheduleConfig struct {
	InitialDelay   time.Duration
	Interval       time.Duration
	UpdateInterval time.Duration
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend string
	Path    string
}

// WorldConfig describes the host world server API.
type WorldConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit int
	RateBurst int
}

// MailConfig configures the offline delivery channel.
type MailConfig struct {
	SenderID uint32
}

// CacheConfig configures lookup caching for item templates and factions.
type CacheConfig struct {
	RedisAddr string
	TTL       time.Duration
}

// AdminConfig configures the administrative HTTP surface.
type AdminConfig struct {
	ListenAddr    string
	Token         string
	NextPerMinute int
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	ListenAddr string
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool
	ExporterType string
	Endpoint     string
	SamplingRate float64
	Environment  string
}

// FileConfig is the on-disk YAML representation. Pointer fields distinguish
// "absent" from the zero value so defaults survive partial files.
type FileConfig struct {
	DataDir  string `yaml:"dataDir,omitempty"`
	LogLevel string `yaml:"logLevel,omitempty"`

	Enabled            *bool        `yaml:"enabled,omitempty"`
	PerOnline          ToggleConfig `yaml:"perOnline,omitempty"`
	PerTime            ToggleConfig `yaml:"perTime,omitempty"`
	ForceMail          *bool        `yaml:"forceMail,omitempty"`
	MaxSameOriginCount *int         `yaml:"maxSameOriginCount,omitempty"`

	Schedule ScheduleFileConfig `yaml:"schedule,omitempty"`
	Storage  StorageFileConfig  `yaml:"storage,omitempty"`
	World    WorldFileConfig    `yaml:"world,omitempty"`
	Mail     MailFileConfig     `yaml:"mail,omitempty"`
	Cache    CacheFileConfig    `yaml:"cache,omitempty"`
	Admin    AdminFileConfig    `yaml:"admin,omitempty"`
	Metrics  MetricsFileConfig  `yaml:"metrics,omitempty"`
	Tracing  TracingFileConfig  `yaml:"tracing,omitempty"`
}

// ToggleConfig is a nested on/off switch.
type ToggleConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
}

type ScheduleFileConfig struct {
	InitialDelay   string `yaml:"initialDelay,omitempty"`
	Interval       string `yaml:"interval,omitempty"`
	UpdateInterval string `yaml:"updateInterval,omitempty"`
}

type StorageFileConfig struct {
	Backend string `yaml:"backend,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

type WorldFileConfig struct {
	BaseURL   string `yaml:"baseUrl,omitempty"`
	Timeout   string `yaml:"timeout,omitempty"`
	RateLimit *int   `yaml:"rateLimit,omitempty"`
	RateBurst *int   `yaml:"rateBurst,omitempty"`
}

type MailFileConfig struct {
	SenderID *uint32 `yaml:"senderId,omitempty"`
}

type CacheFileConfig struct {
	RedisAddr string `yaml:"redisAddr,omitempty"`
	TTL       string `yaml:"ttl,omitempty"`
}

type AdminFileConfig struct {
	ListenAddr    *string `yaml:"listenAddr,omitempty"`
	Token         string  `yaml:"token,omitempty"`
	NextPerMinute *int    `yaml:"nextPerMinute,omitempty"`
}

type MetricsFileConfig struct {
	ListenAddr *string `yaml:"listenAddr,omitempty"`
}

type TracingFileConfig struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	ExporterType string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
	Environment  string   `yaml:"environment,omitempty"`
}
