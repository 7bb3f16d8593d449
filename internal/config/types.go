// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the effective service configuration.
type AppConfig struct {
	Version string `yaml:"-" json:"-"`

	Log       LogConfig       `yaml:"log" json:"log"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Handoff   HandoffConfig   `yaml:"handoff" json:"handoff"`
	Relay     RelayConfig     `yaml:"relay" json:"relay"`
	Journal   JournalConfig   `yaml:"journal" json:"journal"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	RateLimit RateLimitConfig `yaml:"rateLimit" json:"rateLimit"`
}

// LogConfig configures the base logger.
type LogConfig struct {
	Level   string `yaml:"level" json:"level"`
	Service string `yaml:"service" json:"service"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listenAddr" json:"listenAddr"`
	ReadTimeout     time.Duration `yaml:"readTimeout" json:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" json:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout" json:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" json:"shutdownTimeout"`
	// MaxLongPoll caps the wait of an instructions request. It must stay below WriteTimeout.
	MaxLongPoll    time.Duration `yaml:"maxLongPoll" json:"maxLongPoll"`
	AllowedOrigins []string      `yaml:"allowedOrigins" json:"allowedOrigins"`
}

// HandoffConfig describes the native app and the per-platform targets.
// Empty primary URIs are derived from Scheme, Path and AndroidPackage.
type HandoffConfig struct {
	Scheme         string       `yaml:"scheme" json:"scheme"`
	Path           string       `yaml:"path" json:"path"`
	AndroidPackage string       `yaml:"androidPackage" json:"androidPackage"`
	Android        TargetConfig `yaml:"android" json:"android"`
	IOS            TargetConfig `yaml:"ios" json:"ios"`
	Desktop        TargetConfig `yaml:"desktop" json:"desktop"`
}

// TargetConfig is the target of one platform.
type TargetConfig struct {
	PrimaryURI  string        `yaml:"primaryUri,omitempty" json:"primaryUri,omitempty"`
	FallbackURI string        `yaml:"fallbackUri" json:"fallbackUri"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// RelayConfig bounds the remote page registry.
type RelayConfig struct {
	PageTTL       time.Duration `yaml:"pageTTL" json:"pageTTL"`
	SweepInterval time.Duration `yaml:"sweepInterval" json:"sweepInterval"`
	MaxPages      int           `yaml:"maxPages" json:"maxPages"`
}

// JournalConfig selects the outcome journal backend.
type JournalConfig struct {
	Backend     string `yaml:"backend" json:"backend"`
	Capacity    int    `yaml:"capacity" json:"capacity"`
	SQLitePath  string `yaml:"sqlitePath" json:"sqlitePath"`
	RedisAddr   string `yaml:"redisAddr" json:"redisAddr"`
	RedisPass   string `yaml:"redisPassword" json:"-"`
	RedisDB     int    `yaml:"redisDB" json:"redisDB"`
	RedisPrefix string `yaml:"redisPrefix" json:"redisPrefix"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	Endpoint     string  `yaml:"endpoint" json:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate" json:"samplingRate"`
	Environment  string  `yaml:"environment" json:"environment"`
}

// RateLimitConfig configures per-IP request limiting of the public API.
type RateLimitConfig struct {
	Enabled   bool          `yaml:"enabled" json:"enabled"`
	Requests  int           `yaml:"requests" json:"requests"`
	Window    time.Duration `yaml:"window" json:"window"`
	Whitelist []string      `yaml:"whitelist" json:"whitelist"`
}
