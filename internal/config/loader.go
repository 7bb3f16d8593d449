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

// Path returns the config file path, empty for ENV-only configuration.
func (l *Loader) Path() string {
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

func (l *Loader) envList(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseList(key, defaultVal)
}

// Load loads configuration with precedence ENV > File > Defaults.
// Order: defaults -> strict file parse -> env overrides -> validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg with STRICT parsing.
// Unknown fields fail with ErrUnknownConfigField.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	return decodeStrict(data, cfg)
}

func decodeStrict(data []byte, cfg *AppConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ErrMultipleDocuments
	}
	return nil
}

// mergeEnvConfig applies ASTRO_* overrides.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.Log.Level = l.envString(EnvPrefix+"LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Service = l.envString(EnvPrefix+"SERVICE_NAME", cfg.Log.Service)

	s := &cfg.Server
	s.ListenAddr = l.envString(EnvPrefix+"LISTEN_ADDR", s.ListenAddr)
	s.ReadTimeout = l.envDuration(EnvPrefix+"READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = l.envDuration(EnvPrefix+"WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = l.envDuration(EnvPrefix+"IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = l.envDuration(EnvPrefix+"SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.MaxLongPoll = l.envDuration(EnvPrefix+"MAX_LONG_POLL", s.MaxLongPoll)
	s.AllowedOrigins = l.envList(EnvPrefix+"ALLOWED_ORIGINS", s.AllowedOrigins)

	h := &cfg.Handoff
	h.Scheme = l.envString(EnvPrefix+"APP_SCHEME", h.Scheme)
	h.Path = l.envString(EnvPrefix+"APP_PATH", h.Path)
	h.AndroidPackage = l.envString(EnvPrefix+"ANDROID_PACKAGE", h.AndroidPackage)
	l.mergeTargetEnv("ANDROID", &h.Android)
	l.mergeTargetEnv("IOS", &h.IOS)
	l.mergeTargetEnv("DESKTOP", &h.Desktop)

	r := &cfg.Relay
	r.PageTTL = l.envDuration(EnvPrefix+"PAGE_TTL", r.PageTTL)
	r.SweepInterval = l.envDuration(EnvPrefix+"SWEEP_INTERVAL", r.SweepInterval)
	r.MaxPages = l.envInt(EnvPrefix+"MAX_PAGES", r.MaxPages)

	j := &cfg.Journal
	j.Backend = l.envString(EnvPrefix+"JOURNAL_BACKEND", j.Backend)
	j.Capacity = l.envInt(EnvPrefix+"JOURNAL_CAPACITY", j.Capacity)
	j.SQLitePath = l.envString(EnvPrefix+"JOURNAL_SQLITE_PATH", j.SQLitePath)
	j.RedisAddr = l.envString(EnvPrefix+"REDIS_ADDR", j.RedisAddr)
	j.RedisPass = l.envString(EnvPrefix+"REDIS_PASSWORD", j.RedisPass)
	j.RedisDB = l.envInt(EnvPrefix+"REDIS_DB", j.RedisDB)
	j.RedisPrefix = l.envString(EnvPrefix+"REDIS_PREFIX", j.RedisPrefix)

	t := &cfg.Telemetry
	t.Enabled = l.envBool(EnvPrefix+"TELEMETRY_ENABLED", t.Enabled)
	t.Exporter = l.envString(EnvPrefix+"TELEMETRY_EXPORTER", t.Exporter)
	t.Endpoint = l.envString(EnvPrefix+"TELEMETRY_ENDPOINT", t.Endpoint)
	t.SamplingRate = l.envFloat(EnvPrefix+"TELEMETRY_SAMPLING_RATE", t.SamplingRate)
	t.Environment = l.envString(EnvPrefix+"ENVIRONMENT", t.Environment)

	rl := &cfg.RateLimit
	rl.Enabled = l.envBool(EnvPrefix+"RATELIMIT_ENABLED", rl.Enabled)
	rl.Requests = l.envInt(EnvPrefix+"RATELIMIT_REQUESTS", rl.Requests)
	rl.Window = l.envDuration(EnvPrefix+"RATELIMIT_WINDOW", rl.Window)
	rl.Whitelist = l.envList(EnvPrefix+"RATELIMIT_WHITELIST", rl.Whitelist)
}

func (l *Loader) mergeTargetEnv(platform string, t *TargetConfig) {
	t.PrimaryURI = l.envString(EnvPrefix+platform+"_PRIMARY_URI", t.PrimaryURI)
	t.FallbackURI = l.envString(EnvPrefix+platform+"_FALLBACK_URI", t.FallbackURI)
	t.Timeout = l.envDuration(EnvPrefix+platform+"_TIMEOUT", t.Timeout)
}
