// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/astrorhythm/internal/handoff"
	"github.com/ManuGH/astrorhythm/internal/journal"
	"github.com/ManuGH/astrorhythm/internal/telemetry"
)

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		Log: LogConfig{
			Level:   "info",
			Service: "astrorhythm",
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxLongPoll:     30 * time.Second,
		},
		Handoff: HandoffConfig{
			Scheme:         handoff.DefaultScheme,
			Path:           handoff.DefaultPath,
			AndroidPackage: handoff.DefaultAndroidPackage,
			Android: TargetConfig{
				FallbackURI: handoff.DefaultAndroidFallback,
				Timeout:     handoff.DefaultAndroidTimeout,
			},
			IOS: TargetConfig{
				FallbackURI: handoff.DefaultIOSFallback,
				Timeout:     handoff.DefaultIOSTimeout,
			},
			Desktop: TargetConfig{
				FallbackURI: handoff.DefaultDesktopFallback,
				Timeout:     handoff.DefaultDesktopTimeout,
			},
		},
		Relay: RelayConfig{
			PageTTL:       10 * time.Minute,
			SweepInterval: 30 * time.Second,
			MaxPages:      10000,
		},
		Journal: JournalConfig{
			Backend:     journal.BackendMemory,
			Capacity:    journal.DefaultCapacity,
			SQLitePath:  "astrorhythm-journal.db",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "astrorhythm:handoff",
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			Exporter:     telemetry.ExporterGRPC,
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 600,
			Window:   time.Minute,
		},
	}
}
