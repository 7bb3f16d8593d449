// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/ManuGH/astrorhythm/internal/handoff"
	"github.com/ManuGH/astrorhythm/internal/journal"
	"github.com/ManuGH/astrorhythm/internal/telemetry"
)

// Targets derives the handoff targets. Empty primary URIs are built from
// the scheme: an intent URI on Android, a plain scheme URI elsewhere.
func (h HandoffConfig) Targets() handoff.Targets {
	scheme := handoff.SchemeURI(h.Scheme, h.Path)

	android := h.Android.target()
	if android.PrimaryURI == "" {
		android.PrimaryURI = handoff.IntentURI(h.Scheme, h.Path, h.AndroidPackage, android.FallbackURI)
	}
	ios := h.IOS.target()
	if ios.PrimaryURI == "" {
		ios.PrimaryURI = scheme
	}
	desktop := h.Desktop.target()
	if desktop.PrimaryURI == "" {
		desktop.PrimaryURI = scheme
	}
	return handoff.Targets{Android: android, IOS: ios, Desktop: desktop}
}

func (t TargetConfig) target() handoff.Target {
	return handoff.Target{
		PrimaryURI:  t.PrimaryURI,
		FallbackURI: t.FallbackURI,
		Timeout:     t.Timeout,
	}
}

// JournalOptions maps the journal section to the journal package config.
func (c AppConfig) JournalOptions() journal.Config {
	return journal.Config{
		Backend:  c.Journal.Backend,
		Capacity: c.Journal.Capacity,
		SQLite: journal.SQLiteConfig{
			Path: c.Journal.SQLitePath,
		},
		Redis: journal.RedisConfig{
			Addr:     c.Journal.RedisAddr,
			Password: c.Journal.RedisPass,
			DB:       c.Journal.RedisDB,
			Prefix:   c.Journal.RedisPrefix,
		},
	}
}

// TelemetryOptions maps the telemetry section to the telemetry package config.
func (c AppConfig) TelemetryOptions() telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		ServiceName:    c.Log.Service,
		ServiceVersion: c.Version,
		Environment:    c.Telemetry.Environment,
		ExporterType:   c.Telemetry.Exporter,
		Endpoint:       c.Telemetry.Endpoint,
		SamplingRate:   c.Telemetry.SamplingRate,
	}
}
