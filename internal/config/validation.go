// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"net"
	"strings"
	"time"

	"github.com/ManuGH/astrorhythm/internal/journal"
	"github.com/ManuGH/astrorhythm/internal/telemetry"
	"github.com/ManuGH/astrorhythm/internal/validate"
)

const (
	minHandoffTimeout = 100 * time.Millisecond
	maxHandoffTimeout = 30 * time.Second
)

// Validate validates an AppConfig using the centralized validation package.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.LogLevel("log.level", cfg.Log.Level)
	v.NotEmpty("log.service", cfg.Log.Service)

	s := cfg.Server
	v.ListenAddr("server.listenAddr", s.ListenAddr)
	v.DurationRange("server.readTimeout", s.ReadTimeout, time.Second, time.Hour)
	v.DurationRange("server.writeTimeout", s.WriteTimeout, time.Second, time.Hour)
	v.DurationRange("server.idleTimeout", s.IdleTimeout, time.Second, time.Hour)
	v.DurationRange("server.shutdownTimeout", s.ShutdownTimeout, time.Second, 5*time.Minute)
	v.DurationRange("server.maxLongPoll", s.MaxLongPoll, time.Second, 5*time.Minute)
	if s.MaxLongPoll >= s.WriteTimeout {
		v.AddError("server.maxLongPoll", "must be shorter than server.writeTimeout", s.MaxLongPoll)
	}

	h := cfg.Handoff
	v.URIScheme("handoff.scheme", h.Scheme)
	for _, pt := range []struct {
		name string
		t    TargetConfig
	}{{"android", h.Android}, {"ios", h.IOS}, {"desktop", h.Desktop}} {
		field := "handoff." + pt.name
		v.URL(field+".fallbackUri", pt.t.FallbackURI, []string{"http", "https"})
		v.DurationRange(field+".timeout", pt.t.Timeout, minHandoffTimeout, maxHandoffTimeout)
	}
	if err := h.Targets().Validate(); err != nil {
		v.AddError("handoff", err.Error(), nil)
	}

	r := cfg.Relay
	v.Positive("relay.maxPages", r.MaxPages)
	v.DurationRange("relay.pageTTL", r.PageTTL, time.Second, 24*time.Hour)
	v.DurationRange("relay.sweepInterval", r.SweepInterval, time.Second, time.Hour)

	j := cfg.Journal
	v.OneOf("journal.backend", j.Backend, []string{journal.BackendMemory, journal.BackendSQLite, journal.BackendRedis})
	v.Positive("journal.capacity", j.Capacity)
	switch j.Backend {
	case journal.BackendSQLite:
		v.NotEmpty("journal.sqlitePath", j.SQLitePath)
	case journal.BackendRedis:
		v.NotEmpty("journal.redisAddr", j.RedisAddr)
		v.Range("journal.redisDB", j.RedisDB, 0, 15)
	}

	if t := cfg.Telemetry; t.Enabled {
		v.OneOf("telemetry.exporter", t.Exporter, []string{telemetry.ExporterGRPC, telemetry.ExporterHTTP})
		v.NotEmpty("telemetry.endpoint", t.Endpoint)
		v.FloatRange("telemetry.samplingRate", t.SamplingRate, 0, 1)
	}

	if rl := cfg.RateLimit; rl.Enabled {
		v.Positive("rateLimit.requests", rl.Requests)
		v.DurationRange("rateLimit.window", rl.Window, time.Second, time.Hour)
		for _, entry := range rl.Whitelist {
			entry = strings.TrimSpace(entry)
			if net.ParseIP(entry) != nil {
				continue
			}
			if _, _, err := net.ParseCIDR(entry); err == nil {
				continue
			}
			v.AddError("rateLimit.whitelist", "must be an IP address or CIDR", entry)
		}
	}

	return v.Err()
}
