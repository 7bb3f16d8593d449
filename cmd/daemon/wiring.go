// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/astrorhythm/internal/api"
	"github.com/ManuGH/astrorhythm/internal/config"
	"github.com/ManuGH/astrorhythm/internal/daemon"
	"github.com/ManuGH/astrorhythm/internal/handoff"
	"github.com/ManuGH/astrorhythm/internal/health"
	"github.com/ManuGH/astrorhythm/internal/journal"
	xglog "github.com/ManuGH/astrorhythm/internal/log"
	"github.com/ManuGH/astrorhythm/internal/metrics"
	"github.com/ManuGH/astrorhythm/internal/relay"
	"github.com/ManuGH/astrorhythm/internal/resilience"
	"github.com/ManuGH/astrorhythm/internal/telemetry"
)

const (
	// relayCapacityThreshold marks the service not ready once this share of
	// the page registry is in use.
	relayCapacityThreshold = 0.9

	journalBreakerThreshold = 5
	journalBreakerReset     = 30 * time.Second
)

// runtime holds the long-lived components built from the configuration.
type runtime struct {
	holder    *config.Holder
	hub       *relay.Hub
	store     journal.Store
	telemetry *telemetry.Provider
	health    *health.Manager
	handler   http.Handler
}

func buildRuntime(ctx context.Context, cfg config.AppConfig, loader *config.Loader, logger zerolog.Logger) (*runtime, error) {
	tp, err := telemetry.NewProvider(ctx, cfg.TelemetryOptions())
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	store, err := journal.Open(ctx, cfg.JournalOptions())
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("journal: %w", err)
	}

	holder := config.NewHolder(cfg, loader)

	relayLogger := logger.With().Str(xglog.FieldComponent, "relay").Logger()
	journalLogger := xglog.Derive(func(c *zerolog.Context) {
		*c = c.Str(xglog.FieldComponent, "journal").Str("backend", cfg.Journal.Backend)
	})
	hub := relay.NewHub(relay.Options{
		TTL:           cfg.Relay.PageTTL,
		SweepInterval: cfg.Relay.SweepInterval,
		MaxPages:      cfg.Relay.MaxPages,
		Scheduler:     handoff.SystemScheduler{},
		Targets:       holder,
		Observer: handoff.Observers{
			metrics.Observer{},
			journal.NewRecorder(store, journalLogger,
				journal.WithBreaker(resilience.NewCircuitBreaker("journal", journalBreakerThreshold, journalBreakerReset)),
			),
		},
		Logger:   &relayLogger,
		OnChange: metrics.SetRelayPagesOpen,
	})

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewPingChecker("journal", store.Ping))
	hm.RegisterChecker(health.NewCapacityChecker("relay", func() (int, int) {
		return hub.Len(), hub.Capacity()
	}, relayCapacityThreshold))

	srv := api.New(api.Deps{
		Hub:     hub,
		Config:  holder,
		Journal: store,
		Health:  hm,
	})

	return &runtime{
		holder:    holder,
		hub:       hub,
		store:     store,
		telemetry: tp,
		health:    hm,
		handler:   srv.Handler(),
	}, nil
}

// registerShutdownHooks registers cleanup in dependency order. Hooks run
// LIFO: pages are closed first so their final outcomes reach the journal,
// then the journal closes, then pending spans are flushed.
func (rt *runtime) registerShutdownHooks(mgr daemon.Manager) {
	mgr.RegisterShutdownHook("telemetry", rt.telemetry.Shutdown)
	mgr.RegisterShutdownHook("journal", func(context.Context) error {
		return rt.store.Close()
	})
	mgr.RegisterShutdownHook("relay", func(context.Context) error {
		rt.hub.CloseAll()
		return nil
	})
}
