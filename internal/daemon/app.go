// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon owns the service lifecycle.
package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/astrorhythm/internal/config"
	xglog "github.com/ManuGH/astrorhythm/internal/log"
)

// Runner is a background subsystem that stops when ctx is done.
type Runner interface {
	Run(ctx context.Context) error
}

// App owns the long-lived runtime (config watcher, reload wiring, relay
// sweeper) and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.Holder
	relay        Runner
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. cfgHolder and relay may be nil.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.Holder, relay Runner) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		relay:        relay,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.cfgHolder != nil {
		// The watcher is best-effort: a failure must not stop the service.
		g.Go(func() error {
			if err := a.cfgHolder.Watch(ctx); err != nil {
				a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
			}
			return nil
		})

		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(applyCh)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.applyLive(cfg)
				}
			}
		})
	}

	// SIGHUP trigger for manual reload.
	if a.cfgHolder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str(xglog.FieldEvent, "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.cfgHolder.Reload(ctx); err != nil {
						a.logger.Warn().
							Err(err).
							Str(xglog.FieldEvent, "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	if a.relay != nil {
		g.Go(func() error {
			return a.relay.Run(ctx)
		})
	}

	// Main server lifecycle.
	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

// applyLive applies the settings that take effect without a restart.
func (a *App) applyLive(cfg config.AppConfig) {
	if cfg.Log.Level == "" {
		return
	}
	if err := xglog.SetLevel(cfg.Log.Level); err != nil {
		a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.apply_failed").Msg("cannot apply log level")
		return
	}
	a.logger.Debug().
		Str(xglog.FieldEvent, "config.applied").
		Str("log_level", cfg.Log.Level).
		Msg("applied live configuration")
}
