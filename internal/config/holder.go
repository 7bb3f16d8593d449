// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ManuGH/astrorhythm/internal/handoff"
	xglog "github.com/ManuGH/astrorhythm/internal/log"
	"github.com/ManuGH/astrorhythm/internal/metrics"
)

const defaultDebounce = 500 * time.Millisecond

// Holder holds configuration with atomic reloading capability.
// It implements handoff.TargetSource, so a reload changes the targets of
// attempts started afterwards and never those already running.
type Holder struct {
	mu      sync.RWMutex
	current AppConfig
	targets handoff.Targets

	loader   *Loader
	logger   zerolog.Logger
	debounce time.Duration

	listenersMu sync.RWMutex
	listeners   []chan<- AppConfig
}

var _ handoff.TargetSource = (*Holder)(nil)

// NewHolder creates a holder serving initial.
func NewHolder(initial AppConfig, loader *Loader) *Holder {
	return &Holder{
		current:  initial,
		targets:  initial.Handoff.Targets(),
		loader:   loader,
		logger:   xglog.WithComponent("config"),
		debounce: defaultDebounce,
	}
}

// Get returns the current configuration.
func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Targets implements handoff.TargetSource.
func (h *Holder) Targets() handoff.Targets {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.targets
}

// Reload loads and validates the configuration and swaps it in.
// On failure the previous configuration stays active.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str(xglog.FieldEvent, "config.reload_start").Msg("reloading configuration")

	if h.loader == nil {
		return ErrNoLoader
	}
	next, err := h.loader.Load()
	if err != nil {
		metrics.RecordConfigReload(false)
		h.logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "config.reload_failed").
			Msg("new configuration rejected, keeping current")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	prev := h.current
	h.current = next
	h.targets = next.Handoff.Targets()
	h.mu.Unlock()

	metrics.RecordConfigReload(true)
	h.logChanges(prev, next)
	h.notifyListeners(next)

	h.logger.Info().
		Str(xglog.FieldEvent, "config.reload_success").
		Msg("configuration reloaded successfully")
	return nil
}

// Watch reloads the configuration whenever the config file changes, until
// ctx is done. Events are debounced. It returns immediately when the
// configuration comes from ENV only.
func (h *Holder) Watch(ctx context.Context) error {
	var path string
	if h.loader != nil {
		path = h.loader.Path()
	}
	if path == "" {
		h.logger.Info().
			Str(xglog.FieldEvent, "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory so editors that replace the file by rename are seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}

	h.logger.Info().
		Str(xglog.FieldEvent, "config.watcher_started").
		Str("path", path).
		Msg("watching config file for changes")

	var (
		debounce *time.Timer
		fire     <-chan time.Time
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(xglog.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			h.logger.Debug().
				Str(xglog.FieldEvent, "config.file_changed").
				Str("op", event.Op.String()).
				Msg("config file changed")
			if debounce == nil {
				debounce = time.NewTimer(h.debounce)
			} else {
				debounce.Reset(h.debounce)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			if err := h.Reload(ctx); err != nil {
				h.logger.Error().
					Err(err).
					Str(xglog.FieldEvent, "config.auto_reload_failed").
					Msg("automatic config reload failed")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// RegisterListener registers a channel to receive the new config after
// each successful reload. Sends never block; a full channel misses the update.
func (h *Holder) RegisterListener(ch chan<- AppConfig) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *Holder) notifyListeners(cfg AppConfig) {
	h.listenersMu.RLock()
	defer h.listenersMu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- cfg:
		default:
			h.logger.Warn().
				Str(xglog.FieldEvent, "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

func (h *Holder) logChanges(prev, next AppConfig) {
	if prev.Log.Level != next.Log.Level {
		h.logger.Info().
			Str("old", prev.Log.Level).
			Str("new", next.Log.Level).
			Msg("config changed: log.level")
	}
	pt, nt := prev.Handoff.Targets(), next.Handoff.Targets()
	for _, p := range []handoff.Platform{handoff.PlatformAndroid, handoff.PlatformIOS, handoff.PlatformDesktop} {
		if pt.For(p) == nt.For(p) {
			continue
		}
		h.logger.Info().
			Str(xglog.FieldPlatform, string(p)).
			Str(xglog.FieldURI, nt.For(p).PrimaryURI).
			Str("fallback_uri", nt.For(p).FallbackURI).
			Int64(xglog.FieldTimeoutMS, nt.For(p).Timeout.Milliseconds()).
			Msg("config changed: handoff target")
	}
	if prev.RateLimit.Requests != next.RateLimit.Requests || prev.RateLimit.Enabled != next.RateLimit.Enabled {
		h.logger.Info().
			Bool("enabled", next.RateLimit.Enabled).
			Int("requests", next.RateLimit.Requests).
			Msg("config changed: rateLimit (applies after restart)")
	}
}
