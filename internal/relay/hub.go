// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package relay hosts remote pages so that handoff attempts can run in the
// service while a thin browser client performs the actual navigations.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/astrorhythm/internal/handoff"
	xglog "github.com/ManuGH/astrorhythm/internal/log"
)

const (
	defaultTTL           = 10 * time.Minute
	defaultSweepInterval = 30 * time.Second
	defaultMaxPages      = 10000
)

// Options configures a Hub. Zero values select defaults.
type Options struct {
	TTL           time.Duration
	SweepInterval time.Duration
	MaxPages      int

	Scheduler handoff.Scheduler
	Targets   handoff.TargetSource
	Observer  handoff.Observer
	Logger    *zerolog.Logger
	Now       func() time.Time
	NewID     func() string

	// OnChange is called with the open page count after every open or close.
	OnChange func(open int)
}

// Hub is the registry of open remote pages.
type Hub struct {
	opts   Options
	logger zerolog.Logger

	closeMu sync.Mutex

	mu    sync.Mutex
	pages map[string]*Page
}

// NewHub creates a Hub.
func NewHub(opts Options) *Hub {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaultMaxPages
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	h := &Hub{
		opts:  opts,
		pages: make(map[string]*Page),
	}
	if opts.Logger != nil {
		h.logger = *opts.Logger
	} else {
		h.logger = xglog.WithComponent("relay")
	}
	return h
}

// Open registers a new page.
func (h *Hub) Open() (*Page, error) {
	h.mu.Lock()
	if len(h.pages) >= h.opts.MaxPages {
		h.mu.Unlock()
		return nil, ErrTooManyPages
	}
	id := h.opts.NewID()
	p := newPage(id, h.opts.Now)
	resolverLogger := h.logger.With().Str(xglog.FieldPageID, id).Logger()
	p.resolver = handoff.NewResolver(p, handoff.ResolverOptions{
		PageID:    id,
		Scheduler: h.opts.Scheduler,
		Targets:   h.opts.Targets,
		Observer:  h.opts.Observer,
		Logger:    &resolverLogger,
		Now:       h.opts.Now,
	})
	h.pages[id] = p
	n := len(h.pages)
	h.mu.Unlock()

	h.logger.Debug().
		Str(xglog.FieldEvent, "relay.page_opened").
		Str(xglog.FieldPageID, id).
		Msg("page opened")
	h.changed(n)
	return p, nil
}

// Get returns an open page.
func (h *Hub) Get(id string) (*Page, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.pages[id]
	if !ok {
		return nil, ErrPageNotFound
	}
	return p, nil
}

// Close unloads a page, aborting its in-flight attempts.
func (h *Hub) Close(id string) error {
	h.mu.Lock()
	p, ok := h.pages[id]
	if !ok {
		h.mu.Unlock()
		return ErrPageNotFound
	}
	delete(h.pages, id)
	n := len(h.pages)
	h.mu.Unlock()

	p.Close()
	h.logger.Debug().
		Str(xglog.FieldEvent, "relay.page_closed").
		Str(xglog.FieldPageID, id).
		Msg("page closed")
	h.changed(n)
	return nil
}

// Len returns the number of open pages.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pages)
}

// Capacity returns the maximum number of open pages.
func (h *Hub) Capacity() int {
	return h.opts.MaxPages
}

// Sweep closes pages idle for longer than the TTL and returns how many were closed.
func (h *Hub) Sweep(now time.Time) int {
	h.mu.Lock()
	var stale []*Page
	for id, p := range h.pages {
		if now.Sub(p.LastSeen()) > h.opts.TTL {
			stale = append(stale, p)
			delete(h.pages, id)
		}
	}
	n := len(h.pages)
	h.mu.Unlock()

	for _, p := range stale {
		p.Close()
	}
	if len(stale) > 0 {
		h.logger.Info().
			Str(xglog.FieldEvent, "relay.sweep").
			Int("closed", len(stale)).
			Int("open", n).
			Msg("closed idle pages")
		h.changed(n)
	}
	return len(stale)
}

// CloseAll closes every page. A concurrent call returns only once the pages
// taken by the first call are closed.
func (h *Hub) CloseAll() {
	h.closeMu.Lock()
	defer h.closeMu.Unlock()

	h.mu.Lock()
	pages := make([]*Page, 0, len(h.pages))
	for _, p := range h.pages {
		pages = append(pages, p)
	}
	h.pages = make(map[string]*Page)
	h.mu.Unlock()

	for _, p := range pages {
		p.Close()
	}
	h.changed(0)
}

// Run sweeps idle pages until ctx is done. Open pages are left for CloseAll,
// which the owner calls while outcome sinks can still record.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(xglog.FieldEvent, "relay.stopped").Msg("relay stopped")
			return nil
		case <-ticker.C:
			h.Sweep(h.opts.Now())
		}
	}
}

func (h *Hub) changed(n int) {
	if h.opts.OnChange != nil {
		h.opts.OnChange(n)
	}
}
