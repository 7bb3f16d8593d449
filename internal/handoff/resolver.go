// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package handoff

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	xglog "github.com/ManuGH/astrorhythm/internal/log"
	"github.com/ManuGH/astrorhythm/internal/telemetry"
)

const (
	// TracerName is the instrumentation scope of attempt spans.
	TracerName = "astrorhythm/handoff"

	defaultRetained = 32
)

// ResolverOptions configures a Resolver. Zero values select defaults.
type ResolverOptions struct {
	PageID    string
	Scheduler Scheduler
	Targets   TargetSource
	Observer  Observer
	Logger    *zerolog.Logger
	Tracer    trace.Tracer
	Now       func() time.Time
	NewID     func() string
	// Retained bounds how many finished attempts stay reachable through Attempt.
	Retained int
}

// Resolver drives "return to app" attempts for a single hosting page.
//
// Re-invoking Resolve while an earlier attempt is pending starts an
// independent attempt; attempts never share timers or subscriptions.
type Resolver struct {
	page     Page
	pageID   string
	sched    Scheduler
	targets  TargetSource
	observer Observer
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
	newID    func() string
	retained int

	mu       sync.Mutex
	closed   bool
	inflight map[string]*Attempt
	attempts map[string]*Attempt
	order    []string
}

// NewResolver creates a Resolver bound to page.
func NewResolver(page Page, opts ResolverOptions) *Resolver {
	r := &Resolver{
		page:     page,
		pageID:   opts.PageID,
		sched:    opts.Scheduler,
		targets:  opts.Targets,
		observer: opts.Observer,
		tracer:   opts.Tracer,
		now:      opts.Now,
		newID:    opts.NewID,
		retained: opts.Retained,
		inflight: make(map[string]*Attempt),
		attempts: make(map[string]*Attempt),
	}
	if r.sched == nil {
		r.sched = SystemScheduler{}
	}
	if r.targets == nil {
		r.targets = StaticTargets(DefaultTargets())
	}
	if r.observer == nil {
		r.observer = NopObserver{}
	}
	if opts.Logger != nil {
		r.logger = *opts.Logger
	} else {
		r.logger = xglog.WithComponent("handoff")
	}
	if r.tracer == nil {
		r.tracer = telemetry.Tracer(TracerName)
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}
	if r.retained <= 0 {
		r.retained = defaultRetained
	}
	return r
}

// Resolve creates an attempt for platformHint and starts it. It never fails:
// unknown hints use the Desktop target, and a closed resolver returns an
// attempt that is already aborted.
func (r *Resolver) Resolve(platformHint string) *Attempt {
	platform := Classify(platformHint)
	target := r.targets.Targets().For(platform)

	a := &Attempt{
		id:        r.newID(),
		pageID:    r.pageID,
		platform:  platform,
		target:    target,
		page:      r.page,
		sched:     r.sched,
		now:       r.now,
		state:     StateCreated,
		startedAt: r.now(),
		done:      make(chan struct{}),
		onFinish:  r.finished,
	}
	a.logger = r.logger.With().
		Str(xglog.FieldAttemptID, a.id).
		Str(xglog.FieldPlatform, string(platform)).
		Logger()
	if r.pageID != "" {
		a.logger = a.logger.With().Str(xglog.FieldPageID, r.pageID).Logger()
	}

	attrs := append(telemetry.HandoffAttributes(r.pageID, a.id, string(platform)),
		attribute.Int64("handoff.timeout_ms", target.Timeout.Milliseconds()))
	_, a.span = r.tracer.Start(context.Background(), "handoff.attempt", trace.WithAttributes(attrs...))

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		a.onFinish = nil
		a.Abort()
		return a
	}
	r.inflight[a.id] = a
	r.remember(a)
	r.mu.Unlock()

	r.observer.AttemptStarted(a.Snapshot())
	a.start()
	return a
}

// remember retains a for lookups, evicting the oldest finished attempts.
// Caller holds r.mu.
func (r *Resolver) remember(a *Attempt) {
	r.attempts[a.id] = a
	r.order = append(r.order, a.id)
	for len(r.order) > r.retained {
		evicted := false
		for i, id := range r.order {
			if _, live := r.inflight[id]; live {
				continue
			}
			delete(r.attempts, id)
			r.order = append(r.order[:i], r.order[i+1:]...)
			evicted = true
			break
		}
		if !evicted {
			return
		}
	}
}

func (r *Resolver) finished(a *Attempt, res Result) {
	r.mu.Lock()
	delete(r.inflight, a.id)
	r.mu.Unlock()
	r.observer.AttemptFinished(res)
}

// Attempt looks up a retained attempt by ID.
func (r *Resolver) Attempt(id string) (*Attempt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	return a, ok
}

// InFlight returns the number of attempts that have not reached a terminal state.
func (r *Resolver) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}

// Close aborts every in-flight attempt. Subsequent Resolve calls return
// already-aborted attempts. Close is idempotent.
func (r *Resolver) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	pending := make([]*Attempt, 0, len(r.inflight))
	for _, a := range r.inflight {
		pending = append(pending, a)
	}
	r.mu.Unlock()

	for _, a := range pending {
		a.Abort()
	}
}
