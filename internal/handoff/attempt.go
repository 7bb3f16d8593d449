// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package handoff

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	xglog "github.com/ManuGH/astrorhythm/internal/log"
	"github.com/ManuGH/astrorhythm/internal/telemetry"
)

// State is the lifecycle state of an Attempt.
type State string

const (
	StateCreated            State = "created"
	StateHandoffInitiated   State = "handoff_initiated"
	StateConfirmed          State = "confirmed"
	StateFallbackDispatched State = "fallback_dispatched"
	StateAborted            State = "aborted"
)

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateFallbackDispatched, StateAborted:
		return true
	}
	return false
}

// Reason explains why an attempt reached its terminal state.
type Reason string

const (
	ReasonVisibilityHidden   Reason = "visibility_hidden"
	ReasonTimeout            Reason = "timeout"
	ReasonNavigationRejected Reason = "navigation_rejected"
	ReasonPageClosed         Reason = "page_closed"
)

// errNavigationPanicked wraps a panic raised by a Navigator or Surface.
var errNavigationPanicked = errors.New("navigation panicked")

// Result is a point-in-time view of an Attempt.
type Result struct {
	ID          string    `json:"id"`
	PageID      string    `json:"pageId,omitempty"`
	Platform    Platform  `json:"platform"`
	State       State     `json:"state"`
	Reason      Reason    `json:"reason,omitempty"`
	PrimaryURI  string    `json:"primaryUri"`
	FallbackURI string    `json:"fallbackUri"`
	TimeoutMS   int64     `json:"timeoutMs"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt,omitzero"`
	Error       string    `json:"error,omitempty"`
}

// Duration is the time from start to the terminal transition, or zero while in flight.
func (r Result) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Attempt is one run of the handoff-then-fallback state machine.
// It exclusively owns its timer, visibility subscription and frame.
type Attempt struct {
	id       string
	pageID   string
	platform Platform
	target   Target

	page     Page
	sched    Scheduler
	now      func() time.Time
	logger   zerolog.Logger
	span     trace.Span
	onFinish func(*Attempt, Result)

	mu         sync.Mutex
	state      State
	reason     Reason
	opened     bool
	err        error
	timer      Timer
	sub        Subscription
	frame      Frame
	startedAt  time.Time
	finishedAt time.Time
	done       chan struct{}
}

// ID returns the attempt identifier.
func (a *Attempt) ID() string { return a.id }

// Platform returns the platform the attempt was classified as.
func (a *Attempt) Platform() Platform { return a.platform }

// Target returns the target selected for the attempt.
func (a *Attempt) Target() Target { return a.target }

// Done is closed once the attempt reaches a terminal state.
func (a *Attempt) Done() <-chan struct{} { return a.done }

// State returns the current state.
func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Opened reports whether the native handoff was confirmed.
func (a *Attempt) Opened() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.opened
}

// Snapshot returns the current Result.
func (a *Attempt) Snapshot() Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Attempt) snapshotLocked() Result {
	r := Result{
		ID:          a.id,
		PageID:      a.pageID,
		Platform:    a.platform,
		State:       a.state,
		Reason:      a.reason,
		PrimaryURI:  a.target.PrimaryURI,
		FallbackURI: a.target.FallbackURI,
		TimeoutMS:   a.target.Timeout.Milliseconds(),
		StartedAt:   a.startedAt,
		FinishedAt:  a.finishedAt,
	}
	if a.err != nil {
		r.Error = a.err.Error()
	}
	return r
}

// holdsResources reports whether any timer, subscription or frame is still owned.
func (a *Attempt) holdsResources() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil || a.sub != nil || a.frame != nil
}

// start performs Created -> HandoffInitiated. The listener is installed before
// the timer is armed, and the timer before the primary navigation.
func (a *Attempt) start() {
	a.mu.Lock()
	if a.state != StateCreated {
		a.mu.Unlock()
		return
	}
	a.state = StateHandoffInitiated
	a.mu.Unlock()

	a.logger.Debug().
		Str(xglog.FieldEvent, "handoff.initiated").
		Str(xglog.FieldURI, a.target.PrimaryURI).
		Int64(xglog.FieldTimeoutMS, a.target.Timeout.Milliseconds()).
		Msg("attempting native handoff")

	sub := a.page.Subscribe(a.onVisibility)
	if !a.keep(func() { a.sub = sub }) {
		if sub != nil {
			sub.Unsubscribe()
		}
		return
	}

	timer := a.sched.AfterFunc(a.target.Timeout, a.onTimeout)
	if !a.keep(func() { a.timer = timer }) {
		timer.Stop()
		return
	}

	if a.platform.UsesSurface() {
		frame, err := a.attach(a.target.PrimaryURI)
		if err != nil {
			a.reject(err)
			return
		}
		if !a.keep(func() { a.frame = frame }) && frame != nil {
			frame.Detach()
		}
		return
	}

	if err := a.navigate(a.target.PrimaryURI, RolePrimary); err != nil {
		a.reject(err)
	}
}

// keep stores a resource handle if the attempt is still in flight.
func (a *Attempt) keep(store func()) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.Terminal() {
		return false
	}
	store()
	return true
}

func (a *Attempt) onVisibility(state VisibilityState) {
	if state != VisibilityHidden {
		return
	}
	a.finish(StateConfirmed, ReasonVisibilityHidden, nil)
}

func (a *Attempt) onTimeout() {
	a.finish(StateFallbackDispatched, ReasonTimeout, nil)
}

func (a *Attempt) reject(err error) {
	a.finish(StateFallbackDispatched, ReasonNavigationRejected, err)
}

// Reject reports that the runtime rejected the primary navigation after the
// fact. The fallback is dispatched immediately. It returns false if the
// attempt had already finished.
func (a *Attempt) Reject(err error) bool {
	if err == nil {
		err = errors.New("navigation rejected")
	}
	return a.finish(StateFallbackDispatched, ReasonNavigationRejected, err)
}

// Abort force-terminates the attempt without navigating anywhere.
// It returns false if the attempt had already finished.
func (a *Attempt) Abort() bool {
	return a.finish(StateAborted, ReasonPageClosed, nil)
}

// finish performs the single terminal transition. Later calls are no-ops.
func (a *Attempt) finish(state State, reason Reason, cause error) bool {
	a.mu.Lock()
	if a.state.Terminal() {
		a.mu.Unlock()
		return false
	}
	if state == StateFallbackDispatched && a.opened {
		a.mu.Unlock()
		return false
	}
	old := a.state
	if state == StateConfirmed {
		a.opened = true
	}
	a.state = state
	a.reason = reason
	a.err = cause
	a.finishedAt = a.now()
	timer, sub, frame := a.timer, a.sub, a.frame
	a.timer, a.sub, a.frame = nil, nil, nil
	res := a.snapshotLocked()
	a.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if sub != nil {
		sub.Unsubscribe()
	}
	if frame != nil {
		frame.Detach()
	}

	ev := a.logger.Info()
	if cause != nil {
		ev = a.logger.Warn().Err(cause)
	}
	ev.Str(xglog.FieldEvent, "handoff."+string(state)).
		Str(xglog.FieldOldState, string(old)).
		Str(xglog.FieldNewState, string(state)).
		Str(xglog.FieldReason, string(reason)).
		Int64(xglog.FieldDuration, res.Duration().Milliseconds()).
		Msg("handoff attempt finished")

	if state == StateFallbackDispatched {
		if err := a.navigate(a.target.FallbackURI, RoleFallback); err != nil {
			a.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "handoff.fallback_rejected").
				Str(xglog.FieldURI, a.target.FallbackURI).
				Msg("fallback navigation rejected")
		}
	}

	mctx := context.Background()
	if a.span != nil {
		mctx = trace.ContextWithSpan(mctx, a.span)
	}
	telemetry.RecordAttemptOutcome(mctx, string(res.Platform), string(state), string(reason), res.Duration())

	if a.span != nil {
		a.span.SetAttributes(
			attribute.String("handoff.state", string(state)),
			attribute.String("handoff.reason", string(reason)),
		)
		if cause != nil {
			a.span.RecordError(cause)
			a.span.SetStatus(codes.Error, string(reason))
		}
		a.span.End()
	}

	close(a.done)
	if a.onFinish != nil {
		a.onFinish(a, res)
	}
	return true
}

// navigate calls the Navigator, turning a panic into an error.
func (a *Attempt) navigate(uri string, role NavigationRole) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", errNavigationPanicked, rec)
		}
	}()
	if an, ok := a.page.(AttemptNavigator); ok {
		return an.NavigateFor(Navigation{AttemptID: a.id, Role: role, URI: uri})
	}
	return a.page.Navigate(uri)
}

// attach calls the Surface, turning a panic into an error.
func (a *Attempt) attach(uri string) (frame Frame, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			frame, err = nil, fmt.Errorf("%w: %v", errNavigationPanicked, rec)
		}
	}()
	if as, ok := a.page.(AttemptSurface); ok {
		return as.AttachFor(Navigation{AttemptID: a.id, Role: RolePrimary, URI: uri})
	}
	return a.page.Attach(uri)
}
