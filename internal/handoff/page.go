// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package handoff

import "time"

// VisibilityState is the foreground/background state of the hosting page.
type VisibilityState string

const (
	VisibilityVisible VisibilityState = "visible"
	VisibilityHidden  VisibilityState = "hidden"
)

// ParseVisibility parses a reported visibility state.
func ParseVisibility(s string) (VisibilityState, bool) {
	switch VisibilityState(s) {
	case VisibilityVisible:
		return VisibilityVisible, true
	case VisibilityHidden:
		return VisibilityHidden, true
	}
	return "", false
}

// Navigator performs a top-level navigation of the hosting page.
// A non-nil error means the runtime rejected the URI.
type Navigator interface {
	Navigate(uri string) error
}

// Subscription is a live visibility listener.
type Subscription interface {
	Unsubscribe()
}

// Visibility reports foreground/background transitions of the hosting page.
// Implementations must tolerate Unsubscribe being called from inside a callback.
type Visibility interface {
	Subscribe(fn func(VisibilityState)) Subscription
}

// Frame is an attached hidden navigation surface.
type Frame interface {
	Detach()
}

// Surface attaches hidden, non-rendering navigation surfaces to the page.
// iOS needs it because top-level navigation to an unregistered scheme shows
// an error dialog.
type Surface interface {
	Attach(uri string) (Frame, error)
}

// Page bundles the primitives of one hosting page.
type Page interface {
	Navigator
	Visibility
	Surface
}

// NavigationRole tells whether a navigation targets the native app or the fallback.
type NavigationRole string

const (
	RolePrimary  NavigationRole = "primary"
	RoleFallback NavigationRole = "fallback"
)

// Navigation describes one navigation issued by an attempt.
type Navigation struct {
	AttemptID string
	Role      NavigationRole
	URI       string
}

// AttemptNavigator is implemented by pages that need to know which attempt
// navigates. Attempts prefer it over Navigator.
type AttemptNavigator interface {
	NavigateFor(nav Navigation) error
}

// AttemptSurface is the Surface counterpart of AttemptNavigator.
type AttemptSurface interface {
	AttachFor(nav Navigation) (Frame, error)
}

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs a callback after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// SystemScheduler schedules on the runtime timer heap.
type SystemScheduler struct{}

// AfterFunc implements Scheduler.
func (SystemScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
