// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package handofftest provides deterministic collaborators for handoff tests.
package handofftest

import (
	"sort"
	"sync"
	"time"

	"github.com/ManuGH/astrorhythm/internal/handoff"
)

// Scheduler is a manual clock. Timers fire only from Advance.
type Scheduler struct {
	mu     sync.Mutex
	now    time.Time
	timers []*Timer
}

// NewScheduler returns a Scheduler starting at start.
func NewScheduler(start time.Time) *Scheduler {
	return &Scheduler{now: start}
}

// Now returns the current fake time.
func (s *Scheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// AfterFunc implements handoff.Scheduler.
func (s *Scheduler) AfterFunc(d time.Duration, fn func()) handoff.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &Timer{deadline: s.now.Add(d), fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Advance moves the clock forward by d and fires every due timer in deadline order.
// Callbacks run on the calling goroutine with the clock set to their deadline.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	end := s.now.Add(d)
	s.mu.Unlock()

	for {
		s.mu.Lock()
		due := s.nextDueLocked(end)
		if due == nil {
			s.now = end
			s.mu.Unlock()
			return
		}
		if due.deadline.After(s.now) {
			s.now = due.deadline
		}
		s.mu.Unlock()
		due.fire()
	}
}

func (s *Scheduler) nextDueLocked(end time.Time) *Timer {
	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.done() {
			live = append(live, t)
		}
	}
	s.timers = live
	sort.SliceStable(s.timers, func(i, j int) bool {
		return s.timers[i].deadline.Before(s.timers[j].deadline)
	})
	for _, t := range s.timers {
		if !t.deadline.After(end) {
			return t
		}
	}
	return nil
}

// Pending returns the number of armed timers that have neither fired nor been stopped.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.done() {
			n++
		}
	}
	return n
}

// Timers returns every timer created so far that is still tracked.
func (s *Scheduler) Timers() []*Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Timer(nil), s.timers...)
}

// Timer is a fake handoff.Timer.
type Timer struct {
	mu       sync.Mutex
	deadline time.Time
	fn       func()
	stopped  bool
	fired    int
}

// Stop implements handoff.Timer.
func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired > 0 {
		return false
	}
	t.stopped = true
	return true
}

// Fire invokes the callback unconditionally, simulating a spurious or double fire.
func (t *Timer) Fire() {
	t.mu.Lock()
	t.fired++
	fn := t.fn
	t.mu.Unlock()
	fn()
}

func (t *Timer) fire() {
	t.mu.Lock()
	if t.stopped || t.fired > 0 {
		t.mu.Unlock()
		return
	}
	t.fired++
	fn := t.fn
	t.mu.Unlock()
	fn()
}

func (t *Timer) done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped || t.fired > 0
}

// Stopped reports whether Stop succeeded.
func (t *Timer) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Deadline returns the fake time the timer is due.
func (t *Timer) Deadline() time.Time {
	return t.deadline
}
