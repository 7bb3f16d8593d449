// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package journal

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/astrorhythm/internal/handoff"
	xglog "github.com/ManuGH/astrorhythm/internal/log"
	"github.com/ManuGH/astrorhythm/internal/resilience"
)

const recordTimeout = 2 * time.Second

// Recorder writes every finished attempt to a Store.
type Recorder struct {
	store   Store
	logger  zerolog.Logger
	breaker *resilience.CircuitBreaker
}

var _ handoff.Observer = (*Recorder)(nil)

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithBreaker routes writes through breaker. Outcomes are dropped while it is open.
func WithBreaker(breaker *resilience.CircuitBreaker) RecorderOption {
	return func(r *Recorder) { r.breaker = breaker }
}

// NewRecorder creates a Recorder for store.
func NewRecorder(store Store, logger zerolog.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AttemptStarted implements handoff.Observer.
func (r *Recorder) AttemptStarted(handoff.Result) {}

// AttemptFinished implements handoff.Observer. Failures are logged, never returned.
func (r *Recorder) AttemptFinished(res handoff.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	entry := EntryFromResult(res)
	write := func() error { return r.store.Record(ctx, entry) }

	var err error
	if r.breaker != nil {
		err = r.breaker.Execute(write)
	} else {
		err = write()
	}

	if errors.Is(err, resilience.ErrCircuitOpen) {
		r.logger.Debug().
			Str(xglog.FieldEvent, "journal.record_skipped").
			Str(xglog.FieldAttemptID, res.ID).
			Msg("journal circuit open, outcome not recorded")
		return
	}
	if err != nil {
		r.logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "journal.record_failed").
			Str(xglog.FieldAttemptID, res.ID).
			Str(xglog.FieldState, string(res.State)).
			Msg("failed to record handoff outcome")
	}
}
