// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package journal

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/astrorhythm/internal/handoff"
	"github.com/ManuGH/astrorhythm/internal/handoff/handofftest"
	"github.com/ManuGH/astrorhythm/internal/resilience"
)

func TestRecorder_RecordsFinishedAttempts(t *testing.T) {
	store := NewMemoryStore(10)
	sched := handofftest.NewScheduler(base)
	page := handofftest.NewPage()
	nop := zerolog.Nop()

	r := handoff.NewResolver(page, handoff.ResolverOptions{
		PageID:    "p1",
		Scheduler: sched,
		Observer:  NewRecorder(store, zerolog.Nop()),
		Logger:    &nop,
		Now:       sched.Now,
	})

	a := r.Resolve("Mozilla/5.0 (Linux; Android 14)")
	sched.Advance(300 * time.Millisecond)
	page.Emit(handoff.VisibilityHidden)
	require.Equal(t, handoff.StateConfirmed, a.State())

	got, err := store.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID(), got[0].ID)
	assert.Equal(t, "p1", got[0].PageID)
	assert.Equal(t, "android", got[0].Platform)
	assert.Equal(t, "confirmed", got[0].State)
	assert.Equal(t, "visibility_hidden", got[0].Reason)
	assert.Equal(t, int64(300), got[0].DurationMS)
}

func TestRecorder_LogsStoreFailure(t *testing.T) {
	store := NewMemoryStore(1)
	require.NoError(t, store.Close())

	var buf bytes.Buffer
	rec := NewRecorder(store, zerolog.New(&buf))
	rec.AttemptFinished(handoff.Result{ID: "a1", State: handoff.StateAborted})

	assert.Contains(t, buf.String(), `"event":"journal.record_failed"`)
	assert.Contains(t, buf.String(), `"attempt_id":"a1"`)
}

func TestRecorder_BreakerSkipsWritesWhileOpen(t *testing.T) {
	store := NewMemoryStore(1)
	require.NoError(t, store.Close())

	var buf bytes.Buffer
	breaker := resilience.NewCircuitBreaker("journal_test", 2, time.Hour)
	rec := NewRecorder(store, zerolog.New(&buf).Level(zerolog.DebugLevel), WithBreaker(breaker))

	rec.AttemptFinished(handoff.Result{ID: "a1", State: handoff.StateAborted})
	rec.AttemptFinished(handoff.Result{ID: "a2", State: handoff.StateAborted})
	assert.Equal(t, resilience.StateOpen, breaker.State())

	buf.Reset()
	rec.AttemptFinished(handoff.Result{ID: "a3", State: handoff.StateAborted})
	assert.Contains(t, buf.String(), `"event":"journal.record_skipped"`)
	assert.NotContains(t, buf.String(), "journal.record_failed")
}
