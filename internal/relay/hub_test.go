// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package relay

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/astrorhythm/internal/handoff"
	"github.com/ManuGH/astrorhythm/internal/handoff/handofftest"
)

func TestHub_OpenGetClose(t *testing.T) {
	var counts []int
	sched := handofftest.NewScheduler(time.Unix(0, 0))
	nop := zerolog.Nop()
	h := NewHub(Options{
		Scheduler: sched,
		Logger:    &nop,
		Now:       sched.Now,
		OnChange:  func(n int) { counts = append(counts, n) },
	})

	p, err := h.Open()
	require.NoError(t, err)
	assert.Equal(t, 1, h.Len())

	got, err := h.Get(p.ID())
	require.NoError(t, err)
	assert.Same(t, p, got)

	require.NoError(t, h.Close(p.ID()))
	assert.Zero(t, h.Len())
	assert.ErrorIs(t, h.Close(p.ID()), ErrPageNotFound)
	_, err = h.Get(p.ID())
	assert.ErrorIs(t, err, ErrPageNotFound)

	assert.Equal(t, []int{1, 0}, counts)
}

func TestHub_MaxPages(t *testing.T) {
	nop := zerolog.Nop()
	h := NewHub(Options{MaxPages: 1, Logger: &nop})
	defer h.CloseAll()

	_, err := h.Open()
	require.NoError(t, err)
	_, err = h.Open()
	assert.ErrorIs(t, err, ErrTooManyPages)
}

func TestHub_SweepClosesIdlePages(t *testing.T) {
	h, sched := newTestHub(t)

	idle, err := h.Open()
	require.NoError(t, err)
	a, err := idle.Resolve(desktopUA)
	require.NoError(t, err)

	// Stay short of the desktop timeout so the attempt is still in flight.
	sched.Advance(500 * time.Millisecond)
	active, err := h.Open()
	require.NoError(t, err)

	closed := h.Sweep(sched.Now().Add(time.Minute))
	assert.Equal(t, 1, closed)
	assert.Equal(t, 1, h.Len())
	assert.True(t, idle.Closed())
	assert.False(t, active.Closed())
	assert.Equal(t, handoff.StateAborted, a.State())
}

func TestHub_RunLeavesPagesForCloseAll(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	nop := zerolog.Nop()
	h := NewHub(Options{SweepInterval: 5 * time.Millisecond, Logger: &nop})
	p, err := h.Open()
	require.NoError(t, err)
	a, err := p.Resolve(desktopUA)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, 1, h.Len())
	assert.False(t, p.Closed())
	assert.False(t, a.State().Terminal())

	h.CloseAll()
	assert.Zero(t, h.Len())
	assert.True(t, a.State().Terminal())
}

// slowObserver counts finished attempts, taking a while for each.
type slowObserver struct {
	handoff.NopObserver
	delay    time.Duration
	finished atomic.Int64
}

func (o *slowObserver) AttemptFinished(handoff.Result) {
	time.Sleep(o.delay)
	o.finished.Add(1)
}

func TestHub_ConcurrentCloseAllWaitsForFirst(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	const pages = 20
	obs := &slowObserver{delay: time.Millisecond}
	nop := zerolog.Nop()
	h := NewHub(Options{Observer: obs, Logger: &nop})

	for i := 0; i < pages; i++ {
		p, err := h.Open()
		require.NoError(t, err)
		_, err = p.Resolve(desktopUA)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	started := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		close(started)
		h.CloseAll()
	}()
	<-started
	time.Sleep(2 * time.Millisecond)

	// Whichever call ran second must not return before every outcome was observed.
	h.CloseAll()
	assert.Equal(t, int64(pages), obs.finished.Load())
	wg.Wait()
	assert.Zero(t, h.Len())
}
