// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/astrorhythm/internal/handoff"
	"github.com/ManuGH/astrorhythm/internal/handoff/handofftest"
)

const (
	iosUA     = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X)"
	desktopUA = "Mozilla/5.0 (X11; Linux x86_64)"
)

func newTestHub(t *testing.T) (*Hub, *handofftest.Scheduler) {
	t.Helper()
	sched := handofftest.NewScheduler(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	nop := zerolog.Nop()
	h := NewHub(Options{
		TTL:       time.Minute,
		Scheduler: sched,
		Logger:    &nop,
		Now:       sched.Now,
	})
	return h, sched
}

func kinds(ins []Instruction) []InstructionKind {
	out := make([]InstructionKind, 0, len(ins))
	for _, in := range ins {
		out = append(out, in.Kind)
	}
	return out
}

func TestPage_DesktopFallbackRelayed(t *testing.T) {
	h, sched := newTestHub(t)
	p, err := h.Open()
	require.NoError(t, err)

	a, err := p.Resolve(desktopUA)
	require.NoError(t, err)

	ins, err := p.Instructions(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, ins, 1)
	assert.Equal(t, InstructionNavigate, ins[0].Kind)
	assert.Equal(t, handoff.DefaultTargets().Desktop.PrimaryURI, ins[0].URI)

	sched.Advance(handoff.DefaultDesktopTimeout)
	assert.Equal(t, handoff.StateFallbackDispatched, a.State())

	ins, err = p.Instructions(context.Background(), ins[0].Seq)
	require.NoError(t, err)
	require.Len(t, ins, 1)
	assert.Equal(t, handoff.DefaultDesktopFallback, ins[0].URI)
	assert.Equal(t, int64(2), ins[0].Seq)
}

func TestPage_IOSFrameLifecycle(t *testing.T) {
	h, _ := newTestHub(t)
	p, err := h.Open()
	require.NoError(t, err)

	a, err := p.Resolve(iosUA)
	require.NoError(t, err)
	require.NoError(t, p.ReportVisibility(handoff.VisibilityHidden))

	assert.Equal(t, handoff.StateConfirmed, a.State())
	ins, err := p.Instructions(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []InstructionKind{InstructionAttachFrame, InstructionDetachFrame}, kinds(ins))
	assert.Equal(t, ins[0].FrameID, ins[1].FrameID)
	assert.Zero(t, p.Subscribers())
}

func TestPage_ReportNavigationFailure(t *testing.T) {
	h, sched := newTestHub(t)
	p, err := h.Open()
	require.NoError(t, err)

	a, err := p.Resolve(desktopUA)
	require.NoError(t, err)

	ok, err := p.ReportNavigationFailure(a.ID(), "ERR_UNKNOWN_URL_SCHEME")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, handoff.StateFallbackDispatched, a.State())
	assert.Equal(t, "ERR_UNKNOWN_URL_SCHEME", a.Snapshot().Error)
	assert.Zero(t, sched.Pending())

	ok, err = p.ReportNavigationFailure(a.ID(), "again")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = p.ReportNavigationFailure("missing", "x")
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestPage_InstructionsWaitsForNext(t *testing.T) {
	h, sched := newTestHub(t)
	p, err := h.Open()
	require.NoError(t, err)
	_, err = p.Resolve(desktopUA)
	require.NoError(t, err)

	got := make(chan []Instruction, 1)
	go func() {
		ins, _ := p.Instructions(context.Background(), 1)
		got <- ins
	}()

	select {
	case <-got:
		t.Fatal("Instructions returned before a new instruction was queued")
	case <-time.After(20 * time.Millisecond):
	}

	sched.Advance(time.Hour)

	select {
	case ins := <-got:
		require.Len(t, ins, 1)
		assert.Equal(t, handoff.DefaultDesktopFallback, ins[0].URI)
	case <-time.After(2 * time.Second):
		t.Fatal("Instructions did not wake up")
	}
}

func TestPage_InstructionsContextDone(t *testing.T) {
	h, _ := newTestHub(t)
	p, err := h.Open()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	ins, err := p.Instructions(ctx, 0)
	assert.NoError(t, err)
	assert.Empty(t, ins)
}

func TestPage_CloseAbortsAndRejectsFurtherUse(t *testing.T) {
	h, sched := newTestHub(t)
	p, err := h.Open()
	require.NoError(t, err)
	a, err := p.Resolve(iosUA)
	require.NoError(t, err)

	require.NoError(t, h.Close(p.ID()))

	assert.Equal(t, handoff.StateAborted, a.State())
	assert.Zero(t, sched.Pending())
	assert.True(t, p.Closed())

	_, err = p.Resolve(desktopUA)
	assert.ErrorIs(t, err, ErrPageClosed)
	assert.ErrorIs(t, p.ReportVisibility(handoff.VisibilityHidden), ErrPageClosed)
	assert.True(t, errors.Is(p.Navigate("x://y"), ErrPageClosed))

	ins, err := p.Instructions(context.Background(), 1)
	assert.ErrorIs(t, err, ErrPageClosed)
	assert.Empty(t, ins)
}

func TestPage_ConcurrentAttemptsTagInstructions(t *testing.T) {
	h, sched := newTestHub(t)
	p, err := h.Open()
	require.NoError(t, err)

	first, err := p.Resolve(desktopUA)
	require.NoError(t, err)
	second, err := p.Resolve(desktopUA)
	require.NoError(t, err)
	require.NotEqual(t, first.ID(), second.ID())

	ins, err := p.Instructions(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, ins, 2)
	assert.Equal(t, first.ID(), ins[0].AttemptID)
	assert.Equal(t, second.ID(), ins[1].AttemptID)
	for _, in := range ins {
		assert.Equal(t, handoff.RolePrimary, in.Role)
	}

	// The client can reject the second primary alone; only its fallback is queued.
	ok, err := p.ReportNavigationFailure(ins[1].AttemptID, "ERR_UNKNOWN_URL_SCHEME")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, handoff.StateHandoffInitiated, first.State())

	sched.Advance(handoff.DefaultDesktopTimeout)
	assert.Equal(t, handoff.StateFallbackDispatched, first.State())

	ins, err = p.Instructions(context.Background(), ins[1].Seq)
	require.NoError(t, err)
	require.Len(t, ins, 2)
	assert.Equal(t, second.ID(), ins[0].AttemptID)
	assert.Equal(t, first.ID(), ins[1].AttemptID)
	for _, in := range ins {
		assert.Equal(t, handoff.RoleFallback, in.Role)
		assert.Equal(t, handoff.DefaultDesktopFallback, in.URI)
	}
}

func TestPage_FrameInstructionsCarryAttempt(t *testing.T) {
	h, _ := newTestHub(t)
	p, err := h.Open()
	require.NoError(t, err)

	a, err := p.Resolve(iosUA)
	require.NoError(t, err)
	require.NoError(t, p.ReportVisibility(handoff.VisibilityHidden))

	ins, err := p.Instructions(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, ins, 2)
	assert.Equal(t, a.ID(), ins[0].AttemptID)
	assert.Equal(t, handoff.RolePrimary, ins[0].Role)
	assert.Equal(t, a.ID(), ins[1].AttemptID)
}

func TestPage_PollReportsEvictedInstructions(t *testing.T) {
	h, _ := newTestHub(t)
	p, err := h.Open()
	require.NoError(t, err)

	const extra = 10
	for i := 0; i < maxInstructions+extra; i++ {
		require.NoError(t, p.Navigate("x-app://open"))
	}

	b, err := p.Poll(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, b.Missed)
	assert.Equal(t, int64(extra+1), b.OldestSeq)
	require.Len(t, b.Instructions, maxInstructions)
	assert.Equal(t, int64(extra+1), b.Instructions[0].Seq)

	b, err = p.Poll(context.Background(), extra)
	require.NoError(t, err)
	assert.False(t, b.Missed)
	assert.Len(t, b.Instructions, maxInstructions)
}
