// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package relay

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/ManuGH/astrorhythm/internal/handoff"
)

const maxInstructions = 256

var (
	ErrPageNotFound    = errors.New("page not found")
	ErrPageClosed      = errors.New("page closed")
	ErrAttemptNotFound = errors.New("attempt not found")
	ErrTooManyPages    = errors.New("too many open pages")
)

// InstructionKind tells the browser client what to do.
type InstructionKind string

const (
	InstructionNavigate    InstructionKind = "navigate"
	InstructionAttachFrame InstructionKind = "attach_frame"
	InstructionDetachFrame InstructionKind = "detach_frame"
)

// Instruction is one relayed page primitive, ordered by Seq. AttemptID and
// Role are set when the instruction was issued by a handoff attempt.
type Instruction struct {
	Seq       int64                  `json:"seq"`
	Kind      InstructionKind        `json:"kind"`
	URI       string                 `json:"uri,omitempty"`
	FrameID   string                 `json:"frameId,omitempty"`
	AttemptID string                 `json:"attemptId,omitempty"`
	Role      handoff.NavigationRole `json:"role,omitempty"`
	At        time.Time              `json:"at"`
}

// Batch is the result of a Poll. Missed is set when instructions after the
// cursor were evicted from the page's bounded queue before being read;
// OldestSeq is then the first Seq still available.
type Batch struct {
	Instructions []Instruction
	Missed       bool
	OldestSeq    int64
}

// Page is a remote browser page. Navigation and frame operations are queued
// as instructions for the client, and visibility changes reported by the
// client are delivered to subscribers.
type Page struct {
	id       string
	created  time.Time
	now      func() time.Time
	resolver *handoff.Resolver

	mu           sync.Mutex
	closed       bool
	seq          int64
	nextFrame    int
	instructions []Instruction
	evictedSeq   int64
	subs         map[uint64]func(handoff.VisibilityState)
	nextSub      uint64
	lastSeen     time.Time
	changed      chan struct{}
}

func newPage(id string, now func() time.Time) *Page {
	t := now()
	return &Page{
		id:       id,
		created:  t,
		now:      now,
		subs:     make(map[uint64]func(handoff.VisibilityState)),
		lastSeen: t,
		changed:  make(chan struct{}),
	}
}

// ID returns the page identifier.
func (p *Page) ID() string { return p.id }

// Created returns when the page was opened.
func (p *Page) Created() time.Time { return p.created }

// LastSeen returns the last time the client interacted with the page.
func (p *Page) LastSeen() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSeen
}

// Closed reports whether the page has been torn down.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Navigate implements handoff.Navigator.
func (p *Page) Navigate(uri string) error {
	return p.NavigateFor(handoff.Navigation{URI: uri})
}

// NavigateFor implements handoff.AttemptNavigator.
func (p *Page) NavigateFor(nav handoff.Navigation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPageClosed
	}
	p.appendLocked(Instruction{
		Kind:      InstructionNavigate,
		URI:       nav.URI,
		AttemptID: nav.AttemptID,
		Role:      nav.Role,
	})
	return nil
}

// Attach implements handoff.Surface.
func (p *Page) Attach(uri string) (handoff.Frame, error) {
	return p.AttachFor(handoff.Navigation{URI: uri})
}

// AttachFor implements handoff.AttemptSurface.
func (p *Page) AttachFor(nav handoff.Navigation) (handoff.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPageClosed
	}
	p.nextFrame++
	id := "f" + strconv.Itoa(p.nextFrame)
	p.appendLocked(Instruction{
		Kind:      InstructionAttachFrame,
		URI:       nav.URI,
		FrameID:   id,
		AttemptID: nav.AttemptID,
		Role:      nav.Role,
	})
	return &frame{page: p, id: id, attemptID: nav.AttemptID}, nil
}

// Subscribe implements handoff.Visibility.
func (p *Page) Subscribe(fn func(handoff.VisibilityState)) handoff.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	return &subscription{page: p, id: id}
}

// Subscribers returns the number of live visibility subscriptions.
func (p *Page) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Resolve runs the "return to app" action for this page.
func (p *Page) Resolve(platformHint string) (*handoff.Attempt, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPageClosed
	}
	p.lastSeen = p.now()
	p.mu.Unlock()
	return p.resolver.Resolve(platformHint), nil
}

// Attempt looks up an attempt started on this page.
func (p *Page) Attempt(id string) (*handoff.Attempt, error) {
	a, ok := p.resolver.Attempt(id)
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return a, nil
}

// ReportVisibility delivers a client-side visibility change.
func (p *Page) ReportVisibility(state handoff.VisibilityState) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPageClosed
	}
	p.lastSeen = p.now()
	fns := make([]func(handoff.VisibilityState), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
	return nil
}

// ReportNavigationFailure tells the attempt that the client could not open its primary URI.
// It returns false if the attempt had already finished.
func (p *Page) ReportNavigationFailure(attemptID, reason string) (bool, error) {
	a, err := p.Attempt(attemptID)
	if err != nil {
		return false, err
	}
	if reason == "" {
		reason = "client reported navigation failure"
	}
	return a.Reject(errors.New(reason)), nil
}

// Instructions returns instructions with Seq > after. If none are queued it
// waits until one is, the page closes (ErrPageClosed) or ctx is done (empty
// result, nil error).
func (p *Page) Instructions(ctx context.Context, after int64) ([]Instruction, error) {
	b, err := p.Poll(ctx, after)
	return b.Instructions, err
}

// Poll is Instructions with gap reporting: Missed is set when the queue no
// longer holds every instruction after the cursor.
func (p *Page) Poll(ctx context.Context, after int64) (Batch, error) {
	for {
		p.mu.Lock()
		p.lastSeen = p.now()
		b := Batch{
			Instructions: p.afterLocked(after),
			Missed:       after < p.evictedSeq,
			OldestSeq:    p.oldestLocked(),
		}
		if len(b.Instructions) > 0 || b.Missed {
			p.mu.Unlock()
			return b, nil
		}
		if p.closed {
			p.mu.Unlock()
			return b, ErrPageClosed
		}
		changed := p.changed
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return b, nil
		case <-changed:
		}
	}
}

func (p *Page) oldestLocked() int64 {
	if len(p.instructions) == 0 {
		return p.seq + 1
	}
	return p.instructions[0].Seq
}

func (p *Page) afterLocked(after int64) []Instruction {
	var out []Instruction
	for _, in := range p.instructions {
		if in.Seq > after {
			out = append(out, in)
		}
	}
	return out
}

func (p *Page) appendLocked(in Instruction) {
	p.seq++
	in.Seq = p.seq
	in.At = p.now()
	p.instructions = append(p.instructions, in)
	if n := len(p.instructions) - maxInstructions; n > 0 {
		p.evictedSeq = p.instructions[n-1].Seq
		p.instructions = append(p.instructions[:0:0], p.instructions[n:]...)
	}
	close(p.changed)
	p.changed = make(chan struct{})
}

// Close tears the page down and aborts its in-flight attempts. Idempotent.
func (p *Page) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.changed)
	p.changed = make(chan struct{})
	p.mu.Unlock()

	p.resolver.Close()
}

type subscription struct {
	page *Page
	id   uint64
}

func (s *subscription) Unsubscribe() {
	s.page.mu.Lock()
	defer s.page.mu.Unlock()
	delete(s.page.subs, s.id)
}

type frame struct {
	page      *Page
	id        string
	attemptID string
	once      sync.Once
}

func (f *frame) Detach() {
	f.once.Do(func() {
		f.page.mu.Lock()
		defer f.page.mu.Unlock()
		if f.page.closed {
			return
		}
		f.page.appendLocked(Instruction{Kind: InstructionDetachFrame, FrameID: f.id, AttemptID: f.attemptID})
	})
}
