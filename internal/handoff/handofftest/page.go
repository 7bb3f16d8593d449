// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package handofftest

import (
	"sync"

	"github.com/ManuGH/astrorhythm/internal/handoff"
)

// Page records navigations and frames, and lets tests drive visibility.
type Page struct {
	mu          sync.Mutex
	navigations []string
	subs        map[int]func(handoff.VisibilityState)
	nextSub     int
	frames      []*Frame

	// NavigateErr, if set, is returned from Navigate for matching calls.
	NavigateErr func(uri string) error
	// AttachErr, if set, is returned from Attach.
	AttachErr error
	// OnNavigate runs synchronously inside Navigate after the call is recorded.
	OnNavigate func(uri string)
}

// NewPage returns an empty Page.
func NewPage() *Page {
	return &Page{subs: make(map[int]func(handoff.VisibilityState))}
}

// Navigate implements handoff.Navigator.
func (p *Page) Navigate(uri string) error {
	p.mu.Lock()
	p.navigations = append(p.navigations, uri)
	hook, errFn := p.OnNavigate, p.NavigateErr
	p.mu.Unlock()

	if hook != nil {
		hook(uri)
	}
	if errFn != nil {
		return errFn(uri)
	}
	return nil
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

// Attach implements handoff.Surface.
func (p *Page) Attach(uri string) (handoff.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.AttachErr != nil {
		return nil, p.AttachErr
	}
	f := &Frame{URI: uri}
	p.frames = append(p.frames, f)
	return f, nil
}

// Emit delivers a visibility change to every live subscriber.
func (p *Page) Emit(state handoff.VisibilityState) {
	p.mu.Lock()
	fns := make([]func(handoff.VisibilityState), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// Navigations returns every URI passed to Navigate.
func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// Subscribers returns the number of live visibility subscriptions.
func (p *Page) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Frames returns every frame attached so far.
func (p *Page) Frames() []*Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Frame(nil), p.frames...)
}

// AttachedFrames returns the number of frames not yet detached.
func (p *Page) AttachedFrames() int {
	p.mu.Lock()
	frames := append([]*Frame(nil), p.frames...)
	p.mu.Unlock()
	n := 0
	for _, f := range frames {
		if !f.Detached() {
			n++
		}
	}
	return n
}

type subscription struct {
	page *Page
	id   int
}

func (s *subscription) Unsubscribe() {
	s.page.mu.Lock()
	defer s.page.mu.Unlock()
	delete(s.page.subs, s.id)
}

// Frame is a fake hidden navigation surface.
type Frame struct {
	URI string

	mu       sync.Mutex
	detached int
}

// Detach implements handoff.Frame.
func (f *Frame) Detach() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detached++
}

// Detached reports whether Detach was called.
func (f *Frame) Detached() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detached > 0
}

// DetachCount returns how many times Detach was called.
func (f *Frame) DetachCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detached
}
