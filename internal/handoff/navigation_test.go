// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package handoff_test

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/astrorhythm/internal/handoff"
	"github.com/ManuGH/astrorhythm/internal/handoff/handofftest"
)

// taggingPage records which attempt issued each navigation.
type taggingPage struct {
	*handofftest.Page

	mu   sync.Mutex
	navs []handoff.Navigation
}

func (p *taggingPage) NavigateFor(nav handoff.Navigation) error {
	p.mu.Lock()
	p.navs = append(p.navs, nav)
	p.mu.Unlock()
	return p.Page.Navigate(nav.URI)
}

func (p *taggingPage) AttachFor(nav handoff.Navigation) (handoff.Frame, error) {
	p.mu.Lock()
	p.navs = append(p.navs, nav)
	p.mu.Unlock()
	return p.Page.Attach(nav.URI)
}

func (p *taggingPage) Navigations() []handoff.Navigation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]handoff.Navigation(nil), p.navs...)
}

func TestResolve_AttemptNavigatorReceivesAttemptAndRole(t *testing.T) {
	page := &taggingPage{Page: handofftest.NewPage()}
	sched := handofftest.NewScheduler(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	targets := handoff.DefaultTargets()
	nop := zerolog.Nop()
	r := handoff.NewResolver(page, handoff.ResolverOptions{
		Scheduler: sched,
		Targets:   handoff.StaticTargets(targets),
		Logger:    &nop,
		Now:       sched.Now,
	})

	first := r.Resolve(desktopUA)
	second := r.Resolve(desktopUA)
	ios := r.Resolve(iosUA)
	sched.Advance(time.Minute)

	require.Equal(t, handoff.StateFallbackDispatched, first.State())
	require.Equal(t, handoff.StateFallbackDispatched, second.State())

	got := page.Navigations()
	require.Len(t, got, 6)
	assert.Equal(t, handoff.Navigation{AttemptID: first.ID(), Role: handoff.RolePrimary, URI: targets.Desktop.PrimaryURI}, got[0])
	assert.Equal(t, handoff.Navigation{AttemptID: second.ID(), Role: handoff.RolePrimary, URI: targets.Desktop.PrimaryURI}, got[1])
	assert.Equal(t, handoff.Navigation{AttemptID: ios.ID(), Role: handoff.RolePrimary, URI: targets.IOS.PrimaryURI}, got[2])

	fallbacks := map[string]handoff.Navigation{}
	for _, nav := range got[3:] {
		assert.Equal(t, handoff.RoleFallback, nav.Role)
		fallbacks[nav.AttemptID] = nav
	}
	assert.Equal(t, targets.Desktop.FallbackURI, fallbacks[first.ID()].URI)
	assert.Equal(t, targets.Desktop.FallbackURI, fallbacks[second.ID()].URI)
	assert.Equal(t, targets.IOS.FallbackURI, fallbacks[ios.ID()].URI)
}
