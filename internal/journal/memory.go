// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package journal

import (
	"context"
	"sync"
)

// MemoryStore keeps the most recent entries in a ring buffer.
// Summary counts cover every recorded entry, not only the retained ones.
type MemoryStore struct {
	mu      sync.Mutex
	ring    []Entry
	next    int
	full    bool
	summary Summary
	closed  bool
}

// NewMemoryStore creates a store retaining up to capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{
		ring:    make([]Entry, capacity),
		summary: newSummary(),
	}
}

func (m *MemoryStore) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.ring[m.next] = e
	m.next = (m.next + 1) % len(m.ring)
	if m.next == 0 {
		m.full = true
	}
	m.summary.add(e.Platform, e.State, 1)
	return nil
}

func (m *MemoryStore) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	n := m.next
	if m.full {
		n = len(m.ring)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.ring)) % len(m.ring)
		out = append(out, m.ring[idx])
	}
	return out, nil
}

func (m *MemoryStore) Summary(_ context.Context) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Summary{}, ErrClosed
	}
	out := newSummary()
	for platform, states := range m.summary.ByPlatform {
		for state, n := range states {
			out.add(platform, state, n)
		}
	}
	return out, nil
}

func (m *MemoryStore) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
