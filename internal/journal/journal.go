// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package journal records the outcome of every finished handoff attempt.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/ManuGH/astrorhythm/internal/handoff"
)

// ErrClosed is returned by stores after Close.
var ErrClosed = errors.New("journal: store closed")

// Entry is one finished attempt.
type Entry struct {
	ID         string    `json:"id"`
	PageID     string    `json:"pageId,omitempty"`
	Platform   string    `json:"platform"`
	State      string    `json:"state"`
	Reason     string    `json:"reason,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	DurationMS int64     `json:"durationMs"`
	Error      string    `json:"error,omitempty"`
}

// EntryFromResult converts a terminal attempt snapshot.
func EntryFromResult(r handoff.Result) Entry {
	return Entry{
		ID:         r.ID,
		PageID:     r.PageID,
		Platform:   string(r.Platform),
		State:      string(r.State),
		Reason:     string(r.Reason),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMS: r.Duration().Milliseconds(),
		Error:      r.Error,
	}
}

// Summary counts recorded outcomes per platform and terminal state.
type Summary struct {
	Total      int64                       `json:"total"`
	ByPlatform map[string]map[string]int64 `json:"byPlatform"`
}

func newSummary() Summary {
	return Summary{ByPlatform: make(map[string]map[string]int64)}
}

func (s *Summary) add(platform, state string, n int64) {
	states, ok := s.ByPlatform[platform]
	if !ok {
		states = make(map[string]int64)
		s.ByPlatform[platform] = states
	}
	states[state] += n
	s.Total += n
}

// Count returns the number of outcomes recorded for platform and state.
func (s Summary) Count(platform, state string) int64 {
	return s.ByPlatform[platform][state]
}

// Store persists attempt outcomes. Recent returns newest first.
type Store interface {
	Record(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Summary(ctx context.Context) (Summary, error)
	Ping(ctx context.Context) error
	Close() error
}
