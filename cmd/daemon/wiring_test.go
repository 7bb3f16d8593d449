// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/astrorhythm/internal/config"
	"github.com/ManuGH/astrorhythm/internal/daemon"
	"github.com/ManuGH/astrorhythm/internal/handoff"
	"github.com/ManuGH/astrorhythm/internal/journal"
	"github.com/ManuGH/astrorhythm/internal/relay"
	"github.com/ManuGH/astrorhythm/internal/telemetry"
)

type recordingManager struct {
	hooks []string
	funcs []daemon.ShutdownHook
}

func (m *recordingManager) Start(context.Context) error    { return nil }
func (m *recordingManager) Shutdown(context.Context) error { return nil }

func (m *recordingManager) RegisterShutdownHook(name string, hook daemon.ShutdownHook) {
	m.hooks = append(m.hooks, name)
	m.funcs = append(m.funcs, hook)
}

func TestBuildRuntime_ServesAPI(t *testing.T) {
	cfg := config.Defaults()
	cfg.Version = "test"
	rt, err := buildRuntime(context.Background(), cfg, nil, zerolog.New(io.Discard))
	require.NoError(t, err)

	for _, path := range []string{"/healthz", "/readyz", "/api/v1/handoff/target"} {
		rec := httptest.NewRecorder()
		rt.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	rt.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/pages", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, rt.hub.Len())

	mgr := &recordingManager{}
	rt.registerShutdownHooks(mgr)
	assert.Equal(t, []string{"telemetry", "journal", "relay"}, mgr.hooks)

	for i := len(mgr.funcs) - 1; i >= 0; i-- {
		require.NoError(t, mgr.funcs[i](context.Background()))
	}
	assert.Zero(t, rt.hub.Len())
}

func TestBuildRuntime_InvalidJournal(t *testing.T) {
	cfg := config.Defaults()
	cfg.Journal.Backend = "etcd"
	_, err := buildRuntime(context.Background(), cfg, nil, zerolog.New(io.Discard))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal")
}

// slowJournal delays every write and counts aborted outcomes it stored and
// writes that hit a closed store.
type slowJournal struct {
	*journal.MemoryStore
	delay      time.Duration
	aborted    atomic.Int64
	afterClose atomic.Int64
}

func (s *slowJournal) Record(ctx context.Context, e journal.Entry) error {
	time.Sleep(s.delay)
	err := s.MemoryStore.Record(ctx, e)
	switch {
	case errors.Is(err, journal.ErrClosed):
		s.afterClose.Add(1)
	case err == nil && e.State == string(handoff.StateAborted):
		s.aborted.Add(1)
	}
	return err
}

func TestApp_ShutdownJournalsEveryAbortedAttempt(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	const pages = 50
	logger := zerolog.New(io.Discard).Level(zerolog.ErrorLevel)
	nop := zerolog.Nop()

	targets := handoff.DefaultTargets()
	targets.Desktop.Timeout = time.Hour
	store := &slowJournal{MemoryStore: journal.NewMemoryStore(pages * 2), delay: 2 * time.Millisecond}
	hub := relay.NewHub(relay.Options{
		SweepInterval: 10 * time.Millisecond,
		Targets:       handoff.StaticTargets(targets),
		Observer:      journal.NewRecorder(store, nop),
		Logger:        &nop,
	})
	tp, err := telemetry.NewProvider(context.Background(), telemetry.Config{})
	require.NoError(t, err)
	rt := &runtime{hub: hub, store: store, telemetry: tp}

	for i := 0; i < pages; i++ {
		p, err := hub.Open()
		require.NoError(t, err)
		_, err = p.Resolve("")
		require.NoError(t, err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	mgr, err := daemon.NewManager(config.Defaults().Server, daemon.Deps{
		Logger:     logger,
		APIHandler: http.NotFoundHandler(),
		Listener:   ln,
	})
	require.NoError(t, err)
	rt.registerShutdownHooks(mgr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- daemon.NewApp(logger, mgr, nil, hub).Run(ctx) }()

	// Let the sweeper tick at least once before stopping.
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("App.Run did not return")
	}

	assert.Zero(t, hub.Len())
	assert.Zero(t, store.afterClose.Load(), "outcomes written after the journal closed")
	assert.EqualValues(t, pages, store.aborted.Load())
}
