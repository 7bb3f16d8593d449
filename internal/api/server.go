// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the handoff service over HTTP.
package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/ManuGH/astrorhythm/internal/config"
	"github.com/ManuGH/astrorhythm/internal/handoff"
	"github.com/ManuGH/astrorhythm/internal/health"
	"github.com/ManuGH/astrorhythm/internal/journal"
	"github.com/ManuGH/astrorhythm/internal/relay"
)

// ConfigHolder is the live configuration the server reads per request.
type ConfigHolder interface {
	Get() config.AppConfig
	Targets() handoff.Targets
	Reload(ctx context.Context) error
}

// Deps are the collaborators of a Server.
type Deps struct {
	Hub     *relay.Hub
	Config  ConfigHolder
	Journal journal.Store
	Health  *health.Manager
}

// Server serves the public handoff API and the operator endpoints.
type Server struct {
	hub           *relay.Hub
	holder        ConfigHolder
	journal       journal.Store
	healthManager *health.Manager

	once    sync.Once
	handler http.Handler
}

// New creates a Server. Hub and Config are required.
func New(deps Deps) *Server {
	if deps.Health == nil {
		deps.Health = health.NewManager(deps.Config.Get().Version)
	}
	return &Server{
		hub:           deps.Hub,
		holder:        deps.Config,
		journal:       deps.Journal,
		healthManager: deps.Health,
	}
}

// Handler returns the routed HTTP handler. Middleware settings are taken from
// the configuration at the first call.
func (s *Server) Handler() http.Handler {
	s.once.Do(func() {
		s.handler = s.routes()
	})
	return s.handler
}
