// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/astrorhythm/internal/api/middleware"
)

const (
	// V1BaseURL prefixes the public handoff API.
	V1BaseURL = "/api/v1"

	apiTracer      = "astrorhythm-api"
	internalTracer = "astrorhythm-internal"
)

func (s *Server) routes() http.Handler {
	r := s.newRouter()
	s.registerPublicRoutes(r)
	r.Route(V1BaseURL, s.registerV1Routes)
	r.Route("/internal", s.registerOperatorRoutes)
	return r
}

func (s *Server) newRouter() chi.Router {
	cfg := s.holder.Get()
	return middleware.NewRouter(middleware.StackConfig{
		EnableCORS:     true,
		AllowedOrigins: cfg.Server.AllowedOrigins,

		EnableSecurityHeaders: true,
		CSP:                   middleware.DefaultCSP,

		// Tracing is applied per route group below.
		EnableMetrics: true,
		EnableLogging: true,

		EnableRateLimit:    cfg.RateLimit.Enabled,
		RateLimitRequests:  cfg.RateLimit.Requests,
		RateLimitWindow:    cfg.RateLimit.Window,
		RateLimitWhitelist: cfg.RateLimit.Whitelist,
	})
}

func (s *Server) registerPublicRoutes(r chi.Router) {
	r.Get("/healthz", s.healthManager.ServeHealth)
	r.Get("/readyz", s.healthManager.ServeReady)
	r.Handle("/metrics", promhttp.Handler())
}

func (s *Server) registerV1Routes(r chi.Router) {
	r.Use(middleware.Tracing(apiTracer))

	r.Get("/handoff/target", s.handleTarget)
	r.Post("/pages", s.handleOpenPage)
	r.Route("/pages/{pageId}", func(r chi.Router) {
		r.Use(s.pageContext)
		r.Delete("/", s.handleClosePage)
		r.Post("/return", s.handleReturn)
		r.Post("/visibility", s.handleVisibility)
		r.Get("/instructions", s.handleInstructions)
		r.Get("/attempts/{attemptId}", s.handleAttempt)
		r.Post("/attempts/{attemptId}/navigation-error", s.handleNavigationError)
	})
}

func (s *Server) registerOperatorRoutes(r chi.Router) {
	r.Use(middleware.OTelHTTP(internalTracer))

	r.Get("/handoff/outcomes", s.handleOutcomes)
	r.Get("/handoff/summary", s.handleSummary)
	r.Post("/system/config/reload", s.handleConfigReload)
}
