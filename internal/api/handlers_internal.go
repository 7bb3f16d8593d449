// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"reflect"
	"strconv"

	"github.com/ManuGH/astrorhythm/internal/config"
	"github.com/ManuGH/astrorhythm/internal/journal"
	"github.com/ManuGH/astrorhythm/internal/log"
)

const (
	defaultOutcomeLimit = 50
	maxOutcomeLimit     = 1000
)

type outcomesResponse struct {
	Outcomes []journal.Entry `json:"outcomes"`
}

type reloadResponse struct {
	Version         string `json:"version,omitempty"`
	RestartRequired bool   `json:"restart_required"`
}

func (s *Server) handleOutcomes(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, r, http.StatusNotImplemented, codeJournalDisabled, "outcome journal not configured")
		return
	}

	limit := defaultOutcomeLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, r, http.StatusBadRequest, codeBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(v, maxOutcomeLimit)
	}

	entries, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		s.journalFailed(w, r, err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, outcomesResponse{Outcomes: entries})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, r, http.StatusNotImplemented, codeJournalDisabled, "outcome journal not configured")
		return
	}
	sum, err := s.journal.Summary(r.Context())
	if err != nil {
		s.journalFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) journalFailed(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.WithComponentFromContext(r.Context(), "journal")
	logger.Error().Err(err).Str(log.FieldEvent, "journal.query_failed").Msg("journal query failed")
	writeError(w, r, http.StatusServiceUnavailable, codeJournalFailed, "outcome journal unavailable")
}

func (s *Server) handleConfigReload(w http.ResponseWriter, r *http.Request) {
	oldCfg := s.holder.Get()

	if err := s.holder.Reload(r.Context()); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "config")
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "config.reload_failed").
			Msg("config reload failed")
		writeError(w, r, http.StatusBadRequest, codeConfigReload, err.Error())
		return
	}

	newCfg := s.holder.Get()
	writeJSON(w, http.StatusOK, reloadResponse{
		Version:         newCfg.Version,
		RestartRequired: reloadRequiresRestart(oldCfg, newCfg),
	})
}

// reloadRequiresRestart reports whether the diff touches settings that are
// only read at startup. Handoff targets, the log level and the long-poll cap
// apply live.
func reloadRequiresRestart(oldCfg, newCfg config.AppConfig) bool {
	oldServer, newServer := oldCfg.Server, newCfg.Server
	oldServer.MaxLongPoll, newServer.MaxLongPoll = 0, 0

	return !reflect.DeepEqual(oldServer, newServer) ||
		oldCfg.Log.Service != newCfg.Log.Service ||
		oldCfg.Relay != newCfg.Relay ||
		oldCfg.Journal != newCfg.Journal ||
		oldCfg.Telemetry != newCfg.Telemetry ||
		!reflect.DeepEqual(oldCfg.RateLimit, newCfg.RateLimit)
}
