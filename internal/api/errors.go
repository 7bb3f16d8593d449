// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/astrorhythm/internal/log"
	"github.com/ManuGH/astrorhythm/internal/relay"
)

// Error codes returned in the "error" field.
const (
	codeBadRequest        = "bad_request"
	codeInvalidVisibility = "invalid_visibility"
	codePageNotFound      = "page_not_found"
	codePageClosed        = "page_closed"
	codeAttemptNotFound   = "attempt_not_found"
	codeTooManyPages      = "too_many_pages"
	codeJournalDisabled   = "journal_unavailable"
	codeJournalFailed     = "journal_failed"
	codeConfigReload      = "config_reload_failed"
	codeInternal          = "internal_error"
)

type errorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the canonical error body.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	writeJSON(w, status, errorResponse{
		Error:     code,
		Detail:    detail,
		RequestID: log.RequestIDFromContext(r.Context()),
	})
}

// writeRelayError maps relay sentinel errors to HTTP responses.
func writeRelayError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, relay.ErrPageNotFound):
		writeError(w, r, http.StatusNotFound, codePageNotFound, err.Error())
	case errors.Is(err, relay.ErrPageClosed):
		writeError(w, r, http.StatusGone, codePageClosed, err.Error())
	case errors.Is(err, relay.ErrAttemptNotFound):
		writeError(w, r, http.StatusNotFound, codeAttemptNotFound, err.Error())
	case errors.Is(err, relay.ErrTooManyPages):
		w.Header().Set("Retry-After", "5")
		writeError(w, r, http.StatusServiceUnavailable, codeTooManyPages, err.Error())
	default:
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str(log.FieldEvent, "api.unexpected_error").Msg("unexpected relay error")
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
