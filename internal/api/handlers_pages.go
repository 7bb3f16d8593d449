// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/astrorhythm/internal/api/middleware"
	"github.com/ManuGH/astrorhythm/internal/handoff"
	"github.com/ManuGH/astrorhythm/internal/log"
	"github.com/ManuGH/astrorhythm/internal/relay"
	"github.com/ManuGH/astrorhythm/internal/telemetry"
)

const maxBodyBytes = 4 << 10

type pageCtxKey struct{}

type targetResponse struct {
	Platform    handoff.Platform `json:"platform"`
	PrimaryURI  string           `json:"primaryUri"`
	FallbackURI string           `json:"fallbackUri"`
	TimeoutMS   int64            `json:"timeoutMs"`
	Surface     bool             `json:"surface"`
}

type pageResponse struct {
	PageID    string    `json:"pageId"`
	CreatedAt time.Time `json:"createdAt"`
}

type returnRequest struct {
	PlatformHint string `json:"platformHint"`
}

type visibilityRequest struct {
	State string `json:"state"`
}

type navigationErrorRequest struct {
	Reason string `json:"reason"`
}

type navigationErrorResponse struct {
	Accepted bool           `json:"accepted"`
	Attempt  handoff.Result `json:"attempt"`
}

// instructionsResponse sets Missed when instructions after the requested
// cursor were evicted; OldestSeq is the first one still queued.
type instructionsResponse struct {
	PageID       string              `json:"pageId"`
	Instructions []relay.Instruction `json:"instructions"`
	Cursor       int64               `json:"cursor"`
	Missed       bool                `json:"missed,omitempty"`
	OldestSeq    int64               `json:"oldestSeq"`
}

// pageContext resolves {pageId} and adds it to the request context and span.
func (s *Server) pageContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "pageId")
		page, err := s.hub.Get(id)
		if err != nil {
			writeRelayError(w, r, err)
			return
		}
		middleware.AddSpanAttributes(r, telemetry.HandoffAttributes(id, "", "")...)
		ctx := log.ContextWithPageID(r.Context(), id)
		ctx = context.WithValue(ctx, pageCtxKey{}, page)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func pageFrom(r *http.Request) *relay.Page {
	page, _ := r.Context().Value(pageCtxKey{}).(*relay.Page)
	return page
}

// decodeBody decodes an optional JSON body. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// platformHint prefers an explicit hint and falls back to the User-Agent.
func platformHint(explicit string, r *http.Request) string {
	if h := strings.TrimSpace(explicit); h != "" {
		return h
	}
	return r.UserAgent()
}

func (s *Server) handleTarget(w http.ResponseWriter, r *http.Request) {
	platform := handoff.Classify(platformHint(r.URL.Query().Get("platform"), r))
	target := s.holder.Targets().For(platform)
	writeJSON(w, http.StatusOK, targetResponse{
		Platform:    platform,
		PrimaryURI:  target.PrimaryURI,
		FallbackURI: target.FallbackURI,
		TimeoutMS:   target.Timeout.Milliseconds(),
		Surface:     platform.UsesSurface(),
	})
}

func (s *Server) handleOpenPage(w http.ResponseWriter, r *http.Request) {
	page, err := s.hub.Open()
	if err != nil {
		writeRelayError(w, r, err)
		return
	}
	w.Header().Set("Location", V1BaseURL+"/pages/"+page.ID())
	writeJSON(w, http.StatusCreated, pageResponse{PageID: page.ID(), CreatedAt: page.Created()})
}

func (s *Server) handleClosePage(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.Close(pageFrom(r).ID()); err != nil {
		writeRelayError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	page := pageFrom(r)
	attempt, err := page.Resolve(platformHint(req.PlatformHint, r))
	if err != nil {
		writeRelayError(w, r, err)
		return
	}

	snap := attempt.Snapshot()
	middleware.AddSpanAttributes(r, telemetry.HandoffAttributes("", snap.ID, string(snap.Platform))...)
	w.Header().Set("Location", V1BaseURL+"/pages/"+page.ID()+"/attempts/"+snap.ID)
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	state, ok := handoff.ParseVisibility(req.State)
	if !ok {
		writeError(w, r, http.StatusBadRequest, codeInvalidVisibility,
			fmt.Sprintf("state must be %q or %q", handoff.VisibilityVisible, handoff.VisibilityHidden))
		return
	}
	if err := pageFrom(r).ReportVisibility(state); err != nil {
		writeRelayError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAttempt(w http.ResponseWriter, r *http.Request) {
	attempt, err := pageFrom(r).Attempt(chi.URLParam(r, "attemptId"))
	if err != nil {
		writeRelayError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt.Snapshot())
}

func (s *Server) handleNavigationError(w http.ResponseWriter, r *http.Request) {
	var req navigationErrorRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	page := pageFrom(r)
	attemptID := chi.URLParam(r, "attemptId")
	accepted, err := page.ReportNavigationFailure(attemptID, req.Reason)
	if err != nil {
		writeRelayError(w, r, err)
		return
	}
	attempt, err := page.Attempt(attemptID)
	if err != nil {
		writeRelayError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, navigationErrorResponse{Accepted: accepted, Attempt: attempt.Snapshot()})
}

func (s *Server) handleInstructions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var after int64
	if raw := q.Get("after"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			writeError(w, r, http.StatusBadRequest, codeBadRequest, "after must be a non-negative integer")
			return
		}
		after = v
	}
	wait, err := parseWait(q.Get("wait"), s.holder.Get().Server.MaxLongPoll)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), wait)
	defer cancel()

	page := pageFrom(r)
	batch, err := page.Poll(ctx, after)
	if err != nil {
		writeRelayError(w, r, err)
		return
	}
	out := batch.Instructions
	if out == nil {
		out = []relay.Instruction{}
	}
	cursor := after
	if len(out) > 0 {
		cursor = out[len(out)-1].Seq
	}
	if batch.Missed {
		logger := log.WithComponentFromContext(r.Context(), "relay")
		logger.Warn().
			Str(log.FieldEvent, "relay.instructions_missed").
			Int64("after", after).
			Int64("oldest_seq", batch.OldestSeq).
			Msg("client cursor is behind the instruction queue")
	}
	writeJSON(w, http.StatusOK, instructionsResponse{
		PageID:       page.ID(),
		Instructions: out,
		Cursor:       cursor,
		Missed:       batch.Missed,
		OldestSeq:    batch.OldestSeq,
	})
}

// parseWait accepts a Go duration ("15s") or whole seconds ("15"), capped at limit.
func parseWait(raw string, limit time.Duration) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		secs, serr := strconv.ParseInt(raw, 10, 64)
		if serr != nil {
			return 0, fmt.Errorf("invalid wait %q", raw)
		}
		switch {
		case secs < 0:
			return 0, fmt.Errorf("invalid wait %q", raw)
		case limit > 0 && secs > int64(limit/time.Second):
			return limit, nil
		case secs > int64(math.MaxInt64/time.Second):
			return 0, fmt.Errorf("invalid wait %q", raw)
		}
		d = time.Duration(secs) * time.Second
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid wait %q", raw)
	}
	if limit > 0 && d > limit {
		d = limit
	}
	return d, nil
}
