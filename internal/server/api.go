// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dsfetch/dsfetch/internal/ledger"
	"github.com/dsfetch/dsfetch/internal/logging"
	"github.com/dsfetch/dsfetch/pkg/dsfetch"
)

// DatasetResponse is one catalog entry with its local state.
type DatasetResponse struct {
	dsfetch.Entry
	RawPath   string         `json:"rawPath"`
	CleanPath string         `json:"cleanPath"`
	Status    dsfetch.Status `json:"status"`
}

// RunResponse is one run with its per-dataset outcomes.
type RunResponse struct {
	ledger.Run
	Outcomes []ledger.Outcome `json:"outcomes"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.config.Version,
		"ledger":  s.runs != nil,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// datasets checks every selected entry on disk. Entries without a registered
// transformation are skipped.
func (s *Server) datasets(entries []dsfetch.Entry) ([]DatasetResponse, error) {
	out := make([]DatasetResponse, 0, len(entries))
	var statuses []dsfetch.Status
	for _, e := range entries {
		t, ok := s.registry.Lookup(e.Name)
		if !ok {
			continue
		}
		rec, err := dsfetch.NewRecord(e, s.config.OutputDir, t)
		if err != nil {
			return nil, err
		}
		st, err := rec.Check()
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
		out = append(out, DatasetResponse{Entry: e, RawPath: rec.RawPath, CleanPath: rec.CleanPath, Status: st})
	}
	s.metrics.ObserveStatus(statuses)
	return out, nil
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	all := s.config.All || r.URL.Query().Get("all") == "true"
	items, err := s.datasets(dsfetch.Catalog(all))
	if err != nil {
		logging.FromContext(r.Context()).Error("catalog check failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to inspect datasets", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	entry, ok := dsfetch.Find(name)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown dataset", name)
		return
	}
	items, err := s.datasets([]dsfetch.Entry{entry})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to inspect dataset", err.Error())
		return
	}
	if len(items) == 0 {
		writeError(w, http.StatusNotFound, "No transformation registered", name)
		return
	}
	writeJSON(w, http.StatusOK, items[0])
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "No ledger configured", "")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", v)
			return
		}
		limit = n
	}
	runs, err := s.runs.Runs(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read runs", err.Error())
		return
	}
	if runs == nil {
		runs = []ledger.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "No ledger configured", "")
		return
	}
	id := chi.URLParam(r, "id")
	run, outcomes, err := s.runs.Run(r.Context(), id)
	if errors.Is(err, ledger.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Run not found", id)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read run", err.Error())
		return
	}
	if outcomes == nil {
		outcomes = []ledger.Outcome{}
	}
	writeJSON(w, http.StatusOK, RunResponse{Run: run, Outcomes: outcomes})
}

// handleMetrics refreshes the on-disk gauges before each scrape.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if _, err := s.datasets(dsfetch.Catalog(s.config.All)); err != nil {
		logging.FromContext(r.Context()).Warn("refresh local gauges", "err", err)
	}
	s.metrics.Handler().ServeHTTP(w, r)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, ErrorResponse{
		Error:   message,
		Details: details,
	})
}
