// Package api exposes a local, read-only HTTP surface over the monitor's
// state: recent execution logs, the active session record, and the last
// context snapshot. It binds to loopback and carries no authentication.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/verdant/internal/state"
	"github.com/kalambet/verdant/internal/storage"
)

type Deps struct {
	Store    *storage.Store
	Sessions *state.SessionStore
	Contexts *state.ContextStore
	Version  string
}

func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth(deps))
	r.Get("/runs", handleListRuns(deps))
	r.Get("/runs/{id}", handleGetRun(deps))
	r.Get("/session", handleGetSession(deps))
	r.Get("/context", handleGetContext(deps))

	return r
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := deps.Store.CountExecutionLogs()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to count runs: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"version": deps.Version,
			"runs":    count,
		})
	}
}

// runView flattens an execution log for the wire: data_json is re-emitted as
// a nested object rather than a string.
type runView struct {
	ID        string          `json:"id"`
	Timestamp string          `json:"timestamp"`
	SessionID string          `json:"session_id"`
	Data      json.RawMessage `json:"data"`
}

func toRunView(l storage.ExecutionLog) runView {
	data := json.RawMessage(l.DataJSON)
	if !json.Valid(data) {
		data = json.RawMessage("{}")
	}
	return runView{
		ID:        l.ID,
		Timestamp: l.Timestamp.Format(time.RFC3339),
		SessionID: l.SessionID,
		Data:      data,
	}
}

func handleListRuns(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)

		logs, err := deps.Store.RecentExecutionLogs(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list runs: %v", err)
			return
		}

		views := make([]runView, 0, len(logs))
		for _, l := range logs {
			views = append(views, toRunView(l))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(views)
	}
}

func handleGetRun(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		log, err := deps.Store.GetExecutionLog(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "run not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get run: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(toRunView(log))
	}
}

func handleGetSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := deps.Sessions.Load()
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "no active session")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rec)
	}
}

func handleGetContext(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := deps.Contexts.Load()
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "no context snapshot recorded")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snap)
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
