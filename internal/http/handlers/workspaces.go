package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const defaultHistoryLimit = 20

// Workspace returns the snapshot of the workspace's current run.
func (a *App) Workspace(w http.ResponseWriter, r *http.Request) {
	ws := chi.URLParam(r, "ws")
	run, ok := a.Board.Active(ws)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "workspace has no run")
		return
	}
	a.json(w, http.StatusOK, run.Snapshot())
}

func (a *App) WorkspaceHistory(w http.ResponseWriter, r *http.Request) {
	ws := chi.URLParam(r, "ws")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	items, err := a.Board.History(r.Context(), ws, limit)
	if err != nil {
		a.Logger.Error().Err(err).Str("workspace", ws).Msg("history lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load history")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
