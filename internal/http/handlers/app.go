package handlers

import (
	"encoding/json"
	"net/http"

	"ugcstudio/internal/infra"
	"ugcstudio/internal/providers/planner"
	"ugcstudio/internal/session"
)

// App holds the dependencies shared by every handler.
type App struct {
	Config    infra.Config
	Board     *session.Board
	Stories   planner.StoryPlanner
	Logger    infra.Logger
	Synthetic bool
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]errorBody{"error": {Code: errCode, Message: message}})
}
