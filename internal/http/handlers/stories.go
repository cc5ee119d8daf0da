package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"ugcstudio/internal/domain"
	"ugcstudio/internal/middleware"
)

// CreateStory writes a narrated script in a single planning call. No images
// are generated for stories.
func (a *App) CreateStory(w http.ResponseWriter, r *http.Request) {
	if a.Stories == nil {
		a.error(w, http.StatusServiceUnavailable, "stories_unavailable", "story planning is not configured")
		return
	}
	var req domain.StoryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Language) == "" {
		req.Language = middleware.LocaleFromContext(r.Context())
	}

	script, err := a.Stories.Story(r.Context(), req)
	switch {
	case err == nil:
		a.json(w, http.StatusOK, script)
	case errors.Is(err, domain.ErrInvalidRequest):
		a.error(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrPlanningFailed):
		a.Logger.Warn().Err(err).Str("title", req.Title).Msg("story planning failed")
		a.error(w, http.StatusBadGateway, "planning_failed", "story planning failed, please try again")
	default:
		a.Logger.Error().Err(err).Msg("story request failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to write story")
	}
}
