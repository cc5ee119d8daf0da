package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ugcstudio/internal/domain"
	"ugcstudio/internal/middleware"
	"ugcstudio/internal/storage"
	"ugcstudio/internal/studio"
	"ugcstudio/pkg/zip"
)

type createRunRequest struct {
	ProductName  string `json:"product_name"`
	Instructions string `json:"instructions"`
	Style        string `json:"style"`
	SceneCount   int    `json:"scene_count"`
	Language     string `json:"language"`
	Brand        string `json:"brand"`
	ProductImage string `json:"product_image"`
	ModelImage   string `json:"model_image"`
}

func (p createRunRequest) toDomain(locale string) (domain.GenerationRequest, error) {
	style, err := domain.ParseStyle(p.Style)
	if err != nil {
		return domain.GenerationRequest{}, err
	}
	req := domain.GenerationRequest{
		ProductName:  p.ProductName,
		Instructions: p.Instructions,
		Style:        style,
		SceneCount:   p.SceneCount,
		Language:     strings.TrimSpace(p.Language),
		Brand:        strings.TrimSpace(p.Brand),
	}
	if req.Language == "" {
		req.Language = locale
	}
	for _, upload := range []struct {
		role  domain.ReferenceRole
		value string
	}{
		{domain.ReferenceProduct, p.ProductImage},
		{domain.ReferenceModel, p.ModelImage},
	} {
		ref, err := domain.ParseReferenceImage(upload.role, upload.value)
		if err != nil {
			return domain.GenerationRequest{}, err
		}
		if ref != nil {
			req.References = append(req.References, *ref)
		}
	}
	return req, req.Validate()
}

// CreateRun plans synchronously so a planning failure is reported on the
// request itself. Assets keep materializing after the response is sent.
func (a *App) CreateRun(w http.ResponseWriter, r *http.Request) {
	if a.Config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, a.Config.MaxUploadBytes)
	}
	var payload createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "payload_too_large", "upload exceeds the size limit")
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req, err := payload.toDomain(middleware.LocaleFromContext(r.Context()))
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	workspace := middleware.WorkspaceFromContext(r.Context())
	run, err := a.Board.Submit(r.Context(), workspace, req)
	switch {
	case err == nil:
		a.Logger.Info().
			Str("workspace", workspace).
			Str("run_id", run.ID()).
			Str("language", req.Language).
			Str("country", middleware.CountryFromContext(r.Context())).
			Msg("run started")
		a.json(w, http.StatusCreated, run.Snapshot())
	case errors.Is(err, domain.ErrRunSuperseded):
		// a newer submission in the same workspace won while this one planned
		body := errorBody{Code: "run_superseded", Message: "a newer run replaced this one"}
		if run != nil {
			body.RunID = run.ID()
		}
		a.Logger.Info().Str("workspace", workspace).Str("run_id", body.RunID).Msg("run superseded during planning")
		a.json(w, http.StatusConflict, map[string]errorBody{"error": body})
	case errors.Is(err, domain.ErrInvalidRequest):
		a.error(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrPlanningFailed):
		a.Logger.Warn().Err(err).Str("workspace", workspace).Msg("run planning failed")
		body := errorBody{Code: "planning_failed", Message: "content planning failed, please try again"}
		if run != nil {
			body.RunID = run.ID()
		}
		a.json(w, http.StatusBadGateway, map[string]errorBody{"error": body})
	default:
		a.Logger.Error().Err(err).Msg("run submit failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to start run")
	}
}

func (a *App) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := a.lookupRun(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, run.Snapshot())
}

// RunAsset serves one materialized image. Pending and failed assets are 404.
// Runs no longer held in memory are served from the journal and image store.
func (a *App) RunAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	label := chi.URLParam(r, "label")
	if strings.Contains(label, "%") {
		if decoded, err := url.PathUnescape(label); err == nil {
			label = decoded
		}
	}

	var (
		img domain.Image
		ok  bool
	)
	if run, err := a.Board.Get(id); err == nil {
		img, ok = run.Image(label)
	} else {
		stored, err := a.Board.StoredImage(r.Context(), id, label)
		switch {
		case err == nil:
			img, ok = stored, true
		case errors.Is(err, domain.ErrRunNotFound):
			a.error(w, http.StatusNotFound, "not_found", "run not found")
			return
		case !errors.Is(err, storage.ErrNotFound):
			a.Logger.Error().Err(err).Str("run_id", id).Str("label", label).Msg("stored asset lookup failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to load asset")
			return
		}
	}
	if !ok {
		a.error(w, http.StatusNotFound, "asset_not_ready", fmt.Sprintf("asset %q is not available", label))
		return
	}
	w.Header().Set("Content-Type", img.MIMEType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

// RunArchive zips the plan and every materialized image.
func (a *App) RunArchive(w http.ResponseWriter, r *http.Request) {
	run, ok := a.lookupRun(w, r)
	if !ok {
		return
	}
	plan := run.Plan()
	if plan == nil {
		a.error(w, http.StatusConflict, "no_plan", "run has no plan")
		return
	}
	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to encode plan")
		return
	}
	entries := []zip.Entry{{Filename: "plan.json", Data: planJSON}}
	for i, asset := range plan.Assets {
		img, ok := run.Image(asset.Label)
		if !ok {
			continue
		}
		name := path.Base(storage.AssetKey(run.ID(), i, asset.Label, img.MIMEType))
		entries = append(entries, zip.Entry{Filename: name, Data: img.Data})
	}
	archive, err := zip.Archive(entries, time.Now())
	if err != nil {
		a.Logger.Error().Err(err).Str("run_id", run.ID()).Msg("archive failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=run-%s.zip", run.ID()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func (a *App) lookupRun(w http.ResponseWriter, r *http.Request) (*studio.Run, bool) {
	run, err := a.Board.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "run not found")
		return nil, false
	}
	return run, true
}
