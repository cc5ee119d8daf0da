package handlers

import (
	"net/http"

	"ugcstudio/internal/domain"
	"ugcstudio/internal/providers/planner"
)

func (a *App) Brands(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"items":         planner.Brands(),
		"default":       a.Config.BrandProfile,
		"styles":        []domain.Style{domain.StyleBasic, domain.StyleTestimonial, domain.StyleUnboxing, domain.StyleTalkingHead},
		"max_scenes":    domain.MaxSceneCount,
		"aspect_ratio":  a.Config.AssetAspectRatio,
		"aspect_ratios": domain.AspectRatios(),
	})
}
