package domain

import (
	"fmt"
	"strings"
)

// AssetSpec is one labelled unit of visual content in a plan.
type AssetSpec struct {
	Label       string `json:"label"`
	ImagePrompt string `json:"imagePrompt"`
	VideoPrompt string `json:"videoPrompt"`
}

// ContentPlan is the structured result of the planning call. Asset order is the
// generation and display order.
type ContentPlan struct {
	Summary string      `json:"summary"`
	Caption string      `json:"caption"`
	Assets  []AssetSpec `json:"assets"`
}

// Validate enforces the plan contract. When expected is positive the asset count
// must match it exactly.
func (p ContentPlan) Validate(expected int) error {
	if strings.TrimSpace(p.Summary) == "" {
		return fmt.Errorf("%w: summary is empty", ErrPlanningFailed)
	}
	if strings.TrimSpace(p.Caption) == "" {
		return fmt.Errorf("%w: caption is empty", ErrPlanningFailed)
	}
	if len(p.Assets) == 0 {
		return fmt.Errorf("%w: plan has no assets", ErrPlanningFailed)
	}
	if expected > 0 && len(p.Assets) != expected {
		return fmt.Errorf("%w: expected %d assets, got %d", ErrPlanningFailed, expected, len(p.Assets))
	}
	seen := make(map[string]struct{}, len(p.Assets))
	for i, asset := range p.Assets {
		label := strings.TrimSpace(asset.Label)
		if label == "" {
			return fmt.Errorf("%w: asset %d has no label", ErrPlanningFailed, i)
		}
		if _, dup := seen[label]; dup {
			return fmt.Errorf("%w: duplicate asset label %q", ErrPlanningFailed, label)
		}
		seen[label] = struct{}{}
		if strings.TrimSpace(asset.ImagePrompt) == "" {
			return fmt.Errorf("%w: asset %q has no image prompt", ErrPlanningFailed, label)
		}
	}
	return nil
}

// Labels returns the asset labels in plan order.
func (p ContentPlan) Labels() []string {
	out := make([]string, len(p.Assets))
	for i, asset := range p.Assets {
		out[i] = asset.Label
	}
	return out
}

// Clone returns a copy that shares nothing with p.
func (p ContentPlan) Clone() ContentPlan {
	out := p
	out.Assets = append([]AssetSpec(nil), p.Assets...)
	return out
}
