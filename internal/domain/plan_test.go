package domain

import (
	"errors"
	"testing"
)

func samplePlan(labels ...string) ContentPlan {
	plan := ContentPlan{Summary: "strategy", Caption: "caption"}
	for _, l := range labels {
		plan.Assets = append(plan.Assets, AssetSpec{Label: l, ImagePrompt: "image of " + l, VideoPrompt: "video of " + l})
	}
	return plan
}

func TestContentPlanValidate(t *testing.T) {
	valid := samplePlan("Lifestyle", "Clean Shot", "Close-up", "Problem-Solution")
	if err := valid.Validate(4); err != nil {
		t.Fatalf("Validate(4) error: %v", err)
	}
	if err := valid.Validate(0); err != nil {
		t.Fatalf("Validate(0) error: %v", err)
	}

	tests := []struct {
		name     string
		mutate   func(p *ContentPlan)
		expected int
	}{
		{name: "count mismatch", mutate: func(p *ContentPlan) {}, expected: 3},
		{name: "missing summary", mutate: func(p *ContentPlan) { p.Summary = "" }},
		{name: "missing caption", mutate: func(p *ContentPlan) { p.Caption = " " }},
		{name: "no assets", mutate: func(p *ContentPlan) { p.Assets = nil }},
		{name: "blank label", mutate: func(p *ContentPlan) { p.Assets[1].Label = "" }},
		{name: "duplicate label", mutate: func(p *ContentPlan) { p.Assets[2].Label = "Lifestyle" }},
		{name: "blank image prompt", mutate: func(p *ContentPlan) { p.Assets[0].ImagePrompt = "" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			plan := valid.Clone()
			tc.mutate(&plan)
			if err := plan.Validate(tc.expected); !errors.Is(err, ErrPlanningFailed) {
				t.Fatalf("Validate() = %v, want ErrPlanningFailed", err)
			}
		})
	}
}

func TestContentPlanLabels(t *testing.T) {
	plan := samplePlan("a", "b", "c")
	got := plan.Labels()
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("Labels() = %v", got)
	}
}
