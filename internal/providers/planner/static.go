package planner

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ugcstudio/internal/domain"
)

var canonicalLabels = []string{"Lifestyle", "Clean Shot", "Close-up", "Problem-Solution"}

// StaticPlanner builds a deterministic plan locally. It is used when no
// Gemini key is configured so the pipeline still runs end to end.
type StaticPlanner struct {
	defaultBrand string
}

func NewStaticPlanner(defaultBrand string) *StaticPlanner {
	return &StaticPlanner{defaultBrand: defaultBrand}
}

func (p *StaticPlanner) Plan(ctx context.Context, req domain.GenerationRequest) (*domain.ContentPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	s := resolveSettings(req, p.defaultBrand)
	product := cases.Title(language.Und).String(strings.TrimSpace(req.ProductName))

	plan := &domain.ContentPlan{
		Summary: fmt.Sprintf("%s %s campaign for %s in %d scenes (%s).", s.BrandName, s.Style, product, s.SceneCount, s.Language),
		Caption: fmt.Sprintf("%s is the upgrade you did not know you needed. #%s #ugc", product, hashtag(product)),
		Assets:  make([]domain.AssetSpec, 0, s.SceneCount),
	}
	for i := 0; i < s.SceneCount; i++ {
		label := canonicalLabels[i%len(canonicalLabels)]
		if i >= len(canonicalLabels) {
			label = fmt.Sprintf("%s %d", label, i/len(canonicalLabels)+1)
		}
		plan.Assets = append(plan.Assets, domain.AssetSpec{
			Label:       label,
			ImagePrompt: fmt.Sprintf("%s shot of %s, %s style, photorealistic, 8k, consistent identity.", label, product, s.Style),
			VideoPrompt: fmt.Sprintf("%s: slow push-in on %s, fluid motion, soft daylight, ten seconds.", label, product),
		})
	}
	return plan, nil
}

func hashtag(product string) string {
	return strings.ToLower(strings.Join(strings.Fields(product), ""))
}
