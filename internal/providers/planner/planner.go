package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ugcstudio/internal/domain"
	"ugcstudio/internal/infra"
	"ugcstudio/internal/providers/genai"
)

// Planner turns a generation request into a content plan.
type Planner interface {
	Plan(ctx context.Context, req domain.GenerationRequest) (*domain.ContentPlan, error)
}

// JSONGenerator is the part of the Gemini client the planner needs.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, req genai.JSONRequest) (string, error)
}

// GeminiOptions configures the Gemini-backed planner.
type GeminiOptions struct {
	Client       JSONGenerator
	Model        string
	DefaultBrand string
	Logger       *infra.Logger
}

// GeminiPlanner issues exactly one structured generateContent call per plan.
type GeminiPlanner struct {
	client       JSONGenerator
	model        string
	defaultBrand string
	logger       *infra.Logger
}

// NewGeminiPlanner validates options and builds the planner.
func NewGeminiPlanner(opts GeminiOptions) (*GeminiPlanner, error) {
	if opts.Client == nil {
		return nil, errors.New("planner: gemini client is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-3-pro-preview"
	}
	logger := opts.Logger
	if logger == nil {
		l := infra.NopLogger()
		logger = &l
	}
	return &GeminiPlanner{
		client:       opts.Client,
		model:        model,
		defaultBrand: opts.DefaultBrand,
		logger:       logger,
	}, nil
}

var planSchema = &genai.Schema{
	Type: "OBJECT",
	Properties: map[string]*genai.Schema{
		"summary": {Type: "STRING"},
		"caption": {Type: "STRING"},
		"assets": {
			Type: "ARRAY",
			Items: &genai.Schema{
				Type: "OBJECT",
				Properties: map[string]*genai.Schema{
					"label":       {Type: "STRING"},
					"imagePrompt": {Type: "STRING"},
					"videoPrompt": {Type: "STRING"},
				},
				Required: []string{"label", "imagePrompt", "videoPrompt"},
			},
		},
	},
	Required: []string{"summary", "caption", "assets"},
}

// Plan implements Planner. Every failure wraps domain.ErrPlanningFailed.
func (p *GeminiPlanner) Plan(ctx context.Context, req domain.GenerationRequest) (*domain.ContentPlan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	s := resolveSettings(req, p.defaultBrand)
	system, err := s.systemInstruction()
	if err != nil {
		return nil, fmt.Errorf("%w: render system instruction: %v", domain.ErrPlanningFailed, err)
	}

	images := make([]genai.InlineImage, 0, len(req.References))
	for _, ref := range req.References {
		images = append(images, genai.InlineImage{MIMEType: ref.MIMEType, Data: ref.Data})
	}

	raw, err := p.client.GenerateJSON(ctx, genai.JSONRequest{
		Model:             p.model,
		SystemInstruction: system,
		Prompt:            userPrompt(req, s),
		Images:            images,
		Schema:            planSchema,
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("reason", genai.Classify(err)).Msg("planner: generate content failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrPlanningFailed, err)
	}

	expected := 0
	if s.enforce {
		expected = s.SceneCount
	}
	plan, err := decodePlan(raw, expected)
	if err != nil {
		p.logger.Warn().Err(err).Int("bytes", len(raw)).Msg("planner: response rejected")
		return nil, err
	}

	p.logger.Info().
		Str("brand", s.Brand.Key).
		Str("style", string(s.Style)).
		Int("assets", len(plan.Assets)).
		Msg("planner: plan ready")
	return plan, nil
}

func userPrompt(req domain.GenerationRequest, s settings) string {
	instructions := strings.TrimSpace(req.Instructions)
	if instructions == "" {
		instructions = "-"
	}
	return fmt.Sprintf("Product: %s. Style: %s. Scene Count: %d. Instructions: %s.",
		strings.TrimSpace(req.ProductName), s.Style, s.SceneCount, instructions)
}

type planPayload struct {
	Summary *string         `json:"summary"`
	Caption *string         `json:"caption"`
	Assets  *[]assetPayload `json:"assets"`
}

type assetPayload struct {
	Label       *string `json:"label"`
	ImagePrompt *string `json:"imagePrompt"`
	VideoPrompt *string `json:"videoPrompt"`
}

// decodePlan distinguishes absent fields from empty ones so a partial answer
// is never mistaken for a plan.
func decodePlan(raw string, expected int) (*domain.ContentPlan, error) {
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty payload", domain.ErrPlanningFailed)
	}
	var payload planPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("%w: decode plan: %v", domain.ErrPlanningFailed, err)
	}
	switch {
	case payload.Summary == nil:
		return nil, fmt.Errorf("%w: summary missing", domain.ErrPlanningFailed)
	case payload.Caption == nil:
		return nil, fmt.Errorf("%w: caption missing", domain.ErrPlanningFailed)
	case payload.Assets == nil:
		return nil, fmt.Errorf("%w: assets missing", domain.ErrPlanningFailed)
	}

	plan := &domain.ContentPlan{
		Summary: strings.TrimSpace(*payload.Summary),
		Caption: strings.TrimSpace(*payload.Caption),
		Assets:  make([]domain.AssetSpec, 0, len(*payload.Assets)),
	}
	for i, a := range *payload.Assets {
		if a.Label == nil || a.ImagePrompt == nil || a.VideoPrompt == nil {
			return nil, fmt.Errorf("%w: asset %d is missing a required field", domain.ErrPlanningFailed, i)
		}
		plan.Assets = append(plan.Assets, domain.AssetSpec{
			Label:       strings.TrimSpace(*a.Label),
			ImagePrompt: strings.TrimSpace(*a.ImagePrompt),
			VideoPrompt: strings.TrimSpace(*a.VideoPrompt),
		})
	}
	if err := plan.Validate(expected); err != nil {
		return nil, err
	}
	return plan, nil
}

func extractJSONFragment(raw string) string {
	text := trimCodeFence(raw)
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

var (
	_ Planner = (*GeminiPlanner)(nil)
	_ Planner = (*StaticPlanner)(nil)
)
