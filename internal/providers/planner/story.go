package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ugcstudio/internal/domain"
	"ugcstudio/internal/providers/genai"
)

// StoryPlanner writes a narrated multi-scene script in one call.
type StoryPlanner interface {
	Story(ctx context.Context, req domain.StoryRequest) (*domain.StoryScript, error)
}

const storyTemplate = `You are a cinematic storytelling architect for short-form educational video.

NARRATION:
- Each scene is about ten seconds of voice-over: dense, educational and meaningful.
- Keep narration to roughly 20 to 25 words per scene.

PROMPTS:
- Write two distinct structured prompts per scene.
- Every subject starts with "{{.VisualStyle}}".

Write every text field in {{.Language}}. Respond with strict JSON.`

var storyInstruction = template.Must(template.New("story").Option("missingkey=error").Parse(storyTemplate))

var structuredPromptSchema = &genai.Schema{
	Type: "OBJECT",
	Properties: map[string]*genai.Schema{
		"subject":           {Type: "STRING"},
		"action":            {Type: "STRING"},
		"environment":       {Type: "STRING"},
		"camera_movement":   {Type: "STRING"},
		"lighting":          {Type: "STRING"},
		"visual_style_tags": {Type: "STRING"},
	},
	Required: []string{"subject", "action", "environment", "camera_movement", "lighting", "visual_style_tags"},
}

var storySchema = &genai.Schema{
	Type: "OBJECT",
	Properties: map[string]*genai.Schema{
		"title":       {Type: "STRING"},
		"numScenes":   {Type: "NUMBER"},
		"visualStyle": {Type: "STRING"},
		"language":    {Type: "STRING"},
		"scenes": {
			Type: "ARRAY",
			Items: &genai.Schema{
				Type: "OBJECT",
				Properties: map[string]*genai.Schema{
					"number":            {Type: "NUMBER"},
					"narration":         {Type: "STRING"},
					"tone":              {Type: "STRING"},
					"structuredPrompt1": structuredPromptSchema,
					"structuredPrompt2": structuredPromptSchema,
				},
				Required: []string{"number", "narration", "tone", "structuredPrompt1", "structuredPrompt2"},
			},
		},
		"tiktokCover":  {Type: "STRING"},
		"youtubeCover": {Type: "STRING"},
		"hashtags":     {Type: "ARRAY", Items: &genai.Schema{Type: "STRING"}},
	},
	Required: []string{"title", "numScenes", "visualStyle", "language", "scenes", "tiktokCover", "youtubeCover", "hashtags"},
}

// storySettings is the effective configuration of one story call.
type storySettings struct {
	Title       string
	SceneCount  int
	VisualStyle string
	Language    string
}

func resolveStory(req domain.StoryRequest) storySettings {
	s := storySettings{
		Title:       strings.TrimSpace(req.Title),
		SceneCount:  req.SceneCount,
		VisualStyle: strings.TrimSpace(req.VisualStyle),
		Language:    languageName(req.Language),
	}
	if s.SceneCount <= 0 {
		s.SceneCount = DefaultSceneCount
	}
	if s.VisualStyle == "" {
		s.VisualStyle = domain.DefaultVisualStyle
	}
	return s
}

// Story implements StoryPlanner. Every failure wraps domain.ErrPlanningFailed.
func (p *GeminiPlanner) Story(ctx context.Context, req domain.StoryRequest) (*domain.StoryScript, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	s := resolveStory(req)
	var system strings.Builder
	if err := storyInstruction.Execute(&system, s); err != nil {
		return nil, fmt.Errorf("%w: render story instruction: %v", domain.ErrPlanningFailed, err)
	}

	raw, err := p.client.GenerateJSON(ctx, genai.JSONRequest{
		Model:             p.model,
		SystemInstruction: system.String(),
		Prompt: fmt.Sprintf("Write a cinematic storytelling script. Style: %q. Title: %q. Scenes: %d. Language: %s.",
			s.VisualStyle, s.Title, s.SceneCount, s.Language),
		Schema: storySchema,
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("reason", genai.Classify(err)).Msg("planner: story call failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrPlanningFailed, err)
	}

	script, err := decodeStory(raw, s)
	if err != nil {
		p.logger.Warn().Err(err).Int("bytes", len(raw)).Msg("planner: story rejected")
		return nil, err
	}
	p.logger.Info().Str("title", script.Title).Int("scenes", len(script.Scenes)).Msg("planner: story ready")
	return script, nil
}

type storyPayload struct {
	Title        *string         `json:"title"`
	Scenes       *[]scenePayload `json:"scenes"`
	TikTokCover  string          `json:"tiktokCover"`
	YouTubeCover string          `json:"youtubeCover"`
	Hashtags     []string        `json:"hashtags"`
}

type scenePayload struct {
	Narration         string                   `json:"narration"`
	Tone              string                   `json:"tone"`
	StructuredPrompt1 *domain.StructuredPrompt `json:"structuredPrompt1"`
	StructuredPrompt2 *domain.StructuredPrompt `json:"structuredPrompt2"`
}

// decodeStory renumbers scenes in order and makes every subject lead with the
// requested visual style.
func decodeStory(raw string, s storySettings) (*domain.StoryScript, error) {
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty payload", domain.ErrPlanningFailed)
	}
	var payload storyPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("%w: decode story: %v", domain.ErrPlanningFailed, err)
	}
	if payload.Title == nil || payload.Scenes == nil {
		return nil, fmt.Errorf("%w: title or scenes missing", domain.ErrPlanningFailed)
	}

	script := &domain.StoryScript{
		Title:        strings.TrimSpace(*payload.Title),
		SceneCount:   len(*payload.Scenes),
		VisualStyle:  s.VisualStyle,
		Language:     s.Language,
		Scenes:       make([]domain.StoryScene, 0, len(*payload.Scenes)),
		TikTokCover:  strings.TrimSpace(payload.TikTokCover),
		YouTubeCover: strings.TrimSpace(payload.YouTubeCover),
		Hashtags:     normalizeHashtags(payload.Hashtags),
	}
	for i, scene := range *payload.Scenes {
		if scene.StructuredPrompt1 == nil || scene.StructuredPrompt2 == nil {
			return nil, fmt.Errorf("%w: scene %d is missing a structured prompt", domain.ErrPlanningFailed, i+1)
		}
		script.Scenes = append(script.Scenes, domain.StoryScene{
			Number:            i + 1,
			Narration:         strings.TrimSpace(scene.Narration),
			Tone:              strings.TrimSpace(scene.Tone),
			StructuredPrompt1: leadWithStyle(*scene.StructuredPrompt1, s.VisualStyle),
			StructuredPrompt2: leadWithStyle(*scene.StructuredPrompt2, s.VisualStyle),
		})
	}
	if err := script.Validate(s.SceneCount); err != nil {
		return nil, err
	}
	return script, nil
}

func leadWithStyle(p domain.StructuredPrompt, style string) domain.StructuredPrompt {
	p.Subject = strings.TrimSpace(p.Subject)
	if p.Subject != "" && !strings.HasPrefix(strings.ToLower(p.Subject), strings.ToLower(style)) {
		p.Subject = style + " " + p.Subject
	}
	return p
}

func normalizeHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		out = append(out, tag)
	}
	return out
}

// Story builds a deterministic script locally.
func (p *StaticPlanner) Story(ctx context.Context, req domain.StoryRequest) (*domain.StoryScript, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	s := resolveStory(req)
	title := cases.Title(language.Und).String(s.Title)

	script := &domain.StoryScript{
		Title:        title,
		SceneCount:   s.SceneCount,
		VisualStyle:  s.VisualStyle,
		Language:     s.Language,
		Scenes:       make([]domain.StoryScene, 0, s.SceneCount),
		TikTokCover:  fmt.Sprintf("%s in %d scenes", title, s.SceneCount),
		YouTubeCover: fmt.Sprintf("%s: the whole story", title),
		Hashtags:     []string{"#" + hashtag(title), "#story"},
	}
	for i := 1; i <= s.SceneCount; i++ {
		shot := func(camera string) domain.StructuredPrompt {
			return domain.StructuredPrompt{
				Subject:         fmt.Sprintf("%s scene %d of %s", s.VisualStyle, i, title),
				Action:          "the story moves one beat forward",
				Environment:     "a location that fits the chapter",
				CameraMovement:  camera,
				Lighting:        "soft natural light",
				VisualStyleTags: "8k, photorealistic, fluid motion",
			}
		}
		script.Scenes = append(script.Scenes, domain.StoryScene{
			Number:            i,
			Narration:         fmt.Sprintf("Part %d of %s, told in about ten seconds.", i, title),
			Tone:              "curious",
			StructuredPrompt1: shot("slow push-in"),
			StructuredPrompt2: shot("orbit"),
		})
	}
	return script, nil
}

var (
	_ StoryPlanner = (*GeminiPlanner)(nil)
	_ StoryPlanner = (*StaticPlanner)(nil)
)
