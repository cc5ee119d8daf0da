package domain

import (
	"fmt"
	"strings"
)

// DefaultVisualStyle applies when a story request names no visual style.
const DefaultVisualStyle = "Cinematic photorealistic"

// StoryRequest asks for a narrated multi-scene script.
type StoryRequest struct {
	Title       string `json:"title"`
	SceneCount  int    `json:"scene_count"`
	VisualStyle string `json:"visual_style"`
	Language    string `json:"language"`
}

func (r StoryRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: story title is required", ErrInvalidRequest)
	}
	if r.SceneCount < 0 || r.SceneCount > MaxSceneCount {
		return fmt.Errorf("%w: scene count must be between 1 and %d", ErrInvalidRequest, MaxSceneCount)
	}
	return nil
}

// StructuredPrompt is one shot description split into the fields video tools
// expect.
type StructuredPrompt struct {
	Subject         string `json:"subject"`
	Action          string `json:"action"`
	Environment     string `json:"environment"`
	CameraMovement  string `json:"camera_movement"`
	Lighting        string `json:"lighting"`
	VisualStyleTags string `json:"visual_style_tags"`
}

// StoryScene is one narrated beat with two alternative shots.
type StoryScene struct {
	Number            int              `json:"number"`
	Narration         string           `json:"narration"`
	Tone              string           `json:"tone"`
	StructuredPrompt1 StructuredPrompt `json:"structuredPrompt1"`
	StructuredPrompt2 StructuredPrompt `json:"structuredPrompt2"`
}

// StoryScript is the result of one story planning call.
type StoryScript struct {
	Title        string       `json:"title"`
	SceneCount   int          `json:"numScenes"`
	VisualStyle  string       `json:"visualStyle"`
	Language     string       `json:"language"`
	Scenes       []StoryScene `json:"scenes"`
	TikTokCover  string       `json:"tiktokCover"`
	YouTubeCover string       `json:"youtubeCover"`
	Hashtags     []string     `json:"hashtags"`
}

// Validate enforces the script contract: exactly expected scenes, each with
// narration and two subjects.
func (s StoryScript) Validate(expected int) error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("%w: story title is empty", ErrPlanningFailed)
	}
	if len(s.Scenes) == 0 {
		return fmt.Errorf("%w: story has no scenes", ErrPlanningFailed)
	}
	if expected > 0 && len(s.Scenes) != expected {
		return fmt.Errorf("%w: expected %d scenes, got %d", ErrPlanningFailed, expected, len(s.Scenes))
	}
	for i, scene := range s.Scenes {
		if strings.TrimSpace(scene.Narration) == "" {
			return fmt.Errorf("%w: scene %d has no narration", ErrPlanningFailed, i+1)
		}
		if strings.TrimSpace(scene.StructuredPrompt1.Subject) == "" || strings.TrimSpace(scene.StructuredPrompt2.Subject) == "" {
			return fmt.Errorf("%w: scene %d is missing a prompt subject", ErrPlanningFailed, i+1)
		}
	}
	return nil
}
