package planner

import (
	"sort"
	"strings"
	"text/template"

	"ugcstudio/internal/domain"
)

// DefaultSceneCount is used when neither the request nor the brand sets one.
const DefaultSceneCount = 4

const affiliateTemplate = `You are {{.BrandName}}, an affiliate marketing and UGC content specialist.
Task: produce a visual UGC strategy ready for short-form video tools.

Content style: {{.Style}}
Target scene count: {{.SceneCount}}
Write every field in {{.Language}}.

IDENTITY LOCK:
1. Product precision: study the attached product photo. Every video prompt names the product's brand and texture explicitly.
2. Affiliate acting: for unboxing focus on hands opening the package; for talking head focus on facial expression and eye contact.
3. Cinematic flow: use the keywords "8k", "photorealistic", "fluid motion", "consistent identity".

OUTPUT:
- summary: the strategy in short.
- caption: a viral caption with hashtags.
- assets: exactly {{.SceneCount}} items, each with label, imagePrompt and videoPrompt.`

const storytellingTemplate = `You are {{.BrandName}}, a cinematic UGC storytelling architect for product reviews.
Content style: {{.Style}}. Scenes: {{.SceneCount}}. Language: {{.Language}}.

RULES:
1. Each asset is one scene with a short distinct label.
2. imagePrompt describes a single photorealistic frame that keeps the product and model identity from the attached references.
3. videoPrompt describes camera movement, lighting and action for roughly ten seconds of footage.
4. Respond with strict JSON: summary, caption and exactly {{.SceneCount}} assets.`

var brandProfiles = map[string]domain.BrandProfile{
	"pikhacu": {
		Key:            "pikhacu",
		BrandName:      "PIKHACU Affiliate Turbo",
		DefaultStyle:   domain.StyleBasic,
		DefaultScenes:  DefaultSceneCount,
		PromptTemplate: affiliateTemplate,
	},
	"anoalabs": {
		Key:            "anoalabs",
		BrandName:      "ANOALABS UGC Tool",
		DefaultStyle:   domain.StyleTestimonial,
		DefaultScenes:  DefaultSceneCount,
		PromptTemplate: storytellingTemplate,
	},
}

var brandTemplates = func() map[string]*template.Template {
	out := make(map[string]*template.Template, len(brandProfiles))
	for key, profile := range brandProfiles {
		out[key] = template.Must(template.New(key).Option("missingkey=error").Parse(profile.PromptTemplate))
	}
	return out
}()

// Brands lists the registered profiles ordered by key.
func Brands() []domain.BrandProfile {
	out := make([]domain.BrandProfile, 0, len(brandProfiles))
	for _, profile := range brandProfiles {
		out = append(out, profile)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// LookupBrand resolves a brand key case-insensitively.
func LookupBrand(key string) (domain.BrandProfile, bool) {
	profile, ok := brandProfiles[strings.ToLower(strings.TrimSpace(key))]
	return profile, ok
}

// settings is the effective configuration of a single planning call.
type settings struct {
	Brand      domain.BrandProfile
	BrandName  string
	Style      domain.Style
	SceneCount int
	Language   string
	// enforce is set when the caller asked for an explicit scene count.
	enforce bool
}

func resolveSettings(req domain.GenerationRequest, fallbackBrand string) settings {
	brand, ok := LookupBrand(req.Brand)
	if !ok {
		brand, ok = LookupBrand(fallbackBrand)
	}
	if !ok {
		brand = brandProfiles["pikhacu"]
	}
	s := settings{
		Brand:      brand,
		BrandName:  brand.BrandName,
		Style:      req.Style,
		SceneCount: req.SceneCount,
		Language:   languageName(req.Language),
		enforce:    req.SceneCount > 0,
	}
	if s.Style == "" {
		s.Style = brand.DefaultStyle
	}
	if s.SceneCount <= 0 {
		s.SceneCount = brand.DefaultScenes
	}
	if s.SceneCount <= 0 {
		s.SceneCount = DefaultSceneCount
	}
	return s
}

// Effective returns the brand key and style a plan for req is built with.
func Effective(req domain.GenerationRequest, fallbackBrand string) (string, domain.Style) {
	s := resolveSettings(req, fallbackBrand)
	return s.Brand.Key, s.Style
}

func (s settings) systemInstruction() (string, error) {
	tmpl, ok := brandTemplates[s.Brand.Key]
	if !ok {
		return "", nil
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, s); err != nil {
		return "", err
	}
	return b.String(), nil
}
