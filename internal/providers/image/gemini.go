package image

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ugcstudio/internal/domain"
	"ugcstudio/internal/providers/genai"
)

const identityLockPrefix = "High quality cinematic photo, strictly follow the visual identity of the attached image."

// ImageClient is the part of the Gemini client the generator needs.
type ImageClient interface {
	GenerateImage(ctx context.Context, req genai.ImageRequest) (*genai.ImageAsset, error)
}

// GeminiGenerator adapts the Gemini image model to Generator.
type GeminiGenerator struct {
	client ImageClient
	model  string
}

func NewGeminiGenerator(client ImageClient, model string) *GeminiGenerator {
	model = strings.TrimSpace(model)
	if model == "" {
		model = "gemini-2.5-flash-image"
	}
	return &GeminiGenerator{client: client, model: model}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (*domain.Image, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("image: prompt is required")
	}
	aspect := req.AspectRatio
	if aspect == "" {
		aspect = domain.DefaultAssetAspectRatio
	}

	prompt := req.Prompt
	var ref *genai.InlineImage
	if req.Reference != nil && len(req.Reference.Data) > 0 {
		ref = &genai.InlineImage{MIMEType: req.Reference.MIMEType, Data: req.Reference.Data}
		prompt = identityLockPrefix + " " + req.Prompt
	}

	asset, err := g.client.GenerateImage(ctx, genai.ImageRequest{
		Model:       g.model,
		Prompt:      prompt,
		AspectRatio: string(aspect),
		Reference:   ref,
		RequestID:   req.RunID,
	})
	if err != nil {
		return nil, fmt.Errorf("generate %q: %w", req.Label, err)
	}
	if asset == nil || len(asset.Data) == 0 {
		return nil, fmt.Errorf("generate %q: %w", req.Label, genai.ErrNoImage)
	}
	return &domain.Image{MIMEType: asset.MIMEType, Data: asset.Data}, nil
}

var _ Generator = (*GeminiGenerator)(nil)
