package image

import (
	"context"

	"ugcstudio/internal/domain"
)

// Request describes one image to materialize.
type Request struct {
	Prompt      string
	AspectRatio domain.AspectRatio
	Reference   *domain.ReferenceImage
	RunID       string
	Label       string
}

// Generator returns exactly one image for a request or fails. Implementations
// never retry.
type Generator interface {
	Generate(ctx context.Context, req Request) (*domain.Image, error)
}
