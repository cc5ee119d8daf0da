package domain

import (
	"fmt"
	"sync"
)

// GalleryEntry is one materialized asset.
type GalleryEntry struct {
	Label string
	Image Image
}

// AssetGallery maps asset labels to generated images for a single run. It only
// grows: entries are never replaced or removed.
type AssetGallery struct {
	mu      sync.RWMutex
	allowed map[string]struct{}
	order   []string
	images  map[string]Image
}

// NewAssetGallery creates an empty gallery that accepts only the plan's labels.
func NewAssetGallery(plan ContentPlan) *AssetGallery {
	allowed := make(map[string]struct{}, len(plan.Assets))
	for _, asset := range plan.Assets {
		allowed[asset.Label] = struct{}{}
	}
	return &AssetGallery{
		allowed: allowed,
		images:  make(map[string]Image, len(plan.Assets)),
	}
}

// Put publishes an image. It is visible to readers as soon as Put returns.
func (g *AssetGallery) Put(label string, img Image) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.allowed[label]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAsset, label)
	}
	if _, ok := g.images[label]; ok {
		return fmt.Errorf("%w: %q", ErrAssetExists, label)
	}
	img.Data = append([]byte(nil), img.Data...)
	g.images[label] = img
	g.order = append(g.order, label)
	return nil
}

// Get returns the image for label, if it has been materialized.
func (g *AssetGallery) Get(label string) (Image, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	img, ok := g.images[label]
	return img, ok
}

// Labels returns materialized labels in the order they became visible.
func (g *AssetGallery) Labels() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.order...)
}

// Snapshot returns the entries in visibility order.
func (g *AssetGallery) Snapshot() []GalleryEntry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]GalleryEntry, len(g.order))
	for i, label := range g.order {
		out[i] = GalleryEntry{Label: label, Image: g.images[label]}
	}
	return out
}
