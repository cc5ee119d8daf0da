package domain

import (
	"fmt"
	"strings"
)

// AspectRatio is one of the ratios accepted by the image provider.
type AspectRatio string

const (
	AspectSquare    AspectRatio = "1:1"
	AspectPortrait  AspectRatio = "3:4"
	AspectLandscape AspectRatio = "4:3"
	AspectStory     AspectRatio = "9:16"
	AspectWide      AspectRatio = "16:9"
)

// DefaultAssetAspectRatio is the vertical format used for short-form video covers.
const DefaultAssetAspectRatio = AspectStory

var aspectRatios = []AspectRatio{AspectSquare, AspectPortrait, AspectLandscape, AspectStory, AspectWide}

// AspectRatios lists every supported ratio.
func AspectRatios() []AspectRatio {
	out := make([]AspectRatio, len(aspectRatios))
	copy(out, aspectRatios)
	return out
}

// ParseAspectRatio validates a free-form ratio string.
func ParseAspectRatio(value string) (AspectRatio, error) {
	value = strings.ReplaceAll(strings.TrimSpace(value), " ", "")
	for _, ar := range aspectRatios {
		if string(ar) == value {
			return ar, nil
		}
	}
	return "", fmt.Errorf("unsupported aspect ratio %q", value)
}

// Dimensions returns a nominal pixel size for the ratio.
func (a AspectRatio) Dimensions() (int, int) {
	switch a {
	case AspectPortrait:
		return 864, 1152
	case AspectLandscape:
		return 1152, 864
	case AspectStory:
		return 768, 1344
	case AspectWide:
		return 1344, 768
	default:
		return 1024, 1024
	}
}
