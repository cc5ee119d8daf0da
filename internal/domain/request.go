package domain

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

// Style selects the content treatment requested by the user.
type Style string

const (
	StyleBasic       Style = "basic"
	StyleTestimonial Style = "testimonial"
	StyleUnboxing    Style = "unboxing"
	StyleTalkingHead Style = "talking_head"
)

// MaxSceneCount caps the number of assets a single plan may request.
const MaxSceneCount = 8

// ParseStyle normalizes user input. An empty value is returned unchanged so the
// brand default can apply.
func ParseStyle(value string) (Style, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.NewReplacer(" ", "_", "-", "_").Replace(v)
	switch Style(v) {
	case "":
		return "", nil
	case StyleBasic, StyleTestimonial, StyleUnboxing, StyleTalkingHead:
		return Style(v), nil
	}
	return "", fmt.Errorf("%w: unknown style %q", ErrInvalidRequest, value)
}

// ReferenceRole tells the planner what a reference image depicts.
type ReferenceRole string

const (
	ReferenceProduct ReferenceRole = "product"
	ReferenceModel   ReferenceRole = "model"
)

// ReferenceImage is an uploaded conditioning image.
type ReferenceImage struct {
	Role     ReferenceRole
	MIMEType string
	Data     []byte
}

var dataURIPattern = regexp.MustCompile(`^data:([^;,]+)(;[^,]*)?,`)

// ParseReferenceImage decodes a data URI (or a bare base64 payload, assumed PNG).
func ParseReferenceImage(role ReferenceRole, value string) (*ReferenceImage, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	mime := "image/png"
	payload := value
	if m := dataURIPattern.FindStringSubmatch(value); m != nil {
		mime = strings.ToLower(m[1])
		if !strings.Contains(m[2], "base64") {
			return nil, fmt.Errorf("%w: %s image must be base64 encoded", ErrInvalidRequest, role)
		}
		payload = value[len(m[0]):]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s image: %v", ErrInvalidRequest, role, err)
	}
	return &ReferenceImage{Role: role, MIMEType: mime, Data: data}, nil
}

// GenerationRequest is what the user submits to start a run.
type GenerationRequest struct {
	ProductName  string
	Instructions string
	Style        Style
	SceneCount   int
	Language     string
	Brand        string
	References   []ReferenceImage
}

// Validate checks the caller-side preconditions. A request that fails here must
// not reach any provider.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.ProductName) == "" {
		return fmt.Errorf("%w: product name is required", ErrInvalidRequest)
	}
	if r.SceneCount < 0 || r.SceneCount > MaxSceneCount {
		return fmt.Errorf("%w: scene count must be between 1 and %d", ErrInvalidRequest, MaxSceneCount)
	}
	if _, err := ParseStyle(string(r.Style)); err != nil {
		return err
	}
	for _, ref := range r.References {
		if !strings.HasPrefix(ref.MIMEType, "image/") {
			return fmt.Errorf("%w: %s reference has mime type %q", ErrInvalidRequest, ref.Role, ref.MIMEType)
		}
		if len(ref.Data) == 0 {
			return fmt.Errorf("%w: %s reference is empty", ErrInvalidRequest, ref.Role)
		}
	}
	return nil
}

// Reference returns the first reference image with the given role.
func (r GenerationRequest) Reference(role ReferenceRole) *ReferenceImage {
	for i := range r.References {
		if r.References[i].Role == role {
			return &r.References[i]
		}
	}
	return nil
}

// Clone deep-copies the request so later mutation by the caller cannot leak
// into a submitted run.
func (r GenerationRequest) Clone() GenerationRequest {
	out := r
	out.ProductName = strings.TrimSpace(r.ProductName)
	out.Instructions = strings.TrimSpace(r.Instructions)
	if len(r.References) > 0 {
		out.References = make([]ReferenceImage, len(r.References))
		for i, ref := range r.References {
			ref.Data = append([]byte(nil), ref.Data...)
			out.References[i] = ref
		}
	}
	return out
}
