package domain

import (
	"encoding/base64"
	"errors"
	"testing"
)

func TestGenerationRequestValidate(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	tests := []struct {
		name    string
		req     GenerationRequest
		wantErr bool
	}{
		{name: "minimal", req: GenerationRequest{ProductName: "Neo Watch"}},
		{name: "blank product", req: GenerationRequest{ProductName: "   "}, wantErr: true},
		{name: "negative scenes", req: GenerationRequest{ProductName: "x", SceneCount: -1}, wantErr: true},
		{name: "too many scenes", req: GenerationRequest{ProductName: "x", SceneCount: MaxSceneCount + 1}, wantErr: true},
		{name: "unknown style", req: GenerationRequest{ProductName: "x", Style: "noir"}, wantErr: true},
		{
			name: "reference ok",
			req: GenerationRequest{ProductName: "x", Style: StyleTestimonial, References: []ReferenceImage{
				{Role: ReferenceProduct, MIMEType: "image/png", Data: png},
			}},
		},
		{
			name: "reference not an image",
			req: GenerationRequest{ProductName: "x", References: []ReferenceImage{
				{Role: ReferenceModel, MIMEType: "text/plain", Data: png},
			}},
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidRequest) {
					t.Fatalf("Validate() = %v, want ErrInvalidRequest", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestParseStyle(t *testing.T) {
	cases := map[string]Style{
		"":             "",
		"Basic":        StyleBasic,
		"talking head": StyleTalkingHead,
		"Talking-Head": StyleTalkingHead,
		" unboxing ":   StyleUnboxing,
	}
	for in, want := range cases {
		got, err := ParseStyle(in)
		if err != nil {
			t.Fatalf("ParseStyle(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseStyle(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseStyle("vlog"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestParseReferenceImage(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))

	ref, err := ParseReferenceImage(ReferenceProduct, "data:image/jpeg;base64,"+payload)
	if err != nil {
		t.Fatalf("ParseReferenceImage error: %v", err)
	}
	if ref.MIMEType != "image/jpeg" || string(ref.Data) != "jpeg-bytes" || ref.Role != ReferenceProduct {
		t.Fatalf("unexpected reference: %+v", ref)
	}

	bare, err := ParseReferenceImage(ReferenceModel, payload)
	if err != nil {
		t.Fatalf("bare payload error: %v", err)
	}
	if bare.MIMEType != "image/png" {
		t.Fatalf("bare payload mime = %q, want image/png", bare.MIMEType)
	}

	empty, err := ParseReferenceImage(ReferenceModel, "  ")
	if err != nil || empty != nil {
		t.Fatalf("empty input = (%v, %v), want (nil, nil)", empty, err)
	}

	if _, err := ParseReferenceImage(ReferenceProduct, "data:image/png;base64,@@@"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("invalid base64 error = %v", err)
	}
	if _, err := ParseReferenceImage(ReferenceProduct, "data:image/png,rawtext"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("non-base64 data uri error = %v", err)
	}
}

func TestGenerationRequestCloneIsolatesReferences(t *testing.T) {
	req := GenerationRequest{ProductName: " Neo Watch ", References: []ReferenceImage{
		{Role: ReferenceProduct, MIMEType: "image/png", Data: []byte{1, 2, 3}},
	}}
	clone := req.Clone()
	req.References[0].Data[0] = 9
	if clone.References[0].Data[0] != 1 {
		t.Fatal("clone shares reference bytes with the original")
	}
	if clone.ProductName != "Neo Watch" {
		t.Fatalf("ProductName = %q, want trimmed", clone.ProductName)
	}
	if clone.Reference(ReferenceProduct) == nil || clone.Reference(ReferenceModel) != nil {
		t.Fatal("Reference lookup mismatch")
	}
}
