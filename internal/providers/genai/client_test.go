package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"ugcstudio/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(t *testing.T, fn roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient(Options{
		APIKey:     "test-key",
		BaseURL:    "https://gemini.test/v1beta",
		HTTPClient: &http.Client{Transport: fn},
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func TestGenerateJSONSendsSchemaAndReturnsText(t *testing.T) {
	t.Parallel()
	var captured generateContentRequest
	var calls int32
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		if got := r.URL.Path; got != "/v1beta/models/planner-model:generateContent" {
			t.Errorf("path = %q", got)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode body: %v", err)
		}
		return jsonResponse(http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"{\"summary\":\"ok\"}"}]}}]}`), nil
	})

	text, err := client.GenerateJSON(context.Background(), JSONRequest{
		Model:             "planner-model",
		SystemInstruction: "be brief",
		Prompt:            "plan it",
		Images:            []InlineImage{{MIMEType: "image/jpeg", Data: []byte{1, 2, 3}}},
		Schema:            &Schema{Type: "OBJECT", Required: []string{"summary"}},
	})
	if err != nil {
		t.Fatalf("GenerateJSON returned error: %v", err)
	}
	if text != `{"summary":"ok"}` {
		t.Fatalf("text = %q", text)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	cfg := captured.GenerationConfig
	if cfg == nil || cfg.ResponseMimeType != "application/json" || cfg.ResponseSchema == nil {
		t.Fatalf("generation config = %+v", cfg)
	}
	if captured.SystemInstruction == nil || captured.SystemInstruction.Parts[0].Text != "be brief" {
		t.Fatalf("system instruction = %+v", captured.SystemInstruction)
	}
	parts := captured.Contents[0].Parts
	if len(parts) != 2 || parts[1].InlineData == nil {
		t.Fatalf("parts = %+v", parts)
	}
	if parts[1].InlineData.MimeType != "image/jpeg" || parts[1].InlineData.Data != base64.StdEncoding.EncodeToString([]byte{1, 2, 3}) {
		t.Fatalf("inline data = %+v", parts[1].InlineData)
	}
}

func TestGenerateJSONWithoutKey(t *testing.T) {
	t.Parallel()
	client, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if _, err := client.GenerateJSON(context.Background(), JSONRequest{Model: "m", Prompt: "p"}); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("err = %v, want ErrNoAPIKey", err)
	}
}

func TestGenerateImageDecodesInlineData(t *testing.T) {
	t.Parallel()
	pixel := renderSyntheticImage(4, 2, deterministicSeed("x"))
	var captured generateContentRequest
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		body := `{"candidates":[{"content":{"parts":[{"text":"here"},{"inlineData":{"mimeType":"image/png","data":"` +
			base64.StdEncoding.EncodeToString(pixel) + `"}}]}}]}`
		return jsonResponse(http.StatusOK, body), nil
	})

	asset, err := client.GenerateImage(context.Background(), ImageRequest{
		Model:       "image-model",
		Prompt:      "a watch on a desk",
		AspectRatio: "9:16",
		Reference:   &InlineImage{MIMEType: "image/png", Data: []byte("ref")},
	})
	if err != nil {
		t.Fatalf("GenerateImage returned error: %v", err)
	}
	if !bytes.Equal(asset.Data, pixel) || asset.MIMEType != "image/png" {
		t.Fatalf("asset = %s %d bytes", asset.MIMEType, len(asset.Data))
	}
	if asset.Width != 4 || asset.Height != 2 {
		t.Fatalf("dimensions = %dx%d", asset.Width, asset.Height)
	}
	cfg := captured.GenerationConfig
	if cfg == nil || cfg.ImageConfig == nil || cfg.ImageConfig.AspectRatio != "9:16" {
		t.Fatalf("image config = %+v", cfg)
	}
	if len(captured.Contents[0].Parts) != 2 {
		t.Fatalf("reference image not attached: %+v", captured.Contents[0].Parts)
	}
}

func TestGenerateImageFailures(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		status int
		body   string
		err    error
		reason string
	}{
		{name: "text_only", status: 200, body: `{"candidates":[{"content":{"parts":[{"text":"sorry"}]}}]}`, err: ErrNoImage, reason: ReasonEmpty},
		{name: "prompt_blocked", status: 200, body: `{"promptFeedback":{"blockReason":"SAFETY"}}`, err: ErrContentBlocked, reason: ReasonPolicy},
		{name: "candidate_blocked", status: 200, body: `{"candidates":[{"finishReason":"IMAGE_SAFETY","content":{"parts":[]}}]}`, err: ErrContentBlocked, reason: ReasonPolicy},
		{name: "malformed", status: 200, body: `{"candidates":`, err: ErrMalformedResponse, reason: ReasonMalformed},
		{name: "server_error", status: 500, body: `{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`, reason: ReasonProvider},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
				return jsonResponse(tc.status, tc.body), nil
			})
			_, err := client.GenerateImage(context.Background(), ImageRequest{Model: "m", Prompt: "p"})
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.err != nil && !errors.Is(err, tc.err) {
				t.Fatalf("err = %v, want %v", err, tc.err)
			}
			if got := Classify(err); got != tc.reason {
				t.Fatalf("Classify = %q, want %q", got, tc.reason)
			}
		})
	}
}

func TestAPIErrorCarriesMessage(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusTooManyRequests, `{"error":{"code":429,"message":"quota exhausted","status":"RESOURCE_EXHAUSTED"}}`), nil
	})
	_, err := client.GenerateJSON(context.Background(), JSONRequest{Model: "m", Prompt: "p"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests || apiErr.Message != "quota exhausted" {
		t.Fatalf("api error = %+v", apiErr)
	}
}

func TestTransportFailureIsNotRetried(t *testing.T) {
	t.Parallel()
	var calls int32
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("connection reset")
	})
	_, err := client.GenerateImage(context.Background(), ImageRequest{Model: "m", Prompt: "p"})
	if got := Classify(err); got != ReasonTransport {
		t.Fatalf("Classify = %q, want %q", got, ReasonTransport)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestSyntheticImageMatchesAspect(t *testing.T) {
	t.Parallel()
	client, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if !client.Synthetic() {
		t.Fatalf("expected synthetic mode without api key")
	}
	asset, err := client.GenerateImage(context.Background(), ImageRequest{Model: "m", Prompt: "p", AspectRatio: "9:16"})
	if err != nil {
		t.Fatalf("GenerateImage returned error: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(asset.Data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if w, h := domain.AspectStory.Dimensions(); cfg.Width != w || cfg.Height != h {
		t.Fatalf("dimensions = %dx%d, want %dx%d", cfg.Width, cfg.Height, w, h)
	}
	again, _ := client.GenerateImage(context.Background(), ImageRequest{Model: "m", Prompt: "p", AspectRatio: "9:16"})
	if !bytes.Equal(asset.Data, again.Data) {
		t.Fatalf("synthetic rendering is not deterministic")
	}
}

func TestClassifyContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return nil, r.Context().Err()
	})
	_, err := client.GenerateImage(ctx, ImageRequest{Model: "m", Prompt: "p"})
	if got := Classify(err); got != ReasonCanceled {
		t.Fatalf("Classify = %q, want %q", got, ReasonCanceled)
	}
}
