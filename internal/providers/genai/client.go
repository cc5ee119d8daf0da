package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ugcstudio/internal/infra"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a thin facade over the Gemini generateContent REST endpoint. It
// makes exactly one HTTP call per method invocation and never retries.
//
// Without an API key the client runs in synthetic mode: images are rendered
// locally from a deterministic seed so the rest of the pipeline can be
// exercised offline. Remote failures are always returned to the caller.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// InlineImage is an image sent to or received from the model.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// JSONRequest asks a text model for schema-constrained JSON.
type JSONRequest struct {
	Model             string
	SystemInstruction string
	Prompt            string
	Images            []InlineImage
	Schema            *Schema
	Temperature       float64
	RequestID         string
}

// ImageRequest asks an image model for exactly one picture.
type ImageRequest struct {
	Model       string
	Prompt      string
	AspectRatio string
	Reference   *InlineImage
	RequestID   string
}

// ImageAsset is the normalized representation returned by the Gemini client.
type ImageAsset struct {
	MIMEType string
	Data     []byte
	Width    int
	Height   int
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one with sensible timeouts will be created.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 180 * time.Second}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("genai: invalid base url: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		l := infra.NopLogger()
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Synthetic reports whether the client renders images locally.
func (c *Client) Synthetic() bool {
	return c.apiKey == ""
}

// GenerateJSON returns the raw JSON text produced by the model.
func (c *Client) GenerateJSON(ctx context.Context, req JSONRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.Synthetic() {
		return "", ErrNoAPIKey
	}

	parts := []part{{Text: req.Prompt}}
	for _, img := range req.Images {
		parts = append(parts, inlinePart(img))
	}
	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: &generationConfig{
			Temperature:      req.Temperature,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
			ResponseSchema:   req.Schema,
		},
	}
	if si := strings.TrimSpace(req.SystemInstruction); si != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: si}}}
	}

	var response generateContentResponse
	if err := c.invoke(ctx, req.Model, payload, &response); err != nil {
		return "", err
	}
	if err := response.blocked(); err != nil {
		return "", err
	}
	text := response.text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", req.Model).
		Int("bytes", len(text)).
		Msg("genai: structured response received")

	return text, nil
}

// GenerateImage returns the first image produced for the prompt.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Synthetic() {
		return c.syntheticImage(req), nil
	}

	parts := []part{{Text: req.Prompt}}
	if req.Reference != nil && len(req.Reference.Data) > 0 {
		parts = append(parts, inlinePart(*req.Reference))
	}
	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE"},
		},
	}
	if aspect := strings.TrimSpace(req.AspectRatio); aspect != "" {
		payload.GenerationConfig.ImageConfig = &imageConfig{AspectRatio: aspect}
	}

	var response generateContentResponse
	if err := c.invoke(ctx, req.Model, payload, &response); err != nil {
		return nil, err
	}
	if err := response.blocked(); err != nil {
		return nil, err
	}

	for _, candidate := range response.Candidates {
		for _, p := range candidate.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("%w: decode inline data: %v", ErrMalformedResponse, err)
			}
			mime := firstNonEmpty(p.InlineData.MimeType, "image/png")
			w, h := decodeImageDimensions(data)
			c.logger.Debug().
				Str("request_id", req.RequestID).
				Str("model", req.Model).
				Int("bytes", len(data)).
				Msg("genai: image received")
			return &ImageAsset{MIMEType: mime, Data: data, Width: w, Height: h}, nil
		}
	}
	return nil, ErrNoImage
}

func (c *Client) invoke(ctx context.Context, model string, payload any, out any) error {
	model = strings.TrimSpace(model)
	if model == "" {
		return errors.New("genai: model is required")
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var decoded errorResponse
		if json.Unmarshal(data, &decoded) == nil && decoded.Error.Message != "" {
			apiErr.Message = decoded.Error.Message
			apiErr.Status = decoded.Error.Status
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func inlinePart(img InlineImage) part {
	return part{InlineData: &inlineData{
		MimeType: firstNonEmpty(img.MIMEType, "image/png"),
		Data:     base64.StdEncoding.EncodeToString(img.Data),
	}}
}

func decodeImageDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
