package genai

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNoAPIKey          = errors.New("genai: api key not configured")
	ErrContentBlocked    = errors.New("genai: content blocked")
	ErrEmptyResponse     = errors.New("genai: empty response")
	ErrNoImage           = errors.New("genai: response contained no image")
	ErrMalformedResponse = errors.New("genai: malformed response")
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini status %d", e.StatusCode)
	}
	return fmt.Sprintf("gemini status %d: %s", e.StatusCode, e.Message)
}

// BlockedError carries the provider's block reason.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return "genai: content blocked: " + e.Reason
}

func (e *BlockedError) Is(target error) bool {
	return target == ErrContentBlocked
}

// Failure reasons reported by Classify.
const (
	ReasonCanceled  = "canceled"
	ReasonPolicy    = "policy"
	ReasonEmpty     = "empty"
	ReasonMalformed = "malformed"
	ReasonProvider  = "provider"
	ReasonTransport = "transport"
)

// Classify labels a failure for logs. Callers must not branch on it.
func Classify(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCanceled
	case errors.Is(err, ErrContentBlocked):
		return ReasonPolicy
	case errors.Is(err, ErrNoImage), errors.Is(err, ErrEmptyResponse):
		return ReasonEmpty
	case errors.Is(err, ErrMalformedResponse):
		return ReasonMalformed
	case errors.As(err, &apiErr):
		return ReasonProvider
	default:
		return ReasonTransport
	}
}
