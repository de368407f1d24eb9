package llm

import (
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Kind categorizes an upstream completion failure.
type Kind string

const (
	KindAuth      Kind = "auth"
	KindRateLimit Kind = "rate_limit"
	KindQuota     Kind = "quota"
	KindGeneric   Kind = "generic"
)

// Apology strings shown to the user in place of a response. The streaming
// path delivers these as a single fragment; the non-streaming path exposes
// them through UpstreamError.Apology.
const (
	ApologyAuth          = "I'm sorry, the API key appears to be invalid or missing. Please check your configuration."
	ApologyRateLimit     = "I'm receiving too many requests right now. Please wait a moment and try again."
	ApologyQuota         = "The API usage quota has been exceeded. Please check your plan and billing settings."
	ApologyGeneric       = "I'm sorry, I encountered an error while processing your request. Please try again."
	ApologyEmptyResponse = "I apologize, but I couldn't generate a response. Please try again."
)

// UpstreamError is a categorized failure from the hosted completion API.
type UpstreamError struct {
	Kind Kind
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s error: %v", e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Apology returns the user-facing apology string for this error's kind.
func (e *UpstreamError) Apology() string {
	switch e.Kind {
	case KindAuth:
		return ApologyAuth
	case KindRateLimit:
		return ApologyRateLimit
	case KindQuota:
		return ApologyQuota
	}
	return ApologyGeneric
}

// Categorize wraps an SDK error into an UpstreamError with the matching kind.
func Categorize(err error) *UpstreamError {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Kind: classify(apiErr.HTTPStatusCode, errCode(apiErr)), Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &UpstreamError{Kind: classify(reqErr.HTTPStatusCode, ""), Err: err}
	}

	if status, ok := anthropicStatus(err); ok {
		return &UpstreamError{Kind: classify(status, ""), Err: err}
	}

	return &UpstreamError{Kind: KindGeneric, Err: err}
}

func classify(status int, code string) Kind {
	if code == "insufficient_quota" {
		return KindQuota
	}
	switch status {
	case 401, 403:
		return KindAuth
	case 402:
		return KindQuota
	case 429:
		return KindRateLimit
	}
	return KindGeneric
}

func errCode(apiErr *openai.APIError) string {
	if c, ok := apiErr.Code.(string); ok {
		return c
	}
	if apiErr.Type == "insufficient_quota" {
		return "insufficient_quota"
	}
	return ""
}
