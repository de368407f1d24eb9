// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"
	"io"
)

// ChatMessage represents a chat message for LLM submission. Timestamps are
// stripped at this boundary.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Stream is a finite, non-restartable sequence of content fragments. Recv
// returns fragments in upstream order and io.EOF once the upstream signals
// completion. Implementations convert upstream failures into a single
// human-readable fragment followed by io.EOF; the streaming path never
// surfaces an upstream error past this boundary. Cancellation of the request
// context is the exception: Recv returns the context error so callers can
// discard the partial text rather than treat it as a completed reply.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a non-streaming completion request. Upstream failures
	// surface as *UpstreamError; an empty upstream response maps to a canned
	// apology string instead of an error.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Stream sends a streaming completion request.
	Stream(ctx context.Context, req *CompletionRequest) (Stream, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	default:
		return NewOpenAIClient(apiKey)
	}
}

// staticStream yields a fixed set of fragments. Used to deliver apology
// fragments when the upstream request cannot be started.
type staticStream struct {
	fragments []string
	pos       int
}

// NewStaticStream returns a Stream over the given fragments.
func NewStaticStream(fragments ...string) Stream {
	return &staticStream{fragments: fragments}
}

func (s *staticStream) Recv() (string, error) {
	if s.pos >= len(s.fragments) {
		return "", io.EOF
	}
	f := s.fragments[s.pos]
	s.pos++
	return f, nil
}

func (s *staticStream) Close() error {
	s.pos = len(s.fragments)
	return nil
}
