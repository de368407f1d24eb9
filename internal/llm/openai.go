package llm

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient is the OpenAI LLM client.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	return &OpenAIClient{
		client: openai.NewClient(apiKey),
	}, nil
}

// NewOpenAIClientWithConfig creates a client with a custom configuration.
// Used by tests to point at a local server.
func NewOpenAIClientWithConfig(cfg openai.ClientConfig) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
	}
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Models returns available models.
func (c *OpenAIClient) Models() []string {
	return []string{
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4-turbo",
		"gpt-4",
		"gpt-3.5-turbo",
	}
}

// Complete sends a non-streaming completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       modelOrDefault(req.Model, "gpt-4o-mini"),
		Messages:    toOpenAIMessages(req.Messages),
		MaxTokens:   tokensOrDefault(req.MaxTokens),
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return nil, Categorize(err)
	}

	var content, stopReason string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		stopReason = string(resp.Choices[0].FinishReason)
	}
	if content == "" {
		content = ApologyEmptyResponse
	}

	return &CompletionResponse{
		Content:    content,
		Model:      resp.Model,
		TokensIn:   resp.Usage.PromptTokens,
		TokensOut:  resp.Usage.CompletionTokens,
		StopReason: stopReason,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// Stream sends a streaming completion request.
func (c *OpenAIClient) Stream(ctx context.Context, req *CompletionRequest) (Stream, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       modelOrDefault(req.Model, "gpt-4o-mini"),
		Messages:    toOpenAIMessages(req.Messages),
		MaxTokens:   tokensOrDefault(req.MaxTokens),
		Temperature: float32(req.Temperature),
		Stream:      true,
	})
	if err != nil {
		return NewStaticStream(Categorize(err).Apology()), nil
	}

	return &openaiStream{ctx: ctx, stream: stream}, nil
}

type openaiStream struct {
	ctx    context.Context
	stream *openai.ChatCompletionStream
	failed bool
}

func (s *openaiStream) Recv() (string, error) {
	if s.failed {
		return "", io.EOF
	}

	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			// Cancellation surfaces as the context error, not EOF, so the
			// caller discards the partial reply instead of persisting it.
			if ctxErr := s.ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return "", err
			}
			s.failed = true
			return Categorize(err).Apology(), nil
		}

		if len(resp.Choices) > 0 {
			if delta := resp.Choices[0].Delta.Content; delta != "" {
				return delta, nil
			}
		}
	}
}

func (s *openaiStream) Close() error {
	return s.stream.Close()
}

func toOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		out[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return out
}

func modelOrDefault(model, fallback string) string {
	if model == "" {
		return fallback
	}
	return model
}

func tokensOrDefault(maxTokens int) int {
	if maxTokens == 0 {
		return 2000
	}
	return maxTokens
}
