package llm

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
)

// AnthropicClient is the Anthropic LLM client.
type AnthropicClient struct {
	client *anthropic.Client
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}

	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Models returns available models.
func (c *AnthropicClient) Models() []string {
	return []string{
		"claude-3-5-sonnet-20241022",
		"claude-3-5-haiku-20241022",
		"claude-3-opus-20240229",
		"claude-3-haiku-20240307",
	}
}

// Complete sends a non-streaming completion request.
func (c *AnthropicClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	resp, err := c.client.Messages.New(ctx, c.params(req))
	if err != nil {
		return nil, Categorize(err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			content += block.Text
		}
	}
	if content == "" {
		content = ApologyEmptyResponse
	}

	return &CompletionResponse{
		Content:    content,
		Model:      resp.Model,
		TokensIn:   int(resp.Usage.InputTokens),
		TokensOut:  int(resp.Usage.OutputTokens),
		StopReason: string(resp.StopReason),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// Stream sends a streaming completion request.
func (c *AnthropicClient) Stream(ctx context.Context, req *CompletionRequest) (Stream, error) {
	return &anthropicStream{
		ctx:    ctx,
		stream: c.client.Messages.NewStreaming(ctx, c.params(req)),
	}, nil
}

// params builds request parameters. Anthropic takes the system prompt as a
// dedicated field rather than a message, so system-role messages are split out.
func (c *AnthropicClient) params(req *CompletionRequest) anthropic.MessageNewParams {
	var system string
	var messages []anthropic.MessageParam

	for _, msg := range req.Messages {
		if msg.Role == "system" {
			system = msg.Content
			continue
		}
		messages = append(messages, anthropic.MessageParam{
			Role: anthropic.F(anthropic.MessageParamRole(msg.Role)),
			Content: anthropic.F([]anthropic.ContentBlockParamUnion{
				anthropic.TextBlockParam{
					Type: anthropic.F(anthropic.TextBlockParamTypeText),
					Text: anthropic.F(msg.Content),
				},
			}),
		})
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.F(modelOrDefault(req.Model, "claude-3-5-sonnet-20241022")),
		MaxTokens:   anthropic.F(int64(tokensOrDefault(req.MaxTokens))),
		Temperature: anthropic.F(req.Temperature),
		Messages:    anthropic.F(messages),
	}
	if system != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{{
			Type: anthropic.F(anthropic.TextBlockParamTypeText),
			Text: anthropic.F(system),
		}})
	}
	return params
}

type anthropicStream struct {
	ctx    context.Context
	stream *ssestream.Stream[anthropic.MessageStreamEvent]
	failed bool
}

func (s *anthropicStream) Recv() (string, error) {
	if s.failed {
		return "", io.EOF
	}

	for s.stream.Next() {
		event := s.stream.Current()
		if event.Type == anthropic.MessageStreamEventTypeContentBlockDelta {
			if delta, ok := event.Delta.(anthropic.ContentBlockDeltaEventDelta); ok &&
				delta.Type == "text_delta" && delta.Text != "" {
				return delta.Text, nil
			}
		}
	}

	if err := s.stream.Err(); err != nil {
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

	return "", io.EOF
}

func (s *anthropicStream) Close() error {
	return s.stream.Close()
}

// anthropicStatus extracts the HTTP status from an Anthropic SDK error.
func anthropicStatus(err error) (int, bool) {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	return 0, false
}
