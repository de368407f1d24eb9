// Package service provides business logic for the chat session service.
package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-sessions/internal/events"
	"github.com/capitalize-ai/chat-sessions/internal/llm"
	"github.com/capitalize-ai/chat-sessions/internal/model"
	"github.com/capitalize-ai/chat-sessions/internal/store"
	"github.com/capitalize-ai/chat-sessions/pkg/logger"
	"github.com/capitalize-ai/chat-sessions/pkg/metrics"
)

// ErrEmptyMessage is returned when a message is empty or whitespace-only.
var ErrEmptyMessage = errors.New("message cannot be empty")

// ErrNoProvider is returned when no LLM provider is configured.
var ErrNoProvider = &llm.UpstreamError{Kind: llm.KindAuth, Err: errors.New("no LLM provider configured")}

// FragmentFunc is called for each fragment during streaming, in arrival order.
type FragmentFunc func(fragment string, index int) error

// Options configures the manager's completion requests.
type Options struct {
	Model         string
	MaxTokens     int
	Temperature   float64
	HistoryWindow int
}

// Manager composes the session store and the completion client. It owns
// message orchestration: validation, history windowing, streaming, title
// derivation, and per-conversation cancellation.
type Manager struct {
	store     *store.Store
	client    llm.Client
	publisher events.Publisher
	logger    *logger.Logger
	opts      Options

	mu       sync.Mutex
	inflight map[string]*inflightRequest
}

type inflightRequest struct {
	cancel context.CancelFunc
}

// NewManager creates a new conversation manager. The client may be nil when
// no provider is configured; send operations then fail with ErrNoProvider.
func NewManager(st *store.Store, client llm.Client, publisher events.Publisher, log *logger.Logger, opts Options) *Manager {
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = 20
	}
	return &Manager{
		store:     st,
		client:    client,
		publisher: publisher,
		logger:    log,
		opts:      opts,
		inflight:  make(map[string]*inflightRequest),
	}
}

// Create creates a conversation and publishes a created event.
func (m *Manager) Create(title, systemPrompt string) *model.Conversation {
	conv := m.store.Create(title, systemPrompt)
	m.publish(conv.ID, model.EventTypeCreated, nil, "")
	return conv
}

// Delete removes a conversation, reporting whether it existed.
func (m *Manager) Delete(id string) bool {
	existed := m.store.Delete(id)
	if existed {
		m.publish(id, model.EventTypeDeleted, nil, "")
	}
	return existed
}

// Clear drops all non-system messages from a conversation.
func (m *Manager) Clear(id string) error {
	if err := m.store.Clear(id); err != nil {
		return err
	}
	m.publish(id, model.EventTypeCleared, nil, "")
	return nil
}

// UpdateSystemPrompt replaces the system prompt, upserting the system message
// at position 0.
func (m *Manager) UpdateSystemPrompt(id, prompt string) error {
	if err := m.store.UpdateSystemPrompt(id, prompt); err != nil {
		return err
	}
	m.publish(id, model.EventTypePromptUpdated, nil, "")
	return nil
}

// SendMessage appends the user message, requests a non-streaming completion,
// and appends the assistant response. On upstream failure the typed error
// propagates and no assistant message is appended.
func (m *Manager) SendMessage(ctx context.Context, id, text string) (*model.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if _, err := m.store.Get(id); err != nil {
		return nil, err
	}
	if m.client == nil {
		return nil, ErrNoProvider
	}

	ctx, done := m.begin(ctx, id)
	defer done()

	userMsg, err := m.store.Append(id, model.RoleUser, text)
	if err != nil {
		return nil, err
	}
	m.publish(id, model.EventTypeMessageAppended, userMsg, "")

	conv, err := m.store.Get(id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := m.client.Complete(ctx, m.buildRequest(conv))
	if err != nil {
		m.publish(id, model.EventTypeError, nil, err.Error())
		metrics.RecordLLMRequest(m.opts.Model, "error", time.Since(start).Seconds(), 0, 0)
		return nil, err
	}
	metrics.RecordLLMRequest(resp.Model, "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)

	assistantMsg, err := m.store.Append(id, model.RoleAssistant, resp.Content)
	if err != nil {
		return nil, err
	}
	m.publish(id, model.EventTypeMessageAppended, assistantMsg, "")

	m.maybeTitle(ctx, id)

	return assistantMsg, nil
}

// StreamMessage appends the user message and streams the completion, invoking
// onFragment for each fragment in arrival order. On exhaustion the
// concatenated text is appended as one assistant message; a stream with zero
// fragments appends nothing and returns a nil message.
func (m *Manager) StreamMessage(ctx context.Context, id, text string, onFragment FragmentFunc) (*model.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if _, err := m.store.Get(id); err != nil {
		return nil, err
	}
	if m.client == nil {
		return nil, ErrNoProvider
	}

	ctx, done := m.begin(ctx, id)
	defer done()

	userMsg, err := m.store.Append(id, model.RoleUser, text)
	if err != nil {
		return nil, err
	}
	m.publish(id, model.EventTypeMessageAppended, userMsg, "")

	conv, err := m.store.Get(id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	req := m.buildRequest(conv)
	stream, err := m.client.Stream(ctx, req)
	if err != nil {
		m.publish(id, model.EventTypeError, nil, err.Error())
		return nil, err
	}
	defer stream.Close()

	var full strings.Builder
	index := 0
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A cancelled request is not an upstream failure.
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				m.publish(id, model.EventTypeError, nil, err.Error())
			}
			return nil, err
		}

		full.WriteString(fragment)
		if err := onFragment(fragment, index); err != nil {
			return nil, err
		}
		index++
	}

	if full.Len() == 0 {
		return nil, nil
	}

	content := full.String()
	// Token counts are not reported on the streaming path; estimate from the
	// windowed payload actually sent.
	metrics.RecordLLMRequest(m.opts.Model, "success", time.Since(start).Seconds(), promptChars(req)/4, len(content)/4)

	assistantMsg, err := m.store.Append(id, model.RoleAssistant, content)
	if err != nil {
		return nil, err
	}
	m.publish(id, model.EventTypeMessageAppended, assistantMsg, "")

	m.maybeTitle(ctx, id)

	return assistantMsg, nil
}

// begin registers a new in-flight request for the conversation, cooperatively
// cancelling any previous one. The returned done func unregisters and
// releases the request.
func (m *Manager) begin(ctx context.Context, id string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	req := &inflightRequest{cancel: cancel}

	m.mu.Lock()
	if prev, ok := m.inflight[id]; ok {
		prev.cancel()
	}
	m.inflight[id] = req
	m.mu.Unlock()

	return ctx, func() {
		m.mu.Lock()
		if m.inflight[id] == req {
			delete(m.inflight, id)
		}
		m.mu.Unlock()
		cancel()
	}
}

// buildRequest converts the conversation to the outbound completion payload,
// truncated to the system message plus the most recent HistoryWindow
// messages. Persisted history is never truncated.
func (m *Manager) buildRequest(conv *model.Conversation) *llm.CompletionRequest {
	windowed := windowMessages(conv.Messages, m.opts.HistoryWindow)

	messages := make([]llm.ChatMessage, len(windowed))
	for i, msg := range windowed {
		messages[i] = llm.ChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}

	return &llm.CompletionRequest{
		Model:       m.opts.Model,
		Messages:    messages,
		MaxTokens:   m.opts.MaxTokens,
		Temperature: m.opts.Temperature,
	}
}

// windowMessages keeps the leading system message plus the most recent
// window-sized tail.
func windowMessages(messages []model.Message, window int) []model.Message {
	var system []model.Message
	rest := messages
	if len(messages) > 0 && messages[0].Role == model.RoleSystem {
		system = messages[:1]
		rest = messages[1:]
	}

	if window > 0 && len(rest) > window {
		rest = rest[len(rest)-window:]
	}

	out := make([]model.Message, 0, len(system)+len(rest))
	out = append(out, system...)
	out = append(out, rest...)
	return out
}

func (m *Manager) publish(conversationID string, eventType model.EventType, msg *model.Message, reason string) {
	event := &model.ConversationEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Type:           eventType,
		Message:        msg,
		Reason:         reason,
		CreatedAt:      time.Now(),
	}
	if err := m.publisher.Publish(context.Background(), event); err != nil {
		m.logger.Warn("failed to publish conversation event",
			zap.String("conversation_id", conversationID),
			zap.String("type", string(eventType)),
			zap.Error(err),
		)
	}
}

func promptChars(req *llm.CompletionRequest) int {
	n := 0
	for _, msg := range req.Messages {
		n += len(msg.Content)
	}
	return n
}
