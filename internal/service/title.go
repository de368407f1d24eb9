package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-sessions/internal/llm"
	"github.com/capitalize-ai/chat-sessions/internal/model"
)

const titlePrompt = "Summarize the following exchange in 5-10 words to use as a conversation title. Respond with only the title, no quotes or punctuation around it."

// maybeTitle requests a short summary title after the first user+assistant
// exchange. Best-effort: any failure keeps the existing title.
func (m *Manager) maybeTitle(ctx context.Context, id string) {
	conv, err := m.store.Get(id)
	if err != nil {
		return
	}
	if conv.CountRole(model.RoleUser) != 1 || conv.CountRole(model.RoleAssistant) != 1 {
		return
	}

	messages := []llm.ChatMessage{{Role: string(model.RoleSystem), Content: titlePrompt}}
	for _, msg := range conv.Messages {
		if msg.Role == model.RoleSystem {
			continue
		}
		messages = append(messages, llm.ChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	resp, err := m.client.Complete(ctx, &llm.CompletionRequest{
		Model:       m.opts.Model,
		Messages:    messages,
		MaxTokens:   24,
		Temperature: 0.3,
	})
	if err != nil {
		m.logger.Debug("title summarization failed", zap.String("conversation_id", id), zap.Error(err))
		return
	}

	title := strings.Trim(strings.TrimSpace(resp.Content), `"`)
	if title == "" || title == llm.ApologyEmptyResponse {
		return
	}
	if len(title) > 80 {
		title = title[:80]
	}

	if err := m.store.UpdateTitle(id, title); err != nil {
		return
	}
	m.publish(id, model.EventTypeTitleUpdated, nil, "")
}
