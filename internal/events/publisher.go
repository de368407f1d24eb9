// Package events publishes conversation state changes so UI adapters can
// subscribe without polling.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/capitalize-ai/chat-sessions/internal/model"
	"github.com/capitalize-ai/chat-sessions/pkg/metrics"
)

// SubjectPrefix is the prefix for all conversation event subjects.
const SubjectPrefix = "chat.conversation"

// Publisher delivers conversation events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event *model.ConversationEvent) error
	Close()
}

// Subject returns the subject for a conversation event.
func Subject(conversationID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, conversationID, eventType)
}

// Nop is a Publisher that discards events. Used when no event feed is
// configured.
type Nop struct{}

// Publish discards the event.
func (Nop) Publish(ctx context.Context, event *model.ConversationEvent) error {
	return nil
}

// Close is a no-op.
func (Nop) Close() {}

func marshalEvent(event *model.ConversationEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

func recordPublished(eventType model.EventType) {
	metrics.EventsPublished.WithLabelValues(string(eventType)).Inc()
}
