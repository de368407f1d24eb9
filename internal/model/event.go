package model

import (
	"time"
)

// EventType represents the type of conversation state-change event.
type EventType string

const (
	EventTypeCreated         EventType = "created"
	EventTypeDeleted         EventType = "deleted"
	EventTypeCleared         EventType = "cleared"
	EventTypeMessageAppended EventType = "message_appended"
	EventTypeTitleUpdated    EventType = "title_updated"
	EventTypePromptUpdated   EventType = "prompt_updated"
	EventTypeError           EventType = "error"
)

// ConversationEvent is published whenever conversation state changes, so UI
// adapters can re-render without polling.
type ConversationEvent struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Type           EventType `json:"type"`
	Message        *Message  `json:"message,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
