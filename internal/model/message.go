package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single conversation message. Messages are immutable once
// appended; ordering is append order.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SendMessageRequest is the request to send a new message.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessageResponse is the response after a non-streaming send.
type SendMessageResponse struct {
	Message *Message `json:"message"`
}

// ListMessagesResponse is the response for listing messages.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
}

// TokenEvent is a streaming fragment event.
type TokenEvent struct {
	Token string `json:"token"`
	Index int    `json:"index"`
}

// MessageCompleteEvent signals the end of a streamed assistant message.
type MessageCompleteEvent struct {
	Message Message `json:"message"`
}

// ErrorEvent is an error delivered over SSE.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HeartbeatEvent keeps idle SSE connections alive.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}
