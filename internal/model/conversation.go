// Package model defines data structures for the chat session service.
package model

import (
	"time"
)

// Conversation is a persisted sequence of chat messages under one identifier.
// If a system message exists it is always at position 0 and reflects the
// current SystemPrompt.
type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	SystemPrompt string    `json:"system_prompt"`
	Messages     []Message `json:"messages"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LastMessage returns the content of the most recent message, or "".
func (c *Conversation) LastMessage() string {
	if len(c.Messages) == 0 {
		return ""
	}
	return c.Messages[len(c.Messages)-1].Content
}

// CountRole returns the number of messages with the given role.
func (c *Conversation) CountRole(role Role) int {
	n := 0
	for _, m := range c.Messages {
		if m.Role == role {
			n++
		}
	}
	return n
}

// CreateConversationRequest is the request to create a new conversation.
type CreateConversationRequest struct {
	Title        string `json:"title,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// UpdateConversationRequest is the request to update a conversation.
type UpdateConversationRequest struct {
	Title string `json:"title"`
}

// UpdateSystemPromptRequest is the request to replace a system prompt.
type UpdateSystemPromptRequest struct {
	SystemPrompt string `json:"system_prompt"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
}
