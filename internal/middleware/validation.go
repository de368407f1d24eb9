package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateMessageContent validates message content. Whitespace-only content
// is rejected along with empty content.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("content cannot be empty")
	}
	if len(content) > 100000 { // ~100KB limit
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID validates a conversation ID.
func ValidateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid conversation ID format")
	}
	return nil
}

// ValidateTitle validates a conversation title.
func ValidateTitle(title string) error {
	if len(title) > 256 {
		return errors.New("title exceeds maximum length")
	}
	if !utf8.ValidString(title) {
		return errors.New("title must be valid UTF-8")
	}
	return nil
}

// ValidateSystemPrompt validates a system prompt.
func ValidateSystemPrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return errors.New("system prompt cannot be empty")
	}
	if len(prompt) > 10000 {
		return errors.New("system prompt exceeds maximum length")
	}
	if !utf8.ValidString(prompt) {
		return errors.New("system prompt must be valid UTF-8")
	}
	return nil
}
