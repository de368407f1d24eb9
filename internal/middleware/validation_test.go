package middleware

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidateMessageContent(t *testing.T) {
	assert.NoError(t, ValidateMessageContent("hello"))
	assert.NoError(t, ValidateMessageContent("  padded but not empty  "))

	assert.Error(t, ValidateMessageContent(""))
	assert.Error(t, ValidateMessageContent("   "))
	assert.Error(t, ValidateMessageContent("\n\t"))
	assert.Error(t, ValidateMessageContent(strings.Repeat("a", 100001)))
	assert.Error(t, ValidateMessageContent("bad\xff\xfeutf8"))
}

func TestValidateConversationID(t *testing.T) {
	assert.NoError(t, ValidateConversationID(uuid.New().String()))
	assert.NoError(t, ValidateConversationID(uuid.Must(uuid.NewV7()).String()))

	assert.Error(t, ValidateConversationID(""))
	assert.Error(t, ValidateConversationID("not-a-uuid"))
	assert.Error(t, ValidateConversationID("../../etc/passwd"))
}

func TestValidateTitle(t *testing.T) {
	assert.NoError(t, ValidateTitle(""))
	assert.NoError(t, ValidateTitle("My Conversation"))

	assert.Error(t, ValidateTitle(strings.Repeat("a", 257)))
	assert.Error(t, ValidateTitle("bad\xff\xfeutf8"))
}

func TestValidateSystemPrompt(t *testing.T) {
	assert.NoError(t, ValidateSystemPrompt("You are helpful."))

	assert.Error(t, ValidateSystemPrompt(""))
	assert.Error(t, ValidateSystemPrompt("   "))
	assert.Error(t, ValidateSystemPrompt(strings.Repeat("a", 10001)))
}
