package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chat-sessions/internal/model"
)

func storedChat(id, title string, updated time.Time, messages ...model.StoredMessage) model.StoredChat {
	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	return model.StoredChat{
		ID:          id,
		Title:       title,
		LastMessage: last,
		Timestamp:   updated,
		Messages:    messages,
	}
}

func TestExportDocument(t *testing.T) {
	s, _ := newTestStore(t)
	conv := s.Create("Exported", "")
	_, err := s.Append(conv.ID, model.RoleUser, "hello")
	require.NoError(t, err)

	doc := s.Export()

	assert.Equal(t, model.ExportVersion, doc.Version)
	assert.False(t, doc.ExportedAt.IsZero())
	require.Len(t, doc.Chats, 1)

	chat := doc.Chats[0]
	assert.Equal(t, conv.ID, chat.ID)
	assert.Equal(t, "hello", chat.LastMessage)
	require.Len(t, chat.Messages, 2)
	assert.Equal(t, model.RoleSystem, chat.Messages[0].Role)
	assert.Equal(t, model.RoleUser, chat.Messages[1].Role)
}

func TestImportRejectsEmptyDocument(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Import(nil)
	assert.ErrorIs(t, err, ErrInvalidImport)

	_, err = s.Import(&model.ChatExport{Version: model.ExportVersion})
	assert.ErrorIs(t, err, ErrInvalidImport)
}

func TestImportDropsInvalidEntries(t *testing.T) {
	s, _ := newTestStore(t)
	now := time.Now()

	resp, err := s.Import(&model.ChatExport{
		Version: model.ExportVersion,
		Chats: []model.StoredChat{
			storedChat("chat-1", "Valid", now, model.StoredMessage{Role: model.RoleUser, Content: "hi", Timestamp: now}),
			{ID: "", Title: "No ID", Messages: []model.StoredMessage{}},
			{ID: "chat-3", Title: "", Messages: []model.StoredMessage{}},
			{ID: "chat-4", Title: "No messages"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Imported)
	assert.Equal(t, 3, resp.Dropped)
	assert.Equal(t, 1, resp.Total)

	got, err := s.Get("chat-1")
	require.NoError(t, err)
	assert.Equal(t, "Valid", got.Title)
}

func TestImportAllInvalid(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Import(&model.ChatExport{
		Version: model.ExportVersion,
		Chats:   []model.StoredChat{{ID: "", Title: "", Messages: nil}},
	})
	assert.ErrorIs(t, err, ErrInvalidImport)
}

func TestImportCollisionPrefersImported(t *testing.T) {
	s, _ := newTestStore(t)
	conv := s.Create("Original", "")
	now := time.Now()

	resp, err := s.Import(&model.ChatExport{
		Version: model.ExportVersion,
		Chats: []model.StoredChat{
			storedChat(conv.ID, "Imported", now, model.StoredMessage{Role: model.RoleUser, Content: "replaced", Timestamp: now}),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Imported)
	assert.Equal(t, 1, resp.Total)

	got, err := s.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Imported", got.Title)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "replaced", got.Messages[0].Content)
}

func TestImportCapsAtMostRecent(t *testing.T) {
	s, _ := newTestStore(t)
	base := time.Now().Add(-time.Hour)

	chats := make([]model.StoredChat, 0, MaxStoredChats+10)
	for i := 0; i < MaxStoredChats+10; i++ {
		chats = append(chats, storedChat(
			// Later index, later timestamp.
			"chat-"+string(rune('a'+i/26))+string(rune('a'+i%26)),
			"Chat",
			base.Add(time.Duration(i)*time.Second),
			model.StoredMessage{Role: model.RoleUser, Content: "hi", Timestamp: base},
		))
	}

	resp, err := s.Import(&model.ChatExport{Version: model.ExportVersion, Chats: chats})
	require.NoError(t, err)

	assert.Equal(t, MaxStoredChats+10, resp.Imported)
	assert.Equal(t, MaxStoredChats, resp.Total)
	assert.Len(t, s.ListAll(), MaxStoredChats)

	// The 10 oldest did not survive the cap.
	for i := 0; i < 10; i++ {
		_, err := s.Get(chats[i].ID)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	// The newest did.
	_, err = s.Get(chats[len(chats)-1].ID)
	assert.NoError(t, err)
}

func TestImportRestoresSystemPrompt(t *testing.T) {
	s, _ := newTestStore(t)
	now := time.Now()

	_, err := s.Import(&model.ChatExport{
		Version: model.ExportVersion,
		Chats: []model.StoredChat{
			storedChat("chat-sys", "With prompt", now,
				model.StoredMessage{Role: model.RoleSystem, Content: "You are terse.", Timestamp: now.Add(-time.Minute)},
				model.StoredMessage{Role: model.RoleUser, Content: "hi", Timestamp: now},
			),
		},
	})
	require.NoError(t, err)

	got, err := s.Get("chat-sys")
	require.NoError(t, err)
	assert.Equal(t, "You are terse.", got.SystemPrompt)
}

func TestImportDropsUnknownRoles(t *testing.T) {
	s, _ := newTestStore(t)
	now := time.Now()

	_, err := s.Import(&model.ChatExport{
		Version: model.ExportVersion,
		Chats: []model.StoredChat{
			storedChat("chat-roles", "Roles", now,
				model.StoredMessage{Role: "tool", Content: "ignored", Timestamp: now},
				model.StoredMessage{Role: model.RoleUser, Content: "kept", Timestamp: now},
			),
		},
	})
	require.NoError(t, err)

	got, err := s.Get("chat-roles")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "kept", got.Messages[0].Content)
}

func TestExportImportRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	conv := s.Create("Round Trip", "custom prompt")
	_, err := s.Append(conv.ID, model.RoleUser, "hello")
	require.NoError(t, err)
	_, err = s.Append(conv.ID, model.RoleAssistant, "hi there")
	require.NoError(t, err)

	doc := s.Export()

	fresh, _ := newTestStore(t)
	resp, err := fresh.Import(doc)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Imported)

	got, err := fresh.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Messages[len(got.Messages)-2].Content)
	assert.Equal(t, "hi there", got.LastMessage())
	assert.Equal(t, "custom prompt", got.SystemPrompt)
}
