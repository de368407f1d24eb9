package store

import (
	"errors"
	"sort"
	"time"

	"github.com/capitalize-ai/chat-sessions/internal/model"
)

// MaxStoredChats caps how many chats survive an import merge.
const MaxStoredChats = 50

// ErrInvalidImport is returned when an import document has no usable chats.
var ErrInvalidImport = errors.New("no valid chats found in import data")

// Export produces the export document for all stored conversations, most
// recently updated first.
func (s *Store) Export() *model.ChatExport {
	convs := s.ListAll()

	chats := make([]model.StoredChat, 0, len(convs))
	for i := range convs {
		chats = append(chats, toStoredChat(&convs[i]))
	}

	return &model.ChatExport{
		ExportedAt: time.Now(),
		Version:    model.ExportVersion,
		Chats:      chats,
	}
}

// Import merges an export document into the store. Entries missing an id,
// title, or message array are dropped; on id collision the imported copy
// wins; the merged result is capped at the most recent MaxStoredChats
// entries, which replace the in-memory map and are persisted.
func (s *Store) Import(doc *model.ChatExport) (*model.ImportResponse, error) {
	if doc == nil || doc.Chats == nil {
		return nil, ErrInvalidImport
	}

	var valid []model.StoredChat
	for _, chat := range doc.Chats {
		if chat.ID == "" || chat.Title == "" || chat.Messages == nil {
			continue
		}
		valid = append(valid, chat)
	}
	if len(valid) == 0 {
		return nil, ErrInvalidImport
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make(map[string]*model.Conversation, len(s.sessions)+len(valid))
	for id, conv := range s.sessions {
		merged[id] = conv
	}
	for i := range valid {
		merged[valid[i].ID] = fromStoredChat(&valid[i])
	}

	// Cap at the most recently updated entries.
	if len(merged) > MaxStoredChats {
		all := make([]*model.Conversation, 0, len(merged))
		for _, conv := range merged {
			all = append(all, conv)
		}
		sort.Slice(all, func(i, j int) bool {
			if !all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
				return all[i].UpdatedAt.After(all[j].UpdatedAt)
			}
			return all[i].ID > all[j].ID
		})
		merged = make(map[string]*model.Conversation, MaxStoredChats)
		for _, conv := range all[:MaxStoredChats] {
			merged[conv.ID] = conv
		}
	}

	s.sessions = merged
	s.persistLocked()

	return &model.ImportResponse{
		Imported: len(valid),
		Dropped:  len(doc.Chats) - len(valid),
		Total:    len(merged),
	}, nil
}

func toStoredChat(conv *model.Conversation) model.StoredChat {
	messages := make([]model.StoredMessage, len(conv.Messages))
	for i, m := range conv.Messages {
		messages[i] = model.StoredMessage{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.CreatedAt,
		}
	}

	return model.StoredChat{
		ID:          conv.ID,
		Title:       conv.Title,
		LastMessage: conv.LastMessage(),
		Timestamp:   conv.UpdatedAt,
		Messages:    messages,
	}
}

func fromStoredChat(chat *model.StoredChat) *model.Conversation {
	conv := &model.Conversation{
		ID:        chat.ID,
		Title:     chat.Title,
		Messages:  make([]model.Message, 0, len(chat.Messages)),
		CreatedAt: chat.Timestamp,
		UpdatedAt: chat.Timestamp,
	}

	for _, m := range chat.Messages {
		role := m.Role
		if !role.Valid() {
			continue
		}
		conv.Messages = append(conv.Messages, model.Message{
			Role:      role,
			Content:   m.Content,
			CreatedAt: m.Timestamp,
		})
	}

	if len(conv.Messages) > 0 {
		if first := conv.Messages[0]; first.Role == model.RoleSystem {
			conv.SystemPrompt = first.Content
		}
		if created := conv.Messages[0].CreatedAt; !created.IsZero() && created.Before(conv.CreatedAt) {
			conv.CreatedAt = created
		}
	}

	return conv
}
