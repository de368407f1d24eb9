// Package store implements the session store: an in-memory conversation map
// hydrated once from a key-value blob and persisted back on every mutation.
package store

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-sessions/internal/model"
	"github.com/capitalize-ai/chat-sessions/pkg/logger"
	"github.com/capitalize-ai/chat-sessions/pkg/metrics"
)

// ErrNotFound is returned when a conversation id is unknown.
var ErrNotFound = errors.New("conversation not found")

// DefaultTitle is used for conversations without a derived or user-set title.
const DefaultTitle = "New Chat"

// Store owns conversation state. All reads are served from memory; every
// mutating operation synchronously persists the full snapshot. Persistence
// failures are logged and swallowed: the in-memory state stays authoritative
// for the rest of the session.
type Store struct {
	mu            sync.RWMutex
	sessions      map[string]*model.Conversation
	blob          BlobStore
	defaultPrompt string
	logger        *logger.Logger
}

// New creates a store and hydrates it from the blob snapshot. A missing or
// corrupt snapshot yields an empty store, never an error.
func New(blob BlobStore, defaultPrompt string, log *logger.Logger) *Store {
	s := &Store{
		sessions:      make(map[string]*model.Conversation),
		blob:          blob,
		defaultPrompt: defaultPrompt,
		logger:        log,
	}
	s.hydrate()
	return s
}

func (s *Store) hydrate() {
	data, err := s.blob.Load()
	if err != nil {
		s.logger.Warn("failed to load session snapshot, starting empty", zap.Error(err))
		return
	}
	if data == nil {
		return
	}

	var sessions map[string]*model.Conversation
	if err := json.Unmarshal(data, &sessions); err != nil {
		s.logger.Warn("corrupt session snapshot, starting empty", zap.Error(err))
		return
	}
	if sessions != nil {
		s.sessions = sessions
	}
}

// persistLocked serializes the snapshot to the blob store. Callers must hold
// the write lock. Failures are logged and swallowed per the persistence
// policy: data loss on reload is accepted, not escalated.
func (s *Store) persistLocked() {
	data, err := json.Marshal(s.sessions)
	if err != nil {
		s.logger.Error("failed to marshal session snapshot", zap.Error(err))
		metrics.StorePersistFailures.Inc()
		return
	}
	if err := s.blob.Save(data); err != nil {
		s.logger.Error("failed to persist session snapshot", zap.Error(err))
		metrics.StorePersistFailures.Inc()
	}
}

// Create creates a new conversation seeded with a system message. Empty title
// and systemPrompt fall back to the configured defaults.
func (s *Store) Create(title, systemPrompt string) *model.Conversation {
	if title == "" {
		title = DefaultTitle
	}
	if systemPrompt == "" {
		systemPrompt = s.defaultPrompt
	}

	now := time.Now()
	conv := &model.Conversation{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Title:        title,
		SystemPrompt: systemPrompt,
		Messages: []model.Message{{
			Role:      model.RoleSystem,
			Content:   systemPrompt,
			CreatedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[conv.ID] = conv
	s.persistLocked()
	s.mu.Unlock()

	metrics.ConversationsTotal.Inc()

	return copyConversation(conv)
}

// Get retrieves a conversation by ID.
func (s *Store) Get(id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, exists := s.sessions[id]
	if !exists {
		return nil, ErrNotFound
	}
	return copyConversation(conv), nil
}

// Append stamps the current time onto a message and appends it. The first
// user-role message derives a fallback title from its first six words.
func (s *Store) Append(id string, role model.Role, content string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, exists := s.sessions[id]
	if !exists {
		return nil, ErrNotFound
	}

	now := time.Now()
	msg := model.Message{
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}

	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = now

	if role == model.RoleUser && conv.CountRole(model.RoleUser) == 1 {
		conv.Title = fallbackTitle(content)
	}

	s.persistLocked()

	metrics.MessagesTotal.WithLabelValues(string(role)).Inc()

	return &msg, nil
}

// Delete removes a conversation from memory and the snapshot, reporting
// whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return false
	}
	delete(s.sessions, id)
	s.persistLocked()
	return true
}

// ListAll returns all conversations sorted by updatedAt descending.
func (s *Store) ListAll() []model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Conversation, 0, len(s.sessions))
	for _, conv := range s.sessions {
		out = append(out, *copyConversation(conv))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	return out
}

// Clear removes all non-system messages, keeping the system message, and
// resets updatedAt.
func (s *Store) Clear(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, exists := s.sessions[id]
	if !exists {
		return ErrNotFound
	}

	kept := conv.Messages[:0:0]
	for _, m := range conv.Messages {
		if m.Role == model.RoleSystem {
			kept = append(kept, m)
		}
	}
	conv.Messages = kept
	conv.UpdatedAt = time.Now()

	s.persistLocked()
	return nil
}

// UpdateTitle replaces the conversation title.
func (s *Store) UpdateTitle(id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, exists := s.sessions[id]
	if !exists {
		return ErrNotFound
	}

	conv.Title = title
	conv.UpdatedAt = time.Now()

	s.persistLocked()
	return nil
}

// UpdateSystemPrompt replaces the stored system prompt and upserts the system
// message at position 0: rewritten in place when present, inserted otherwise.
func (s *Store) UpdateSystemPrompt(id, prompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, exists := s.sessions[id]
	if !exists {
		return ErrNotFound
	}

	now := time.Now()
	conv.SystemPrompt = prompt

	if len(conv.Messages) > 0 && conv.Messages[0].Role == model.RoleSystem {
		conv.Messages[0].Content = prompt
		conv.Messages[0].CreatedAt = now
	} else {
		conv.Messages = append([]model.Message{{
			Role:      model.RoleSystem,
			Content:   prompt,
			CreatedAt: now,
		}}, conv.Messages...)
	}
	conv.UpdatedAt = now

	s.persistLocked()
	return nil
}

// fallbackTitle derives a title from the first six words of a message.
func fallbackTitle(content string) string {
	words := strings.Fields(strings.TrimSpace(content))
	if len(words) == 0 {
		return DefaultTitle
	}

	n := len(words)
	if n > 6 {
		n = 6
	}
	title := strings.Join(words[:n], " ")
	if len(words) > 6 {
		title += "..."
	}
	return title
}

func copyConversation(conv *model.Conversation) *model.Conversation {
	out := *conv
	out.Messages = make([]model.Message, len(conv.Messages))
	copy(out.Messages, conv.Messages)
	return &out
}
