package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chat-sessions/internal/model"
	"github.com/capitalize-ai/chat-sessions/pkg/logger"
)

const testPrompt = "You are a test assistant."

func newTestStore(t *testing.T) (*Store, *MemoryBlob) {
	t.Helper()
	blob := NewMemoryBlob()
	return New(blob, testPrompt, logger.NewNop()), blob
}

func TestCreateSeedsSystemMessage(t *testing.T) {
	s, _ := newTestStore(t)

	conv := s.Create("", "")

	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, DefaultTitle, conv.Title)
	assert.Equal(t, testPrompt, conv.SystemPrompt)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, model.RoleSystem, conv.Messages[0].Role)
	assert.Equal(t, testPrompt, conv.Messages[0].Content)
}

func TestCreateWithExplicitValues(t *testing.T) {
	s, _ := newTestStore(t)

	conv := s.Create("Planning", "You plan trips.")

	assert.Equal(t, "Planning", conv.Title)
	assert.Equal(t, "You plan trips.", conv.SystemPrompt)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "You plan trips.", conv.Messages[0].Content)
}

func TestAppendPreservesOrder(t *testing.T) {
	s, _ := newTestStore(t)
	conv := s.Create("", "")

	_, err := s.Append(conv.ID, model.RoleUser, "first")
	require.NoError(t, err)
	_, err = s.Append(conv.ID, model.RoleAssistant, "second")
	require.NoError(t, err)
	_, err = s.Append(conv.ID, model.RoleUser, "third")
	require.NoError(t, err)

	got, err := s.Get(conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "first", got.Messages[1].Content)
	assert.Equal(t, "second", got.Messages[2].Content)
	assert.Equal(t, "third", got.Messages[3].Content)
}

func TestAppendUnknownConversation(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Append("missing", model.RoleUser, "hello")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendStampsTimestamp(t *testing.T) {
	s, _ := newTestStore(t)
	conv := s.Create("", "")

	msg, err := s.Append(conv.ID, model.RoleUser, "hello")
	require.NoError(t, err)
	assert.False(t, msg.CreatedAt.IsZero())

	got, err := s.Get(conv.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(msg.CreatedAt))
}

func TestFallbackTitleFromFirstUserMessage(t *testing.T) {
	s, _ := newTestStore(t)
	conv := s.Create("", "")

	_, err := s.Append(conv.ID, model.RoleUser, "help me plan a trip to Japan next spring")
	require.NoError(t, err)

	got, err := s.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "help me plan a trip...", got.Title)

	// A second user message must not change the title again.
	_, err = s.Append(conv.ID, model.RoleUser, "another message entirely different words here")
	require.NoError(t, err)

	got, err = s.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "help me plan a trip...", got.Title)
}

func TestFallbackTitleShortMessage(t *testing.T) {
	s, _ := newTestStore(t)
	conv := s.Create("", "")

	_, err := s.Append(conv.ID, model.RoleUser, "hi there")
	require.NoError(t, err)

	got, err := s.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi there", got.Title)
}

func TestGetReturnsCopy(t *testing.T) {
	s, _ := newTestStore(t)
	conv := s.Create("", "")

	got, err := s.Get(conv.ID)
	require.NoError(t, err)
	got.Title = "mutated"
	got.Messages[0].Content = "mutated"

	fresh, err := s.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, fresh.Title)
	assert.Equal(t, testPrompt, fresh.Messages[0].Content)
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(t)
	conv := s.Create("", "")

	assert.True(t, s.Delete(conv.ID))
	assert.False(t, s.Delete(conv.ID))

	_, err := s.Get(conv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAllSortedByUpdatedAt(t *testing.T) {
	s, _ := newTestStore(t)

	a := s.Create("a", "")
	b := s.Create("b", "")
	c := s.Create("c", "")

	// Touching a makes it the most recent.
	_, err := s.Append(a.ID, model.RoleUser, "hello")
	require.NoError(t, err)

	all := s.ListAll()
	require.Len(t, all, 3)
	assert.Equal(t, a.ID, all[0].ID)

	rest := []string{all[1].ID, all[2].ID}
	assert.Contains(t, rest, b.ID)
	assert.Contains(t, rest, c.ID)
}

func TestClearKeepsSystemMessage(t *testing.T) {
	s, _ := newTestStore(t)
	conv := s.Create("", "")

	_, err := s.Append(conv.ID, model.RoleUser, "hello")
	require.NoError(t, err)
	_, err = s.Append(conv.ID, model.RoleAssistant, "hi")
	require.NoError(t, err)

	require.NoError(t, s.Clear(conv.ID))

	got, err := s.Get(conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, model.RoleSystem, got.Messages[0].Role)
}

func TestUpdateTitle(t *testing.T) {
	s, _ := newTestStore(t)
	conv := s.Create("", "")

	require.NoError(t, s.UpdateTitle(conv.ID, "Renamed"))

	got, err := s.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)

	assert.ErrorIs(t, s.UpdateTitle("missing", "x"), ErrNotFound)
}

func TestUpdateSystemPromptRewritesInPlace(t *testing.T) {
	s, _ := newTestStore(t)
	conv := s.Create("", "")

	_, err := s.Append(conv.ID, model.RoleUser, "hello")
	require.NoError(t, err)

	require.NoError(t, s.UpdateSystemPrompt(conv.ID, "New prompt"))

	got, err := s.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "New prompt", got.SystemPrompt)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, model.RoleSystem, got.Messages[0].Role)
	assert.Equal(t, "New prompt", got.Messages[0].Content)
	assert.Equal(t, "hello", got.Messages[1].Content)
}

func TestUpdateSystemPromptInsertsWhenMissing(t *testing.T) {
	s, _ := newTestStore(t)
	conv := s.Create("", "")

	// Drop the system message to simulate imported history without one.
	s.mu.Lock()
	s.sessions[conv.ID].Messages = s.sessions[conv.ID].Messages[1:]
	s.mu.Unlock()

	require.NoError(t, s.UpdateSystemPrompt(conv.ID, "Inserted prompt"))

	got, err := s.Get(conv.ID)
	require.NoError(t, err)
	require.NotEmpty(t, got.Messages)
	assert.Equal(t, model.RoleSystem, got.Messages[0].Role)
	assert.Equal(t, "Inserted prompt", got.Messages[0].Content)
}

func TestPersistAndRehydrate(t *testing.T) {
	blob := NewMemoryBlob()
	s := New(blob, testPrompt, logger.NewNop())

	conv := s.Create("Round Trip", "custom prompt")
	_, err := s.Append(conv.ID, model.RoleUser, "hello")
	require.NoError(t, err)
	_, err = s.Append(conv.ID, model.RoleAssistant, "hi there")
	require.NoError(t, err)

	before, err := s.Get(conv.ID)
	require.NoError(t, err)

	// A fresh store over the same blob sees the identical conversation.
	reloaded := New(blob, testPrompt, logger.NewNop())
	after, err := reloaded.Get(conv.ID)
	require.NoError(t, err)

	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.Title, after.Title)
	assert.Equal(t, before.SystemPrompt, after.SystemPrompt)
	require.Len(t, after.Messages, len(before.Messages))
	for i := range before.Messages {
		assert.Equal(t, before.Messages[i].Role, after.Messages[i].Role)
		assert.Equal(t, before.Messages[i].Content, after.Messages[i].Content)
		assert.True(t, before.Messages[i].CreatedAt.Equal(after.Messages[i].CreatedAt))
	}
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))
}

func TestHydrateCorruptSnapshot(t *testing.T) {
	blob := NewMemoryBlob()
	require.NoError(t, blob.Save([]byte("{not json")))

	s := New(blob, testPrompt, logger.NewNop())
	assert.Empty(t, s.ListAll())
}

func TestHydrateMissingSnapshot(t *testing.T) {
	s := New(NewMemoryBlob(), testPrompt, logger.NewNop())
	assert.Empty(t, s.ListAll())
}

type failingBlob struct{}

func (failingBlob) Load() ([]byte, error)  { return nil, nil }
func (failingBlob) Save(data []byte) error { return assert.AnError }

func TestPersistFailureIsSwallowed(t *testing.T) {
	s := New(failingBlob{}, testPrompt, logger.NewNop())

	// Mutations succeed against memory even when every save fails.
	conv := s.Create("", "")
	_, err := s.Append(conv.ID, model.RoleUser, "hello")
	require.NoError(t, err)

	got, err := s.Get(conv.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)
}

func TestFileBlobRoundTrip(t *testing.T) {
	path := t.TempDir() + "/nested/snapshot.json"
	blob := NewFileBlob(path)

	data, err := blob.Load()
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, blob.Save([]byte(`{"k":"v"}`)))

	data, err = blob.Load()
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"k":"v"}`), data)
}
