package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-sessions/internal/middleware"
	"github.com/capitalize-ai/chat-sessions/internal/model"
	"github.com/capitalize-ai/chat-sessions/internal/service"
	"github.com/capitalize-ai/chat-sessions/internal/store"
	"github.com/capitalize-ai/chat-sessions/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	manager *service.Manager
	store   *store.Store
	logger  *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(manager *service.Manager, st *store.Store, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		manager: manager,
		store:   st,
		logger:  log,
	}
}

// List handles GET /api/v1/conversations/:id/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.store.Get(conversationID)
	if err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	writeJSON(w, http.StatusOK, &model.ListMessagesResponse{
		Messages: conv.Messages,
		Total:    len(conv.Messages),
	})
}

// Send handles POST /api/v1/conversations/:id/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	assistantMsg, err := h.manager.SendMessage(ctx, conversationID, req.Content)
	if err != nil {
		h.logger.Warn("send message failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, &model.SendMessageResponse{
		Message: assistantMsg,
	})
}
