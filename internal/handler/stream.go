package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-sessions/internal/middleware"
	"github.com/capitalize-ai/chat-sessions/internal/model"
	"github.com/capitalize-ai/chat-sessions/internal/service"
	"github.com/capitalize-ai/chat-sessions/internal/store"
	"github.com/capitalize-ai/chat-sessions/pkg/logger"
	"github.com/capitalize-ai/chat-sessions/pkg/metrics"
)

// StreamHandler handles SSE streaming endpoints.
type StreamHandler struct {
	manager *service.Manager
	store   *store.Store
	logger  *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(manager *service.Manager, st *store.Store, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		manager: manager,
		store:   st,
		logger:  log,
	}
}

// ReplayCompleteEvent signals the end of message replay.
type ReplayCompleteEvent struct {
	MessageCount int `json:"message_count"`
}

// Stream handles GET /api/v1/conversations/:id/stream
// Replays stored messages, then keeps the connection alive with heartbeats.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
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

	flusher, ok := setSSEHeaders(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	sendSSEEvent(w, flusher, "connected", map[string]string{
		"conversation_id": conversationID,
	})

	done := ctx.Done()

	for _, msg := range conv.Messages {
		select {
		case <-done:
			return
		default:
		}
		sendSSEEvent(w, flusher, "message", msg)
	}

	sendSSEEvent(w, flusher, "replay_complete", &ReplayCompleteEvent{
		MessageCount: len(conv.Messages),
	})

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-done:
			h.logger.Info("SSE client disconnected", zap.String("conversation_id", conversationID))
			return

		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", &model.HeartbeatEvent{
				Timestamp: time.Now(),
			})
		}
	}
}

// StreamWithMessage handles POST /api/v1/conversations/:id/stream
// Accepts a message and streams the assistant response as token events.
// Upstream failures arrive as a single apology token, never as a broken
// stream, so the UI needs no separate error path mid-stream.
func (h *StreamHandler) StreamWithMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.store.Get(conversationID); err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
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

	flusher, ok := setSSEHeaders(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	assistantMsg, err := h.manager.StreamMessage(ctx, conversationID, req.Content,
		func(fragment string, index int) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			return sendSSEEvent(w, flusher, "token", &model.TokenEvent{
				Token: fragment,
				Index: index,
			})
		},
	)
	if err != nil {
		sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
			Code:    "stream_error",
			Message: err.Error(),
		})
		return
	}

	if assistantMsg != nil {
		sendSSEEvent(w, flusher, "message_complete", &model.MessageCompleteEvent{
			Message: *assistantMsg,
		})
	}

	sendSSEEvent(w, flusher, "done", map[string]bool{"success": true})
}

func setSSEHeaders(w http.ResponseWriter) (http.Flusher, bool) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	return flusher, ok
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()

	return nil
}
