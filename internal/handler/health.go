package handler

import (
	"net/http"

	"github.com/capitalize-ai/chat-sessions/internal/events"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	nats *events.NATSPublisher
}

// NewHealthHandler creates a new health handler. The NATS publisher may be
// nil when the event feed is disabled.
func NewHealthHandler(nats *events.NATSPublisher) *HealthHandler {
	return &HealthHandler{
		nats: nats,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.nats != nil && !h.nats.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
