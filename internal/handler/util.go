package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/capitalize-ai/chat-sessions/internal/llm"
	"github.com/capitalize-ai/chat-sessions/internal/service"
	"github.com/capitalize-ai/chat-sessions/internal/store"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "conversation not found")
	default:
		var upstream *llm.UpstreamError
		if errors.As(err, &upstream) {
			writeError(w, upstreamStatus(upstream.Kind), upstream.Apology())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func upstreamStatus(kind llm.Kind) int {
	switch kind {
	case llm.KindAuth:
		return http.StatusBadGateway
	case llm.KindRateLimit:
		return http.StatusTooManyRequests
	case llm.KindQuota:
		return http.StatusPaymentRequired
	}
	return http.StatusBadGateway
}
