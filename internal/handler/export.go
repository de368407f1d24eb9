package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-sessions/internal/model"
	"github.com/capitalize-ai/chat-sessions/internal/store"
	"github.com/capitalize-ai/chat-sessions/pkg/logger"
)

// ExportHandler handles chat export and import endpoints.
type ExportHandler struct {
	store  *store.Store
	logger *logger.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(st *store.Store, log *logger.Logger) *ExportHandler {
	return &ExportHandler{
		store:  st,
		logger: log,
	}
}

// Export handles GET /api/v1/chats/export
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	doc := h.store.Export()

	w.Header().Set("Content-Disposition", `attachment; filename="chat-export.json"`)
	writeJSON(w, http.StatusOK, doc)
}

// Import handles POST /api/v1/chats/import
func (h *ExportHandler) Import(w http.ResponseWriter, r *http.Request) {
	var doc model.ChatExport
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.store.Import(&doc)
	if err != nil {
		if errors.Is(err, store.ErrInvalidImport) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("import failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to import chats")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
