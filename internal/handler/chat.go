package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/portfolio-api/internal/service"
)

// ChatAPI is what the chat handler needs from *service.ChatService.
type ChatAPI interface {
	Ask(ctx context.Context, req service.ChatRequest) (string, error)
}

type ChatHandler struct {
	chat   ChatAPI
	logger *slog.Logger
}

func NewChatHandler(chat ChatAPI, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// HandleChat answers one chat widget question.
//
// HTTP: POST /api/llm  {"query": "...", "history": [{"from": "bot", "text": "..."}]}
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req service.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	content, err := h.chat.Ask(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "content": content})
}
