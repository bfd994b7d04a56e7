package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Rrens/invitation-agent/internal/api/middleware"
	"github.com/Rrens/invitation-agent/internal/api/response"
	"github.com/Rrens/invitation-agent/internal/domain"
	"github.com/Rrens/invitation-agent/internal/service"
)

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Chat sends one message to the assistant
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.GetUsername(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	if !h.chatService.Ready() {
		writeError(w, service.ErrServiceUnavailable)
		return
	}

	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		response.BadRequest(w, "Message cannot be empty")
		return
	}

	resp, err := h.chatService.Chat(r.Context(), username, req)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, resp)
}
