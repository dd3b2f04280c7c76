package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"rag-chatbot/internal/models"
	"rag-chatbot/internal/services"
)

// ChatHandler handles HTTP requests for chat operations
type ChatHandler struct {
	chatService *services.ChatService
	logger      *log.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *services.ChatService, logger *log.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// StartChat handles session initialization requests
func (h *ChatHandler) StartChat(w http.ResponseWriter, r *http.Request) {
	ownerID := userIDFromRequest(r)
	if ownerID == "" {
		h.sendError(w, http.StatusUnauthorized, "X-User-ID header is required")
		return
	}

	h.logger.Printf("Start chat request for user %s", ownerID)

	exists, err := h.chatService.HasSession(r.Context(), ownerID)
	if err != nil {
		h.logger.Printf("Failed to check session for user %s: %v", ownerID, err)
		h.sendError(w, http.StatusInternalServerError, "Failed to check existing session")
		return
	}
	if exists {
		h.sendError(w, http.StatusConflict, "Chat session already exists")
		return
	}

	msg, err := h.chatService.StartChat(r.Context(), ownerID)
	if err != nil {
		h.logger.Printf("Failed to start chat: %v", err)
		if strings.Contains(err.Error(), "user not found") {
			h.sendError(w, http.StatusNotFound, "User not found")
		} else if services.IsCompletionTimeout(err) {
			h.sendError(w, http.StatusGatewayTimeout, "Completion service timed out")
		} else {
			h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to start chat: %v", err))
		}
		return
	}

	h.sendJSON(w, http.StatusOK, msg.ToDTO())
}

// SendMessageRequest represents a chat turn request body
type SendMessageRequest struct {
	Message string `json:"message"`
}

// SendMessage handles one chat turn
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ownerID := userIDFromRequest(r)
	if ownerID == "" {
		h.sendError(w, http.StatusUnauthorized, "X-User-ID header is required")
		return
	}

	var reqBody SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(reqBody.Message) == "" {
		h.sendError(w, http.StatusBadRequest, "Message is required")
		return
	}

	msg, err := h.chatService.SendMessage(r.Context(), ownerID, reqBody.Message)
	if err != nil {
		h.logger.Printf("Chat turn failed for user %s: %v", ownerID, err)
		if services.IsCompletionTimeout(err) {
			h.sendError(w, http.StatusGatewayTimeout, "Completion service timed out")
		} else if strings.Contains(err.Error(), "invalid request") {
			h.sendError(w, http.StatusBadRequest, err.Error())
		} else {
			h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Chat turn failed: %v", err))
		}
		return
	}

	h.sendJSON(w, http.StatusOK, msg.ToDTO())
}

// ChatHistoryResponse represents the rendered conversation
type ChatHistoryResponse struct {
	Messages []models.ChatMessageDTO `json:"messages"`
	Count    int                     `json:"count"`
}

// GetHistory handles conversation history requests
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ownerID := userIDFromRequest(r)
	if ownerID == "" {
		h.sendError(w, http.StatusUnauthorized, "X-User-ID header is required")
		return
	}

	messages, err := h.chatService.History(r.Context(), ownerID)
	if err != nil {
		h.logger.Printf("Failed to load history for user %s: %v", ownerID, err)
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load history: %v", err))
		return
	}

	dtos := make([]models.ChatMessageDTO, len(messages))
	for i, msg := range messages {
		dtos[i] = msg.ToDTO()
	}

	h.sendJSON(w, http.StatusOK, ChatHistoryResponse{
		Messages: dtos,
		Count:    len(dtos),
	})
}

// RefreshContext handles system-prompt refresh requests
func (h *ChatHandler) RefreshContext(w http.ResponseWriter, r *http.Request) {
	ownerID := userIDFromRequest(r)
	if ownerID == "" {
		h.sendError(w, http.StatusUnauthorized, "X-User-ID header is required")
		return
	}

	if err := h.chatService.RefreshSystemContext(r.Context(), ownerID); err != nil {
		h.logger.Printf("Failed to refresh context for user %s: %v", ownerID, err)
		if strings.Contains(err.Error(), "not found") {
			h.sendError(w, http.StatusNotFound, "No active session for user")
		} else {
			h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to refresh context: %v", err))
		}
		return
	}

	h.sendJSON(w, http.StatusOK, SuccessResponse{
		Success: true,
		Message: "System context refreshed",
	})
}

// Helper methods

func (h *ChatHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *ChatHandler) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Status:  status,
	})
}
