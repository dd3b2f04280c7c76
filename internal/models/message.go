package models

import (
	"time"
)

// ChatRole identifies who produced a chat message
type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// Valid reports whether the role is one of the known roles
func (r ChatRole) Valid() bool {
	return r == RoleSystem || r == RoleUser || r == RoleAssistant
}

// ChatMessage represents a single persisted message in a user's conversation.
// The log is append-only; only the initializing system message may be updated
// in place when its retrieved context is refreshed.
type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks if the message is valid
func (m *ChatMessage) Validate() error {
	if m.ID == "" {
		return &ValidationError{Field: "id", Message: "message ID is required"}
	}
	if m.UserID == "" {
		return &ValidationError{Field: "user_id", Message: "user ID is required"}
	}
	if !m.Role.Valid() {
		return &ValidationError{Field: "role", Message: "role must be system, user or assistant"}
	}
	return nil
}

// ChatMessageDTO - API Request/Response (what clients see)
type ChatMessageDTO struct {
	ID        string `json:"message_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// ToDTO converts ChatMessage domain model to DTO
func (m *ChatMessage) ToDTO() ChatMessageDTO {
	return ChatMessageDTO{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
		UpdatedAt: m.UpdatedAt.Format(time.RFC3339),
	}
}

// UserProfile is the slice of the user record the chat session needs
type UserProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
