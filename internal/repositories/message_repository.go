package repositories

import (
	"context"

	"rag-chatbot/internal/models"
)

// MessageRepository defines the interface for the per-user conversation log.
// The log is append-only: messages are never removed or reordered, and only
// the session's system message may be rewritten in place.
type MessageRepository interface {
	Append(ctx context.Context, msg *models.ChatMessage) error
	History(ctx context.Context, userID string) ([]*models.ChatMessage, error)
	LatestSystemMessage(ctx context.Context, userID string) (*models.ChatMessage, error)
	UpdateMessage(ctx context.Context, msg *models.ChatMessage) error
	HasHistory(ctx context.Context, userID string) (bool, error)
	Ping(ctx context.Context) error
}

// MessageRepositoryError represents errors from the message repository
type MessageRepositoryError struct {
	Operation string
	UserID    string
	Err       error
	Message   string
}

func (e *MessageRepositoryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	prefix := e.Operation
	if e.UserID != "" {
		prefix += " (user: " + e.UserID + ")"
	}
	if e.Err != nil {
		return prefix + ": " + e.Err.Error()
	}
	return prefix + ": unknown error"
}

func (e *MessageRepositoryError) Unwrap() error {
	return e.Err
}

// NewMessageRepositoryError creates a new message repository error
func NewMessageRepositoryError(operation string, userID string, err error, message string) *MessageRepositoryError {
	return &MessageRepositoryError{
		Operation: operation,
		UserID:    userID,
		Err:       err,
		Message:   message,
	}
}

// MessageNotFoundError indicates a lookup for a message that is not in the log
func MessageNotFoundError(userID string) error {
	return NewMessageRepositoryError(
		"get_message",
		userID,
		nil,
		"message not found for user: "+userID,
	)
}
