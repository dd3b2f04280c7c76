package repositories

import (
	"context"

	"rag-chatbot/internal/models"
)

// UserRepository resolves user profiles for session personalization
type UserRepository interface {
	Get(ctx context.Context, userID string) (*models.UserProfile, error)
	Save(ctx context.Context, profile *models.UserProfile) error
}

// UserRepositoryError represents errors from the user repository
type UserRepositoryError struct {
	Operation string
	UserID    string
	Err       error
	Message   string
}

func (e *UserRepositoryError) Error() string {
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

func (e *UserRepositoryError) Unwrap() error {
	return e.Err
}

// NewUserRepositoryError creates a new user repository error
func NewUserRepositoryError(operation string, userID string, err error, message string) *UserRepositoryError {
	return &UserRepositoryError{
		Operation: operation,
		UserID:    userID,
		Err:       err,
		Message:   message,
	}
}

// UserNotFoundError indicates a lookup for an unknown user
func UserNotFoundError(userID string) error {
	return NewUserRepositoryError(
		"get_user",
		userID,
		nil,
		"user not found: "+userID,
	)
}
