package repositories

import (
	"context"

	"rag-chatbot/internal/models"
)

// DocumentRepository defines the interface for document registry operations
// This abstracts Redis operations for document metadata storage
type DocumentRepository interface {
	// Registry Operations
	Register(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, documentID string) (*models.Document, error)
	Delete(ctx context.Context, documentID string) error
	Update(ctx context.Context, documentID string, updates map[string]interface{}) error
	Exists(ctx context.Context, documentID string) (bool, error)

	// Query Operations
	List(ctx context.Context) ([]*models.Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Document, error)
	ListByStatus(ctx context.Context, status models.DocumentStatus) ([]*models.Document, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)

	// Health
	Ping(ctx context.Context) error
}

// DocumentRepositoryError represents errors from the document repository
type DocumentRepositoryError struct {
	Operation  string
	DocumentID string
	Err        error
	Message    string
}

func (e *DocumentRepositoryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	prefix := e.Operation
	if e.DocumentID != "" {
		prefix += " (doc: " + e.DocumentID + ")"
	}
	if e.Err != nil {
		return prefix + ": " + e.Err.Error()
	}
	return prefix + ": unknown error"
}

func (e *DocumentRepositoryError) Unwrap() error {
	return e.Err
}

// NewDocumentRepositoryError creates a new document repository error
func NewDocumentRepositoryError(operation string, documentID string, err error, message string) *DocumentRepositoryError {
	return &DocumentRepositoryError{
		Operation:  operation,
		DocumentID: documentID,
		Err:        err,
		Message:    message,
	}
}

// Common error constructors
func DocumentNotFoundError(documentID string) error {
	return NewDocumentRepositoryError(
		"get_document",
		documentID,
		nil,
		"document not found: "+documentID,
	)
}

func DocumentAlreadyExistsError(documentID string) error {
	return NewDocumentRepositoryError(
		"register_document",
		documentID,
		nil,
		"document already exists: "+documentID,
	)
}
