package repositories

import (
	"context"

	"rag-chatbot/internal/models"
)

// VectorRepository defines the interface for vector index operations over one
// named collection at a time. This abstracts the Qdrant adapter and allows an
// in-memory fake to stand in for tests.
type VectorRepository interface {
	// Collection Management
	EnsureCollection(ctx context.Context, name string, distanceStrategy string) (created bool, err error)
	DeleteCollection(ctx context.Context, name string) error
	CollectionExists(ctx context.Context, name string) (bool, error)

	// Passage Operations
	UpsertPassages(ctx context.Context, collectionName string, passages []*models.Passage) error
	HybridSearch(ctx context.Context, collectionName string, query HybridQuery) ([]*models.ScoredPassage, error)
	UpdateDocumentMetadata(ctx context.Context, collectionName string, documentID, userID, documentType string, newFields map[string]interface{}) error
	DeleteDocument(ctx context.Context, collectionName string, documentID, userID string) error

	// Health
	Ping(ctx context.Context) error
}

// HybridQuery carries both retrieval signals for one fused search. An empty
// dense or sparse signal degrades the query to the remaining signal.
type HybridQuery struct {
	Dense          []float32
	Sparse         *models.SparseVector
	TopK           int
	ScoreThreshold float32
	Filter         map[string]interface{} // payload metadata equality filter
}

// Search defaults mirrored by the service layer
const (
	DefaultTopK           = 5
	DefaultScoreThreshold = 0.7
)

// VectorRepositoryError represents errors from the vector repository
type VectorRepositoryError struct {
	Operation string
	Err       error
	Message   string
}

func (e *VectorRepositoryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Operation + ": " + e.Err.Error()
	}
	return e.Operation + ": unknown error"
}

func (e *VectorRepositoryError) Unwrap() error {
	return e.Err
}

// NewVectorRepositoryError creates a new vector repository error
func NewVectorRepositoryError(operation string, err error, message string) *VectorRepositoryError {
	return &VectorRepositoryError{
		Operation: operation,
		Err:       err,
		Message:   message,
	}
}

// Common error constructors
func CollectionNotFoundError(name string) error {
	return NewVectorRepositoryError(
		"get_collection",
		nil,
		"collection not found: "+name,
	)
}

func PassagesNotFoundError(documentID string) error {
	return NewVectorRepositoryError(
		"get_passages",
		nil,
		"no passages found for document: "+documentID,
	)
}
