package services

import (
	"context"
	"fmt"
	"log"

	"rag-chatbot/internal/repositories"
)

// CollectionService manages vector database collections
type CollectionService struct {
	vectorRepo repositories.VectorRepository
	docRepo    repositories.DocumentRepository
	logger     *log.Logger
}

// NewCollectionService creates a new collection service
func NewCollectionService(
	vectorRepo repositories.VectorRepository,
	docRepo repositories.DocumentRepository,
	logger *log.Logger,
) *CollectionService {
	return &CollectionService{
		vectorRepo: vectorRepo,
		docRepo:    docRepo,
		logger:     logger,
	}
}

// EnsureCollection creates the named collection if missing. Returns true
// only when this call performed the creation.
func (s *CollectionService) EnsureCollection(ctx context.Context, name string, distanceStrategy string) (bool, error) {
	if err := s.validateCollectionName(name); err != nil {
		return false, fmt.Errorf("invalid collection name: %w", err)
	}

	created, err := s.vectorRepo.EnsureCollection(ctx, name, distanceStrategy)
	if err != nil {
		return false, fmt.Errorf("failed to ensure collection: %w", err)
	}

	if created {
		s.logger.Printf("Collection created: %s", name)
	}
	return created, nil
}

// DeleteCollectionResponse represents the response from deleting a collection
type DeleteCollectionResponse struct {
	CollectionName string `json:"collection_name"`
	DocumentsCount int    `json:"documents_count"`
	DeletedDocs    int    `json:"deleted_docs"`
	Success        bool   `json:"success"`
}

// DeleteCollection deletes a collection and its registry records
func (s *CollectionService) DeleteCollection(ctx context.Context, name string) (*DeleteCollectionResponse, error) {
	s.logger.Printf("Deleting collection: %s", name)

	if err := s.validateCollectionName(name); err != nil {
		return nil, fmt.Errorf("invalid collection name: %w", err)
	}

	exists, err := s.vectorRepo.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		return nil, repositories.CollectionNotFoundError(name)
	}

	// Registry cleanup is best effort; the vector store is authoritative
	docs, err := s.docRepo.List(ctx)
	if err != nil {
		s.logger.Printf("Failed to list documents (non-critical): %v", err)
		docs = nil
	}

	if err := s.vectorRepo.DeleteCollection(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to delete collection: %w", err)
	}

	documentCount := 0
	deletedDocs := 0
	for _, doc := range docs {
		if doc.Collection != name {
			continue
		}
		documentCount++
		if err := s.docRepo.Delete(ctx, doc.ID); err != nil {
			s.logger.Printf("Failed to delete document %s from registry: %v", doc.ID, err)
		} else {
			deletedDocs++
		}
	}

	s.logger.Printf("Collection deleted: %s (documents: %d)", name, documentCount)

	return &DeleteCollectionResponse{
		CollectionName: name,
		DocumentsCount: documentCount,
		DeletedDocs:    deletedDocs,
		Success:        true,
	}, nil
}

// CollectionExists checks if a collection exists
func (s *CollectionService) CollectionExists(ctx context.Context, name string) (bool, error) {
	if err := s.validateCollectionName(name); err != nil {
		return false, fmt.Errorf("invalid collection name: %w", err)
	}

	exists, err := s.vectorRepo.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}

	return exists, nil
}

// validateCollectionName validates a collection name
func (s *CollectionService) validateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name is required")
	}

	if len(name) < 3 {
		return fmt.Errorf("collection name must be at least 3 characters")
	}

	if len(name) > 63 {
		return fmt.Errorf("collection name must be at most 63 characters")
	}

	// Check for valid characters (alphanumeric, dash, underscore)
	for _, ch := range name {
		if !((ch >= 'a' && ch <= 'z') ||
			(ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') ||
			ch == '-' || ch == '_') {
			return fmt.Errorf("collection name contains invalid character: %c", ch)
		}
	}

	return nil
}
