package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"rag-chatbot/internal/models"
	"rag-chatbot/internal/pdf"
	"rag-chatbot/internal/repositories"
	"rag-chatbot/internal/textsplit"
	"rag-chatbot/internal/vectorize"
)

// PageExtractor yields per-page text from raw document bytes
type PageExtractor interface {
	ExtractPages(data []byte) ([]pdf.Page, error)
}

// IngestionService orchestrates the document indexing pipeline: extract
// per-page text, chunk, vectorize, assemble passages and upsert them into
// the vector collection
type IngestionService struct {
	extractor  PageExtractor
	splitter   *textsplit.Splitter
	embedder   vectorize.Embedder
	sparse     *vectorize.SparseEncoder
	vectorRepo repositories.VectorRepository
	docRepo    repositories.DocumentRepository
	logger     *log.Logger
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(
	extractor PageExtractor,
	splitter *textsplit.Splitter,
	embedder vectorize.Embedder,
	sparse *vectorize.SparseEncoder,
	vectorRepo repositories.VectorRepository,
	docRepo repositories.DocumentRepository,
	logger *log.Logger,
) *IngestionService {
	return &IngestionService{
		extractor:  extractor,
		splitter:   splitter,
		embedder:   embedder,
		sparse:     sparse,
		vectorRepo: vectorRepo,
		docRepo:    docRepo,
		logger:     logger,
	}
}

// IngestRequest represents a request to ingest a document
type IngestRequest struct {
	Filename     string
	FileContent  []byte
	OwnerID      string
	Collection   string
	DocumentType string
}

// IngestResponse represents the outcome of ingesting a document
type IngestResponse struct {
	DocumentID       string  `json:"document_id"`
	Filename         string  `json:"filename"`
	Collection       string  `json:"collection"`
	PageCount        int     `json:"page_count"`
	PassageCount     int     `json:"passage_count"`
	SkippedChunks    int     `json:"skipped_chunks,omitempty"`
	Status           string  `json:"status"`
	ProcessingTimeMs float64 `json:"processing_time_ms,omitempty"`
}

// IngestDocument runs the full pipeline for one uploaded PDF. Chunk-level
// vectorization failures skip the chunk; a failed batch write fails the whole
// ingestion and marks the registry record accordingly.
func (s *IngestionService) IngestDocument(ctx context.Context, req *IngestRequest) (*IngestResponse, error) {
	startTime := time.Now()

	if err := s.validateIngestRequest(req); err != nil {
		s.logger.Printf("Invalid ingest request: %v", err)
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	// Collections are created with a fixed dense size; a mismatched embedding
	// model would make every upsert fail, so refuse before any write
	if dim := s.embedder.Dimension(); dim != models.DenseVectorSize {
		s.logger.Printf("Embedder dimension %d does not match collection vector size %d", dim, models.DenseVectorSize)
		return nil, fmt.Errorf("embedder dimension %d does not match collection vector size %d", dim, models.DenseVectorSize)
	}

	documentID := uuid.New().String()

	doc := &models.Document{
		ID:           documentID,
		Filename:     req.Filename,
		OwnerID:      req.OwnerID,
		Collection:   req.Collection,
		DocumentType: req.DocumentType,
		FileSize:     int64(len(req.FileContent)),
		Status:       models.DocumentStatusPending,
	}
	if err := s.docRepo.Register(ctx, doc); err != nil {
		s.logger.Printf("Failed to register document: %v", err)
		return nil, fmt.Errorf("failed to register document: %w", err)
	}

	pages, err := s.extractor.ExtractPages(req.FileContent)
	if err != nil {
		s.markFailed(ctx, documentID)
		s.logger.Printf("Failed to extract pages from %s: %v", req.Filename, err)
		return nil, fmt.Errorf("failed to extract pages: %w", err)
	}

	s.logger.Printf("Extracted %d pages from %s", len(pages), req.Filename)

	passages, skipped := s.buildPassages(ctx, req, documentID, pages)
	if len(passages) == 0 {
		// Nothing indexable: complete with zero passages, no collection write
		s.logger.Printf("Document %s produced no passages", req.Filename)
		s.markCompleted(ctx, documentID, 0)
		return &IngestResponse{
			DocumentID:       documentID,
			Filename:         req.Filename,
			Collection:       req.Collection,
			PageCount:        len(pages),
			PassageCount:     0,
			SkippedChunks:    skipped,
			Status:           models.DocumentStatusCompleted.String(),
			ProcessingTimeMs: time.Since(startTime).Seconds() * 1000,
		}, nil
	}

	created, err := s.vectorRepo.EnsureCollection(ctx, req.Collection, models.DistanceCosine)
	if err != nil {
		s.markFailed(ctx, documentID)
		s.logger.Printf("Failed to ensure collection %s: %v", req.Collection, err)
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}
	if created {
		s.logger.Printf("Created collection: %s", req.Collection)
	}

	if err := s.vectorRepo.UpsertPassages(ctx, req.Collection, passages); err != nil {
		s.markFailed(ctx, documentID)
		s.logger.Printf("Failed to upsert passages for %s: %v", req.Filename, err)
		return nil, fmt.Errorf("failed to upsert passages: %w", err)
	}

	s.markCompleted(ctx, documentID, len(passages))

	totalTime := time.Since(startTime).Seconds() * 1000
	s.logger.Printf("Ingested %s: %d passages from %d pages in %.2fms (%d chunks skipped)",
		req.Filename, len(passages), len(pages), totalTime, skipped)

	return &IngestResponse{
		DocumentID:       documentID,
		Filename:         req.Filename,
		Collection:       req.Collection,
		PageCount:        len(pages),
		PassageCount:     len(passages),
		SkippedChunks:    skipped,
		Status:           models.DocumentStatusCompleted.String(),
		ProcessingTimeMs: totalTime,
	}, nil
}

// buildPassages chunks every page and vectorizes each chunk. A chunk whose
// vectorization yields neither signal is skipped, not fatal.
func (s *IngestionService) buildPassages(ctx context.Context, req *IngestRequest, documentID string, pages []pdf.Page) ([]*models.Passage, int) {
	uploadedAt := time.Now().UTC().Format(time.RFC3339)
	passages := make([]*models.Passage, 0)
	skipped := 0

	for _, page := range pages {
		chunks := s.splitter.Split(page.Text)
		for _, chunk := range chunks {
			dense, err := s.embedder.Embed(ctx, chunk)
			if err != nil {
				s.logger.Printf("Embedding failed for chunk on page %d: %v", page.Number, err)
				dense = nil
			}

			sparse, err := s.sparse.Encode([]string{chunk})
			if err != nil {
				s.logger.Printf("Sparse encoding failed for chunk on page %d: %v", page.Number, err)
				sparse = nil
			}

			if len(dense) == 0 && sparse.IsEmpty() {
				skipped++
				continue
			}

			passages = append(passages, &models.Passage{
				ID:                uuid.New().String(),
				Source:            req.Filename,
				Title:             req.Filename,
				Excerpt:           chunk,
				ExcerptPageNumber: page.Number,
				DenseVector:       dense,
				SparseVector:      sparse,
				Metadata: map[string]interface{}{
					"document_id":   documentID,
					"user_id":       req.OwnerID,
					"document_type": req.DocumentType,
					"uploaded_at":   uploadedAt,
				},
			})
		}
	}

	return passages, skipped
}

// DeleteDocument removes a document's passages from the collection and its
// registry record. Transport failures propagate.
func (s *IngestionService) DeleteDocument(ctx context.Context, collectionName, documentID, ownerID string) error {
	doc, err := s.docRepo.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.OwnerID != ownerID {
		return repositories.DocumentNotFoundError(documentID)
	}

	if err := s.vectorRepo.DeleteDocument(ctx, collectionName, documentID, ownerID); err != nil {
		s.logger.Printf("Failed to delete passages for document %s: %v", documentID, err)
		return fmt.Errorf("failed to delete passages: %w", err)
	}

	if err := s.docRepo.Delete(ctx, documentID); err != nil {
		s.logger.Printf("Failed to delete registry record for document %s: %v", documentID, err)
		return fmt.Errorf("failed to delete document record: %w", err)
	}

	s.logger.Printf("Deleted document %s for user %s", documentID, ownerID)
	return nil
}

// UpdateDocumentMetadata merges newFields into the metadata of the document's
// passages and mirrors the change in the registry record
func (s *IngestionService) UpdateDocumentMetadata(ctx context.Context, collectionName, documentID, ownerID string, newFields map[string]interface{}) error {
	doc, err := s.docRepo.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.OwnerID != ownerID {
		return repositories.DocumentNotFoundError(documentID)
	}

	if err := s.vectorRepo.UpdateDocumentMetadata(ctx, collectionName, documentID, ownerID, doc.DocumentType, newFields); err != nil {
		s.logger.Printf("Failed to update passage metadata for document %s: %v", documentID, err)
		return fmt.Errorf("failed to update metadata: %w", err)
	}

	merged := make(map[string]interface{}, len(doc.Metadata)+len(newFields))
	for k, v := range doc.Metadata {
		merged[k] = v
	}
	for k, v := range newFields {
		merged[k] = v
	}
	if err := s.docRepo.Update(ctx, documentID, map[string]interface{}{"metadata": merged}); err != nil {
		s.logger.Printf("Failed to update registry metadata for document %s: %v", documentID, err)
		return fmt.Errorf("failed to update document record: %w", err)
	}

	return nil
}

// ListDocuments returns the registry records for one user's uploads
func (s *IngestionService) ListDocuments(ctx context.Context, ownerID string) ([]*models.Document, error) {
	return s.docRepo.ListByOwner(ctx, ownerID)
}

// markFailed flips the registry record to failed; best effort
func (s *IngestionService) markFailed(ctx context.Context, documentID string) {
	if err := s.docRepo.Update(ctx, documentID, map[string]interface{}{"status": models.DocumentStatusFailed}); err != nil {
		s.logger.Printf("Failed to mark document %s as failed: %v", documentID, err)
	}
}

// markCompleted flips the registry record to completed with its final count
func (s *IngestionService) markCompleted(ctx context.Context, documentID string, chunkCount int) {
	updates := map[string]interface{}{
		"status":      models.DocumentStatusCompleted,
		"chunk_count": chunkCount,
	}
	if err := s.docRepo.Update(ctx, documentID, updates); err != nil {
		s.logger.Printf("Failed to mark document %s as completed: %v", documentID, err)
	}
}

// validateIngestRequest validates ingest request parameters
func (s *IngestionService) validateIngestRequest(req *IngestRequest) error {
	if req.Filename == "" {
		return fmt.Errorf("filename is required")
	}
	if !strings.HasSuffix(strings.ToLower(req.Filename), ".pdf") {
		return fmt.Errorf("only PDF files are supported")
	}
	if len(req.FileContent) == 0 {
		return fmt.Errorf("file content is empty")
	}
	if !pdf.IsPDF(req.FileContent) {
		return fmt.Errorf("file content is not a valid PDF")
	}
	if req.OwnerID == "" {
		return fmt.Errorf("owner ID is required")
	}
	if req.Collection == "" {
		return fmt.Errorf("collection is required")
	}
	if req.DocumentType == "" {
		req.DocumentType = models.DocumentTypeRepository
	}
	return nil
}
