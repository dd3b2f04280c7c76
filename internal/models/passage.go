package models

import (
	"time"
)

// SparseVector is a term-weighted representation with parallel index/value
// arrays, matching the wire format of the sparse vector space in Qdrant.
type SparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

// IsEmpty reports whether the vector carries no terms
func (v *SparseVector) IsEmpty() bool {
	return v == nil || len(v.Indices) == 0
}

// Passage represents one indexed, retrievable chunk of a source document.
// Vector fields are never mutated after creation; only the metadata map may
// be patched through the metadata-update path.
type Passage struct {
	ID                string                 `json:"id"`
	Source            string                 `json:"source"`
	Title             string                 `json:"title"`
	Excerpt           string                 `json:"excerpt"`
	ExcerptPageNumber int                    `json:"excerpt_page_number"`
	DenseVector       []float32              `json:"dense_vector,omitempty"`
	SparseVector      *SparseVector          `json:"sparse_vector,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}

// Validate checks if the passage is valid
func (p *Passage) Validate() error {
	if p.ID == "" {
		return &ValidationError{Field: "id", Message: "passage ID is required"}
	}
	if p.Excerpt == "" {
		return &ValidationError{Field: "excerpt", Message: "excerpt is required"}
	}
	if p.ExcerptPageNumber < 1 {
		return &ValidationError{Field: "excerpt_page_number", Message: "page number must be 1-based"}
	}
	return nil
}

// ScoredPassage is a passage payload paired with its fused retrieval score.
// Vectors are not returned from search.
type ScoredPassage struct {
	ID                string                 `json:"id"`
	Source            string                 `json:"source"`
	Title             string                 `json:"title"`
	Excerpt           string                 `json:"excerpt"`
	ExcerptPageNumber int                    `json:"excerpt_page_number"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	Score             float32                `json:"score"`
}

// Document represents an uploaded document tracked in the registry
type Document struct {
	ID           string                 `json:"document_id"`
	Filename     string                 `json:"filename"`
	OwnerID      string                 `json:"owner_id"`
	Collection   string                 `json:"collection"`
	DocumentType string                 `json:"document_type"`
	ChunkCount   int                    `json:"chunk_count"`
	FileSize     int64                  `json:"file_size,omitempty"`
	Status       DocumentStatus         `json:"status"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// DocumentStatus represents the status of a document
type DocumentStatus string

const (
	DocumentStatusPending   DocumentStatus = "pending"
	DocumentStatusCompleted DocumentStatus = "completed"
	DocumentStatusFailed    DocumentStatus = "failed"
)

// String returns the string representation of document status
func (s DocumentStatus) String() string {
	return string(s)
}

// Document types carried in passage metadata
const (
	DocumentTypeRepository = "Repository Document"
	DocumentTypeProject    = "Project Document"
)

// Validate checks if the document record is valid
func (d *Document) Validate() error {
	if d.ID == "" {
		return &ValidationError{Field: "document_id", Message: "document ID is required"}
	}
	if d.Filename == "" {
		return &ValidationError{Field: "filename", Message: "filename is required"}
	}
	if d.OwnerID == "" {
		return &ValidationError{Field: "owner_id", Message: "owner ID is required"}
	}
	return nil
}

// DocumentDTO - API Request/Response (what clients see)
type DocumentDTO struct {
	ID           string `json:"document_id"`
	Filename     string `json:"filename"`
	DocumentType string `json:"document_type"`
	ChunkCount   int    `json:"chunk_count"`
	FileSize     int64  `json:"file_size,omitempty"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// ToDTO converts Document domain model to DTO
func (d *Document) ToDTO() DocumentDTO {
	return DocumentDTO{
		ID:           d.ID,
		Filename:     d.Filename,
		DocumentType: d.DocumentType,
		ChunkCount:   d.ChunkCount,
		FileSize:     d.FileSize,
		Status:       string(d.Status),
		CreatedAt:    d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    d.UpdatedAt.Format(time.RFC3339),
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
