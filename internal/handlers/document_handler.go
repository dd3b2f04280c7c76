package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"rag-chatbot/internal/models"
	"rag-chatbot/internal/services"

	"github.com/gorilla/mux"
)

// DocumentHandler handles HTTP requests for document operations
type DocumentHandler struct {
	ingestionService *services.IngestionService
	collectionName   string
	logger           *log.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(ingestionService *services.IngestionService, collectionName string, logger *log.Logger) *DocumentHandler {
	return &DocumentHandler{
		ingestionService: ingestionService,
		collectionName:   collectionName,
		logger:           logger,
	}
}

// UploadDocument handles PDF upload and ingestion requests
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	h.logger.Printf("Upload request from %s", r.RemoteAddr)

	ownerID := userIDFromRequest(r)
	if ownerID == "" {
		h.sendError(w, http.StatusUnauthorized, "X-User-ID header is required")
		return
	}

	// Parse multipart form (max 50MB)
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		h.logger.Printf("Failed to parse form: %v", err)
		h.sendError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.logger.Printf("No file uploaded: %v", err)
		h.sendError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		h.sendError(w, http.StatusBadRequest, "Only PDF files are supported")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		h.logger.Printf("Failed to read file: %v", err)
		h.sendError(w, http.StatusBadRequest, "Failed to read file content")
		return
	}

	documentType := r.FormValue("document_type")
	if documentType == "" {
		documentType = models.DocumentTypeRepository
	}

	collection := strings.TrimSpace(r.FormValue("collection"))
	if collection == "" {
		collection = h.collectionName
	}

	req := &services.IngestRequest{
		Filename:     header.Filename,
		FileContent:  content,
		OwnerID:      ownerID,
		Collection:   collection,
		DocumentType: documentType,
	}

	resp, err := h.ingestionService.IngestDocument(r.Context(), req)
	if err != nil {
		h.logger.Printf("Ingestion failed: %v", err)
		if strings.Contains(err.Error(), "invalid request") {
			h.sendError(w, http.StatusBadRequest, err.Error())
		} else {
			h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Ingestion failed: %v", err))
		}
		return
	}

	h.sendJSON(w, http.StatusCreated, resp)
}

// DocumentListResponse represents a list of documents response
type DocumentListResponse struct {
	Documents []models.DocumentDTO `json:"documents"`
	Count     int                  `json:"count"`
}

// ListDocuments handles requests to list the caller's documents
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ownerID := userIDFromRequest(r)
	if ownerID == "" {
		h.sendError(w, http.StatusUnauthorized, "X-User-ID header is required")
		return
	}

	docs, err := h.ingestionService.ListDocuments(r.Context(), ownerID)
	if err != nil {
		h.logger.Printf("Failed to list documents: %v", err)
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list documents: %v", err))
		return
	}

	dtos := make([]models.DocumentDTO, len(docs))
	for i, doc := range docs {
		dtos[i] = doc.ToDTO()
	}

	h.sendJSON(w, http.StatusOK, DocumentListResponse{
		Documents: dtos,
		Count:     len(dtos),
	})
}

// DeleteDocument handles requests to delete a document and its passages
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	ownerID := userIDFromRequest(r)
	if ownerID == "" {
		h.sendError(w, http.StatusUnauthorized, "X-User-ID header is required")
		return
	}

	vars := mux.Vars(r)
	documentID := vars["id"]

	h.logger.Printf("Delete document: %s (user: %s)", documentID, ownerID)

	err := h.ingestionService.DeleteDocument(r.Context(), h.collectionName, documentID, ownerID)
	if err != nil {
		h.logger.Printf("Failed to delete document: %v", err)
		if strings.Contains(err.Error(), "not found") {
			h.sendError(w, http.StatusNotFound, "Document not found")
		} else {
			h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to delete document: %v", err))
		}
		return
	}

	h.sendJSON(w, http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Document deleted successfully",
	})
}

// UpdateMetadataRequest represents a metadata patch request body
type UpdateMetadataRequest struct {
	Fields map[string]interface{} `json:"fields"`
}

// UpdateDocumentMetadata handles metadata patch requests
func (h *DocumentHandler) UpdateDocumentMetadata(w http.ResponseWriter, r *http.Request) {
	ownerID := userIDFromRequest(r)
	if ownerID == "" {
		h.sendError(w, http.StatusUnauthorized, "X-User-ID header is required")
		return
	}

	vars := mux.Vars(r)
	documentID := vars["id"]

	var req UpdateMetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if len(req.Fields) == 0 {
		h.sendError(w, http.StatusBadRequest, "No metadata fields provided")
		return
	}

	h.logger.Printf("Update metadata for document: %s (user: %s)", documentID, ownerID)

	err := h.ingestionService.UpdateDocumentMetadata(r.Context(), h.collectionName, documentID, ownerID, req.Fields)
	if err != nil {
		h.logger.Printf("Failed to update metadata: %v", err)
		if strings.Contains(err.Error(), "not found") {
			h.sendError(w, http.StatusNotFound, "Document not found")
		} else {
			h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to update metadata: %v", err))
		}
		return
	}

	h.sendJSON(w, http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Metadata updated successfully",
	})
}

// Helper methods

func (h *DocumentHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *DocumentHandler) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Status:  status,
	})
}

// userIDFromRequest extracts the verified owner id set by the auth layer
func userIDFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-ID"))
}

// Response types

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
