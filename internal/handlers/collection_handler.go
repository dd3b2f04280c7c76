package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"rag-chatbot/internal/models"
	"rag-chatbot/internal/services"

	"github.com/gorilla/mux"
)

// CollectionHandler handles HTTP requests for collection operations
type CollectionHandler struct {
	collectionService *services.CollectionService
	logger            *log.Logger
}

// NewCollectionHandler creates a new collection handler
func NewCollectionHandler(collectionService *services.CollectionService, logger *log.Logger) *CollectionHandler {
	return &CollectionHandler{
		collectionService: collectionService,
		logger:            logger,
	}
}

// EnsureCollectionRequest represents a collection creation request body
type EnsureCollectionRequest struct {
	Name     string `json:"name"`
	Distance string `json:"distance,omitempty"`
}

// EnsureCollectionResponse reports whether the call created the collection
type EnsureCollectionResponse struct {
	Name    string `json:"name"`
	Created bool   `json:"created"`
}

// EnsureCollection handles idempotent collection creation requests
func (h *CollectionHandler) EnsureCollection(w http.ResponseWriter, r *http.Request) {
	h.logger.Printf("Ensure collection request")

	var req EnsureCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Printf("Failed to decode request: %v", err)
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	distance := req.Distance
	if distance == "" {
		distance = models.DistanceCosine
	}

	created, err := h.collectionService.EnsureCollection(r.Context(), req.Name, distance)
	if err != nil {
		h.logger.Printf("Failed to ensure collection: %v", err)
		if contains(err.Error(), "invalid collection name") {
			h.sendError(w, http.StatusBadRequest, err.Error())
		} else {
			h.sendError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.sendJSON(w, status, EnsureCollectionResponse{
		Name:    req.Name,
		Created: created,
	})
}

// GetCollection handles collection existence checks
func (h *CollectionHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	h.logger.Printf("Get collection: %s", name)

	exists, err := h.collectionService.CollectionExists(r.Context(), name)
	if err != nil {
		h.logger.Printf("Failed to check collection: %v", err)
		if contains(err.Error(), "invalid collection name") {
			h.sendError(w, http.StatusBadRequest, err.Error())
		} else {
			h.sendError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if !exists {
		h.sendError(w, http.StatusNotFound, "Collection not found: "+name)
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"name":   name,
		"exists": true,
	})
}

// DeleteCollection handles collection deletion requests
func (h *CollectionHandler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	h.logger.Printf("Delete collection: %s", name)

	resp, err := h.collectionService.DeleteCollection(r.Context(), name)
	if err != nil {
		h.logger.Printf("Failed to delete collection: %v", err)
		if contains(err.Error(), "not found") {
			h.sendError(w, http.StatusNotFound, err.Error())
		} else {
			h.sendError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.sendJSON(w, http.StatusOK, resp)
}

// Helper methods

func (h *CollectionHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *CollectionHandler) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Status:  status,
	})
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(s) > len(substr) && findSubstring(s, substr))
}

func findSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
