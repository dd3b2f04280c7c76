package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"rag-chatbot/internal/services"
)

// SearchHandler handles HTTP requests for search operations
type SearchHandler struct {
	searchService  *services.SearchService
	collectionName string
	logger         *log.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searchService *services.SearchService, collectionName string, logger *log.Logger) *SearchHandler {
	return &SearchHandler{
		searchService:  searchService,
		collectionName: collectionName,
		logger:         logger,
	}
}

// Search handles hybrid search requests
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	h.logger.Printf("Search request from %s", r.RemoteAddr)

	ownerID := userIDFromRequest(r)
	if ownerID == "" {
		h.sendError(w, http.StatusUnauthorized, "X-User-ID header is required")
		return
	}

	var reqBody SearchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		h.logger.Printf("Failed to decode request: %v", err)
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	collection := reqBody.Collection
	if collection == "" {
		collection = h.collectionName
	}

	req := &services.SearchRequest{
		Query:          reqBody.Query,
		Collection:     collection,
		UserID:         ownerID,
		TopK:           reqBody.TopK,
		ScoreThreshold: reqBody.ScoreThreshold,
		UseCache:       reqBody.UseCache,
	}

	resp, err := h.searchService.SearchPassages(r.Context(), req)
	if err != nil {
		h.logger.Printf("Search failed: %v", err)
		if strings.Contains(err.Error(), "invalid request") {
			h.sendError(w, http.StatusBadRequest, err.Error())
		} else if strings.Contains(err.Error(), "not found") {
			h.sendError(w, http.StatusNotFound, err.Error())
		} else {
			h.sendError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.sendJSON(w, http.StatusOK, resp)
}

// SearchSimple handles search requests via query parameters
func (h *SearchHandler) SearchSimple(w http.ResponseWriter, r *http.Request) {
	h.logger.Printf("Simple search request from %s", r.RemoteAddr)

	ownerID := userIDFromRequest(r)
	if ownerID == "" {
		h.sendError(w, http.StatusUnauthorized, "X-User-ID header is required")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		h.sendError(w, http.StatusBadRequest, "Query parameter 'q' is required")
		return
	}

	topK := 0
	if topKStr := r.URL.Query().Get("top_k"); topKStr != "" {
		if parsed, err := strconv.Atoi(topKStr); err == nil {
			topK = parsed
		}
	}

	req := &services.SearchRequest{
		Query:      query,
		Collection: h.collectionName,
		UserID:     ownerID,
		TopK:       topK,
	}

	resp, err := h.searchService.SearchPassages(r.Context(), req)
	if err != nil {
		h.logger.Printf("Search failed: %v", err)
		if strings.Contains(err.Error(), "not found") {
			h.sendError(w, http.StatusNotFound, err.Error())
		} else {
			h.sendError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.sendJSON(w, http.StatusOK, resp)
}

// Helper methods

func (h *SearchHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *SearchHandler) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Status:  status,
	})
}

// Request types

type SearchRequestBody struct {
	Query          string   `json:"query"`
	Collection     string   `json:"collection,omitempty"`
	TopK           int      `json:"top_k,omitempty"`
	ScoreThreshold *float32 `json:"score_threshold,omitempty"`
	UseCache       bool     `json:"use_cache"`
}
