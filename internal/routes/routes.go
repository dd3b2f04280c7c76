package routes

import (
	"net/http"

	"rag-chatbot/internal/handlers"

	"github.com/gorilla/mux"
)

// Handlers aggregates everything RegisterRoutes wires up
type Handlers struct {
	Health http.HandlerFunc

	DocHandler        *handlers.DocumentHandler
	SearchHandler     *handlers.SearchHandler
	ChatHandler       *handlers.ChatHandler
	CollectionHandler *handlers.CollectionHandler
}

// RegisterRoutes sets up all application routes
func RegisterRoutes(router *mux.Router, h *Handlers) {
	// Health endpoints
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Document endpoints
	api.HandleFunc("/documents/upload", h.DocHandler.UploadDocument).Methods(http.MethodPost)
	api.HandleFunc("/documents", h.DocHandler.ListDocuments).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}", h.DocHandler.DeleteDocument).Methods(http.MethodDelete)
	api.HandleFunc("/documents/{id}/metadata", h.DocHandler.UpdateDocumentMetadata).Methods(http.MethodPatch)

	// Search endpoints
	api.HandleFunc("/search", h.SearchHandler.Search).Methods(http.MethodPost)
	api.HandleFunc("/search", h.SearchHandler.SearchSimple).Methods(http.MethodGet)

	// Chat endpoints
	api.HandleFunc("/chat/start", h.ChatHandler.StartChat).Methods(http.MethodPost)
	api.HandleFunc("/chat/messages", h.ChatHandler.SendMessage).Methods(http.MethodPost)
	api.HandleFunc("/chat/messages", h.ChatHandler.GetHistory).Methods(http.MethodGet)
	api.HandleFunc("/chat/context/refresh", h.ChatHandler.RefreshContext).Methods(http.MethodPost)

	// Collection endpoints
	api.HandleFunc("/collections", h.CollectionHandler.EnsureCollection).Methods(http.MethodPost)
	api.HandleFunc("/collections/{name}", h.CollectionHandler.GetCollection).Methods(http.MethodGet)
	api.HandleFunc("/collections/{name}", h.CollectionHandler.DeleteCollection).Methods(http.MethodDelete)
}
