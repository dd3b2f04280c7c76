package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger checks liveness of one backing store
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the health endpoint payload
type HealthResponse struct {
	Message string            `json:"message"`
	Status  string            `json:"status"`
	Stores  map[string]string `json:"stores,omitempty"`
}

// HealthHandler reports server liveness including the backing stores
type HealthHandler struct {
	stores map[string]Pinger
}

// NewHealthHandler creates a health handler over the named stores
func NewHealthHandler(stores map[string]Pinger) *HealthHandler {
	return &HealthHandler{stores: stores}
}

// Health pings every backing store. Any failing store degrades the overall
// status and the response code.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	response := HealthResponse{
		Message: "Server is healthy",
		Status:  "success",
		Stores:  make(map[string]string, len(h.stores)),
	}

	for name, store := range h.stores {
		if err := store.Ping(ctx); err != nil {
			response.Stores[name] = "unavailable"
			response.Message = "One or more stores are unavailable"
			response.Status = "degraded"
			status = http.StatusServiceUnavailable
		} else {
			response.Stores[name] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
