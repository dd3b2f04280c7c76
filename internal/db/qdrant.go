package db

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"rag-chatbot/internal/models"
)

// QdrantClient wraps HTTP calls to the Qdrant REST API. A hand-rolled client
// keeps the surface down to the handful of endpoints the repository layer
// needs and avoids pulling in the gRPC stack.
type QdrantClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// QdrantConfig holds configuration for the Qdrant connection
type QdrantConfig struct {
	URL     string // e.g. http://localhost:6333
	APIKey  string
	Timeout time.Duration
}

// Point represents one point in a collection. Vector maps named vector
// spaces to their values: []float32 for the dense space, *models.SparseVector
// for the sparse space.
type Point struct {
	ID      string                 `json:"id"`
	Vector  map[string]interface{} `json:"vector"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// ScoredPoint is a point returned from a query, scroll or retrieve call
type ScoredPoint struct {
	ID      string                 `json:"id"`
	Score   float32                `json:"score"`
	Payload map[string]interface{} `json:"payload"`
}

// Filter restricts an operation to points whose payload matches every
// condition
type Filter struct {
	Must []FieldCondition `json:"must,omitempty"`
}

// FieldCondition matches one payload field against an exact value
type FieldCondition struct {
	Key   string     `json:"key"`
	Match MatchValue `json:"match"`
}

// MatchValue carries the exact value a field condition matches on
type MatchValue struct {
	Value interface{} `json:"value"`
}

// NewQdrantClient creates a new Qdrant REST client
func NewQdrantClient(config QdrantConfig) *QdrantClient {
	if config.URL == "" {
		config.URL = "http://localhost:6333"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &QdrantClient{
		baseURL: config.URL,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Healthz checks if Qdrant is alive
func (c *QdrantClient) Healthz(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to create healthz request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthz request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthz failed with status: %d", resp.StatusCode)
	}
	return nil
}

// CollectionExists checks if a collection with the given name exists
func (c *QdrantClient) CollectionExists(ctx context.Context, name string) (bool, error) {
	var out struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/exists", c.baseURL, name)
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &out); err != nil {
		return false, fmt.Errorf("collection exists check failed: %w", err)
	}
	return out.Result.Exists, nil
}

// CreateCollection creates a collection with one dense and one sparse vector
// space per the given configuration
func (c *QdrantClient) CreateCollection(ctx context.Context, cfg models.CollectionConfig) error {
	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			models.DenseVectorName: map[string]interface{}{
				"size":     cfg.DenseSize,
				"distance": cfg.Distance,
			},
		},
		"sparse_vectors": map[string]interface{}{
			models.SparseVectorName: map[string]interface{}{
				"index": map[string]interface{}{
					"on_disk": false,
				},
			},
		},
		"hnsw_config": map[string]interface{}{
			"m":                   cfg.HNSW.M,
			"ef_construct":        cfg.HNSW.EfConstruct,
			"full_scan_threshold": cfg.HNSW.FullScanThreshold,
			"on_disk":             cfg.HNSW.OnDisk,
		},
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, cfg.Name)
	if err := c.doJSON(ctx, http.MethodPut, url, body, nil); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", cfg.Name, err)
	}
	return nil
}

// DeleteCollection deletes a collection and all its points
func (c *QdrantClient) DeleteCollection(ctx context.Context, name string) error {
	url := fmt.Sprintf("%s/collections/%s", c.baseURL, name)
	if err := c.doJSON(ctx, http.MethodDelete, url, nil, nil); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", name, err)
	}
	return nil
}

// UpsertPoints writes or overwrites points by id. The call waits for the
// write to be applied; atomicity across the batch is not guaranteed by the
// store.
func (c *QdrantClient) UpsertPoints(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	body := map[string]interface{}{"points": points}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, collection)
	if err := c.doJSON(ctx, http.MethodPut, url, body, nil); err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

// QueryHybrid issues one query with a sparse and a dense prefetch, each
// capped at limit candidates, fused server-side with distribution-based
// score fusion. An absent sparse or dense signal drops its prefetch leg, so
// the query degrades to single-signal retrieval.
func (c *QdrantClient) QueryHybrid(ctx context.Context, collection string, dense []float32, sparse *models.SparseVector, limit int, scoreThreshold float32, filter *Filter) ([]ScoredPoint, error) {
	prefetch := make([]map[string]interface{}, 0, 2)
	if !sparse.IsEmpty() {
		prefetch = append(prefetch, map[string]interface{}{
			"query": sparse,
			"using": models.SparseVectorName,
			"limit": limit,
		})
	}
	if len(dense) > 0 {
		prefetch = append(prefetch, map[string]interface{}{
			"query": dense,
			"using": models.DenseVectorName,
			"limit": limit,
		})
	}
	if len(prefetch) == 0 {
		return nil, fmt.Errorf("query carries neither a dense nor a sparse vector")
	}

	body := map[string]interface{}{
		"prefetch":        prefetch,
		"query":           map[string]interface{}{"fusion": "dbsf"},
		"limit":           limit,
		"score_threshold": scoreThreshold,
		"with_payload":    true,
	}
	if filter != nil {
		body["filter"] = filter
	}

	var out struct {
		Result struct {
			Points []ScoredPoint `json:"points"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/query", c.baseURL, collection)
	if err := c.doJSON(ctx, http.MethodPost, url, body, &out); err != nil {
		return nil, fmt.Errorf("hybrid query failed: %w", err)
	}
	return out.Result.Points, nil
}

// ScrollPoints pages through points matching the filter, payload only
func (c *QdrantClient) ScrollPoints(ctx context.Context, collection string, filter *Filter, limit int) ([]ScoredPoint, error) {
	if limit <= 0 {
		limit = 100
	}

	body := map[string]interface{}{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if filter != nil {
		body["filter"] = filter
	}

	var out struct {
		Result struct {
			Points []ScoredPoint `json:"points"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/scroll", c.baseURL, collection)
	if err := c.doJSON(ctx, http.MethodPost, url, body, &out); err != nil {
		return nil, fmt.Errorf("scroll failed: %w", err)
	}
	return out.Result.Points, nil
}

// SetPayload merges the given payload fields into every point matching the
// filter
func (c *QdrantClient) SetPayload(ctx context.Context, collection string, filter *Filter, payload map[string]interface{}) error {
	body := map[string]interface{}{
		"payload": payload,
		"filter":  filter,
	}
	url := fmt.Sprintf("%s/collections/%s/points/payload?wait=true", c.baseURL, collection)
	if err := c.doJSON(ctx, http.MethodPost, url, body, nil); err != nil {
		return fmt.Errorf("failed to set payload: %w", err)
	}
	return nil
}

// DeletePoints removes every point matching the filter
func (c *QdrantClient) DeletePoints(ctx context.Context, collection string, filter *Filter) error {
	body := map[string]interface{}{"filter": filter}
	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", c.baseURL, collection)
	if err := c.doJSON(ctx, http.MethodPost, url, body, nil); err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

// doJSON executes one request with a JSON body and decodes a JSON response
// into out when non-nil
func (c *QdrantClient) doJSON(ctx context.Context, method, url string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s failed (status %d): %s", method, url, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *QdrantClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
}
