package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"rag-chatbot/internal/models"
	"rag-chatbot/internal/repositories"
	"rag-chatbot/internal/vectorize"
)

// SearchService handles passage retrieval using fused dense and sparse
// vector similarity
type SearchService struct {
	embedder   vectorize.Embedder
	sparse     *vectorize.SparseEncoder
	vectorRepo repositories.VectorRepository
	logger     *log.Logger
	cache      *searchCache
}

// NewSearchService creates a new search service
func NewSearchService(
	embedder vectorize.Embedder,
	sparse *vectorize.SparseEncoder,
	vectorRepo repositories.VectorRepository,
	logger *log.Logger,
) *SearchService {
	return &SearchService{
		embedder:   embedder,
		sparse:     sparse,
		vectorRepo: vectorRepo,
		logger:     logger,
		cache:      newSearchCache(5 * time.Minute), // 5 minute TTL
	}
}

// SearchRequest represents a search query request
type SearchRequest struct {
	Query          string   `json:"query"`
	Collection     string   `json:"collection"`
	UserID         string   `json:"user_id,omitempty"`
	TopK           int      `json:"top_k"`
	ScoreThreshold *float32 `json:"score_threshold,omitempty"`
	UseCache       bool     `json:"use_cache"`
}

// SearchResponse represents the response from a search operation
type SearchResponse struct {
	Results      []*models.ScoredPassage `json:"results"`
	Query        string                  `json:"query"`
	Collection   string                  `json:"collection"`
	TotalResults int                     `json:"total_results"`
	SearchTimeMs float64                 `json:"search_time_ms"`
	FromCache    bool                    `json:"from_cache"`
}

// SearchPassages runs one hybrid retrieval over the collection. Degraded
// vectorization (a failed embedding call, a query of nothing but stop words)
// narrows the search to the surviving signal; when both signals are empty the
// result is empty rather than an error.
func (s *SearchService) SearchPassages(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := s.validateSearchRequest(req); err != nil {
		s.logger.Printf("Invalid search request: %v", err)
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	exists, err := s.vectorRepo.CollectionExists(ctx, req.Collection)
	if err != nil {
		s.logger.Printf("Failed to check collection existence: %v", err)
		return nil, fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		s.logger.Printf("Collection not found: %s", req.Collection)
		return nil, repositories.CollectionNotFoundError(req.Collection)
	}

	if req.UseCache {
		if cached := s.cache.Get(req); cached != nil {
			s.logger.Printf("Cache hit for query: %s (collection: %s)", req.Query, req.Collection)
			// Copy so concurrent hits never write the shared entry
			resp := *cached
			resp.FromCache = true
			resp.SearchTimeMs = time.Since(startTime).Seconds() * 1000
			return &resp, nil
		}
	}

	dense, sparse := s.vectorizeQuery(ctx, req.Query)
	if len(dense) == 0 && sparse.IsEmpty() {
		s.logger.Printf("No usable query signal for: %s", req.Query)
		return s.emptyResponse(req, startTime), nil
	}

	threshold := float32(repositories.DefaultScoreThreshold)
	if req.ScoreThreshold != nil {
		threshold = *req.ScoreThreshold
	}

	query := repositories.HybridQuery{
		Dense:          dense,
		Sparse:         sparse,
		TopK:           req.TopK,
		ScoreThreshold: threshold,
	}
	if req.UserID != "" {
		query.Filter = map[string]interface{}{"metadata.user_id": req.UserID}
	}

	searchStart := time.Now()
	results, err := s.vectorRepo.HybridSearch(ctx, req.Collection, query)
	if err != nil {
		s.logger.Printf("Hybrid search failed: %v", err)
		return nil, fmt.Errorf("search failed: %w", err)
	}
	searchTime := time.Since(searchStart).Seconds() * 1000

	s.logger.Printf("Found %d results in %.2fms", len(results), searchTime)

	response := &SearchResponse{
		Results:      results,
		Query:        req.Query,
		Collection:   req.Collection,
		TotalResults: len(results),
		SearchTimeMs: time.Since(startTime).Seconds() * 1000,
		FromCache:    false,
	}

	if req.UseCache {
		s.cache.Set(req, response)
	}

	return response, nil
}

// vectorizeQuery produces both retrieval signals for a query string. Either
// signal may come back empty; failures are logged, never raised.
func (s *SearchService) vectorizeQuery(ctx context.Context, query string) ([]float32, *models.SparseVector) {
	dense, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Printf("Query embedding failed, falling back to sparse only: %v", err)
		dense = nil
	}

	sparse, err := s.sparse.Encode([]string{query})
	if err != nil {
		s.logger.Printf("Sparse encoding failed, falling back to dense only: %v", err)
		sparse = nil
	}

	return dense, sparse
}

// ClearCache clears the search cache
func (s *SearchService) ClearCache() {
	s.cache.Clear()
	s.logger.Printf("Search cache cleared")
}

// GetCacheStats returns cache statistics
func (s *SearchService) GetCacheStats() map[string]interface{} {
	return s.cache.Stats()
}

func (s *SearchService) emptyResponse(req *SearchRequest, startTime time.Time) *SearchResponse {
	return &SearchResponse{
		Results:      []*models.ScoredPassage{},
		Query:        req.Query,
		Collection:   req.Collection,
		TotalResults: 0,
		SearchTimeMs: time.Since(startTime).Seconds() * 1000,
	}
}

// validateSearchRequest validates search request parameters
func (s *SearchService) validateSearchRequest(req *SearchRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return fmt.Errorf("query is required")
	}

	if req.Collection == "" {
		return fmt.Errorf("collection is required")
	}

	if req.TopK <= 0 {
		req.TopK = repositories.DefaultTopK
	}

	if req.TopK > 100 {
		return fmt.Errorf("topK cannot exceed 100")
	}

	if req.ScoreThreshold != nil && (*req.ScoreThreshold < 0 || *req.ScoreThreshold > 1) {
		return fmt.Errorf("scoreThreshold must be between 0 and 1")
	}

	return nil
}

// ============================================================================
// Search Cache Implementation
// ============================================================================

type searchCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
	hits    atomic.Int64
	misses  atomic.Int64
}

type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

func newSearchCache(ttl time.Duration) *searchCache {
	cache := &searchCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
	}

	// Start cleanup goroutine
	go cache.cleanupLoop()

	return cache
}

func (c *searchCache) cacheKey(req *SearchRequest) string {
	return fmt.Sprintf("%s:%s:%s:%d", req.Collection, req.UserID, req.Query, req.TopK)
}

func (c *searchCache) Get(req *SearchRequest) *SearchResponse {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key := c.cacheKey(req)
	entry, exists := c.entries[key]

	if !exists || time.Now().After(entry.expiresAt) {
		c.misses.Add(1)
		return nil
	}

	c.hits.Add(1)
	return entry.response
}

func (c *searchCache) Set(req *SearchRequest, resp *SearchResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := c.cacheKey(req)
	c.entries[key] = &cacheEntry{
		response:  resp,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *searchCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.hits.Store(0)
	c.misses.Store(0)
}

func (c *searchCache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hits := c.hits.Load()
	misses := c.misses.Load()
	hitRate := float64(0)
	total := hits + misses
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return map[string]interface{}{
		"hits":     hits,
		"misses":   misses,
		"size":     len(c.entries),
		"hit_rate": hitRate,
	}
}

func (c *searchCache) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.cleanup()
	}
}

func (c *searchCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}
