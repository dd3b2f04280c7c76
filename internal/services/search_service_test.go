package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rag-chatbot/internal/models"
	"rag-chatbot/internal/repositories"
	"rag-chatbot/internal/vectorize"
)

func newSearchFixture() (*SearchService, *MockEmbedder, *MockVectorRepository) {
	embedder := new(MockEmbedder)
	vectorRepo := new(MockVectorRepository)
	service := NewSearchService(embedder, vectorize.NewSparseEncoder(), vectorRepo, testLogger())
	return service, embedder, vectorRepo
}

func TestSearchPassages(t *testing.T) {
	ctx := context.Background()

	t.Run("validates the request", func(t *testing.T) {
		service, _, _ := newSearchFixture()

		_, err := service.SearchPassages(ctx, &SearchRequest{Collection: "knowledge-base"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query is required")

		_, err = service.SearchPassages(ctx, &SearchRequest{Query: "   \t\n", Collection: "knowledge-base"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query is required")

		_, err = service.SearchPassages(ctx, &SearchRequest{Query: "deductible"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "collection is required")

		_, err = service.SearchPassages(ctx, &SearchRequest{
			Query: "deductible", Collection: "knowledge-base", TopK: 500,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed 100")

		bad := float32(1.5)
		_, err = service.SearchPassages(ctx, &SearchRequest{
			Query: "deductible", Collection: "knowledge-base", ScoreThreshold: &bad,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "between 0 and 1")
	})

	t.Run("missing collection is not found", func(t *testing.T) {
		service, _, vectorRepo := newSearchFixture()
		vectorRepo.On("CollectionExists", mock.Anything, "nothing-here").Return(false, nil)

		_, err := service.SearchPassages(ctx, &SearchRequest{
			Query: "deductible", Collection: "nothing-here",
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "collection not found")
	})

	t.Run("searches with defaults and user filter", func(t *testing.T) {
		service, embedder, vectorRepo := newSearchFixture()

		vectorRepo.On("CollectionExists", mock.Anything, "knowledge-base").Return(true, nil)
		embedder.On("Embed", mock.Anything, "specialist deductible").Return([]float32{0.1, 0.2}, nil)

		var captured repositories.HybridQuery
		vectorRepo.On("HybridSearch", mock.Anything, "knowledge-base", mock.Anything).
			Run(func(args mock.Arguments) {
				captured = args.Get(2).(repositories.HybridQuery)
			}).
			Return([]*models.ScoredPassage{
				{ID: "p1", Title: "policy.pdf", Excerpt: "Deductible applies.", Score: 0.88},
			}, nil)

		resp, err := service.SearchPassages(ctx, &SearchRequest{
			Query:      "specialist deductible",
			Collection: "knowledge-base",
			UserID:     "user-1",
		})

		require.NoError(t, err)
		assert.Equal(t, 1, resp.TotalResults)
		assert.False(t, resp.FromCache)

		assert.Equal(t, repositories.DefaultTopK, captured.TopK)
		assert.InDelta(t, repositories.DefaultScoreThreshold, float64(captured.ScoreThreshold), 1e-6)
		assert.Equal(t, []float32{0.1, 0.2}, captured.Dense)
		assert.False(t, captured.Sparse.IsEmpty())
		assert.Equal(t, "user-1", captured.Filter["metadata.user_id"])
	})

	t.Run("failed embedding degrades to sparse only", func(t *testing.T) {
		service, embedder, vectorRepo := newSearchFixture()

		vectorRepo.On("CollectionExists", mock.Anything, "knowledge-base").Return(true, nil)
		embedder.On("Embed", mock.Anything, mock.Anything).Return(nil, errors.New("embedding unavailable"))

		var captured repositories.HybridQuery
		vectorRepo.On("HybridSearch", mock.Anything, "knowledge-base", mock.Anything).
			Run(func(args mock.Arguments) {
				captured = args.Get(2).(repositories.HybridQuery)
			}).
			Return([]*models.ScoredPassage{}, nil)

		resp, err := service.SearchPassages(ctx, &SearchRequest{
			Query:      "specialist deductible",
			Collection: "knowledge-base",
		})

		require.NoError(t, err)
		assert.Equal(t, 0, resp.TotalResults)
		assert.Empty(t, captured.Dense)
		assert.False(t, captured.Sparse.IsEmpty())
	})

	t.Run("no usable signal returns empty without searching", func(t *testing.T) {
		service, embedder, vectorRepo := newSearchFixture()

		vectorRepo.On("CollectionExists", mock.Anything, "knowledge-base").Return(true, nil)
		embedder.On("Embed", mock.Anything, mock.Anything).Return(nil, errors.New("embedding unavailable"))

		// Stop words only, so the sparse signal is empty too
		resp, err := service.SearchPassages(ctx, &SearchRequest{
			Query:      "the and of",
			Collection: "knowledge-base",
		})

		require.NoError(t, err)
		assert.Equal(t, 0, resp.TotalResults)
		assert.NotNil(t, resp.Results)
		vectorRepo.AssertNotCalled(t, "HybridSearch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("caches repeated queries", func(t *testing.T) {
		service, embedder, vectorRepo := newSearchFixture()

		vectorRepo.On("CollectionExists", mock.Anything, "knowledge-base").Return(true, nil)
		embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
		vectorRepo.On("HybridSearch", mock.Anything, "knowledge-base", mock.Anything).
			Return([]*models.ScoredPassage{{ID: "p1", Title: "policy.pdf", Score: 0.9}}, nil).Once()

		req := &SearchRequest{
			Query:      "specialist deductible",
			Collection: "knowledge-base",
			UseCache:   true,
		}

		first, err := service.SearchPassages(ctx, req)
		require.NoError(t, err)
		assert.False(t, first.FromCache)

		second, err := service.SearchPassages(ctx, req)
		require.NoError(t, err)
		assert.True(t, second.FromCache)
		assert.Equal(t, first.TotalResults, second.TotalResults)

		vectorRepo.AssertNumberOfCalls(t, "HybridSearch", 1)
	})

	t.Run("custom threshold is forwarded", func(t *testing.T) {
		service, embedder, vectorRepo := newSearchFixture()

		vectorRepo.On("CollectionExists", mock.Anything, "knowledge-base").Return(true, nil)
		embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)

		var captured repositories.HybridQuery
		vectorRepo.On("HybridSearch", mock.Anything, "knowledge-base", mock.Anything).
			Run(func(args mock.Arguments) {
				captured = args.Get(2).(repositories.HybridQuery)
			}).
			Return([]*models.ScoredPassage{}, nil)

		threshold := float32(0.5)
		_, err := service.SearchPassages(ctx, &SearchRequest{
			Query:          "specialist deductible",
			Collection:     "knowledge-base",
			TopK:           10,
			ScoreThreshold: &threshold,
		})

		require.NoError(t, err)
		assert.Equal(t, 10, captured.TopK)
		assert.InDelta(t, 0.5, float64(captured.ScoreThreshold), 1e-6)
	})
}

func TestSearchCache(t *testing.T) {
	t.Run("concurrent cached reads keep counters consistent", func(t *testing.T) {
		service, embedder, vectorRepo := newSearchFixture()

		vectorRepo.On("CollectionExists", mock.Anything, "knowledge-base").Return(true, nil)
		embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
		vectorRepo.On("HybridSearch", mock.Anything, "knowledge-base", mock.Anything).
			Return([]*models.ScoredPassage{{ID: "p1", Title: "policy.pdf", Score: 0.9}}, nil).Once()

		req := &SearchRequest{Query: "deductible", Collection: "knowledge-base", UseCache: true}
		_, err := service.SearchPassages(context.Background(), req)
		require.NoError(t, err)

		const readers = 20
		var wg sync.WaitGroup
		for i := 0; i < readers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				resp, err := service.SearchPassages(context.Background(), req)
				assert.NoError(t, err)
				assert.True(t, resp.FromCache)
			}()
		}
		wg.Wait()

		stats := service.GetCacheStats()
		assert.Equal(t, int64(readers), stats["hits"])
		vectorRepo.AssertNumberOfCalls(t, "HybridSearch", 1)
	})

	t.Run("clear resets entries and counters", func(t *testing.T) {
		service, embedder, vectorRepo := newSearchFixture()

		vectorRepo.On("CollectionExists", mock.Anything, "knowledge-base").Return(true, nil)
		embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
		vectorRepo.On("HybridSearch", mock.Anything, "knowledge-base", mock.Anything).
			Return([]*models.ScoredPassage{}, nil)

		req := &SearchRequest{Query: "deductible", Collection: "knowledge-base", UseCache: true}
		_, err := service.SearchPassages(context.Background(), req)
		require.NoError(t, err)

		service.ClearCache()

		stats := service.GetCacheStats()
		assert.Equal(t, 0, stats["size"])
	})
}
