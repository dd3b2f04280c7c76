package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rag-chatbot/internal/models"
)

func newCollectionFixture() (*CollectionService, *MockVectorRepository, *MockDocumentRepository) {
	vectorRepo := new(MockVectorRepository)
	docRepo := new(MockDocumentRepository)
	service := NewCollectionService(vectorRepo, docRepo, testLogger())
	return service, vectorRepo, docRepo
}

func TestCollectionServiceEnsureCollection(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a missing collection", func(t *testing.T) {
		service, vectorRepo, _ := newCollectionFixture()
		vectorRepo.On("EnsureCollection", mock.Anything, "knowledge-base", models.DistanceCosine).Return(true, nil)

		created, err := service.EnsureCollection(ctx, "knowledge-base", models.DistanceCosine)

		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("existing collection reports not created", func(t *testing.T) {
		service, vectorRepo, _ := newCollectionFixture()
		vectorRepo.On("EnsureCollection", mock.Anything, "knowledge-base", "").Return(false, nil)

		created, err := service.EnsureCollection(ctx, "knowledge-base", "")

		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("rejects invalid names", func(t *testing.T) {
		service, vectorRepo, _ := newCollectionFixture()

		for _, name := range []string{"", "ab", "has space", "bad/slash", string(make([]byte, 64))} {
			_, err := service.EnsureCollection(ctx, name, "")
			require.Error(t, err, "name %q should be rejected", name)
			assert.Contains(t, err.Error(), "invalid collection name")
		}
		vectorRepo.AssertNotCalled(t, "EnsureCollection", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCollectionServiceDeleteCollection(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes the collection and its registry records", func(t *testing.T) {
		service, vectorRepo, docRepo := newCollectionFixture()

		vectorRepo.On("CollectionExists", mock.Anything, "knowledge-base").Return(true, nil)
		docRepo.On("List", mock.Anything).Return([]*models.Document{
			{ID: "doc-1", Filename: "a.pdf", OwnerID: "user-1", Collection: "knowledge-base"},
			{ID: "doc-2", Filename: "b.pdf", OwnerID: "user-2", Collection: "knowledge-base"},
			{ID: "doc-3", Filename: "c.pdf", OwnerID: "user-1", Collection: "other"},
		}, nil)
		vectorRepo.On("DeleteCollection", mock.Anything, "knowledge-base").Return(nil)
		docRepo.On("Delete", mock.Anything, "doc-1").Return(nil)
		docRepo.On("Delete", mock.Anything, "doc-2").Return(nil)

		resp, err := service.DeleteCollection(ctx, "knowledge-base")

		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, 2, resp.DocumentsCount)
		assert.Equal(t, 2, resp.DeletedDocs)
		docRepo.AssertNotCalled(t, "Delete", mock.Anything, "doc-3")
	})

	t.Run("missing collection is not found", func(t *testing.T) {
		service, vectorRepo, _ := newCollectionFixture()
		vectorRepo.On("CollectionExists", mock.Anything, "nothing-here").Return(false, nil)

		_, err := service.DeleteCollection(ctx, "nothing-here")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "collection not found")
	})

	t.Run("registry failures are non-fatal", func(t *testing.T) {
		service, vectorRepo, docRepo := newCollectionFixture()

		vectorRepo.On("CollectionExists", mock.Anything, "knowledge-base").Return(true, nil)
		docRepo.On("List", mock.Anything).Return(nil, errors.New("redis unavailable"))
		vectorRepo.On("DeleteCollection", mock.Anything, "knowledge-base").Return(nil)

		resp, err := service.DeleteCollection(ctx, "knowledge-base")

		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, 0, resp.DocumentsCount)
	})
}

func TestCollectionServiceCollectionExists(t *testing.T) {
	ctx := context.Background()

	service, vectorRepo, _ := newCollectionFixture()
	vectorRepo.On("CollectionExists", mock.Anything, "knowledge-base").Return(true, nil)

	exists, err := service.CollectionExists(ctx, "knowledge-base")

	require.NoError(t, err)
	assert.True(t, exists)
}
