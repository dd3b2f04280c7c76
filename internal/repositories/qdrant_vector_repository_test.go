package repositories

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-chatbot/internal/db"
	"rag-chatbot/internal/models"
)

// fakeQdrant is a minimal in-test Qdrant REST endpoint. Each route maps a
// "METHOD path" key to a canned response; unrouted requests get a 404.
type fakeQdrant struct {
	routes   map[string]fakeResponse
	requests []fakeRequest
}

type fakeResponse struct {
	status int
	body   string
}

type fakeRequest struct {
	Method string
	Path   string
	Body   map[string]interface{}
}

func newFakeQdrant(t *testing.T) (*fakeQdrant, VectorRepository) {
	t.Helper()

	fake := &fakeQdrant{routes: map[string]fakeResponse{}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := fakeRequest{Method: r.Method, Path: r.URL.Path}
		if r.Body != nil {
			var body map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				req.Body = body
			}
		}
		fake.requests = append(fake.requests, req)

		resp, ok := fake.routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(resp.status)
		w.Write([]byte(resp.body))
	}))
	t.Cleanup(server.Close)

	client := db.NewQdrantClient(db.QdrantConfig{URL: server.URL, Timeout: 5 * time.Second})
	repo := NewQdrantVectorRepository(client, log.New(io.Discard, "", 0))
	return fake, repo
}

func (f *fakeQdrant) route(method, path string, status int, body string) {
	f.routes[method+" "+path] = fakeResponse{status: status, body: body}
}

func (f *fakeQdrant) calls(method, path string) int {
	count := 0
	for _, req := range f.requests {
		if req.Method == method && req.Path == path {
			count++
		}
	}
	return count
}

func TestEnsureCollection(t *testing.T) {
	t.Run("creates a missing collection", func(t *testing.T) {
		fake, repo := newFakeQdrant(t)
		fake.route(http.MethodGet, "/collections/knowledge-base/exists", http.StatusOK,
			`{"result":{"exists":false}}`)
		fake.route(http.MethodPut, "/collections/knowledge-base", http.StatusOK,
			`{"result":true}`)

		created, err := repo.EnsureCollection(context.Background(), "knowledge-base", string(models.DistanceCosine))

		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, 1, fake.calls(http.MethodPut, "/collections/knowledge-base"))
	})

	t.Run("existing collection is left alone", func(t *testing.T) {
		fake, repo := newFakeQdrant(t)
		fake.route(http.MethodGet, "/collections/knowledge-base/exists", http.StatusOK,
			`{"result":{"exists":true}}`)

		created, err := repo.EnsureCollection(context.Background(), "knowledge-base", "")

		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, 0, fake.calls(http.MethodPut, "/collections/knowledge-base"))
	})

	t.Run("existence check failure propagates", func(t *testing.T) {
		fake, repo := newFakeQdrant(t)
		fake.route(http.MethodGet, "/collections/knowledge-base/exists", http.StatusInternalServerError, "")

		_, err := repo.EnsureCollection(context.Background(), "knowledge-base", "")

		require.Error(t, err)
		var repoErr *VectorRepositoryError
		assert.ErrorAs(t, err, &repoErr)
	})
}

func TestUpsertPassages(t *testing.T) {
	passage := func() *models.Passage {
		return &models.Passage{
			ID:                "8b7d3c1a-60f0-4d61-9a3e-2a1f9f0b5c44",
			Source:            "policy.pdf",
			Title:             "policy.pdf",
			Excerpt:           "Preventive care is covered in full.",
			ExcerptPageNumber: 1,
			DenseVector:       []float32{0.1, 0.2, 0.3},
			SparseVector:      &models.SparseVector{Indices: []uint32{12, 88}, Values: []float32{0.6, 0.8}},
			Metadata:          map[string]interface{}{"document_id": "doc-1", "user_id": "user-1"},
		}
	}

	t.Run("writes points with both vector spaces", func(t *testing.T) {
		fake, repo := newFakeQdrant(t)
		fake.route(http.MethodPut, "/collections/knowledge-base/points", http.StatusOK, `{"result":true}`)

		err := repo.UpsertPassages(context.Background(), "knowledge-base", []*models.Passage{passage()})

		require.NoError(t, err)
		require.Equal(t, 1, fake.calls(http.MethodPut, "/collections/knowledge-base/points"))

		body := fake.requests[0].Body
		points, ok := body["points"].([]interface{})
		require.True(t, ok)
		require.Len(t, points, 1)

		point := points[0].(map[string]interface{})
		vector := point["vector"].(map[string]interface{})
		assert.Contains(t, vector, models.DenseVectorName)
		assert.Contains(t, vector, models.SparseVectorName)

		payload := point["payload"].(map[string]interface{})
		assert.Equal(t, "policy.pdf", payload["source"])
		assert.Equal(t, float64(1), payload["excerpt_page_number"])
	})

	t.Run("invalid passage rejects the whole batch", func(t *testing.T) {
		fake, repo := newFakeQdrant(t)
		bad := passage()
		bad.ExcerptPageNumber = 0

		err := repo.UpsertPassages(context.Background(), "knowledge-base", []*models.Passage{bad})

		require.Error(t, err)
		assert.Empty(t, fake.requests)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		fake, repo := newFakeQdrant(t)

		err := repo.UpsertPassages(context.Background(), "knowledge-base", nil)

		require.NoError(t, err)
		assert.Empty(t, fake.requests)
	})
}

func TestHybridSearch(t *testing.T) {
	query := HybridQuery{
		Dense:          []float32{0.4, 0.6},
		Sparse:         &models.SparseVector{Indices: []uint32{5}, Values: []float32{1}},
		TopK:           5,
		ScoreThreshold: 0.7,
	}

	t.Run("maps hits onto scored passages", func(t *testing.T) {
		fake, repo := newFakeQdrant(t)
		fake.route(http.MethodPost, "/collections/knowledge-base/points/query", http.StatusOK,
			`{"result":{"points":[{"id":"p1","score":0.92,"payload":{"source":"policy.pdf","title":"policy.pdf","excerpt":"Preventive care is covered.","excerpt_page_number":3,"metadata":{"document_id":"doc-1"}}}]}}`)

		results, err := repo.HybridSearch(context.Background(), "knowledge-base", query)

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "p1", results[0].ID)
		assert.Equal(t, "Preventive care is covered.", results[0].Excerpt)
		assert.Equal(t, 3, results[0].ExcerptPageNumber)
		assert.InDelta(t, 0.92, float64(results[0].Score), 1e-6)
	})

	t.Run("store failure degrades to an empty result list", func(t *testing.T) {
		fake, repo := newFakeQdrant(t)
		fake.route(http.MethodPost, "/collections/knowledge-base/points/query", http.StatusInternalServerError, "boom")

		results, err := repo.HybridSearch(context.Background(), "knowledge-base", query)

		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})

	t.Run("zero top k falls back to the default", func(t *testing.T) {
		fake, repo := newFakeQdrant(t)
		fake.route(http.MethodPost, "/collections/knowledge-base/points/query", http.StatusOK,
			`{"result":{"points":[]}}`)

		q := query
		q.TopK = 0
		_, err := repo.HybridSearch(context.Background(), "knowledge-base", q)

		require.NoError(t, err)
		require.Len(t, fake.requests, 1)
		assert.Equal(t, float64(DefaultTopK), fake.requests[0].Body["limit"])
	})
}

func TestUpdateDocumentMetadata(t *testing.T) {
	t.Run("merges new fields into existing metadata", func(t *testing.T) {
		fake, repo := newFakeQdrant(t)
		fake.route(http.MethodPost, "/collections/knowledge-base/points/scroll", http.StatusOK,
			`{"result":{"points":[{"id":"p1","payload":{"metadata":{"document_id":"doc-1","category":"claims"}}}]}}`)
		fake.route(http.MethodPost, "/collections/knowledge-base/points/payload", http.StatusOK,
			`{"result":true}`)

		err := repo.UpdateDocumentMetadata(context.Background(), "knowledge-base",
			"doc-1", "user-1", string(models.DocumentTypeRepository),
			map[string]interface{}{"reviewed": true})

		require.NoError(t, err)
		require.Equal(t, 1, fake.calls(http.MethodPost, "/collections/knowledge-base/points/payload"))

		var setBody map[string]interface{}
		for _, req := range fake.requests {
			if req.Path == "/collections/knowledge-base/points/payload" {
				setBody = req.Body
			}
		}
		require.NotNil(t, setBody)
		merged := setBody["payload"].(map[string]interface{})["metadata"].(map[string]interface{})
		assert.Equal(t, "claims", merged["category"])
		assert.Equal(t, true, merged["reviewed"])
		assert.Contains(t, merged, "updated_at")
	})

	t.Run("no matching passages is a not-found error", func(t *testing.T) {
		fake, repo := newFakeQdrant(t)
		fake.route(http.MethodPost, "/collections/knowledge-base/points/scroll", http.StatusOK,
			`{"result":{"points":[]}}`)

		err := repo.UpdateDocumentMetadata(context.Background(), "knowledge-base",
			"doc-1", "user-1", string(models.DocumentTypeRepository), nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "doc-1")
	})
}

func TestDeleteDocument(t *testing.T) {
	t.Run("filters on document and user", func(t *testing.T) {
		fake, repo := newFakeQdrant(t)
		fake.route(http.MethodPost, "/collections/knowledge-base/points/delete", http.StatusOK,
			`{"result":true}`)

		err := repo.DeleteDocument(context.Background(), "knowledge-base", "doc-1", "user-1")

		require.NoError(t, err)
		require.Len(t, fake.requests, 1)
		filter := fake.requests[0].Body["filter"].(map[string]interface{})
		must := filter["must"].([]interface{})
		assert.Len(t, must, 2)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		fake, repo := newFakeQdrant(t)
		fake.route(http.MethodPost, "/collections/knowledge-base/points/delete", http.StatusInternalServerError, "")

		err := repo.DeleteDocument(context.Background(), "knowledge-base", "doc-1", "user-1")

		require.Error(t, err)
		var repoErr *VectorRepositoryError
		assert.ErrorAs(t, err, &repoErr)
	})
}
