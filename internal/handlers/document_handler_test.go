package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-chatbot/internal/models"
	"rag-chatbot/internal/pdf"
	"rag-chatbot/internal/repositories"
	"rag-chatbot/internal/services"
	"rag-chatbot/internal/textsplit"
	"rag-chatbot/internal/vectorize"
)

// Stubs embed the repository interfaces so only the methods the upload path
// touches need real bodies.

type stubVectorRepo struct {
	repositories.VectorRepository
	collections []string
}

func (s *stubVectorRepo) EnsureCollection(ctx context.Context, name string, distanceStrategy string) (bool, error) {
	s.collections = append(s.collections, name)
	return true, nil
}

func (s *stubVectorRepo) UpsertPassages(ctx context.Context, collectionName string, passages []*models.Passage) error {
	return nil
}

type stubDocRepo struct {
	repositories.DocumentRepository
}

func (s *stubDocRepo) Register(ctx context.Context, doc *models.Document) error {
	return nil
}

func (s *stubDocRepo) Update(ctx context.Context, documentID string, updates map[string]interface{}) error {
	return nil
}

type stubEmbedder struct{}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func (s *stubEmbedder) Dimension() int {
	return models.DenseVectorSize
}

type stubExtractor struct{}

func (s *stubExtractor) ExtractPages(data []byte) ([]pdf.Page, error) {
	return []pdf.Page{{Number: 1, Text: "Deductible applies to specialist consultations."}}, nil
}

func newUploadFixture() (*DocumentHandler, *stubVectorRepo) {
	logger := log.New(io.Discard, "", 0)
	vectorRepo := &stubVectorRepo{}

	svc := services.NewIngestionService(
		&stubExtractor{},
		textsplit.NewSplitter(textsplit.DefaultChunkSize, textsplit.DefaultChunkOverlap, nil),
		&stubEmbedder{},
		vectorize.NewSparseEncoder(),
		vectorRepo,
		&stubDocRepo{},
		logger,
	)
	return NewDocumentHandler(svc, "knowledge-base", logger), vectorRepo
}

func uploadRequest(t *testing.T, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "policy.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 policy document body"))
	require.NoError(t, err)

	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-User-ID", "user-1")
	return req
}

func TestUploadDocument(t *testing.T) {
	t.Run("collection form field targets the ingestion", func(t *testing.T) {
		handler, vectorRepo := newUploadFixture()

		rr := httptest.NewRecorder()
		handler.UploadDocument(rr, uploadRequest(t, map[string]string{"collection": "private-docs"}))

		require.Equal(t, http.StatusCreated, rr.Code)

		var resp services.IngestResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "private-docs", resp.Collection)
		assert.Equal(t, []string{"private-docs"}, vectorRepo.collections)
	})

	t.Run("missing collection field falls back to the default", func(t *testing.T) {
		handler, vectorRepo := newUploadFixture()

		rr := httptest.NewRecorder()
		handler.UploadDocument(rr, uploadRequest(t, nil))

		require.Equal(t, http.StatusCreated, rr.Code)

		var resp services.IngestResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "knowledge-base", resp.Collection)
		assert.Equal(t, []string{"knowledge-base"}, vectorRepo.collections)
	})

	t.Run("missing user header is unauthorized", func(t *testing.T) {
		handler, _ := newUploadFixture()

		req := uploadRequest(t, nil)
		req.Header.Del("X-User-ID")

		rr := httptest.NewRecorder()
		handler.UploadDocument(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
