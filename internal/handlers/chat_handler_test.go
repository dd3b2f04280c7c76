package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"rag-chatbot/internal/models"
	"rag-chatbot/internal/repositories"
	"rag-chatbot/internal/services"
)

type stubMessageRepo struct {
	repositories.MessageRepository
	hasHistory bool
}

func (s *stubMessageRepo) HasHistory(ctx context.Context, userID string) (bool, error) {
	return s.hasHistory, nil
}

type stubUserRepo struct {
	repositories.UserRepository
}

func (s *stubUserRepo) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	return nil, errors.New("user not found: " + userID)
}

func newChatHandlerFixture(hasHistory bool) *ChatHandler {
	logger := log.New(io.Discard, "", 0)
	svc := services.NewChatService(nil, nil, &stubMessageRepo{hasHistory: hasHistory}, &stubUserRepo{}, "knowledge-base", logger)
	return NewChatHandler(svc, logger)
}

func TestStartChatHandler(t *testing.T) {
	t.Run("existing session conflicts", func(t *testing.T) {
		handler := newChatHandlerFixture(true)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/start", nil)
		req.Header.Set("X-User-ID", "user-1")

		rr := httptest.NewRecorder()
		handler.StartChat(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Contains(t, rr.Body.String(), "already exists")
	})

	t.Run("unknown user is not found", func(t *testing.T) {
		handler := newChatHandlerFixture(false)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/start", nil)
		req.Header.Set("X-User-ID", "nobody")

		rr := httptest.NewRecorder()
		handler.StartChat(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
