package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"rag-chatbot/internal/llm"
	"rag-chatbot/internal/models"
	"rag-chatbot/internal/repositories"
)

// DefaultCompletionTimeout bounds the context-augmented completion call
const DefaultCompletionTimeout = 30 * time.Second

// ChatService owns the per-user conversation: it persists messages in order,
// renders the system prompt, folds retrieved passages into the completion
// context and enforces the completion deadline
type ChatService struct {
	completion        llm.CompletionClient
	searchService     *SearchService
	msgRepo           repositories.MessageRepository
	userRepo          repositories.UserRepository
	collectionName    string
	completionTimeout time.Duration
	logger            *log.Logger
}

// NewChatService creates a new chat service
func NewChatService(
	completion llm.CompletionClient,
	searchService *SearchService,
	msgRepo repositories.MessageRepository,
	userRepo repositories.UserRepository,
	collectionName string,
	logger *log.Logger,
) *ChatService {
	return &ChatService{
		completion:        completion,
		searchService:     searchService,
		msgRepo:           msgRepo,
		userRepo:          userRepo,
		collectionName:    collectionName,
		completionTimeout: DefaultCompletionTimeout,
		logger:            logger,
	}
}

// StartChat initializes a session for the user: renders the system prompt
// with their display name, persists it, and produces the opening assistant
// greeting from the completion service
func (s *ChatService) StartChat(ctx context.Context, userID string) (*models.ChatMessage, error) {
	if userID == "" {
		return nil, fmt.Errorf("invalid request: user ID is required")
	}

	profile, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		s.logger.Printf("Failed to load user profile for %s: %v", userID, err)
		return nil, fmt.Errorf("failed to load user profile: %w", err)
	}

	systemMsg := s.newMessage(userID, models.RoleSystem, renderSystemPrompt(profile.Name, time.Now()))
	if err := s.msgRepo.Append(ctx, systemMsg); err != nil {
		return nil, fmt.Errorf("failed to persist system message: %w", err)
	}

	history, err := s.msgRepo.History(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	content, err := s.complete(ctx, history)
	if err != nil {
		return nil, err
	}

	assistantMsg := s.newMessage(userID, models.RoleAssistant, content)
	if err := s.msgRepo.Append(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to persist assistant message: %w", err)
	}

	s.logger.Printf("Started chat session for user %s", userID)
	return assistantMsg, nil
}

// SendMessage runs one turn: persist the user message, retrieve grounding
// passages for it, augment the in-memory system message with the context
// block and produce the assistant reply. On a completion timeout no
// assistant message is persisted and the error surfaces to the caller.
func (s *ChatService) SendMessage(ctx context.Context, userID, userMessage string) (*models.ChatMessage, error) {
	if userID == "" {
		return nil, fmt.Errorf("invalid request: user ID is required")
	}
	if strings.TrimSpace(userMessage) == "" {
		return nil, fmt.Errorf("invalid request: message is required")
	}

	userMsg := s.newMessage(userID, models.RoleUser, userMessage)
	if err := s.msgRepo.Append(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}

	history, err := s.msgRepo.History(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	query, err := s.rewriteQuery(ctx, userMessage)
	if err != nil {
		return nil, err
	}

	contextBlock := s.retrieveContext(ctx, userID, query)
	if contextBlock != "" {
		// Augments only this call's history copy; the persisted system
		// message stays as written
		augmentSystemMessage(history, contextBlock)
	} else {
		s.logger.Printf("No relevant passages found for query: %s", query)
	}

	content, err := s.complete(ctx, history)
	if err != nil {
		return nil, err
	}

	assistantMsg := s.newMessage(userID, models.RoleAssistant, content)
	if err := s.msgRepo.Append(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to persist assistant message: %w", err)
	}

	return assistantMsg, nil
}

// History returns the user's conversation filtered to user and assistant
// turns, oldest first. System messages never render back to the caller.
func (s *ChatService) History(ctx context.Context, userID string) ([]*models.ChatMessage, error) {
	if userID == "" {
		return nil, fmt.Errorf("invalid request: user ID is required")
	}

	messages, err := s.msgRepo.History(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	visible := make([]*models.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == models.RoleUser || msg.Role == models.RoleAssistant {
			visible = append(visible, msg)
		}
	}
	return visible, nil
}

// RefreshSystemContext re-renders the persisted system message from the
// current profile, discarding any context previously baked into it
func (s *ChatService) RefreshSystemContext(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("invalid request: user ID is required")
	}

	profile, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user profile: %w", err)
	}

	systemMsg, err := s.msgRepo.LatestSystemMessage(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load system message: %w", err)
	}

	systemMsg.Content = renderSystemPrompt(profile.Name, time.Now())
	if err := s.msgRepo.UpdateMessage(ctx, systemMsg); err != nil {
		return fmt.Errorf("failed to update system message: %w", err)
	}

	s.logger.Printf("Refreshed system context for user %s", userID)
	return nil
}

// HasSession reports whether the user already has a persisted session
func (s *ChatService) HasSession(ctx context.Context, userID string) (bool, error) {
	return s.msgRepo.HasHistory(ctx, userID)
}

// rewriteQuery asks the completion service to strip conversational filler
// from the user message while preserving domain terms and identifiers
func (s *ChatService) rewriteQuery(ctx context.Context, userMessage string) (string, error) {
	messages := []models.ChatMessage{
		{Role: models.RoleSystem, Content: queryRewritePrompt},
		{Role: models.RoleUser, Content: userMessage},
	}

	rewritten, err := s.completion.Complete(ctx, messages)
	if err != nil {
		s.logger.Printf("Query rewrite failed: %v", err)
		return "", fmt.Errorf("failed to rewrite query: %w", err)
	}

	rewritten = strings.TrimSpace(strings.Trim(strings.TrimSpace(rewritten), `"`))
	if rewritten == "" {
		return userMessage, nil
	}
	return rewritten, nil
}

// retrieveContext runs hybrid retrieval for the rewritten query and renders
// the numbered context block. Retrieval is scoped to the user's own passages;
// retrieval failures degrade to no context.
func (s *ChatService) retrieveContext(ctx context.Context, userID, query string) string {
	resp, err := s.searchService.SearchPassages(ctx, &SearchRequest{
		Query:      query,
		Collection: s.collectionName,
		UserID:     userID,
		TopK:       repositories.DefaultTopK,
	})
	if err != nil {
		s.logger.Printf("Context retrieval failed, continuing without context: %v", err)
		return ""
	}

	lines := make([]string, 0, len(resp.Results))
	for i, result := range resp.Results {
		if result.Excerpt == "" && result.Title == "" {
			continue
		}
		lines = append(lines, renderContextLine(i+1, result.Title, result.Excerpt))
	}

	return strings.Join(lines, "\n")
}

// complete invokes the completion service under the configured deadline
func (s *ChatService) complete(ctx context.Context, history []*models.ChatMessage) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.completionTimeout)
	defer cancel()

	messages := make([]models.ChatMessage, len(history))
	for i, msg := range history {
		messages[i] = *msg
	}

	content, err := s.completion.Complete(callCtx, messages)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Printf("Completion call timed out after %s", s.completionTimeout)
			return "", CompletionTimeoutError(s.completionTimeout)
		}
		s.logger.Printf("Completion call failed: %v", err)
		return "", fmt.Errorf("completion failed: %w", err)
	}

	return content, nil
}

// newMessage builds a persistable message stamped with a fresh id
func (s *ChatService) newMessage(userID string, role models.ChatRole, content string) *models.ChatMessage {
	now := time.Now()
	return &models.ChatMessage{
		ID:        uuid.New().String(),
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// augmentSystemMessage appends the context block to the first system message
// in the given history copy
func augmentSystemMessage(history []*models.ChatMessage, contextBlock string) {
	for i, msg := range history {
		if msg.Role == models.RoleSystem {
			augmented := *msg
			augmented.Content = msg.Content + contextBlock + "\n"
			history[i] = &augmented
			return
		}
	}
}

// ChatServiceError represents errors from the chat service
type ChatServiceError struct {
	Operation string
	Err       error
	Message   string
	Timeout   bool
}

func (e *ChatServiceError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Operation + ": " + e.Err.Error()
	}
	return e.Operation + ": unknown error"
}

func (e *ChatServiceError) Unwrap() error {
	return e.Err
}

// CompletionTimeoutError indicates the completion call exceeded its deadline
func CompletionTimeoutError(timeout time.Duration) error {
	return &ChatServiceError{
		Operation: "completion",
		Err:       context.DeadlineExceeded,
		Message:   fmt.Sprintf("completion timed out after %s", timeout),
		Timeout:   true,
	}
}

// IsCompletionTimeout reports whether err is a completion deadline failure
func IsCompletionTimeout(err error) bool {
	var chatErr *ChatServiceError
	if errors.As(err, &chatErr) {
		return chatErr.Timeout
	}
	return false
}
