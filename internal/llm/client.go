package llm

import (
	"context"

	"rag-chatbot/internal/models"
)

// CompletionClient generates one assistant reply for an ordered message
// history. Implementations must honor context cancellation so callers can
// enforce deadlines on completion calls.
type CompletionClient interface {
	Complete(ctx context.Context, messages []models.ChatMessage) (string, error)
}
