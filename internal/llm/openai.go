package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"rag-chatbot/internal/models"
)

// OpenAIConfig contains configuration for the OpenAI completion client
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // optional custom base URL
	Model   string // defaults to gpt-4o
}

// OpenAIClient implements CompletionClient using the OpenAI chat API
type OpenAIClient struct {
	client *openai.Client
	model  string
}

var _ CompletionClient = (*OpenAIClient)(nil)

// NewOpenAIClient creates a new OpenAI completion client
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4o
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}, nil
}

// Complete sends the message history to the chat completions API and returns
// the assistant reply
func (c *OpenAIClient) Complete(ctx context.Context, messages []models.ChatMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toOpenAIMessages(messages),
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []models.ChatMessage) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case models.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case models.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		result = append(result, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}
	return result
}
