package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"rag-chatbot/internal/models"
)

const (
	// Redis key prefixes
	messageKeyPrefix    = "chat:message:"
	messageLogKeyPrefix = "chat:messages:"
)

// RedisMessageRepository implements MessageRepository using Redis. Each
// message lives under its own key; a sorted set per user orders message IDs
// by creation time so the log reads back in insertion order.
type RedisMessageRepository struct {
	client *redis.Client
}

// NewRedisMessageRepository creates a new Redis-based message repository
func NewRedisMessageRepository(client *redis.Client) *RedisMessageRepository {
	return &RedisMessageRepository{
		client: client,
	}
}

// Append adds a message to the end of the user's conversation log
func (r *RedisMessageRepository) Append(ctx context.Context, msg *models.ChatMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.UpdatedAt = msg.CreatedAt

	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return NewMessageRepositoryError("append", msg.UserID, err, "failed to marshal message")
	}

	// Nanosecond score keeps same-second messages in insertion order
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, messageKeyPrefix+msg.UserID+":"+msg.ID, msgJSON, 0)
	pipe.ZAdd(ctx, messageLogKeyPrefix+msg.UserID, redis.Z{
		Score:  float64(msg.CreatedAt.UnixNano()),
		Member: msg.ID,
	})

	_, err = pipe.Exec(ctx)
	if err != nil {
		return NewMessageRepositoryError("append", msg.UserID, err, "failed to execute transaction")
	}

	return nil
}

// History returns the user's full conversation log, oldest first
func (r *RedisMessageRepository) History(ctx context.Context, userID string) ([]*models.ChatMessage, error) {
	msgIDs, err := r.client.ZRange(ctx, messageLogKeyPrefix+userID, 0, -1).Result()
	if err != nil {
		return nil, NewMessageRepositoryError("history", userID, err, "")
	}

	if len(msgIDs) == 0 {
		return []*models.ChatMessage{}, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(msgIDs))
	for i, id := range msgIDs {
		cmds[i] = pipe.Get(ctx, messageKeyPrefix+userID+":"+id)
	}

	_, err = pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return nil, NewMessageRepositoryError("history", userID, err, "failed to execute batch get")
	}

	messages := make([]*models.ChatMessage, 0, len(msgIDs))
	for i, cmd := range cmds {
		msgJSON, err := cmd.Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, NewMessageRepositoryError("history", userID, err, "")
		}

		var msg models.ChatMessage
		if err := json.Unmarshal([]byte(msgJSON), &msg); err != nil {
			return nil, NewMessageRepositoryError("history", userID, err, "failed to unmarshal message: "+msgIDs[i])
		}
		messages = append(messages, &msg)
	}

	return messages, nil
}

// LatestSystemMessage returns the most recent system message in the log, or
// MessageNotFoundError when the user has no session yet
func (r *RedisMessageRepository) LatestSystemMessage(ctx context.Context, userID string) (*models.ChatMessage, error) {
	messages, err := r.History(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleSystem {
			return messages[i], nil
		}
	}

	return nil, MessageNotFoundError(userID)
}

// UpdateMessage rewrites an existing message in place. Its position in the
// log does not change.
func (r *RedisMessageRepository) UpdateMessage(ctx context.Context, msg *models.ChatMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	msgKey := messageKeyPrefix + msg.UserID + ":" + msg.ID
	exists, err := r.client.Exists(ctx, msgKey).Result()
	if err != nil {
		return NewMessageRepositoryError("update_message", msg.UserID, err, "")
	}
	if exists == 0 {
		return MessageNotFoundError(msg.UserID)
	}

	msg.UpdatedAt = time.Now()

	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return NewMessageRepositoryError("update_message", msg.UserID, err, "failed to marshal message")
	}

	if err := r.client.Set(ctx, msgKey, msgJSON, 0).Err(); err != nil {
		return NewMessageRepositoryError("update_message", msg.UserID, err, "")
	}

	return nil
}

// HasHistory reports whether the user has any persisted messages
func (r *RedisMessageRepository) HasHistory(ctx context.Context, userID string) (bool, error) {
	count, err := r.client.ZCard(ctx, messageLogKeyPrefix+userID).Result()
	if err != nil {
		return false, NewMessageRepositoryError("has_history", userID, err, "")
	}
	return count > 0, nil
}

// Ping checks if Redis connection is alive
func (r *RedisMessageRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
