package repositories

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"rag-chatbot/internal/models"
)

const userKeyPrefix = "user:"

// RedisUserRepository implements UserRepository using Redis
type RedisUserRepository struct {
	client *redis.Client
}

// NewRedisUserRepository creates a new Redis-based user repository
func NewRedisUserRepository(client *redis.Client) *RedisUserRepository {
	return &RedisUserRepository{
		client: client,
	}
}

// Get retrieves a user profile by ID
func (r *RedisUserRepository) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	profileJSON, err := r.client.Get(ctx, userKeyPrefix+userID).Result()
	if err == redis.Nil {
		return nil, UserNotFoundError(userID)
	}
	if err != nil {
		return nil, NewUserRepositoryError("get", userID, err, "")
	}

	var profile models.UserProfile
	if err := json.Unmarshal([]byte(profileJSON), &profile); err != nil {
		return nil, NewUserRepositoryError("get", userID, err, "failed to unmarshal user profile")
	}

	return &profile, nil
}

// Save stores a user profile
func (r *RedisUserRepository) Save(ctx context.Context, profile *models.UserProfile) error {
	if profile.ID == "" {
		return &models.ValidationError{Field: "id", Message: "user ID is required"}
	}

	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return NewUserRepositoryError("save", profile.ID, err, "failed to marshal user profile")
	}

	if err := r.client.Set(ctx, userKeyPrefix+profile.ID, profileJSON, 0).Err(); err != nil {
		return NewUserRepositoryError("save", profile.ID, err, "")
	}

	return nil
}
