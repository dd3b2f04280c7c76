package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, sourced from the environment with
// optional .env overrides
type Config struct {
	ServerAddr string

	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int
	RedisPoolSize int

	QdrantURL     string
	QdrantAPIKey  string
	QdrantTimeout time.Duration

	OpenAIAPIKey   string
	OpenAIBaseURL  string
	ChatModel      string
	EmbeddingModel string

	CollectionName string

	ChunkSize    int
	ChunkOverlap int
}

// Load reads configuration from a .env file (when present) and the process
// environment. Missing values fall back to development defaults.
func Load(logger *log.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		logger.Printf("No .env file loaded: %v", err)
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPoolSize: getEnvInt("REDIS_POOL_SIZE", 10),

		QdrantURL:     getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:  getEnv("QDRANT_API_KEY", ""),
		QdrantTimeout: getEnvDuration("QDRANT_TIMEOUT", 30*time.Second),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		ChatModel:      getEnv("CHAT_MODEL", ""),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", ""),

		CollectionName: getEnv("QDRANT_COLLECTION_NAME", "knowledge-base"),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
