package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"rag-chatbot/config"
	"rag-chatbot/internal/db"
	"rag-chatbot/internal/handlers"
	"rag-chatbot/internal/llm"
	"rag-chatbot/internal/pdf"
	"rag-chatbot/internal/repositories"
	"rag-chatbot/internal/routes"
	"rag-chatbot/internal/services"
	"rag-chatbot/internal/textsplit"
	"rag-chatbot/internal/vectorize"

	"github.com/gorilla/mux"
)

// corsMiddleware adds CORS headers to all responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func NewServer() (*http.Server, error) {
	logger := log.New(os.Stdout, "[SERVER] ", log.LstdFlags)
	cfg := config.Load(logger)

	redisClient, qdrantClient, err := connectStores(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Repositories
	docRepo := repositories.NewRedisDocumentRepository(redisClient.GetClient())
	msgRepo := repositories.NewRedisMessageRepository(redisClient.GetClient())
	userRepo := repositories.NewRedisUserRepository(redisClient.GetClient())
	vectorRepo := repositories.NewQdrantVectorRepository(qdrantClient, logger)

	// Vectorizers and the completion client
	embedder, err := vectorize.NewOpenAIEmbedder(vectorize.OpenAIEmbedderConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.EmbeddingModel,
	})
	if err != nil {
		return nil, err
	}
	sparse := vectorize.NewSparseEncoder()

	completion, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.ChatModel,
	})
	if err != nil {
		return nil, err
	}

	// Services
	splitter := textsplit.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap, textsplit.DefaultSeparators())
	extractor := pdf.NewExtractor()

	ingestionService := services.NewIngestionService(extractor, splitter, embedder, sparse, vectorRepo, docRepo, logger)
	searchService := services.NewSearchService(embedder, sparse, vectorRepo, logger)
	collectionService := services.NewCollectionService(vectorRepo, docRepo, logger)
	chatService := services.NewChatService(completion, searchService, msgRepo, userRepo, cfg.CollectionName, logger)

	// Handlers
	healthHandler := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"redis":  docRepo,
		"qdrant": vectorRepo,
	})
	h := &routes.Handlers{
		Health:            healthHandler.Health,
		DocHandler:        handlers.NewDocumentHandler(ingestionService, cfg.CollectionName, logger),
		SearchHandler:     handlers.NewSearchHandler(searchService, cfg.CollectionName, logger),
		ChatHandler:       handlers.NewChatHandler(chatService, logger),
		CollectionHandler: handlers.NewCollectionHandler(collectionService, logger),
	}

	router := mux.NewRouter()
	routes.RegisterRoutes(router, h)

	logger.Printf("Server configured on %s (collection: %s)", cfg.ServerAddr, cfg.CollectionName)

	return &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      corsMiddleware(router),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
	}, nil
}

// connectStores opens and health-checks the Redis and Qdrant connections
func connectStores(cfg *config.Config, logger *log.Logger) (*db.RedisClient, *db.QdrantClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisConfig := db.DefaultRedisConfig()
	redisConfig.Host = cfg.RedisHost
	redisConfig.Port = cfg.RedisPort
	redisConfig.Password = cfg.RedisPassword
	redisConfig.DB = cfg.RedisDB
	redisConfig.PoolSize = cfg.RedisPoolSize

	logger.Printf("Connecting to Redis: %s:%d (DB: %d)", redisConfig.Host, redisConfig.Port, redisConfig.DB)
	redisClient, err := db.NewRedisClient(redisConfig)
	if err != nil {
		return nil, nil, err
	}
	if err := redisClient.Ping(ctx); err != nil {
		return nil, nil, err
	}
	logger.Println("Redis connected")

	qdrantClient := db.NewQdrantClient(db.QdrantConfig{
		URL:     cfg.QdrantURL,
		APIKey:  cfg.QdrantAPIKey,
		Timeout: cfg.QdrantTimeout,
	})

	logger.Printf("Connecting to Qdrant: %s", cfg.QdrantURL)
	if err := qdrantClient.Healthz(ctx); err != nil {
		return nil, nil, err
	}
	logger.Println("Qdrant connected")

	return redisClient, qdrantClient, nil
}
