package repositories

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"rag-chatbot/internal/models"
)

const (
	// Redis key prefixes
	documentKeyPrefix = "document:"
	documentIndexKey  = "documents:index"
	ownerIndexKey     = "documents:owner:"
	statusIndexKey    = "documents:status:"
)

// RedisDocumentRepository implements DocumentRepository using Redis
type RedisDocumentRepository struct {
	client *redis.Client
}

// NewRedisDocumentRepository creates a new Redis-based document repository
func NewRedisDocumentRepository(client *redis.Client) *RedisDocumentRepository {
	return &RedisDocumentRepository{
		client: client,
	}
}

// Register stores a new document in the registry
func (r *RedisDocumentRepository) Register(ctx context.Context, doc *models.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	exists, err := r.Exists(ctx, doc.ID)
	if err != nil {
		return NewDocumentRepositoryError("register", doc.ID, err, "")
	}
	if exists {
		return DocumentAlreadyExistsError(doc.ID)
	}

	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return NewDocumentRepositoryError("register", doc.ID, err, "failed to marshal document")
	}

	// Use transaction to keep the record and its indexes consistent
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, documentKeyPrefix+doc.ID, docJSON, 0)
	pipe.SAdd(ctx, documentIndexKey, doc.ID)
	pipe.SAdd(ctx, ownerIndexKey+doc.OwnerID, doc.ID)
	pipe.SAdd(ctx, statusIndexKey+string(doc.Status), doc.ID)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return NewDocumentRepositoryError("register", doc.ID, err, "failed to execute transaction")
	}

	return nil
}

// Get retrieves a document by ID
func (r *RedisDocumentRepository) Get(ctx context.Context, documentID string) (*models.Document, error) {
	docJSON, err := r.client.Get(ctx, documentKeyPrefix+documentID).Result()
	if err == redis.Nil {
		return nil, DocumentNotFoundError(documentID)
	}
	if err != nil {
		return nil, NewDocumentRepositoryError("get", documentID, err, "")
	}

	var doc models.Document
	if err := json.Unmarshal([]byte(docJSON), &doc); err != nil {
		return nil, NewDocumentRepositoryError("get", documentID, err, "failed to unmarshal document")
	}

	return &doc, nil
}

// Delete removes a document from the registry
func (r *RedisDocumentRepository) Delete(ctx context.Context, documentID string) error {
	// Get the document first to clean up its index entries
	doc, err := r.Get(ctx, documentID)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, documentKeyPrefix+documentID)
	pipe.SRem(ctx, documentIndexKey, documentID)
	pipe.SRem(ctx, ownerIndexKey+doc.OwnerID, documentID)
	pipe.SRem(ctx, statusIndexKey+string(doc.Status), documentID)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return NewDocumentRepositoryError("delete", documentID, err, "failed to execute transaction")
	}

	return nil
}

// Update modifies document fields
func (r *RedisDocumentRepository) Update(ctx context.Context, documentID string, updates map[string]interface{}) error {
	doc, err := r.Get(ctx, documentID)
	if err != nil {
		return err
	}

	oldStatus := doc.Status

	for key, value := range updates {
		switch key {
		case "filename":
			if v, ok := value.(string); ok {
				doc.Filename = v
			}
		case "document_type":
			if v, ok := value.(string); ok {
				doc.DocumentType = v
			}
		case "chunk_count":
			if v, ok := value.(int); ok {
				doc.ChunkCount = v
			} else if v, ok := value.(float64); ok {
				doc.ChunkCount = int(v)
			}
		case "file_size":
			if v, ok := value.(int64); ok {
				doc.FileSize = v
			} else if v, ok := value.(float64); ok {
				doc.FileSize = int64(v)
			}
		case "status":
			if v, ok := value.(string); ok {
				doc.Status = models.DocumentStatus(v)
			} else if v, ok := value.(models.DocumentStatus); ok {
				doc.Status = v
			}
		case "metadata":
			if v, ok := value.(map[string]interface{}); ok {
				doc.Metadata = v
			}
		}
	}

	doc.UpdatedAt = time.Now()

	if err := doc.Validate(); err != nil {
		return err
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return NewDocumentRepositoryError("update", documentID, err, "failed to marshal document")
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, documentKeyPrefix+documentID, docJSON, 0)

	if oldStatus != doc.Status {
		pipe.SRem(ctx, statusIndexKey+string(oldStatus), documentID)
		pipe.SAdd(ctx, statusIndexKey+string(doc.Status), documentID)
	}

	_, err = pipe.Exec(ctx)
	if err != nil {
		return NewDocumentRepositoryError("update", documentID, err, "failed to execute transaction")
	}

	return nil
}

// Exists checks if a document exists
func (r *RedisDocumentRepository) Exists(ctx context.Context, documentID string) (bool, error) {
	exists, err := r.client.Exists(ctx, documentKeyPrefix+documentID).Result()
	if err != nil {
		return false, NewDocumentRepositoryError("exists", documentID, err, "")
	}
	return exists > 0, nil
}

// List retrieves all documents
func (r *RedisDocumentRepository) List(ctx context.Context) ([]*models.Document, error) {
	docIDs, err := r.client.SMembers(ctx, documentIndexKey).Result()
	if err != nil {
		return nil, NewDocumentRepositoryError("list", "", err, "")
	}

	return r.getBatch(ctx, docIDs)
}

// ListByOwner retrieves all documents uploaded by one user
func (r *RedisDocumentRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Document, error) {
	docIDs, err := r.client.SMembers(ctx, ownerIndexKey+ownerID).Result()
	if err != nil {
		return nil, NewDocumentRepositoryError("list_by_owner", "", err, "")
	}

	return r.getBatch(ctx, docIDs)
}

// ListByStatus retrieves all documents with a specific status
func (r *RedisDocumentRepository) ListByStatus(ctx context.Context, status models.DocumentStatus) ([]*models.Document, error) {
	docIDs, err := r.client.SMembers(ctx, statusIndexKey+string(status)).Result()
	if err != nil {
		return nil, NewDocumentRepositoryError("list_by_status", "", err, "")
	}

	return r.getBatch(ctx, docIDs)
}

// CountByOwner counts documents uploaded by one user
func (r *RedisDocumentRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	count, err := r.client.SCard(ctx, ownerIndexKey+ownerID).Result()
	if err != nil {
		return 0, NewDocumentRepositoryError("count_by_owner", "", err, "")
	}
	return int(count), nil
}

// Ping checks if Redis connection is alive
func (r *RedisDocumentRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// getBatch retrieves multiple documents by IDs, sorted by creation time
func (r *RedisDocumentRepository) getBatch(ctx context.Context, documentIDs []string) ([]*models.Document, error) {
	if len(documentIDs) == 0 {
		return []*models.Document{}, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(documentIDs))
	for i, id := range documentIDs {
		cmds[i] = pipe.Get(ctx, documentKeyPrefix+id)
	}

	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return nil, NewDocumentRepositoryError("get_batch", "", err, "failed to execute batch get")
	}

	docs := make([]*models.Document, 0, len(documentIDs))
	for i, cmd := range cmds {
		docJSON, err := cmd.Result()
		if err == redis.Nil {
			// Index entry without a record, skip it
			continue
		}
		if err != nil {
			return nil, NewDocumentRepositoryError("get_batch", documentIDs[i], err, "")
		}

		var doc models.Document
		if err := json.Unmarshal([]byte(docJSON), &doc); err != nil {
			return nil, NewDocumentRepositoryError("get_batch", documentIDs[i], err, "failed to unmarshal document")
		}
		docs = append(docs, &doc)
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})

	return docs, nil
}
