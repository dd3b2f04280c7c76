package repositories

import (
	"context"
	"log"
	"time"

	"rag-chatbot/internal/db"
	"rag-chatbot/internal/models"
)

// QdrantVectorRepository implements VectorRepository using Qdrant
type QdrantVectorRepository struct {
	client *db.QdrantClient
	logger *log.Logger
}

// NewQdrantVectorRepository creates a new Qdrant-backed vector repository
func NewQdrantVectorRepository(client *db.QdrantClient, logger *log.Logger) VectorRepository {
	return &QdrantVectorRepository{
		client: client,
		logger: logger,
	}
}

// EnsureCollection creates the collection if it does not exist. Idempotent:
// returns false without side effects when the collection already exists, true
// when this call created it.
func (r *QdrantVectorRepository) EnsureCollection(ctx context.Context, name string, distanceStrategy string) (bool, error) {
	exists, err := r.client.CollectionExists(ctx, name)
	if err != nil {
		return false, NewVectorRepositoryError("ensure_collection", err, "")
	}
	if exists {
		return false, nil
	}

	cfg := models.DefaultCollectionConfig(name)
	if distanceStrategy != "" {
		cfg.Distance = distanceStrategy
	}
	if err := cfg.Validate(); err != nil {
		return false, NewVectorRepositoryError("ensure_collection", err, "")
	}

	if err := r.client.CreateCollection(ctx, cfg); err != nil {
		return false, NewVectorRepositoryError("ensure_collection", err, "failed to create collection: "+name)
	}
	return true, nil
}

// DeleteCollection deletes a collection
func (r *QdrantVectorRepository) DeleteCollection(ctx context.Context, name string) error {
	if err := r.client.DeleteCollection(ctx, name); err != nil {
		return NewVectorRepositoryError("delete_collection", err, "failed to delete collection: "+name)
	}
	return nil
}

// CollectionExists checks if a collection exists
func (r *QdrantVectorRepository) CollectionExists(ctx context.Context, name string) (bool, error) {
	exists, err := r.client.CollectionExists(ctx, name)
	if err != nil {
		return false, NewVectorRepositoryError("collection_exists", err, "")
	}
	return exists, nil
}

// UpsertPassages writes or overwrites passages by id. The underlying store
// does not guarantee atomicity across the batch.
func (r *QdrantVectorRepository) UpsertPassages(ctx context.Context, collectionName string, passages []*models.Passage) error {
	if len(passages) == 0 {
		return nil
	}

	points := make([]db.Point, 0, len(passages))
	for _, p := range passages {
		if err := p.Validate(); err != nil {
			return NewVectorRepositoryError("upsert_passages", err, "")
		}

		vector := make(map[string]interface{}, 2)
		if len(p.DenseVector) > 0 {
			vector[models.DenseVectorName] = p.DenseVector
		} else {
			vector[models.DenseVectorName] = []float32{}
		}
		if !p.SparseVector.IsEmpty() {
			vector[models.SparseVectorName] = p.SparseVector
		} else {
			vector[models.SparseVectorName] = &models.SparseVector{Indices: []uint32{}, Values: []float32{}}
		}

		points = append(points, db.Point{
			ID:     p.ID,
			Vector: vector,
			Payload: map[string]interface{}{
				"source":              p.Source,
				"title":               p.Title,
				"excerpt":             p.Excerpt,
				"excerpt_page_number": p.ExcerptPageNumber,
				"metadata":            p.Metadata,
			},
		})
	}

	if err := r.client.UpsertPoints(ctx, collectionName, points); err != nil {
		return NewVectorRepositoryError("upsert_passages", err, "")
	}
	return nil
}

// HybridSearch runs one fused sparse+dense query. Service-level failures are
// swallowed into an empty result list: the chat flow treats "no results" as a
// valid outcome, not an error.
func (r *QdrantVectorRepository) HybridSearch(ctx context.Context, collectionName string, query HybridQuery) ([]*models.ScoredPassage, error) {
	if query.TopK <= 0 {
		query.TopK = DefaultTopK
	}

	filter := buildFilter(query.Filter)
	points, err := r.client.QueryHybrid(ctx, collectionName, query.Dense, query.Sparse, query.TopK, query.ScoreThreshold, filter)
	if err != nil {
		r.logger.Printf("Hybrid search failed, returning no results: %v", err)
		return []*models.ScoredPassage{}, nil
	}

	results := make([]*models.ScoredPassage, 0, len(points))
	for _, pt := range points {
		results = append(results, scoredPassageFromPayload(pt))
	}
	return results, nil
}

// UpdateDocumentMetadata merges newFields into the metadata of every passage
// matching (document_id, user_id, document_type). Concurrent updates are not
// serialized: last writer wins.
func (r *QdrantVectorRepository) UpdateDocumentMetadata(ctx context.Context, collectionName string, documentID, userID, documentType string, newFields map[string]interface{}) error {
	filter := documentFilter(documentID, userID)
	filter.Must = append(filter.Must, db.FieldCondition{
		Key:   "metadata.document_type",
		Match: db.MatchValue{Value: documentType},
	})

	points, err := r.client.ScrollPoints(ctx, collectionName, filter, 1)
	if err != nil {
		return NewVectorRepositoryError("update_metadata", err, "")
	}
	if len(points) == 0 {
		return PassagesNotFoundError(documentID)
	}

	merged := make(map[string]interface{})
	if existing, ok := points[0].Payload["metadata"].(map[string]interface{}); ok {
		for k, v := range existing {
			merged[k] = v
		}
	}
	for k, v := range newFields {
		merged[k] = v
	}
	merged["updated_at"] = time.Now().UTC().Format(time.RFC3339)

	if err := r.client.SetPayload(ctx, collectionName, filter, map[string]interface{}{"metadata": merged}); err != nil {
		return NewVectorRepositoryError("update_metadata", err, "")
	}
	return nil
}

// DeleteDocument removes all passages matching both document id and user id.
// Unlike search, transport-level failures propagate to the caller.
func (r *QdrantVectorRepository) DeleteDocument(ctx context.Context, collectionName string, documentID, userID string) error {
	if err := r.client.DeletePoints(ctx, collectionName, documentFilter(documentID, userID)); err != nil {
		return NewVectorRepositoryError("delete_document", err, "failed to delete document: "+documentID)
	}
	return nil
}

// Ping checks if Qdrant is alive
func (r *QdrantVectorRepository) Ping(ctx context.Context) error {
	if err := r.client.Healthz(ctx); err != nil {
		return NewVectorRepositoryError("ping", err, "Qdrant healthz failed")
	}
	return nil
}

// documentFilter matches every passage of one user's document
func documentFilter(documentID, userID string) *db.Filter {
	return &db.Filter{
		Must: []db.FieldCondition{
			{Key: "metadata.document_id", Match: db.MatchValue{Value: documentID}},
			{Key: "metadata.user_id", Match: db.MatchValue{Value: userID}},
		},
	}
}

// buildFilter converts a flat payload-key equality map into a must filter
func buildFilter(fields map[string]interface{}) *db.Filter {
	if len(fields) == 0 {
		return nil
	}
	filter := &db.Filter{Must: make([]db.FieldCondition, 0, len(fields))}
	for key, value := range fields {
		filter.Must = append(filter.Must, db.FieldCondition{
			Key:   key,
			Match: db.MatchValue{Value: value},
		})
	}
	return filter
}

func scoredPassageFromPayload(pt db.ScoredPoint) *models.ScoredPassage {
	sp := &models.ScoredPassage{
		ID:    pt.ID,
		Score: pt.Score,
	}
	if pt.Payload == nil {
		return sp
	}

	if v, ok := pt.Payload["source"].(string); ok {
		sp.Source = v
	}
	if v, ok := pt.Payload["title"].(string); ok {
		sp.Title = v
	}
	if v, ok := pt.Payload["excerpt"].(string); ok {
		sp.Excerpt = v
	}
	if v, ok := pt.Payload["excerpt_page_number"].(float64); ok {
		sp.ExcerptPageNumber = int(v)
	}
	if v, ok := pt.Payload["metadata"].(map[string]interface{}); ok {
		sp.Metadata = v
	}
	return sp
}
