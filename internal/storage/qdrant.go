package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// QdrantConfig holds connection settings for a Qdrant server.
type QdrantConfig struct {
	Host       string
	Port       int    // gRPC port, usually 6334
	Collection string // Defaults to DefaultCollectionName
	Dimension  int    // Defaults to DefaultVectorDimension
}

// QdrantStorage keeps document chunks in a Qdrant collection.
type QdrantStorage struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// NewQdrantStorage creates a Qdrant client and waits until the server answers a health check.
// Fails with ErrQdrantUnreachable when Qdrant does not come up within the retry window.
func NewQdrantStorage(ctx context.Context, cfg QdrantConfig) (*QdrantStorage, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollectionName
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultVectorDimension
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	s := &QdrantStorage{
		client:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
	}

	if err := s.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return s, nil
}

func newRetryBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(b, ctx)
}

func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, newRetryBackOff(ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection creates the chunk collection (cosine distance) and its
// payload index when missing. Safe to call repeatedly.
func (s *QdrantStorage) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range collections {
		if name == s.collection {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     uint64(s.dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// doc_id is the only filter: replacing a document deletes its old chunks.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collection,
		FieldName:      "doc_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for field doc_id: %w", err)
	}

	return nil
}

// ClearCollection drops and recreates the collection.
// Documents live only for the lifetime of the process, so the server clears
// chunks left over from a previous run at startup.
func (s *QdrantStorage) ClearCollection(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return s.EnsureCollection(ctx)
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// ReplaceDocumentChunks stores chunks for docID and then deletes the
// document's other chunks. When writing fails, the points written so far are
// removed and the previous chunks stay searchable.
// Upserts are batched in groups of 100 and retried with exponential backoff.
func (s *QdrantStorage) ReplaceDocumentChunks(ctx context.Context, docID string, chunks []Chunk) error {
	for i, c := range chunks {
		if len(c.Embedding) != s.dimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(c.Embedding), s.dimension)
		}
	}

	ids := make([]*qdrant.PointId, 0, len(chunks))
	for _, c := range chunks {
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		ids = append(ids, qdrant.NewIDUUID(id))
	}

	const batchSize = 100
	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))

		points := make([]*qdrant.PointStruct, 0, end-i)
		for j, c := range chunks[i:end] {
			points = append(points, &qdrant.PointStruct{
				Id: ids[i+j],
				Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
					vectorName: qdrant.NewVector(c.Embedding...),
				}),
				Payload: qdrant.NewValueMap(map[string]any{
					"doc_id":      c.DocID,
					"chunk_index": c.Index,
					"seq":         c.Seq,
					"content":     c.Content,
				}),
			})
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			s.rollback(ctx, ids[:end])
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch("doc_id", docID)},
	}
	if len(ids) > 0 {
		filter.MustNot = []*qdrant.Condition{qdrant.NewHasID(ids...)}
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(filter),
	})
	if err != nil {
		return fmt.Errorf("failed to delete old chunks of %s: %w", docID, err)
	}

	return nil
}

// rollback removes points written by a failed replace. It runs even when
// ctx is already cancelled.
func (s *QdrantStorage) rollback(ctx context.Context, ids []*qdrant.PointId) {
	if len(ids) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	_, _ = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorIDs(ids),
	})
}

// upsertWithRetry retries transient failures. Rejected requests are not retried.
func (s *QdrantStorage) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		if status.Code(err) == codes.InvalidArgument {
			return backoff.Permanent(err)
		}
		return err
	}, newRetryBackOff(ctx))
}

// Search returns the limit chunks closest to embedding. Chunks with equal
// scores are ordered by ingestion sequence.
func (s *QdrantStorage) Search(ctx context.Context, embedding []float32, limit int) ([]ScoredChunk, error) {
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), s.dimension)
	}

	// Over-fetch so ties at the cut-off can be ordered by sequence.
	using := vectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(embedding...),
		Using:          &using,
		Limit:          qdrant.PtrOf(uint64(limit * 4)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	hits := make([]ScoredChunk, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		hits = append(hits, ScoredChunk{
			Chunk: Chunk{
				ID:      result.Id.GetUuid(),
				DocID:   payload["doc_id"].GetStringValue(),
				Index:   int(payload["chunk_index"].GetIntegerValue()),
				Seq:     payload["seq"].GetIntegerValue(),
				Content: payload["content"].GetStringValue(),
			},
			Score: float64(result.Score),
		})
	}

	return rankChunks(hits, limit), nil
}

// Count returns the exact number of chunks in the collection.
func (s *QdrantStorage) Count(ctx context.Context) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(n), nil
}
