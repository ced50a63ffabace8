//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 4

// setupTestStorage connects to a local Qdrant and starts from an empty collection.
// Skips the test if Qdrant is not running.
func setupTestStorage(t *testing.T) *QdrantStorage {
	ctx := context.Background()
	s, err := NewQdrantStorage(ctx, QdrantConfig{
		Host:       "localhost",
		Port:       6334,
		Collection: "docchat_test_" + uuid.NewString()[:8],
		Dimension:  testDimension,
	})
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}
	require.NoError(t, s.EnsureCollection(ctx))

	t.Cleanup(func() {
		_ = s.client.DeleteCollection(context.Background(), s.collection)
		s.Close()
	})
	return s
}

func TestQdrant_ReplaceAndSearch(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceDocumentChunks(ctx, "a.pdf", []Chunk{
		{ID: uuid.NewString(), DocID: "a.pdf", Index: 0, Seq: 1, Content: "north", Embedding: []float32{1, 0, 0, 0}},
		{ID: uuid.NewString(), DocID: "a.pdf", Index: 1, Seq: 2, Content: "east", Embedding: []float32{0, 1, 0, 0}},
	}))

	hits, err := s.Search(ctx, []float32{1, 0.1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "north", hits[0].Content)
	assert.Equal(t, "a.pdf", hits[0].DocID)
	assert.Equal(t, int64(1), hits[0].Seq)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestQdrant_ReplaceDropsOldChunks(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceDocumentChunks(ctx, "a.pdf", []Chunk{
		{DocID: "a.pdf", Seq: 1, Content: "old", Embedding: []float32{1, 0, 0, 0}},
		{DocID: "a.pdf", Seq: 2, Content: "old too", Embedding: []float32{0, 1, 0, 0}},
	}))
	require.NoError(t, s.ReplaceDocumentChunks(ctx, "b.pdf", []Chunk{
		{DocID: "b.pdf", Seq: 3, Content: "other", Embedding: []float32{0, 0, 1, 0}},
	}))
	require.NoError(t, s.ReplaceDocumentChunks(ctx, "a.pdf", []Chunk{
		{DocID: "a.pdf", Seq: 4, Content: "new", Embedding: []float32{1, 0, 0, 0}},
	}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := s.Search(ctx, []float32{1, 0, 0, 0}, 3)
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotContains(t, h.Content, "old")
	}
}

func TestQdrant_TiesBrokenBySeq(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceDocumentChunks(ctx, "a.pdf", []Chunk{
		{DocID: "a.pdf", Seq: 7, Content: "second", Embedding: []float32{1, 0, 0, 0}},
		{DocID: "a.pdf", Seq: 3, Content: "first", Embedding: []float32{2, 0, 0, 0}},
	}))

	hits, err := s.Search(ctx, []float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "first", hits[0].Content)
}

func TestQdrant_DimensionMismatch(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	err := s.ReplaceDocumentChunks(ctx, "a.pdf", []Chunk{
		{DocID: "a.pdf", Content: "bad", Embedding: []float32{1, 0}},
	})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = s.Search(ctx, []float32{1}, 3)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestQdrant_Health(t *testing.T) {
	s := setupTestStorage(t)
	assert.NoError(t, s.Health(context.Background()))
}

func TestQdrant_FailedReplaceKeepsOldChunks(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceDocumentChunks(ctx, "a.pdf", []Chunk{
		{DocID: "a.pdf", Seq: 1, Content: "old", Embedding: []float32{1, 0, 0, 0}},
		{DocID: "a.pdf", Seq: 2, Content: "old too", Embedding: []float32{0, 1, 0, 0}},
	}))

	// Qdrant rejects the malformed point ID after the valid one is accepted in the same batch.
	err := s.ReplaceDocumentChunks(ctx, "a.pdf", []Chunk{
		{DocID: "a.pdf", Seq: 3, Content: "new", Embedding: []float32{1, 0, 0, 0}},
		{ID: "not-a-uuid", DocID: "a.pdf", Seq: 4, Content: "broken", Embedding: []float32{0, 0, 1, 0}},
	})
	require.Error(t, err)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := s.Search(ctx, []float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "old", hits[0].Content)
}

func TestQdrant_CancelledReplaceKeepsOldChunks(t *testing.T) {
	s := setupTestStorage(t)

	require.NoError(t, s.ReplaceDocumentChunks(context.Background(), "a.pdf", []Chunk{
		{DocID: "a.pdf", Seq: 1, Content: "old", Embedding: []float32{1, 0, 0, 0}},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.ReplaceDocumentChunks(ctx, "a.pdf", []Chunk{
		{DocID: "a.pdf", Seq: 2, Content: "new", Embedding: []float32{1, 0, 0, 0}},
	})
	require.Error(t, err)

	hits, err := s.Search(context.Background(), []float32{1, 0, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "old", hits[0].Content)
}
