package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryIndex is an in-process vector index using brute-force cosine similarity.
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks map[string][]Chunk // keyed by DocID
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{chunks: make(map[string][]Chunk)}
}

// ReplaceDocumentChunks drops every chunk of docID and stores chunks in its place.
func (m *MemoryIndex) ReplaceDocumentChunks(_ context.Context, docID string, chunks []Chunk) error {
	if err := checkDimensions(chunks); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(chunks) == 0 {
		delete(m.chunks, docID)
		return nil
	}
	m.chunks[docID] = append([]Chunk(nil), chunks...)
	return nil
}

// Search returns the limit chunks most similar to embedding.
func (m *MemoryIndex) Search(ctx context.Context, embedding []float32, limit int) ([]ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits []ScoredChunk
	for _, chunks := range m.chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, c := range chunks {
			if len(c.Embedding) != len(embedding) {
				return nil, fmt.Errorf("%w: query has %d dimensions, chunk has %d",
					ErrDimensionMismatch, len(embedding), len(c.Embedding))
			}
			hits = append(hits, ScoredChunk{Chunk: c, Score: cosineSimilarity(embedding, c.Embedding)})
		}
	}

	return rankChunks(hits, limit), nil
}

// Count returns the number of stored chunks.
func (m *MemoryIndex) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, chunks := range m.chunks {
		n += len(chunks)
	}
	return n, nil
}

// Health always succeeds for the in-memory index.
func (m *MemoryIndex) Health(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (m *MemoryIndex) Close() error {
	return nil
}

// checkDimensions requires every chunk in a batch to share one vector size.
func checkDimensions(chunks []Chunk) error {
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %d has no embedding", ErrDimensionMismatch, i)
		}
		if len(c.Embedding) != len(chunks[0].Embedding) {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(c.Embedding), len(chunks[0].Embedding))
		}
	}
	return nil
}
