package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/bull/docchat-server/internal/chunker"
	"github.com/bull/docchat-server/internal/document"
	"github.com/bull/docchat-server/internal/storage"
)

// Embedder turns texts into vectors.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex stores chunk embeddings and answers nearest-neighbour queries.
type VectorIndex interface {
	ReplaceDocumentChunks(ctx context.Context, docID string, chunks []storage.Chunk) error
	Search(ctx context.Context, embedding []float32, limit int) ([]storage.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
}

// SimilarityRetriever embeds paragraph chunks at ingestion and returns the
// top K chunks by cosine similarity at query time.
type SimilarityRetriever struct {
	store    *document.Store
	embedder Embedder
	index    VectorIndex
	topK     int
	seq      atomic.Int64
	logger   *slog.Logger
}

// NewSimilarityRetriever creates a SimilarityRetriever. If topK is 0, DefaultTopK is used.
func NewSimilarityRetriever(store *document.Store, embedder Embedder, index VectorIndex, topK int, logger *slog.Logger) *SimilarityRetriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SimilarityRetriever{
		store:    store,
		embedder: embedder,
		index:    index,
		topK:     topK,
		logger:   logger,
	}
}

// Index splits doc into paragraphs, embeds each once and replaces the
// document's previous chunks.
func (r *SimilarityRetriever) Index(ctx context.Context, doc document.Document) error {
	parts := chunker.Split(doc.Text)
	if len(parts) == 0 {
		return r.index.ReplaceDocumentChunks(ctx, doc.ID, nil)
	}

	texts := make([]string, len(parts))
	for i, p := range parts {
		texts[i] = p.Content
	}

	embeddings, err := r.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(embeddings) != len(parts) {
		return fmt.Errorf("embed chunks: got %d embeddings for %d chunks", len(embeddings), len(parts))
	}

	chunks := make([]storage.Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = storage.Chunk{
			ID:        uuid.New().String(),
			DocID:     doc.ID,
			Index:     p.Index,
			Seq:       r.seq.Add(1),
			Content:   p.Content,
			Embedding: embeddings[i],
		}
	}

	if err := r.index.ReplaceDocumentChunks(ctx, doc.ID, chunks); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}

	r.logger.Debug("Indexed chunks", "doc", doc.ID, "chunks", len(chunks))
	return nil
}

// Search returns up to K chunks ranked by similarity to query.
func (r *SimilarityRetriever) Search(ctx context.Context, query string) ([]storage.ScoredChunk, error) {
	if r.store.IsEmpty() {
		return nil, ErrEmptyStore
	}
	n, err := r.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	if n == 0 {
		return nil, ErrEmptyStore
	}

	embeddings, err := r.embedder.GenerateEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("embed query: got %d embeddings", len(embeddings))
	}

	hits, err := r.index.Search(ctx, embeddings[0], r.topK)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	return hits, nil
}

// Retrieve joins the top chunks, most similar first, with blank lines.
func (r *SimilarityRetriever) Retrieve(ctx context.Context, query string) (string, error) {
	hits, err := r.Search(ctx, query)
	if err != nil {
		return "", err
	}

	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = h.Content
	}
	return strings.Join(parts, "\n\n"), nil
}
