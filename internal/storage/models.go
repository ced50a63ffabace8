package storage

// Chunk is one paragraph of an uploaded document with its embedding.
type Chunk struct {
	ID        string    // UUID
	DocID     string    // Document ID (the uploaded filename)
	Index     int       // Position in the document (0, 1, 2...)
	Seq       int64     // Global ingestion order, used to break score ties
	Content   string    // Paragraph text
	Embedding []float32 // Vector from the embedding model
}

// ScoredChunk is a search hit with its cosine similarity to the query.
type ScoredChunk struct {
	Chunk
	Score float64
}

// DefaultCollectionName is the Qdrant collection holding document chunks.
const DefaultCollectionName = "docchat_chunks"

// DefaultVectorDimension is the embedding size for text-embedding-3-small.
const DefaultVectorDimension = 1536

// vectorName is the named vector used for chunk embeddings.
const vectorName = "content"
