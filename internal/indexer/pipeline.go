// Package indexer turns uploaded files into stored, retrievable documents.
package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bull/docchat-server/internal/document"
	"github.com/bull/docchat-server/internal/extract"
	"github.com/bull/docchat-server/internal/retrieval"
)

// IndexResult contains statistics about a batch ingestion.
type IndexResult struct {
	TotalDocs      int
	SuccessfulDocs int
	TotalChars     int
	FailedDocs     []FailedDoc
	Duration       time.Duration
}

// FailedDoc represents a document that failed to ingest.
type FailedDoc struct {
	Path   string
	Reason string
}

// Pipeline runs extraction, indexing and storage for a single upload.
type Pipeline struct {
	extractors *extract.Registry
	retriever  retrieval.Retriever
	store      *document.Store
	logger     *slog.Logger

	// mu keeps the retriever index and the store in step when the same
	// document is uploaded concurrently.
	mu sync.Mutex
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	extractors *extract.Registry,
	retriever retrieval.Retriever,
	store *document.Store,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractors: extractors,
		retriever:  retriever,
		store:      store,
		logger:     logger,
	}
}

// Supports reports whether filename has an accepted document extension.
func (p *Pipeline) Supports(filename string) bool {
	return p.extractors.Supports(filename)
}

// Extensions lists the accepted document extensions.
func (p *Pipeline) Extensions() []string {
	return p.extractors.Extensions()
}

// Ingest extracts the text of data and stores it under the base name of filename,
// replacing any earlier upload with the same name. The store is only updated
// once the retriever has indexed the document.
func (p *Pipeline) Ingest(ctx context.Context, filename string, data []byte) (document.Document, error) {
	name := filepath.Base(filename)
	start := time.Now()

	text, err := p.extractors.Extract(ctx, name, data)
	if err != nil {
		return document.Document{}, err
	}
	p.logger.Debug("Extracted document", "name", name, "bytes", len(data), "chars", len(text))

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.retriever.Index(ctx, document.Document{ID: name, Text: text}); err != nil {
		return document.Document{}, fmt.Errorf("index %s: %w", name, err)
	}

	doc, replaced := p.store.Put(name, text)
	p.logger.Info("Ingested document",
		"name", name,
		"chars", len(text),
		"replaced", replaced,
		"duration", time.Since(start),
	)
	return doc, nil
}

// IngestFile reads and ingests the file at path.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return document.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return p.Ingest(ctx, path, data)
}

// IngestDir ingests every supported file below dir. Failures of single files
// are collected in the result instead of stopping the run.
func (p *Pipeline) IngestDir(ctx context.Context, dir string) (*IndexResult, error) {
	start := time.Now()
	result := &IndexResult{}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && p.Supports(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	result.TotalDocs = len(paths)
	p.logger.Info("Found documents", "dir", dir, "count", len(paths))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		doc, err := p.IngestFile(ctx, path)
		if err != nil {
			p.logger.Warn("Failed to ingest document", "path", path, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedDoc{Path: path, Reason: err.Error()})
			continue
		}
		result.SuccessfulDocs++
		result.TotalChars += len(doc.Text)
	}

	result.Duration = time.Since(start)
	p.logger.Info("Directory ingestion complete",
		"successful", result.SuccessfulDocs,
		"failed", len(result.FailedDocs),
		"duration", result.Duration,
	)
	return result, nil
}
