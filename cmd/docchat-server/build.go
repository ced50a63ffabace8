package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bull/docchat-server/internal/chatbot"
	"github.com/bull/docchat-server/internal/completion"
	"github.com/bull/docchat-server/internal/config"
	"github.com/bull/docchat-server/internal/document"
	"github.com/bull/docchat-server/internal/embedding"
	"github.com/bull/docchat-server/internal/extract"
	"github.com/bull/docchat-server/internal/history"
	"github.com/bull/docchat-server/internal/indexer"
	"github.com/bull/docchat-server/internal/retrieval"
	"github.com/bull/docchat-server/internal/storage"
)

// app holds the long-lived components and everything that must be closed.
type app struct {
	service  *chatbot.Service
	pipeline *indexer.Pipeline
	health   healthIndex
	closers  []io.Closer
}

// healthIndex is a vector index that is checked by /health.
type healthIndex interface {
	Health(ctx context.Context) error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{}

	gateway, err := completion.NewGateway(completion.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, err
	}

	store := document.NewStore()

	retriever, err := a.buildRetriever(ctx, cfg, store, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	hist, err := buildHistory(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, hist)

	a.pipeline = indexer.NewPipeline(extract.NewRegistry(cfg.Documents.Extensions), retriever, store, logger)
	a.service = chatbot.NewService(&chatbot.Config{
		Completer:          gateway,
		Pipeline:           a.pipeline,
		Store:              store,
		Retriever:          retriever,
		History:            hist,
		MaxHistoryTurns:    cfg.LLM.MaxHistoryTurns,
		SmallChatMaxTokens: cfg.LLM.SmallChatMaxTokens,
		MaxContextChars:    cfg.Retrieval.MaxContextChars,
		Temperature:        cfg.LLM.Temperature,
		Logger:             logger,
	})

	logger.Info("Completion gateway ready", "model", gateway.Model(), "base_url", cfg.LLM.BaseURL)
	return a, nil
}

func (a *app) buildRetriever(ctx context.Context, cfg *config.Config, store *document.Store, logger *slog.Logger) (retrieval.Retriever, error) {
	if cfg.Retrieval.Mode == config.RetrievalTruncate {
		return retrieval.NewTruncateRetriever(store, cfg.Retrieval.MaxContextChars), nil
	}

	client, err := embedding.NewClient(embedding.ClientConfig{
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
		Timeout: cfg.Embedding.Timeout,
	})
	if err != nil {
		return nil, err
	}
	embedder := embedding.NewEmbedder(client, cfg.Embedding.Model, cfg.Embedding.BatchSize)

	var index retrieval.VectorIndex
	switch cfg.VectorStore.Type {
	case config.StoreQdrant:
		qs, err := storage.NewQdrantStorage(ctx, storage.QdrantConfig{
			Host:       cfg.VectorStore.Qdrant.Host,
			Port:       cfg.VectorStore.Qdrant.Port,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Dimension:  cfg.Embedding.Dimension,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, qs)

		if err := qs.EnsureCollection(ctx); err != nil {
			return nil, fmt.Errorf("ensure collection: %w", err)
		}
		// Documents live in memory only, so chunks from a previous run are orphans.
		if err := qs.ClearCollection(ctx); err != nil {
			return nil, fmt.Errorf("clear collection: %w", err)
		}
		index = qs
		a.health = qs
		logger.Info("Using Qdrant vector index",
			"host", cfg.VectorStore.Qdrant.Host,
			"collection", cfg.VectorStore.Qdrant.Collection)
	default:
		mi := storage.NewMemoryIndex()
		a.closers = append(a.closers, mi)
		index = mi
	}

	return retrieval.NewSimilarityRetriever(store, embedder, index, cfg.Retrieval.TopK, logger), nil
}

func buildHistory(cfg *config.Config, logger *slog.Logger) (history.Store, error) {
	if cfg.History.Type == config.StoreSQLite {
		return history.NewSQLiteStore(cfg.History.DBPath, logger)
	}
	return history.NewMemoryStore(), nil
}
