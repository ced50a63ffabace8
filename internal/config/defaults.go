package config

import "time"

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            "0.0.0.0:8000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  32 << 20,
			CORSOrigins:     []string{"*"},
		},
		LLM: LLMConfig{
			BaseURL:            "https://api.groq.com/openai/v1",
			Model:              "llama-3.3-70b-versatile",
			Timeout:            60 * time.Second,
			SmallChatMaxTokens: 150,
			MaxHistoryTurns:    50,
		},
		Retrieval: RetrievalConfig{
			Mode:            RetrievalTruncate,
			MaxContextChars: 5000,
			TopK:            3,
		},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			Dimension: 1536,
			BatchSize: 500,
			Timeout:   30 * time.Second,
		},
		VectorStore: VectorStoreConfig{
			Type: StoreMemory,
			Qdrant: QdrantConfig{
				Host:       "localhost",
				Port:       6334,
				Collection: "docchat_chunks",
			},
		},
		History: HistoryConfig{
			Type:   StoreMemory,
			DBPath: "data/history.db",
		},
		Documents: DocumentsConfig{
			Extensions: []string{".pdf"},
		},
		MCP: MCPConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// applyDefaults restores defaults for fields a config file emptied.
func applyDefaults(cfg *Config) {
	d := Defaults()

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = d.Server.Addr
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = d.Server.CORSOrigins
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = d.LLM.BaseURL
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = d.LLM.Model
	}
	if cfg.LLM.Timeout <= 0 {
		cfg.LLM.Timeout = d.LLM.Timeout
	}
	if cfg.Retrieval.Mode == "" {
		cfg.Retrieval.Mode = d.Retrieval.Mode
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = d.Embedding.Model
	}
	if cfg.Embedding.Dimension <= 0 {
		cfg.Embedding.Dimension = d.Embedding.Dimension
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = d.VectorStore.Type
	}
	if cfg.VectorStore.Qdrant.Collection == "" {
		cfg.VectorStore.Qdrant.Collection = d.VectorStore.Qdrant.Collection
	}
	if cfg.History.Type == "" {
		cfg.History.Type = d.History.Type
	}
	if len(cfg.Documents.Extensions) == 0 {
		cfg.Documents.Extensions = d.Documents.Extensions
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = d.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = d.Log.Format
	}
}
