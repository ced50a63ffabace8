// Package config loads server settings from defaults, an optional YAML file
// and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config file is named and it exists.
const DefaultPath = "docchat.yaml"

const (
	RetrievalTruncate   = "truncate"
	RetrievalSimilarity = "similarity"

	StoreMemory = "memory"
	StoreQdrant = "qdrant"
	StoreSQLite = "sqlite"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// LLMConfig configures the chat completion provider.
type LLMConfig struct {
	APIKey             string        `yaml:"api_key"`
	BaseURL            string        `yaml:"base_url"`
	Model              string        `yaml:"model"`
	Timeout            time.Duration `yaml:"timeout"`
	Temperature        *float64      `yaml:"temperature,omitempty"`
	SmallChatMaxTokens int           `yaml:"smallchat_max_tokens"`
	MaxHistoryTurns    int           `yaml:"max_history_turns"`
}

// RetrievalConfig selects how question context is built.
type RetrievalConfig struct {
	Mode            string `yaml:"mode"` // truncate | similarity
	MaxContextChars int    `yaml:"max_context_chars"`
	TopK            int    `yaml:"top_k"`
}

// EmbeddingConfig configures the embeddings endpoint used by similarity retrieval.
type EmbeddingConfig struct {
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	Dimension int           `yaml:"dimension"`
	BatchSize int           `yaml:"batch_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
}

// VectorStoreConfig selects the chunk index implementation.
type VectorStoreConfig struct {
	Type   string       `yaml:"type"` // memory | qdrant
	Qdrant QdrantConfig `yaml:"qdrant"`
}

// HistoryConfig selects where chat history is kept.
type HistoryConfig struct {
	Type   string `yaml:"type"` // memory | sqlite
	DBPath string `yaml:"db_path"`
}

// DocumentsConfig controls accepted uploads and directory ingestion.
type DocumentsConfig struct {
	Extensions []string `yaml:"extensions"`
	WatchDir   string   `yaml:"watch_dir"`
}

// MCPConfig controls the MCP endpoint.
type MCPConfig struct {
	Enabled   bool `yaml:"enabled"`
	Stateless bool `yaml:"stateless"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Config is the root server configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	LLM         LLMConfig         `yaml:"llm"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	History     HistoryConfig     `yaml:"history"`
	Documents   DocumentsConfig   `yaml:"documents"`
	MCP         MCPConfig         `yaml:"mcp"`
	Log         LogConfig         `yaml:"log"`
}

// Load builds the configuration. An empty path reads DefaultPath if it exists;
// a named path must exist. Environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("llm.api_key is required (set LLM_API_KEY or GROQ_API_KEY)"))
	}

	switch c.Retrieval.Mode {
	case RetrievalTruncate:
	case RetrievalSimilarity:
		if c.Embedding.APIKey == "" {
			errs = append(errs, errors.New("embedding.api_key is required for similarity retrieval (set OPENAI_API_KEY)"))
		}
	default:
		errs = append(errs, fmt.Errorf("retrieval.mode must be %q or %q, got %q",
			RetrievalTruncate, RetrievalSimilarity, c.Retrieval.Mode))
	}

	switch c.VectorStore.Type {
	case StoreMemory:
	case StoreQdrant:
		if c.VectorStore.Qdrant.Host == "" {
			errs = append(errs, errors.New("vector_store.qdrant.host is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("vector_store.type must be %q or %q, got %q",
			StoreMemory, StoreQdrant, c.VectorStore.Type))
	}

	switch c.History.Type {
	case StoreMemory:
	case StoreSQLite:
		if c.History.DBPath == "" {
			errs = append(errs, errors.New("history.db_path is required for sqlite history"))
		}
	default:
		errs = append(errs, fmt.Errorf("history.type must be %q or %q, got %q",
			StoreMemory, StoreSQLite, c.History.Type))
	}

	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be positive"))
	}
	if c.Retrieval.MaxContextChars <= 0 {
		errs = append(errs, errors.New("retrieval.max_context_chars must be positive"))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, errors.New("retrieval.top_k must be positive"))
	}

	return errors.Join(errs...)
}
