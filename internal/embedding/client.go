package embedding

import (
	"errors"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ClientConfig configures the OpenAI-compatible embeddings endpoint.
type ClientConfig struct {
	APIKey  string
	BaseURL string        // Empty uses the OpenAI default
	Timeout time.Duration // Per-request timeout, 0 for none
}

// Client wraps the OpenAI client for embedding generation.
type Client struct {
	client *openai.Client
}

// NewClient creates an embeddings client. Returns an error if no API key is configured.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("embedding API key not set")
	}

	// Retries are handled by the Embedder with backoff.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	client := openai.NewClient(opts...)
	return &Client{client: &client}, nil
}
