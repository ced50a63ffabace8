// Package completion sends prompts to an OpenAI-compatible chat completions API.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "llama-3.3-70b-versatile"

	// DefaultTimeout bounds a single completion request.
	DefaultTimeout = 60 * time.Second
)

// Role tags a message in a prompt.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged turn of a prompt.
type Message struct {
	Role    Role
	Content string
}

// Options tune a single completion. Zero values leave the provider default.
type Options struct {
	MaxOutputTokens int
	Temperature     *float64
}

// Config configures the gateway.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Gateway calls the remote model. It never streams and never retries.
type Gateway struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewGateway creates a completion gateway from cfg, filling defaults for empty fields.
func NewGateway(cfg Config) (*Gateway, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("completion API key not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	)

	return &Gateway{
		client:  &client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

// Model returns the configured model name.
func (g *Gateway) Model() string {
	return g.model
}

// Complete sends messages and returns the generated text.
// Every failure, including an empty completion, is a *GatewayError.
func (g *Gateway) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	if len(messages) == 0 {
		return "", &GatewayError{Message: "no messages", Err: ErrEmptyPrompt}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Messages: toParams(messages),
		Model:    openai.ChatModel(g.model),
	}
	if opts.MaxOutputTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxOutputTokens))
	}
	if opts.Temperature != nil {
		params.Temperature = openai.Float(*opts.Temperature)
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", newGatewayError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &GatewayError{Message: "empty completion", Err: ErrEmptyCompletion}
	}
	return resp.Choices[0].Message.Content, nil
}

func toParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params = append(params, openai.SystemMessage(m.Content))
		case RoleAssistant:
			params = append(params, openai.AssistantMessage(m.Content))
		default:
			params = append(params, openai.UserMessage(m.Content))
		}
	}
	return params
}

func newGatewayError(err error) *GatewayError {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = fmt.Sprintf("upstream returned status %d", apiErr.StatusCode)
		}
		return &GatewayError{StatusCode: apiErr.StatusCode, Message: msg, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &GatewayError{Message: "request timed out", Err: err}
	}
	return &GatewayError{Message: "request failed", Err: err}
}
