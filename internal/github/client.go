// Package github fetches documents from a GitHub repository for bulk upload.
package github

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"
)

// Client wraps the GitHub API client with rate limiting support
type Client struct {
	*github.Client
}

// NewClient creates a rate-limited GitHub client. An empty token falls back
// to GITHUB_TOKEN; without either the client is unauthenticated. A non-empty
// baseURL points the client at another API root (GitHub Enterprise or tests).
func NewClient(ctx context.Context, token, baseURL string) (*Client, error) {
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, err
	}

	ghClient := github.NewClient(rateLimiter)

	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token != "" {
		ghClient = ghClient.WithAuthToken(token)
	}

	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		ghClient.BaseURL = u
	}

	return &Client{Client: ghClient}, nil
}
