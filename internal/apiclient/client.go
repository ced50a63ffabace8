// Package apiclient talks to a running docchat server over its REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bull/docchat-server/internal/api"
)

// DefaultServerURL is where the server listens by default.
const DefaultServerURL = "http://localhost:8000"

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Detail)
}

// Client calls the docchat REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL. A zero timeout means 2 minutes.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Upload sends a document as multipart form data and returns the server's confirmation.
func (c *Client) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	var out api.MessageResponse
	if err := c.do(ctx, http.MethodPost, "/uploadPdf", mw.FormDataContentType(), &body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Ask queries the uploaded documents.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	var out api.ResponseBody
	if err := c.postJSON(ctx, "/queryPdf", api.MessageRequest{Message: question}, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// Chat sends a message to the general assistant.
func (c *Client) Chat(ctx context.Context, session, message string) (string, error) {
	var out api.ResponseBody
	if err := c.postJSON(ctx, "/chat", api.MessageRequest{Message: message, SessionID: session}, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// Summarize summarizes the uploaded documents.
func (c *Client) Summarize(ctx context.Context) (string, error) {
	var out api.SummaryResponse
	if err := c.postJSON(ctx, "/summarizePdf", struct{}{}, &out); err != nil {
		return "", err
	}
	return out.Summary, nil
}

// Documents lists the uploaded documents.
func (c *Client) Documents(ctx context.Context) ([]api.DocumentInfo, error) {
	var out api.DocumentsResponse
	if err := c.do(ctx, http.MethodGet, "/documents", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

// Document fetches one uploaded document with its extracted text.
func (c *Client) Document(ctx context.Context, id string) (api.DocumentResponse, error) {
	var out api.DocumentResponse
	err := c.do(ctx, http.MethodGet, "/documents/"+url.PathEscape(id), "", nil, &out)
	return out, err
}

// Sessions lists the chat sessions that have history.
func (c *Client) Sessions(ctx context.Context) ([]string, error) {
	var out api.SessionsResponse
	if err := c.do(ctx, http.MethodGet, "/chat/sessions", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(data), out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var detail api.ErrorResponse
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&detail) == nil {
			apiErr.Detail = detail.Detail
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
