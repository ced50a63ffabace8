package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docchat-server/internal/api"
)

func TestUpload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/uploadPdf", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)

		assert.Equal(t, "doc.pdf", header.Filename)
		assert.Equal(t, "%PDF", string(data))
		_ = json.NewEncoder(w).Encode(api.MessageResponse{Message: "PDF 'doc.pdf' uploaded successfully."})
	}))
	defer ts.Close()

	msg, err := New(ts.URL, 0).Upload(context.Background(), "doc.pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "PDF 'doc.pdf' uploaded successfully.", msg)
}

func TestAsk(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/queryPdf", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req api.MessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(api.ResponseBody{Response: "answer to " + req.Message})
	}))
	defer ts.Close()

	out, err := New(ts.URL+"/", 0).Ask(context.Background(), "why?")
	require.NoError(t, err)
	assert.Equal(t, "answer to why?", out)
}

func TestChatSendsSession(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req api.MessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "s1", req.SessionID)
		_ = json.NewEncoder(w).Encode(api.ResponseBody{Response: "hi"})
	}))
	defer ts.Close()

	out, err := New(ts.URL, 0).Chat(context.Background(), "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestErrorDetail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Detail: "No document uploaded yet. Please upload a PDF first."})
	}))
	defer ts.Close()

	_, err := New(ts.URL, 0).Summarize(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Detail, "No document uploaded")
}

func TestDocuments(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_ = json.NewEncoder(w).Encode(api.DocumentsResponse{
			Documents: []api.DocumentInfo{{ID: "a.pdf", Chars: 10}},
			Count:     1,
		})
	}))
	defer ts.Close()

	docs, err := New(ts.URL, 0).Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a.pdf", docs[0].ID)
}

func TestDocument(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/documents/my%20notes.pdf", r.URL.EscapedPath())
		_ = json.NewEncoder(w).Encode(api.DocumentResponse{
			DocumentInfo: api.DocumentInfo{ID: "my notes.pdf", Chars: 5},
			Text:         "hello",
		})
	}))
	defer ts.Close()

	doc, err := New(ts.URL, 0).Document(context.Background(), "my notes.pdf")
	require.NoError(t, err)
	assert.Equal(t, "my notes.pdf", doc.ID)
	assert.Equal(t, "hello", doc.Text)
}

func TestSessions(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/chat/sessions", r.URL.Path)
		_ = json.NewEncoder(w).Encode(api.SessionsResponse{Sessions: []string{"general", "s1"}, Count: 2})
	}))
	defer ts.Close()

	sessions, err := New(ts.URL, 0).Sessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"general", "s1"}, sessions)
}
