package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docchat-server/internal/api"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		chatSession = ""
	})
	require.NoError(t, rootCmd.ExecuteContext(t.Context()))
	return out.String()
}

func TestChatCommand(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		var req api.MessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "work", req.SessionID)
		assert.Equal(t, "hello there", req.Message)
		_ = json.NewEncoder(w).Encode(api.ResponseBody{Response: "hi"})
	}))
	defer ts.Close()

	out := execute(t, "chat", "--server", ts.URL, "--session", "work", "hello", "there")
	assert.Equal(t, "hi\n", out)
}

func TestSessionsCommand(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/sessions", r.URL.Path)
		_ = json.NewEncoder(w).Encode(api.SessionsResponse{Sessions: []string{"general", "work"}, Count: 2})
	}))
	defer ts.Close()

	out := execute(t, "sessions", "--server", ts.URL)
	assert.Equal(t, "general\nwork\n", out)
}

func TestShowCommand(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/documents/a.pdf", r.URL.Path)
		_ = json.NewEncoder(w).Encode(api.DocumentResponse{DocumentInfo: api.DocumentInfo{ID: "a.pdf"}, Text: "body"})
	}))
	defer ts.Close()

	out := execute(t, "show", "--server", ts.URL, "a.pdf")
	assert.Equal(t, "body\n", out)
}
