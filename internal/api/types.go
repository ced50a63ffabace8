// Package api exposes the chat service over HTTP.
package api

import "time"

// MessageRequest is the body of /chat, /smallchat, /suggestions and /queryPdf.
type MessageRequest struct {
	Message string `json:"message"`
	// SessionID selects the conversation for /chat. Empty means the shared "general" session.
	SessionID string `json:"session_id,omitempty"`
}

// ResponseBody carries generated text.
type ResponseBody struct {
	Response string `json:"response"`
}

// SuggestionsResponse carries at most three follow-up questions.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// MessageResponse carries a status message.
type MessageResponse struct {
	Message string `json:"message"`
}

// SummaryResponse carries a document summary.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// ErrorResponse is the body of every 4xx/5xx reply.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// DocumentInfo describes one uploaded document.
type DocumentInfo struct {
	ID         string    `json:"id"`
	Chars      int       `json:"chars"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// DocumentsResponse lists uploaded documents in upload order.
type DocumentsResponse struct {
	Documents []DocumentInfo `json:"documents"`
	Count     int            `json:"count"`
}

// DocumentResponse is the body of GET /documents/{id}.
type DocumentResponse struct {
	DocumentInfo
	Text string `json:"text"`
}

// SessionsResponse lists conversations with history.
type SessionsResponse struct {
	Sessions []string `json:"sessions"`
	Count    int      `json:"count"`
}
