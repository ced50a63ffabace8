// Package mcp exposes the document chat service as MCP tools.
package mcp

import "time"

// QueryDocumentsInput defines the input parameters for the query_documents tool.
type QueryDocumentsInput struct {
	// Question is answered from the uploaded documents.
	Question string `json:"question" jsonschema:"The question to answer from the uploaded documents"`
}

// AnswerOutput carries generated text.
type AnswerOutput struct {
	Answer string `json:"answer"`
}

// SummarizeDocumentsInput takes no parameters.
type SummarizeDocumentsInput struct{}

// SummaryOutput carries a summary of every uploaded document.
type SummaryOutput struct {
	Summary string `json:"summary"`
}

// ListDocumentsInput takes no parameters.
type ListDocumentsInput struct{}

// DocumentEntry describes one uploaded document.
type DocumentEntry struct {
	ID         string    `json:"id"`
	Chars      int       `json:"chars"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ListDocumentsOutput lists uploaded documents in upload order.
type ListDocumentsOutput struct {
	Documents []DocumentEntry `json:"documents"`
	Count     int             `json:"count"`
	// Message is set when nothing has been uploaded.
	Message string `json:"message,omitempty"`
}

// ChatInput defines the input parameters for the chat tool.
type ChatInput struct {
	Message string `json:"message" jsonschema:"The message to send"`
	// Session keeps separate conversations apart. Empty means the shared session.
	Session string `json:"session,omitempty" jsonschema:"Conversation identifier; omit to use the shared session"`
}

// ChatOutput carries the assistant reply.
type ChatOutput struct {
	Response string `json:"response"`
	Session  string `json:"session"`
}
