package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/docchat-server/internal/chatbot"
	"github.com/bull/docchat-server/internal/history"
	"github.com/bull/docchat-server/internal/retrieval"
)

var (
	errNoDocuments = errors.New("no document uploaded yet; upload a document first")
	errInternal    = errors.New("internal error; see server logs")
)

// toolError turns a service error into the message shown to the MCP client.
// Only validation and empty-store errors are passed through.
func toolError(logger *slog.Logger, tool string, err error) error {
	var vErr *chatbot.ValidationError
	switch {
	case errors.As(err, &vErr):
		return errors.New(vErr.Message)
	case errors.Is(err, retrieval.ErrEmptyStore):
		return errNoDocuments
	default:
		logger.Error("Tool call failed", "tool", tool, "error", err)
		return errInternal
	}
}

func makeQueryHandler(svc *chatbot.Service, logger *slog.Logger) func(
	context.Context, *mcp.CallToolRequest, QueryDocumentsInput,
) (*mcp.CallToolResult, AnswerOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input QueryDocumentsInput) (
		*mcp.CallToolResult, AnswerOutput, error,
	) {
		answer, err := svc.Query(ctx, input.Question)
		if err != nil {
			return nil, AnswerOutput{}, toolError(logger, "query_documents", err)
		}
		return nil, AnswerOutput{Answer: answer}, nil
	}
}

func makeSummarizeHandler(svc *chatbot.Service, logger *slog.Logger) func(
	context.Context, *mcp.CallToolRequest, SummarizeDocumentsInput,
) (*mcp.CallToolResult, SummaryOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SummarizeDocumentsInput) (
		*mcp.CallToolResult, SummaryOutput, error,
	) {
		summary, err := svc.Summarize(ctx)
		if err != nil {
			return nil, SummaryOutput{}, toolError(logger, "summarize_documents", err)
		}
		return nil, SummaryOutput{Summary: summary}, nil
	}
}

func makeListHandler(svc *chatbot.Service) func(
	context.Context, *mcp.CallToolRequest, ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListDocumentsInput) (
		*mcp.CallToolResult, ListDocumentsOutput, error,
	) {
		docs := svc.Documents()

		out := ListDocumentsOutput{
			Documents: make([]DocumentEntry, 0, len(docs)),
			Count:     len(docs),
		}
		for _, d := range docs {
			out.Documents = append(out.Documents, DocumentEntry{
				ID:         d.ID,
				Chars:      len([]rune(d.Text)),
				UploadedAt: d.UploadedAt,
			})
		}
		if out.Count == 0 {
			out.Message = "No documents uploaded yet."
		}
		return nil, out, nil
	}
}

func makeChatHandler(svc *chatbot.Service, logger *slog.Logger) func(
	context.Context, *mcp.CallToolRequest, ChatInput,
) (*mcp.CallToolResult, ChatOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ChatInput) (
		*mcp.CallToolResult, ChatOutput, error,
	) {
		session := input.Session
		if session == "" {
			session = history.DefaultSession
		}

		reply, err := svc.Chat(ctx, session, input.Message)
		if err != nil {
			return nil, ChatOutput{}, toolError(logger, "chat", err)
		}
		return nil, ChatOutput{Response: reply, Session: session}, nil
	}
}
