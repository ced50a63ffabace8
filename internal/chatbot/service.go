// Package chatbot implements the chat and document question-answering operations
// behind the HTTP and MCP surfaces.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bull/docchat-server/internal/completion"
	"github.com/bull/docchat-server/internal/document"
	"github.com/bull/docchat-server/internal/extract"
	"github.com/bull/docchat-server/internal/history"
	"github.com/bull/docchat-server/internal/indexer"
	"github.com/bull/docchat-server/internal/retrieval"
)

const (
	// DefaultMaxHistoryTurns bounds the history sent with a chat message.
	DefaultMaxHistoryTurns = 50

	// DefaultSmallChatMaxTokens caps small-chat replies.
	DefaultSmallChatMaxTokens = 150

	// MaxSuggestions is the most follow-up questions returned.
	MaxSuggestions = 3
)

// Completer sends a prompt to the language model.
type Completer interface {
	Complete(ctx context.Context, messages []completion.Message, opts completion.Options) (string, error)
}

// Config holds service dependencies and tuning.
type Config struct {
	Completer Completer
	Pipeline  *indexer.Pipeline
	Store     *document.Store
	Retriever retrieval.Retriever
	History   history.Store

	MaxHistoryTurns    int      // Defaults to DefaultMaxHistoryTurns
	SmallChatMaxTokens int      // Defaults to DefaultSmallChatMaxTokens
	MaxContextChars    int      // Bound for summarize context; defaults to retrieval.DefaultMaxChars
	Temperature        *float64 // Nil leaves the provider default

	Logger *slog.Logger
}

// Service runs one operation per endpoint.
type Service struct {
	completer Completer
	pipeline  *indexer.Pipeline
	store     *document.Store
	retriever retrieval.Retriever
	history   history.Store

	maxHistoryTurns    int
	smallChatMaxTokens int
	maxContextChars    int
	temperature        *float64
	logger             *slog.Logger

	mu       sync.Mutex
	sessions map[string]*sync.Mutex
}

// NewService creates a chat service from cfg.
func NewService(cfg *Config) *Service {
	s := &Service{
		completer:          cfg.Completer,
		pipeline:           cfg.Pipeline,
		store:              cfg.Store,
		retriever:          cfg.Retriever,
		history:            cfg.History,
		maxHistoryTurns:    cfg.MaxHistoryTurns,
		smallChatMaxTokens: cfg.SmallChatMaxTokens,
		maxContextChars:    cfg.MaxContextChars,
		temperature:        cfg.Temperature,
		logger:             cfg.Logger,
		sessions:           make(map[string]*sync.Mutex),
	}
	if s.maxHistoryTurns <= 0 {
		s.maxHistoryTurns = DefaultMaxHistoryTurns
	}
	if s.smallChatMaxTokens <= 0 {
		s.smallChatMaxTokens = DefaultSmallChatMaxTokens
	}
	if s.maxContextChars <= 0 {
		s.maxContextChars = retrieval.DefaultMaxChars
	}
	if s.history == nil {
		s.history = history.NewMemoryStore()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// lockSession serializes chats within one session.
func (s *Service) lockSession(session string) func() {
	s.mu.Lock()
	m, ok := s.sessions[session]
	if !ok {
		m = &sync.Mutex{}
		s.sessions[session] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Chat sends message together with the session's recent history and records
// both turns once the model has answered. An empty session means history.DefaultSession.
func (s *Service) Chat(ctx context.Context, session, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", invalid("message must not be empty")
	}
	if session == "" {
		session = history.DefaultSession
	}

	unlock := s.lockSession(session)
	defer unlock()

	turns, err := s.history.Load(ctx, session)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}
	if len(turns) > s.maxHistoryTurns {
		turns = turns[len(turns)-s.maxHistoryTurns:]
	}
	// The window must open on a user turn.
	if len(turns) > 0 && turns[0].Role == string(completion.RoleAssistant) {
		turns = turns[1:]
	}

	messages := make([]completion.Message, 0, len(turns)+1)
	for _, t := range turns {
		messages = append(messages, completion.Message{Role: completion.Role(t.Role), Content: t.Content})
	}
	messages = append(messages, completion.Message{Role: completion.RoleUser, Content: message})

	reply, err := s.completer.Complete(ctx, messages, completion.Options{Temperature: s.temperature})
	if err != nil {
		return "", err
	}

	err = s.history.Append(ctx, session,
		history.Turn{Role: string(completion.RoleUser), Content: message},
		history.Turn{Role: string(completion.RoleAssistant), Content: reply},
	)
	if err != nil {
		return "", fmt.Errorf("save history: %w", err)
	}

	s.logger.Debug("Chat turn", "session", session, "history", len(turns))
	return reply, nil
}

// ResetSession forgets the history of session.
func (s *Service) ResetSession(ctx context.Context, session string) error {
	if session == "" {
		session = history.DefaultSession
	}
	unlock := s.lockSession(session)
	defer unlock()

	return s.history.Reset(ctx, session)
}

// SmallChat answers a single message without history, with a capped reply length.
func (s *Service) SmallChat(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", invalid("message must not be empty")
	}

	reply, err := s.completer.Complete(ctx,
		[]completion.Message{{Role: completion.RoleUser, Content: message}},
		completion.Options{MaxOutputTokens: s.smallChatMaxTokens, Temperature: s.temperature},
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// Suggestions asks for up to three follow-up questions. It never fails:
// errors are logged and produce an empty list.
func (s *Service) Suggestions(ctx context.Context, message string) []string {
	if strings.TrimSpace(message) == "" {
		return []string{}
	}

	reply, err := s.completer.Complete(ctx,
		[]completion.Message{{Role: completion.RoleUser, Content: suggestionsPrompt(message)}},
		completion.Options{Temperature: s.temperature},
	)
	if err != nil {
		s.logger.Warn("Suggestions failed", "error", err)
		return []string{}
	}
	return parseSuggestions(reply, MaxSuggestions)
}

// Upload ingests a document and returns a confirmation message.
func (s *Service) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", invalid("a file name is required")
	}
	if !s.pipeline.Supports(name) {
		return "", invalid(fmt.Sprintf("only %s files are allowed", strings.Join(s.pipeline.Extensions(), ", ")))
	}

	doc, err := s.pipeline.Ingest(ctx, name, data)
	if err != nil {
		if errors.Is(err, extract.ErrNoText) {
			return "", &ValidationError{
				Message: fmt.Sprintf("no text could be extracted from '%s'", name),
				Err:     err,
			}
		}
		return "", err
	}

	if strings.EqualFold(filepath.Ext(doc.ID), ".pdf") {
		return fmt.Sprintf("PDF '%s' uploaded successfully.", doc.ID), nil
	}
	return fmt.Sprintf("Document '%s' uploaded successfully.", doc.ID), nil
}

// Query answers question using context retrieved from the uploaded documents.
// Returns retrieval.ErrEmptyStore, without calling the model, when nothing was uploaded.
func (s *Service) Query(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", invalid("message must not be empty")
	}
	if s.store.IsEmpty() {
		return "", retrieval.ErrEmptyStore
	}

	docContext, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		return "", err
	}

	return s.completer.Complete(ctx,
		[]completion.Message{{Role: completion.RoleUser, Content: queryPrompt(question, docContext)}},
		completion.Options{Temperature: s.temperature},
	)
}

// Summarize summarizes all uploaded documents, concatenated and truncated.
func (s *Service) Summarize(ctx context.Context) (string, error) {
	content, err := retrieval.ConcatTruncate(s.store, s.maxContextChars)
	if err != nil {
		return "", err
	}

	return s.completer.Complete(ctx,
		[]completion.Message{{Role: completion.RoleUser, Content: summaryPrompt(content)}},
		completion.Options{Temperature: s.temperature},
	)
}

// Document returns the uploaded document named id.
func (s *Service) Document(id string) (document.Document, bool) {
	return s.store.Get(id)
}

// Sessions lists the conversations that have history.
func (s *Service) Sessions(ctx context.Context) ([]string, error) {
	return s.history.Sessions(ctx)
}

// Documents returns the uploaded documents in upload order.
func (s *Service) Documents() []document.Document {
	return s.store.All()
}
