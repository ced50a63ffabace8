package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docchat-server/internal/completion"
	"github.com/bull/docchat-server/internal/document"
	"github.com/bull/docchat-server/internal/extract"
	"github.com/bull/docchat-server/internal/extract/pdftest"
	"github.com/bull/docchat-server/internal/history"
	"github.com/bull/docchat-server/internal/indexer"
	"github.com/bull/docchat-server/internal/retrieval"
)

// fakeCompleter records every call and answers with reply (or err).
type fakeCompleter struct {
	mu    sync.Mutex
	calls [][]completion.Message
	opts  []completion.Options
	reply func(messages []completion.Message) string
	err   error
}

func (f *fakeCompleter) Complete(_ context.Context, messages []completion.Message, opts completion.Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, append([]completion.Message(nil), messages...))
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return "", f.err
	}
	if f.reply != nil {
		return f.reply(messages), nil
	}
	return "ok", nil
}

func (f *fakeCompleter) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	last := f.calls[len(f.calls)-1]
	return last[len(last)-1].Content
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

func newTestService(t *testing.T, fc *fakeCompleter) (*Service, *document.Store) {
	t.Helper()
	store := document.NewStore()
	ret := retrieval.NewTruncateRetriever(store, 0)
	pipeline := indexer.NewPipeline(extract.NewRegistry(nil), ret, store, nil)

	return NewService(&Config{
		Completer: fc,
		Pipeline:  pipeline,
		Store:     store,
		Retriever: ret,
		History:   history.NewMemoryStore(),
	}), store
}

func TestChat_AccumulatesHistory(t *testing.T) {
	n := 0
	fc := &fakeCompleter{reply: func([]completion.Message) string {
		n++
		return fmt.Sprintf("reply %d", n)
	}}
	svc, _ := newTestService(t, fc)
	ctx := context.Background()

	out, err := svc.Chat(ctx, "", "hello")
	require.NoError(t, err)
	assert.Equal(t, "reply 1", out)

	_, err = svc.Chat(ctx, "", "and again")
	require.NoError(t, err)

	second := fc.calls[1]
	require.Len(t, second, 3)
	assert.Equal(t, completion.Message{Role: completion.RoleUser, Content: "hello"}, second[0])
	assert.Equal(t, completion.Message{Role: completion.RoleAssistant, Content: "reply 1"}, second[1])
	assert.Equal(t, completion.Message{Role: completion.RoleUser, Content: "and again"}, second[2])
}

func TestChat_SessionsIsolated(t *testing.T) {
	fc := &fakeCompleter{}
	svc, _ := newTestService(t, fc)
	ctx := context.Background()

	_, err := svc.Chat(ctx, "alice", "from alice")
	require.NoError(t, err)
	_, err = svc.Chat(ctx, "bob", "from bob")
	require.NoError(t, err)

	require.Len(t, fc.calls[1], 1)
	assert.Equal(t, "from bob", fc.calls[1][0].Content)
}

func TestChat_ConcurrentSameSessionKeepsPairs(t *testing.T) {
	fc := &fakeCompleter{reply: func(m []completion.Message) string {
		return "re: " + m[len(m)-1].Content
	}}
	svc, _ := newTestService(t, fc)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Chat(ctx, "shared", fmt.Sprintf("msg %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	turns, err := svc.history.Load(ctx, "shared")
	require.NoError(t, err)
	require.Len(t, turns, 40)
	for i := 0; i < len(turns); i += 2 {
		assert.Equal(t, "user", turns[i].Role)
		assert.Equal(t, "re: "+turns[i].Content, turns[i+1].Content)
	}
}

func TestChat_FailureDoesNotRecordTurns(t *testing.T) {
	fc := &fakeCompleter{err: &completion.GatewayError{StatusCode: 500, Message: "boom"}}
	svc, _ := newTestService(t, fc)
	ctx := context.Background()

	_, err := svc.Chat(ctx, "", "hello")
	var gwErr *completion.GatewayError
	require.True(t, errors.As(err, &gwErr))

	turns, err := svc.history.Load(ctx, history.DefaultSession)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestChat_TrimsHistory(t *testing.T) {
	fc := &fakeCompleter{}
	svc, _ := newTestService(t, fc)
	svc.maxHistoryTurns = 4
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Chat(ctx, "", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	last := fc.calls[len(fc.calls)-1]
	require.Len(t, last, 5)
	assert.Equal(t, "m2", last[0].Content)
	assert.Equal(t, "m4", last[4].Content)
}

func TestChat_OddHistoryWindowStartsWithUser(t *testing.T) {
	fc := &fakeCompleter{}
	svc, _ := newTestService(t, fc)
	svc.maxHistoryTurns = 3
	ctx := context.Background()

	for i := range 4 {
		_, err := svc.Chat(ctx, "", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	last := fc.calls[len(fc.calls)-1]
	require.Len(t, last, 3)
	assert.Equal(t, completion.RoleUser, last[0].Role)
	assert.Equal(t, "m2", last[0].Content)
	assert.Equal(t, completion.RoleAssistant, last[1].Role)
	assert.Equal(t, "m3", last[2].Content)
}

func TestSessionsAndDocument(t *testing.T) {
	fc := &fakeCompleter{}
	svc, store := newTestService(t, fc)
	ctx := context.Background()

	_, err := svc.Chat(ctx, "work", "hello")
	require.NoError(t, err)
	_, err = svc.Chat(ctx, "", "hello")
	require.NoError(t, err)

	sessions, err := svc.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{history.DefaultSession, "work"}, sessions)

	store.Put("a.pdf", "alpha")
	doc, ok := svc.Document("a.pdf")
	require.True(t, ok)
	assert.Equal(t, "alpha", doc.Text)
	_, ok = svc.Document("missing.pdf")
	assert.False(t, ok)
}

func TestChat_BlankMessage(t *testing.T) {
	fc := &fakeCompleter{}
	svc, _ := newTestService(t, fc)

	_, err := svc.Chat(context.Background(), "", "   ")
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
	assert.Equal(t, 0, fc.callCount())
}

func TestResetSession(t *testing.T) {
	fc := &fakeCompleter{}
	svc, _ := newTestService(t, fc)
	ctx := context.Background()

	_, err := svc.Chat(ctx, "", "hello")
	require.NoError(t, err)
	require.NoError(t, svc.ResetSession(ctx, ""))

	_, err = svc.Chat(ctx, "", "fresh")
	require.NoError(t, err)
	assert.Len(t, fc.calls[1], 1)
}

func TestSmallChat(t *testing.T) {
	fc := &fakeCompleter{reply: func([]completion.Message) string { return "  short answer \n" }}
	svc, _ := newTestService(t, fc)

	out, err := svc.SmallChat(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "short answer", out)

	require.Len(t, fc.calls[0], 1)
	assert.Equal(t, DefaultSmallChatMaxTokens, fc.opts[0].MaxOutputTokens)

	// No history is kept.
	_, err = svc.SmallChat(context.Background(), "again")
	require.NoError(t, err)
	assert.Len(t, fc.calls[1], 1)
}

func TestSuggestions(t *testing.T) {
	fc := &fakeCompleter{reply: func([]completion.Message) string {
		return "1. What is Go?\n\n2) Why channels?\n   \n- How do I test?\nExtra question?"
	}}
	svc, _ := newTestService(t, fc)

	got := svc.Suggestions(context.Background(), "tell me about Go")
	assert.Equal(t, []string{"What is Go?", "Why channels?", "How do I test?"}, got)
	assert.Contains(t, fc.lastPrompt(), "tell me about Go")
}

func TestSuggestions_FailureIsEmpty(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("upstream down")}
	svc, _ := newTestService(t, fc)

	got := svc.Suggestions(context.Background(), "anything")
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestUpload(t *testing.T) {
	svc, store := newTestService(t, &fakeCompleter{})
	ctx := context.Background()

	msg, err := svc.Upload(ctx, "hello.pdf", pdftest.Build("Hello World"))
	require.NoError(t, err)
	assert.Equal(t, "PDF 'hello.pdf' uploaded successfully.", msg)
	assert.Equal(t, 1, store.Len())

	var vErr *ValidationError
	_, err = svc.Upload(ctx, "image.png", []byte{1})
	assert.True(t, errors.As(err, &vErr))

	_, err = svc.Upload(ctx, "", []byte{1})
	assert.True(t, errors.As(err, &vErr))

	_, err = svc.Upload(ctx, "scan.pdf", pdftest.Build())
	require.True(t, errors.As(err, &vErr))
	assert.ErrorIs(t, err, extract.ErrNoText)

	var extErr *extract.ExtractionError
	_, err = svc.Upload(ctx, "broken.pdf", []byte("junk"))
	assert.True(t, errors.As(err, &extErr))
	assert.Equal(t, 1, store.Len())
}

func TestQuery_EmptyStoreNeverCallsModel(t *testing.T) {
	fc := &fakeCompleter{}
	svc, _ := newTestService(t, fc)

	_, err := svc.Query(context.Background(), "What does it say?")
	assert.ErrorIs(t, err, retrieval.ErrEmptyStore)
	assert.Equal(t, 0, fc.callCount())
}

func TestQuery_UploadThenAsk(t *testing.T) {
	fc := &fakeCompleter{reply: func([]completion.Message) string { return "It says Hello World." }}
	svc, _ := newTestService(t, fc)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "hello.pdf", pdftest.Build("Hello World"))
	require.NoError(t, err)

	out, err := svc.Query(ctx, "What does it say?")
	require.NoError(t, err)
	assert.Equal(t, "It says Hello World.", out)

	prompt := fc.lastPrompt()
	assert.True(t, strings.HasPrefix(prompt, "Answer the following question based on"))
	assert.Contains(t, prompt, "Hello World")
	assert.Contains(t, prompt, "What does it say?")
}

func TestQuery_Blank(t *testing.T) {
	svc, _ := newTestService(t, &fakeCompleter{})

	_, err := svc.Query(context.Background(), "")
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestSummarize_OnlyUploadedText(t *testing.T) {
	fc := &fakeCompleter{}
	svc, _ := newTestService(t, fc)
	ctx := context.Background()

	_, err := svc.Summarize(ctx)
	assert.ErrorIs(t, err, retrieval.ErrEmptyStore)
	assert.Equal(t, 0, fc.callCount())

	_, err = svc.Upload(ctx, "doc.pdf", pdftest.Build("First version"))
	require.NoError(t, err)
	_, err = svc.Summarize(ctx)
	require.NoError(t, err)
	assert.Contains(t, fc.lastPrompt(), "First version")

	_, err = svc.Upload(ctx, "doc.pdf", pdftest.Build("Second version"))
	require.NoError(t, err)
	_, err = svc.Summarize(ctx)
	require.NoError(t, err)
	assert.Contains(t, fc.lastPrompt(), "Second version")
	assert.NotContains(t, fc.lastPrompt(), "First version")
}

func TestSummarize_Truncates(t *testing.T) {
	fc := &fakeCompleter{}
	svc, store := newTestService(t, fc)
	store.Put("big.pdf", strings.Repeat("z", 8000))

	_, err := svc.Summarize(context.Background())
	require.NoError(t, err)

	prompt := fc.lastPrompt()
	assert.Contains(t, prompt, strings.Repeat("z", 5000)+"\n"+retrieval.TruncationMarker)
	assert.NotContains(t, prompt, strings.Repeat("z", 5001))
}

func TestParseSuggestions(t *testing.T) {
	assert.Empty(t, parseSuggestions("", 3))
	assert.Equal(t, []string{"a", "b"}, parseSuggestions("a\r\n\r\nb\n", 3))
	assert.Equal(t, []string{"2024 plans?"}, parseSuggestions("2024 plans?", 3))
	assert.Equal(t, []string{"x", "y"}, parseSuggestions("* x\n• y", 3))
}
