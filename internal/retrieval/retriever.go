// Package retrieval selects the document text sent to the model as context.
package retrieval

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/bull/docchat-server/internal/document"
)

const (
	// DefaultMaxChars bounds concatenated context, in characters.
	DefaultMaxChars = 5000

	// DefaultTopK is the number of chunks returned by similarity retrieval.
	DefaultTopK = 3

	// TruncationMarker is appended, on its own line, to truncated context.
	TruncationMarker = "[truncated]"
)

// ErrEmptyStore is returned when retrieval runs before any document was ingested.
var ErrEmptyStore = errors.New("no documents have been uploaded")

// Retriever produces context for a question.
type Retriever interface {
	// Index prepares a document for retrieval. Called before the document is stored.
	Index(ctx context.Context, doc document.Document) error
	// Retrieve returns the context for query, or ErrEmptyStore.
	Retrieve(ctx context.Context, query string) (string, error)
}

// Truncate cuts text to maxChars characters and appends a newline and
// TruncationMarker when anything was cut.
func Truncate(text string, maxChars int) string {
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	n := 0
	for i := range text {
		if n == maxChars {
			return text[:i] + "\n" + TruncationMarker
		}
		n++
	}
	return text
}

// ConcatTruncate joins every stored text with newlines and truncates the
// result to maxChars characters.
func ConcatTruncate(store *document.Store, maxChars int) (string, error) {
	if store.IsEmpty() {
		return "", ErrEmptyStore
	}
	return Truncate(strings.Join(store.Texts(), "\n"), maxChars), nil
}

// TruncateRetriever returns all stored text, truncated, regardless of the query.
type TruncateRetriever struct {
	store    *document.Store
	maxChars int
}

// NewTruncateRetriever creates a TruncateRetriever. If maxChars is 0, DefaultMaxChars is used.
func NewTruncateRetriever(store *document.Store, maxChars int) *TruncateRetriever {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &TruncateRetriever{store: store, maxChars: maxChars}
}

// Index is a no-op: the store itself is the index.
func (r *TruncateRetriever) Index(context.Context, document.Document) error {
	return nil
}

func (r *TruncateRetriever) Retrieve(_ context.Context, _ string) (string, error) {
	return ConcatTruncate(r.store, r.maxChars)
}
