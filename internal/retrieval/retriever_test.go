package retrieval

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docchat-server/internal/document"
)

func TestTruncate_UnderLimit(t *testing.T) {
	for _, n := range []int{0, 1, 4999, 5000} {
		text := strings.Repeat("a", n)
		got := Truncate(text, DefaultMaxChars)
		assert.Equal(t, text, got)
		assert.False(t, strings.HasSuffix(got, TruncationMarker))
	}
}

func TestTruncate_OverLimit(t *testing.T) {
	for _, n := range []int{5001, 5002, 12000} {
		got := Truncate(strings.Repeat("b", n), DefaultMaxChars)
		assert.Equal(t, 5001+len(TruncationMarker), utf8.RuneCountInString(got))
		assert.True(t, strings.HasSuffix(got, "\n"+TruncationMarker))
		assert.Equal(t, strings.Repeat("b", 5000), got[:5000])
	}
}

func TestTruncate_CountsCharactersNotBytes(t *testing.T) {
	text := strings.Repeat("é", 5001)

	got := Truncate(text, DefaultMaxChars)
	assert.Equal(t, 5001+len(TruncationMarker), utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))

	assert.Equal(t, strings.Repeat("é", 5000), Truncate(strings.Repeat("é", 5000), DefaultMaxChars))
}

func TestConcatTruncate(t *testing.T) {
	store := document.NewStore()

	_, err := ConcatTruncate(store, DefaultMaxChars)
	assert.ErrorIs(t, err, ErrEmptyStore)

	store.Put("a.pdf", "first")
	store.Put("b.pdf", "second")
	got, err := ConcatTruncate(store, DefaultMaxChars)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", got)

	// Joined length counts the separator.
	store = document.NewStore()
	store.Put("a.pdf", strings.Repeat("x", 2500))
	store.Put("b.pdf", strings.Repeat("y", 2500))
	got, err = ConcatTruncate(store, DefaultMaxChars)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got, TruncationMarker))
	assert.Len(t, got, 5001+len(TruncationMarker))
}

func TestTruncateRetriever(t *testing.T) {
	store := document.NewStore()
	r := NewTruncateRetriever(store, 0)
	ctx := context.Background()

	_, err := r.Retrieve(ctx, "anything")
	assert.ErrorIs(t, err, ErrEmptyStore)

	doc, _ := store.Put("hello.pdf", "Hello World")
	require.NoError(t, r.Index(ctx, doc))

	got, err := r.Retrieve(ctx, "What does it say?")
	require.NoError(t, err)
	assert.Equal(t, "Hello World", got)
}
