package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docchat-server/internal/document"
)

type recordingIngester struct {
	mu    sync.Mutex
	paths []string
}

func (r *recordingIngester) Supports(filename string) bool {
	return strings.HasSuffix(filename, ".pdf")
}

func (r *recordingIngester) IngestFile(_ context.Context, path string) (document.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	return document.Document{ID: filepath.Base(path)}, nil
}

func (r *recordingIngester) ingested() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func startWatcher(t *testing.T, ing Ingester) string {
	t.Helper()
	dir := t.TempDir()

	w, err := New(ing, 50*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, dir) }()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
		w.Close()
	})

	// Give fsnotify time to register the directory.
	time.Sleep(50 * time.Millisecond)
	return dir
}

func TestWatcher_IngestsSupportedFiles(t *testing.T) {
	ing := &recordingIngester{}
	dir := startWatcher(t, ing)

	path := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))

	require.Eventually(t, func() bool {
		return len(ing.ingested()) > 0
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, path, ing.ingested()[0])
}

func TestWatcher_DebouncesRepeatedWrites(t *testing.T) {
	ing := &recordingIngester{}
	dir := startWatcher(t, ing)

	path := filepath.Join(dir, "notes.pdf")
	f, err := os.Create(path)
	require.NoError(t, err)
	for range 5 {
		_, err := f.WriteString("chunk\n")
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool {
		return len(ing.ingested()) > 0
	}, 2*time.Second, 20*time.Millisecond)

	time.Sleep(200 * time.Millisecond)
	assert.Len(t, ing.ingested(), 1)
}

func TestWatcher_IgnoresUnsupportedFiles(t *testing.T) {
	ing := &recordingIngester{}
	dir := startWatcher(t, ing)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.json"), []byte("{}"), 0o644))

	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, ing.ingested())
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w, err := New(&recordingIngester{}, 0, nil)
	require.NoError(t, err)
	defer w.Close()

	err = w.Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestWatcher_ReleaseKeepsNewerTimer(t *testing.T) {
	w, err := New(&recordingIngester{}, time.Hour, nil)
	require.NoError(t, err)
	defer w.Close()

	older := time.NewTimer(time.Hour)
	newer := time.NewTimer(time.Hour)
	defer older.Stop()
	defer newer.Stop()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending["a.pdf"] = newer
	w.release("a.pdf", older)
	assert.Same(t, newer, w.pending["a.pdf"])

	w.release("a.pdf", newer)
	assert.NotContains(t, w.pending, "a.pdf")
}
