// Package watcher ingests documents dropped into a directory.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bull/docchat-server/internal/document"
)

// DefaultDebounce is how long a file must stay unchanged before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

// Ingester is the part of the ingestion pipeline the watcher drives.
type Ingester interface {
	Supports(filename string) bool
	IngestFile(ctx context.Context, path string) (document.Document, error)
}

// Watcher re-ingests supported files whenever they are created or written.
type Watcher struct {
	watcher  *fsnotify.Watcher
	ingester Ingester
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

// New creates a watcher. A zero debounce uses DefaultDebounce.
func New(ingester Ingester, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		watcher:  w,
		ingester: ingester,
		debounce: debounce,
		logger:   logger,
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Run watches dir until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info("Watching directory", "dir", dir)

	defer w.stopPending()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.ingester.Supports(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", "error", err)
		}
	}
}

// schedule (re)starts the debounce timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok && t.Stop() {
		w.wg.Done()
	}

	w.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()

		w.mu.Lock()
		w.release(path, timer)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if _, err := w.ingester.IngestFile(ctx, path); err != nil {
			w.logger.Warn("Failed to ingest watched file", "path", path, "error", err)
		}
	})
	w.pending[path] = timer
}

// release forgets the pending timer for path if it is still t. Callers hold w.mu.
func (w *Watcher) release(path string, t *time.Timer) {
	if w.pending[path] == t {
		delete(w.pending, path)
	}
}

// stopPending cancels timers that have not fired and waits for running ingestions.
func (w *Watcher) stopPending() {
	w.mu.Lock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.wg.Wait()
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
