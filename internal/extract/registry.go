// Package extract converts uploaded documents into plain text.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Extractor turns the raw bytes of one document format into text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Registry dispatches extraction by lower-cased file extension.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry creates a registry with the built-in extractors enabled for
// the given extensions. Unknown extensions are ignored. An empty list enables ".pdf" only.
func NewRegistry(extensions []string) *Registry {
	if len(extensions) == 0 {
		extensions = []string{".pdf"}
	}

	builtin := map[string]Extractor{
		".pdf":      NewPDFExtractor(0),
		".md":       NewMarkdownExtractor(),
		".markdown": NewMarkdownExtractor(),
	}

	r := &Registry{extractors: make(map[string]Extractor)}
	for _, ext := range extensions {
		ext = normalizeExt(ext)
		if e, ok := builtin[ext]; ok {
			r.extractors[ext] = e
		}
	}
	return r
}

// Extensions returns the enabled extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether filename has an enabled extension.
func (r *Registry) Supports(filename string) bool {
	_, ok := r.extractors[normalizeExt(filepath.Ext(filename))]
	return ok
}

// Extract converts data to text using the extractor registered for filename's extension.
// Failures and blank results are returned as *ExtractionError.
func (r *Registry) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	e, ok := r.extractors[normalizeExt(filepath.Ext(filename))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(filename))
	}

	text, err := e.Extract(ctx, data)
	if err != nil {
		return "", &ExtractionError{Filename: filename, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", &ExtractionError{Filename: filename, Err: ErrNoText}
	}
	return text, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
