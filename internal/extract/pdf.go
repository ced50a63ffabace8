package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxPDFBytes bounds the size of a PDF handed to the parser.
const DefaultMaxPDFBytes = 50 << 20

// PDFExtractor extracts the plain text of every page of a PDF.
type PDFExtractor struct {
	maxBytes int
}

// NewPDFExtractor creates a PDF extractor. If maxBytes is 0, DefaultMaxPDFBytes is used.
func NewPDFExtractor(maxBytes int) *PDFExtractor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPDFBytes
	}
	return &PDFExtractor{maxBytes: maxBytes}
}

// Extract returns the text of all pages joined by a blank line.
// Pages without text are skipped.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", errors.New("empty file")
	}
	if len(data) > e.maxBytes {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), e.maxBytes)
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if content = strings.TrimSpace(content); content != "" {
			pages = append(pages, content)
		}
	}

	return strings.Join(pages, "\n\n"), nil
}
