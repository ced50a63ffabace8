// Package chunker splits extracted document text into retrieval units.
package chunker

import (
	"regexp"
	"strings"
)

// Chunk is a paragraph of a document.
type Chunk struct {
	Index   int    // Position among the kept paragraphs (0, 1, 2...)
	Content string // Trimmed paragraph text
}

// blankLine matches a paragraph break: a line break followed by one or more
// lines containing only whitespace.
var blankLine = regexp.MustCompile(`\n[ \t\f\v]*\n\s*`)

// Split splits text on blank lines. Whitespace-only paragraphs are dropped.
func Split(text string) []Chunk {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var chunks []Chunk
	for _, part := range blankLine.Split(text, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Content: part})
	}
	return chunks
}
