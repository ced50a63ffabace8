package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// MarkdownExtractor renders markdown to plain text, one block per paragraph.
// Headings are written as their full section path ("Setup > Install") so a
// paragraph chunk that starts a section keeps its context.
type MarkdownExtractor struct {
	md goldmark.Markdown
}

// NewMarkdownExtractor creates a markdown extractor.
func NewMarkdownExtractor() *MarkdownExtractor {
	return &MarkdownExtractor{
		md: goldmark.New(
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
	}
}

// Extract returns the text blocks of the document separated by blank lines.
func (e *MarkdownExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	doc := e.md.Parser().Parse(text.NewReader(data))

	tree, err := toc.Inspect(doc, data, toc.Compact(true))
	if err != nil {
		return "", fmt.Errorf("inspect headings: %w", err)
	}
	paths := make(map[string]string)
	collectHeaderPaths(tree.Items, nil, paths)

	var blocks []string
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			title := strings.TrimSpace(inlineText(node, data))
			if id, ok := node.AttributeString("id"); ok {
				if b, ok := id.([]byte); ok {
					if path, ok := paths[string(b)]; ok {
						title = path
					}
				}
			}
			blocks = appendBlock(blocks, title)
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph, *ast.TextBlock:
			blocks = appendBlock(blocks, inlineText(node, data))
			return ast.WalkSkipChildren, nil

		case *ast.CodeBlock, *ast.FencedCodeBlock:
			blocks = appendBlock(blocks, blockLines(node, data))
			return ast.WalkSkipChildren, nil

		case *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("walk markdown: %w", err)
	}

	return strings.Join(blocks, "\n\n"), nil
}

// collectHeaderPaths maps each heading ID to its section path.
func collectHeaderPaths(items toc.Items, ancestors []string, paths map[string]string) {
	for _, item := range items {
		current := append(append([]string(nil), ancestors...), string(item.Title))
		if len(item.ID) > 0 {
			paths[string(item.ID)] = strings.Join(current, " > ")
		}
		collectHeaderPaths(item.Items, current, paths)
	}
}

func appendBlock(blocks []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		blocks = append(blocks, s)
	}
	return blocks
}

// inlineText concatenates the text leaves below n.
func inlineText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch leaf := c.(type) {
		case *ast.Text:
			buf.Write(leaf.Segment.Value(source))
			if leaf.SoftLineBreak() || leaf.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(leaf.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func blockLines(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}
