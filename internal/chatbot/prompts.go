package chatbot

import (
	"fmt"
	"strings"
)

func queryPrompt(question, context string) string {
	return fmt.Sprintf(`Answer the following question based on the provided document content.
If the content does not contain the answer, say so.

Document content:
%s

Question: %s`, context, question)
}

func summaryPrompt(content string) string {
	return fmt.Sprintf(`Summarize the following document content.
Cover the main points in a few short paragraphs.

Document content:
%s`, content)
}

func suggestionsPrompt(message string) string {
	return fmt.Sprintf(`Suggest three short follow-up questions a user might ask after this message.
Reply with exactly three questions, one per line, and nothing else.

Message: %s`, message)
}

// parseSuggestions returns at most max non-blank lines of text, with list
// markers such as "1." or "-" removed.
func parseSuggestions(text string, max int) []string {
	out := make([]string, 0, max)
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = stripListMarker(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == max {
			break
		}
	}
	return out
}

func stripListMarker(line string) string {
	for _, bullet := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, bullet) {
			return strings.TrimSpace(line[len(bullet):])
		}
	}

	// "1." or "1)"
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}
