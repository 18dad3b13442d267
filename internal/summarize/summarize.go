// Package summarize produces short extractive or model-written summaries of
// document text.
package summarize

import (
	"context"
	"strings"
	"unicode"
)

// Style selects the length and layout of a summary.
type Style string

const (
	StyleShort   Style = "short"
	StyleMedium  Style = "medium"
	StyleBullets Style = "bullets"
)

// ParseStyle maps a request value onto a Style. Unknown or empty values
// become StyleShort.
func ParseStyle(s string) Style {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case StyleMedium:
		return StyleMedium
	case StyleBullets:
		return StyleBullets
	default:
		return StyleShort
	}
}

// SentenceCount is how many sentences a summary of this style keeps.
func (s Style) SentenceCount() int {
	if s == StyleShort {
		return 2
	}
	return 4
}

// Summarizer condenses text in the requested style.
type Summarizer interface {
	Summarize(ctx context.Context, text string, style Style) (string, error)
}

// format joins chosen sentences for the style. An empty selection falls back
// to the trimmed input text.
func format(chunks []string, text string, style Style) string {
	if len(chunks) == 0 {
		return strings.TrimSpace(text)
	}
	if style == StyleBullets {
		lines := make([]string, len(chunks))
		for i, c := range chunks {
			lines[i] = "- " + c
		}
		return strings.Join(lines, "\n")
	}
	return strings.Join(chunks, " ")
}

// SplitSentences breaks text after '.', '!' or '?' when followed by
// whitespace. Empty pieces are dropped.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var (
		out   []string
		start int
	)
	runes := []rune(text)
	for i := 0; i < len(runes)-1; i++ {
		if !isTerminal(runes[i]) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// firstN returns at most n leading sentences of text.
func firstN(text string, n int) []string {
	sentences := SplitSentences(text)
	if len(sentences) > n {
		sentences = sentences[:n]
	}
	return sentences
}
