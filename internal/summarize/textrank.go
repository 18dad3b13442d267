package summarize

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"
)

const (
	damping       = 0.85
	maxIterations = 100
	convergence   = 1e-4
)

// TextRank is an extractive summarizer. Sentences are ranked by PageRank over
// a graph weighted by word overlap, and the best ones are returned in their
// original order.
type TextRank struct{}

// NewTextRank returns the default extractive summarizer.
func NewTextRank() *TextRank {
	return &TextRank{}
}

// Summarize never fails. Text without rankable sentences falls back to a
// naive split, and then to the trimmed text itself.
func (tr *TextRank) Summarize(_ context.Context, text string, style Style) (string, error) {
	count := style.SentenceCount()

	sentences := SplitSentences(text)
	chunks := rank(sentences, count)
	if len(chunks) == 0 {
		chunks = firstN(text, count)
	}
	return format(chunks, text, style), nil
}

// rank picks the count highest-scoring sentences and returns them in
// document order.
func rank(sentences []string, count int) []string {
	if len(sentences) <= count {
		return sentences
	}

	words := make([][]string, len(sentences))
	for i, s := range sentences {
		words[i] = tokenize(s)
	}

	n := len(sentences)
	weights := make([][]float64, n)
	outSum := make([]float64, n)
	for i := range weights {
		weights[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			w := similarity(words[i], words[j])
			weights[i][j] = w
			weights[j][i] = w
			outSum[i] += w
			outSum[j] += w
		}
	}

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = 1.0 / float64(n)
	}
	next := make([]float64, n)
	for iter := 0; iter < maxIterations; iter++ {
		delta := 0.0
		for i := 0; i < n; i++ {
			sum := 0.0
			for j := 0; j < n; j++ {
				if weights[j][i] == 0 || outSum[j] == 0 {
					continue
				}
				sum += weights[j][i] / outSum[j] * scores[j]
			}
			next[i] = (1-damping)/float64(n) + damping*sum
			delta += math.Abs(next[i] - scores[i])
		}
		scores, next = next, scores
		if delta < convergence {
			break
		}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	picked := order[:count]
	sort.Ints(picked)

	out := make([]string, len(picked))
	for i, idx := range picked {
		out[i] = sentences[idx]
	}
	return out
}

// similarity is the TextRank edge weight: shared words normalized by the log
// lengths of both sentences.
func similarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, w := range a {
		set[w] = true
	}
	common := 0
	seen := make(map[string]bool, len(b))
	for _, w := range b {
		if set[w] && !seen[w] {
			common++
			seen[w] = true
		}
	}
	if common == 0 {
		return 0
	}
	norm := math.Log(float64(len(a))) + math.Log(float64(len(b)))
	if norm <= 0 {
		return float64(common)
	}
	return float64(common) / norm
}

// tokenize lowercases a sentence and splits it into letter/digit runs.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
