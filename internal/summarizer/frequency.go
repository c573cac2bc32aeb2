package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	tokenRe    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)
	sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?]+)`)
)

// Ranker shortens dataset descriptions and finds the sentence of a
// description that best answers a research question.
type Ranker struct {
	stopwords map[string]struct{}
}

func NewRanker() *Ranker {
	return &Ranker{stopwords: defaultStopwords()}
}

// Sentences splits text into trimmed sentences. Text without terminal
// punctuation is one sentence.
func Sentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	found := sentenceRe.FindAllStringIndex(text, -1)
	out := make([]string, 0, len(found)+1)
	end := 0
	for _, loc := range found {
		if s := strings.TrimSpace(text[loc[0]:loc[1]]); s != "" {
			out = append(out, s)
		}
		end = loc[1]
	}
	if rest := strings.TrimSpace(text[end:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// Shorten keeps the maxSentences sentences with the highest normalized
// content-word frequency, in their original order.
func (r *Ranker) Shorten(text string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	sentences := Sentences(text)
	if len(sentences) <= maxSentences {
		return strings.Join(sentences, " ")
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range r.contentTokens(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, sent := range sentences {
		toks := tokens(sent)
		s := 0.0
		for _, tok := range toks {
			s += freq[tok] / maxF
		}
		if len(toks) > 0 {
			s /= math.Sqrt(float64(len(toks)))
		}
		scores[i] = scored{i, s}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	keep := make([]int, maxSentences)
	for i := range keep {
		keep[i] = scores[i].idx
	}
	sort.Ints(keep)
	out := make([]string, len(keep))
	for i, idx := range keep {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " ")
}

// Best returns the sentences of text and the index of the one sharing the
// most distinct content words with query, or -1 when nothing overlaps.
func (r *Ranker) Best(text, query string) ([]string, int) {
	sentences := Sentences(text)
	q := make(map[string]struct{})
	for _, tok := range r.contentTokens(query) {
		q[tok] = struct{}{}
	}
	best, bestScore := -1, 0
	for i, sent := range sentences {
		seen := make(map[string]struct{})
		score := 0
		for _, tok := range r.contentTokens(sent) {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			if _, ok := q[tok]; ok {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return sentences, best
}

func (r *Ranker) contentTokens(text string) []string {
	all := tokens(text)
	out := all[:0]
	for _, tok := range all {
		if _, stop := r.stopwords[tok]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

func tokens(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these", "those", "from", "up", "down", "over", "under", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "out", "can", "will", "should", "what", "which", "who", "how", "why", "does", "do", "there", "their", "has", "have", "had",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
