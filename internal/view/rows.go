package view

import (
	"fmt"
	"strings"

	"semqa/internal/domain"
	"semqa/internal/stream"
)

// Row is one research question with whatever stages have arrived for it.
type Row struct {
	Hash           string
	Question       *domain.ResearchQuestion
	Embedding      *domain.EmbeddingPayload
	Datasets       *domain.DatasetResults
	Interpretation *domain.Interpretation
}

// Rows lists the questions of s in first-insertion order. No stage is
// required for a row to appear.
func Rows(s stream.Snapshot) []Row {
	rows := make([]Row, 0, len(s.Order))
	for _, hash := range s.Order {
		e, ok := s.Entries[hash]
		if !ok {
			continue
		}
		rows = append(rows, Row{
			Hash:           hash,
			Question:       e.Question,
			Embedding:      e.Embedding,
			Datasets:       e.Datasets,
			Interpretation: e.Interpretation,
		})
	}
	return rows
}

// Title is the question text, falling back to the text echoed with the
// embedding and finally to the hash.
func (r Row) Title() string {
	if r.Question != nil && r.Question.Question != "" {
		return r.Question.Question
	}
	if r.Embedding != nil && r.Embedding.Question != "" {
		return r.Embedding.Question
	}
	return "Question " + ShortHash(r.Hash)
}

// Reason is why the question was asked, when known.
func (r Row) Reason() string {
	if r.Question != nil && r.Question.Reason != "" {
		return r.Question.Reason
	}
	if r.Embedding != nil {
		return r.Embedding.Reason
	}
	return ""
}

// Stages renders which of the four stages have arrived.
func (r Row) Stages() string {
	marks := []bool{
		r.Question != nil,
		r.Embedding != nil,
		r.Datasets != nil,
		r.Interpretation != nil,
	}
	var b strings.Builder
	for _, ok := range marks {
		if ok {
			b.WriteRune('●')
		} else {
			b.WriteRune('○')
		}
	}
	return b.String()
}

// ShortHash abbreviates a question hash for display.
func ShortHash(hash string) string {
	if len(hash) <= 8 {
		return hash
	}
	return hash[:8]
}

// VectorPreview formats the first n components of v.
func VectorPreview(v []float64, n int) string {
	if len(v) == 0 {
		return "no embedding"
	}
	shown := v
	if n > 0 && len(shown) > n {
		shown = shown[:n]
	}
	parts := make([]string, len(shown))
	for i, x := range shown {
		parts[i] = fmt.Sprintf("%.4f", x)
	}
	out := "[" + strings.Join(parts, ", ")
	if len(shown) < len(v) {
		out += ", …"
	}
	return fmt.Sprintf("%s] (%d dims)", out, len(v))
}
