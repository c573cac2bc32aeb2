package view

import (
	"fmt"
	"math"
	"strings"

	"semqa/internal/domain"
)

// Completeness is the share of non-null values in a field. With a known row
// count it is (count-null)/count; otherwise unique/(unique+null). The result
// is clamped to [0,1] and 0 when nothing is known.
func Completeness(f domain.FieldSummary) float64 {
	if f == nil {
		return 0
	}
	st := f.Stats()
	var ratio float64
	switch {
	case st.Count > 0:
		ratio = float64(st.Count-st.NullCount) / float64(st.Count)
	case st.UniqueCount+st.NullCount > 0:
		ratio = float64(st.UniqueCount) / float64(st.UniqueCount+st.NullCount)
	default:
		return 0
	}
	return math.Max(0, math.Min(1, ratio))
}

// ScorePercent formats a similarity score. Out-of-range scores are shown as
// they are.
func ScorePercent(score float64) string {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", score*100)
}

// ScoreBar draws score as a bar of width cells, clamped for display only.
func ScoreBar(score float64, width int) string {
	if width <= 0 {
		return ""
	}
	if math.IsNaN(score) {
		score = 0
	}
	filled := int(math.Round(math.Max(0, math.Min(1, score)) * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// FieldLine summarizes a field on one line.
func FieldLine(name string, f domain.FieldSummary) string {
	pct := fmt.Sprintf("%3.0f%% complete", Completeness(f)*100)
	switch v := f.(type) {
	case domain.NumericField:
		return fmt.Sprintf("%s (numeric) · %s · mean %.2f · median %.2f · range %.2f–%.2f",
			name, pct, v.Mean, v.Median, v.Min, v.Max)
	case domain.DateField:
		return fmt.Sprintf("%s (date) · %s · %s → %s", name, pct, v.Min, v.Max)
	case domain.StringField:
		return fmt.Sprintf("%s (text) · %s · %d unique", name, pct, v.UniqueCount)
	case domain.OtherField:
		return fmt.Sprintf("%s (%s) · %s", name, strings.ToLower(string(v.Type)), pct)
	}
	return name
}

// Fields lists the field lines of a dataset in name order.
func Fields(m domain.DatasetMetadata) []string {
	names := m.Fields.Names()
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, FieldLine(n, m.Fields[n]))
	}
	return out
}
