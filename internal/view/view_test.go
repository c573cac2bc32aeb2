package view

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semqa/internal/domain"
	"semqa/internal/stream"
)

func TestRowsFollowFirstInsertionOrder(t *testing.T) {
	r := stream.NewReducer(domain.SearchParams{Question: "q"}, nil)
	r.Ingest(`{"step":1,"status":"success","data":{"question_hash":"h2","embeddings":[0.1,0.2]}}`)
	r.Ingest(`{"step":0,"status":"success","data":{"question":"Q","research_questions":[` +
		`{"question":"first","reason":"r1","question_hash":"h1"},` +
		`{"question":"second","reason":"r2","question_hash":"h2"}]}}`)
	r.Ingest(`{"step":3,"status":"success","sub_step":1,"data":{"question_hash":"h3","answer":"a"}}`)

	rows := Rows(r.Snapshot())
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"h2", "h1", "h3"}, []string{rows[0].Hash, rows[1].Hash, rows[2].Hash})

	assert.Equal(t, "second", rows[0].Title())
	assert.Equal(t, "●●○○", rows[0].Stages())
	assert.Equal(t, "●○○○", rows[1].Stages())
	assert.Equal(t, "Question h3", rows[2].Title())
	assert.Equal(t, "○○○●", rows[2].Stages())
}

func TestRowsEmptySnapshot(t *testing.T) {
	assert.Empty(t, Rows(stream.Snapshot{}))
}

func TestRowTitleFallsBackToEmbeddingText(t *testing.T) {
	row := Row{Hash: "abcdef0123456789", Embedding: &domain.EmbeddingPayload{Question: "echoed", Reason: "why"}}
	assert.Equal(t, "echoed", row.Title())
	assert.Equal(t, "why", row.Reason())
	assert.Equal(t, "Question abcdef01", Row{Hash: "abcdef0123456789"}.Title())
}

func TestCompleteness(t *testing.T) {
	stats := func(unique, null, count int) domain.FieldStats {
		return domain.FieldStats{UniqueCount: unique, NullCount: null, Count: count}
	}
	tests := []struct {
		name  string
		field domain.FieldSummary
		want  float64
	}{
		{"row count known", domain.NumericField{FieldStats: stats(3, 25, 100)}, 0.75},
		{"row count unknown", domain.StringField{FieldStats: stats(30, 10, 0)}, 0.75},
		{"all null", domain.DateField{FieldStats: stats(0, 10, 10)}, 0},
		{"nothing known", domain.StringField{}, 0},
		{"null exceeds count", domain.StringField{FieldStats: stats(1, 12, 10)}, 0},
		{"nil", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Completeness(tt.field), 1e-12)
		})
	}
}

func TestScoreFormatting(t *testing.T) {
	assert.Equal(t, "87.5%", ScorePercent(0.875))
	assert.Equal(t, "130.0%", ScorePercent(1.3))
	assert.Equal(t, "n/a", ScorePercent(math.NaN()))

	assert.Equal(t, "█████░░░░░", ScoreBar(0.5, 10))
	assert.Equal(t, "██████████", ScoreBar(1.7, 10))
	assert.Equal(t, "░░░░░░░░░░", ScoreBar(-0.2, 10))
	assert.Empty(t, ScoreBar(0.5, 0))
}

func TestFieldLines(t *testing.T) {
	m := domain.DatasetMetadata{Fields: domain.FieldMap{
		"year":  domain.NumericField{FieldStats: domain.FieldStats{Count: 10}, Mean: 2010, Median: 2011, Min: 2000, Max: 2020},
		"city":  domain.StringField{FieldStats: domain.FieldStats{UniqueCount: 4}},
		"added": domain.DateField{FieldStats: domain.FieldStats{Count: 2, NullCount: 1}, Min: "2001-01-01", Max: "2002-01-01"},
		"shape": domain.OtherField{FieldStats: domain.FieldStats{Type: "Geometry", Count: 4}},
	}}
	lines := Fields(m)
	require.Len(t, lines, 4)
	assert.Equal(t, "added (date) ·  50% complete · 2001-01-01 → 2002-01-01", lines[0])
	assert.Equal(t, "city (text) · 100% complete · 4 unique", lines[1])
	assert.Equal(t, "shape (geometry) · 100% complete", lines[2])
	assert.Contains(t, lines[3], "mean 2010.00")
}

func TestVectorPreview(t *testing.T) {
	assert.Equal(t, "[0.1000, 0.2000, …] (3 dims)", VectorPreview([]float64{0.1, 0.2, 0.3}, 2))
	assert.Equal(t, "[1.0000] (1 dims)", VectorPreview([]float64{1}, 64))
	assert.Equal(t, "no embedding", VectorPreview(nil, 64))
}
