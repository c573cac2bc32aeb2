package projector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semqa/internal/domain"
)

func ramp(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = math.Sin(float64(i)*0.37) * 0.8
	}
	return v
}

func TestProjectShapeAndFiniteness(t *testing.T) {
	vectors := [][]float64{ramp(12), ramp(12)[3:], {1, 2, 3}, {0, 0, 0, 0, 9}, ramp(7)}
	out := Project(vectors, 3)
	require.Len(t, out, len(vectors))
	for _, row := range out {
		require.Len(t, row, 3)
		for _, v := range row {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		}
	}
}

func TestProjectEmptyInput(t *testing.T) {
	assert.Empty(t, Project(nil, 3))
	assert.Empty(t, Project([][]float64{}, 3))
}

func TestProjectIsDeterministic(t *testing.T) {
	vectors := [][]float64{ramp(9), {3, 1, 4, 1, 5, 9, 2, 6, 5}, {2, 7, 1, 8, 2, 8, 1, 8, 2}, {1, 1, 2, 3, 5, 8, 13, 21, 34}}
	assert.Equal(t, Project(vectors, 3), Project(vectors, 3))
}

func TestProjectDegenerateInput(t *testing.T) {
	same := [][]float64{{1, 2, 3}, {1, 2, 3}, {1, 2, 3}}
	for _, row := range Project(same, 3) {
		assert.Equal(t, []float64{0, 0, 0}, row)
	}

	// one-dimensional data has a single principal direction
	line := [][]float64{{1}, {2}, {3}}
	out := Project(line, 3)
	for _, row := range out {
		assert.Zero(t, row[1])
		assert.Zero(t, row[2])
	}
	assert.InDelta(t, -1, out[0][0], 1e-9)
	assert.InDelta(t, 1, out[2][0], 1e-9)
}

func TestProjectRecoversDominantAxis(t *testing.T) {
	// variance is concentrated on the second component
	vectors := [][]float64{{0, -4, 0.1}, {0.1, -2, 0}, {0, 0, -0.1}, {-0.1, 2, 0}, {0, 4, 0}}
	out := Project(vectors, 2)
	for i, v := range vectors {
		assert.InDelta(t, v[1], out[i][0], 0.1)
	}
}

func TestProjectNonFiniteComponentsReadAsZero(t *testing.T) {
	out := Project([][]float64{{math.NaN(), 1}, {math.Inf(1), 2}, {0, 3}}, 2)
	for _, row := range out {
		for _, v := range row {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		}
	}
}

func TestProjectNearMaxFloatStaysFinite(t *testing.T) {
	out := Project([][]float64{{1.7e308}, {-1.7e308}, {-1.7e308}}, 3)
	require.Len(t, out, 3)
	for _, row := range out {
		require.Len(t, row, 3)
		for _, v := range row {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		}
	}
	assert.Greater(t, out[0][0], 0.0)
	assert.Less(t, out[1][0], 0.0)
	assert.Equal(t, out[1], out[2])
}

func TestSegments(t *testing.T) {
	vec := make([]float64, 45)
	for i := range vec {
		vec[i] = 1
	}
	segs := Segments(vec, 20)
	require.Len(t, segs, 20)
	assert.Equal(t, 0, segs[0].Start)
	assert.Equal(t, 2, segs[0].End)
	assert.Equal(t, 40, segs[19].End)
	assert.Equal(t, [3]float64{5, 5, 0}, segs[0].Position)
	assert.InDelta(t, 1, segs[0].Importance, 1e-12)
}

func TestSegmentsShortVector(t *testing.T) {
	segs := Segments([]float64{0.2, 0.4}, 20)
	require.Len(t, segs, 2)
	assert.Equal(t, [3]float64{1, 0, 0}, segs[0].Position)
	assert.InDelta(t, 0.4, segs[1].Importance, 1e-12)

	assert.Nil(t, Segments(nil, 20))
}

func TestLayoutSegmentsThenChunks(t *testing.T) {
	p := New(Options{PreviewDims: 0})
	pts := p.Layout(domain.EmbeddingPayload{Question: "q", Vector: ramp(40)})

	// 20 segments of 2, then 13 chunk points
	require.Len(t, pts, 33)
	for i, pt := range pts {
		assert.Equal(t, i, pt.Index)
		if i < 20 {
			assert.Equal(t, SegmentPoint, pt.Kind)
			continue
		}
		assert.Equal(t, ChunkPoint, pt.Kind)
		assert.GreaterOrEqual(t, pt.Importance, 0.5)
		assert.LessOrEqual(t, pt.Importance, 1.0)
	}
	assert.Equal(t, "q (segment 1)", pts[0].Detail)
	assert.Equal(t, "Point 1", pts[20].Label)
}

func TestLayoutNoChunksForShortVector(t *testing.T) {
	p := New(DefaultOptions())
	pts := p.Layout(domain.EmbeddingPayload{Vector: []float64{1, 2, 3, 4, 5, 6}})
	for _, pt := range pts {
		assert.Equal(t, SegmentPoint, pt.Kind)
	}
}

func TestLayoutEmptyPayload(t *testing.T) {
	assert.Empty(t, New(DefaultOptions()).Layout(domain.EmbeddingPayload{}))
}

func TestLayoutIsCachedAndDetached(t *testing.T) {
	p := New(DefaultOptions())
	payload := domain.EmbeddingPayload{Vector: ramp(1024)}

	first := p.Layout(payload)
	require.NotEmpty(t, first)
	first[0].Label = "mutated"

	second := p.Layout(payload)
	assert.Equal(t, "Segment 1", second[0].Label)
	assert.Equal(t, 1, p.cache.ItemCount())

	// preview truncation keys on the shown components only
	longer := append(ramp(1024), 7)
	p.Layout(domain.EmbeddingPayload{Vector: longer})
	assert.Equal(t, 1, p.cache.ItemCount())
}

func TestLayoutDetailFollowsQuestionOnCacheHit(t *testing.T) {
	p := New(DefaultOptions())
	vec := ramp(1024)

	first := p.Layout(domain.EmbeddingPayload{Question: "first", Vector: vec})
	second := p.Layout(domain.EmbeddingPayload{Question: "second", Vector: vec})
	require.Equal(t, 1, p.cache.ItemCount())
	require.Len(t, second, len(first))

	assert.Equal(t, "first (segment 1)", first[0].Detail)
	for _, pt := range second {
		assert.Contains(t, pt.Detail, "second")
		assert.NotContains(t, pt.Detail, "first")
	}

	bare := p.Layout(domain.EmbeddingPayload{Vector: vec})
	assert.Equal(t, "segment 1", bare[0].Detail)
}
