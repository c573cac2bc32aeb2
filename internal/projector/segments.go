package projector

import "math"

// DefaultSegments is the number of segments in the overview layout.
const DefaultSegments = 20

// positionScale spreads unit-range components over the scene.
const positionScale = 5

// Segment is one contiguous slice of an embedding vector.
type Segment struct {
	Index      int
	Start, End int
	Position   [3]float64
	Importance float64
}

// Segments splits vector into at most max evenly sized contiguous segments
// of max(1, len/max) components. Components past the last full segment are
// not shown. Position is the first three components scaled by 5, importance
// the segment norm over the square root of its length.
func Segments(vector []float64, max int) []Segment {
	if len(vector) == 0 || max <= 0 {
		return nil
	}
	size := len(vector) / max
	if size < 1 {
		size = 1
	}
	out := make([]Segment, 0, max)
	for i := 0; i < max && i*size < len(vector); i++ {
		start := i * size
		end := start + size
		if end > len(vector) {
			end = len(vector)
		}
		seg := vector[start:end]
		s := Segment{Index: i, Start: start, End: end}
		for c := 0; c < 3 && c < len(seg); c++ {
			s.Position[c] = finite(seg[c]) * positionScale
		}
		var sum float64
		for _, v := range seg {
			v = finite(v)
			sum += v * v
		}
		s.Importance = math.Sqrt(sum) / math.Sqrt(float64(len(seg)))
		out = append(out, s)
	}
	return out
}

func finite(f float64) float64 {
	if isFinite(f) {
		return f
	}
	return 0
}
