package projector

import "math"

const (
	powerIterations = 64
	epsilon         = 1e-12
)

// Project reduces vectors to targetDim dimensions using power-iteration PCA
// with deflation. The start vector and iteration budget are fixed, so equal
// input always yields the same output. Missing or non-finite components are
// read as zero. Directions without variance project to 0. Inputs are scaled
// by their largest magnitude first, so finite input always gives finite output.
func Project(vectors [][]float64, targetDim int) [][]float64 {
	n := len(vectors)
	if n == 0 || targetDim <= 0 {
		return [][]float64{}
	}
	d := 0
	for _, v := range vectors {
		if len(v) > d {
			d = len(v)
		}
	}

	scale := maxAbs(vectors)
	x := centered(vectors, d, scale)
	comps := make([][]float64, 0, targetDim)
	for k := 0; k < targetDim; k++ {
		comps = append(comps, principal(x, comps, d))
	}

	out := make([][]float64, n)
	for i := range x {
		row := make([]float64, targetDim)
		for k, c := range comps {
			row[k] = unscale(dot(x[i], c), scale)
		}
		out[i] = row
	}
	return out
}

// maxAbs is the largest finite magnitude in vectors, or 1 when there is none.
func maxAbs(vectors [][]float64) float64 {
	var m float64
	for _, v := range vectors {
		for _, f := range v {
			if isFinite(f) && math.Abs(f) > m {
				m = math.Abs(f)
			}
		}
	}
	if m == 0 {
		return 1
	}
	return m
}

// unscale maps a projection back to input units, saturating at the largest
// finite float.
func unscale(v, scale float64) float64 {
	r := v * scale
	if math.IsInf(r, 0) {
		return math.Copysign(math.MaxFloat64, r)
	}
	if math.IsNaN(r) {
		return 0
	}
	return r
}

func centered(vectors [][]float64, d int, scale float64) [][]float64 {
	n := float64(len(vectors))
	mean := make([]float64, d)
	x := make([][]float64, len(vectors))
	for i, v := range vectors {
		row := make([]float64, d)
		for j := 0; j < len(v); j++ {
			if isFinite(v[j]) {
				row[j] = v[j] / scale
			}
			mean[j] += row[j] / n
		}
		x[i] = row
	}
	for _, row := range x {
		for j := range row {
			row[j] -= mean[j]
		}
	}
	return x
}

// principal finds the dominant direction of x orthogonal to prev.
// A zero vector is returned when no variance is left.
func principal(x, prev [][]float64, d int) []float64 {
	v := startVector(d, len(prev))
	orthogonalize(v, prev)
	if !normalize(v) {
		return make([]float64, d)
	}
	for it := 0; it < powerIterations; it++ {
		w := covMul(x, v)
		orthogonalize(w, prev)
		if !normalize(w) {
			return make([]float64, d)
		}
		v = w
	}
	fixSign(v)
	return v
}

func startVector(d, k int) []float64 {
	v := make([]float64, d)
	phase := float64(k) + 1.3
	for j := range v {
		v[j] = 1 + 0.5*math.Sin(float64(j+1)*phase)
	}
	return v
}

// covMul returns Xᵀ(Xv) without materialising the covariance matrix.
func covMul(x [][]float64, v []float64) []float64 {
	out := make([]float64, len(v))
	for _, row := range x {
		s := dot(row, v)
		if s == 0 {
			continue
		}
		for j, r := range row {
			out[j] += s * r
		}
	}
	return out
}

// orthogonalize removes the components of v along each unit vector in basis.
func orthogonalize(v []float64, basis [][]float64) {
	for _, b := range basis {
		p := dot(v, b)
		if p == 0 {
			continue
		}
		for j := range v {
			v[j] -= p * b[j]
		}
	}
}

func normalize(v []float64) bool {
	n := math.Sqrt(dot(v, v))
	if n < epsilon || !isFinite(n) {
		return false
	}
	for j := range v {
		v[j] /= n
	}
	return true
}

// fixSign makes the largest-magnitude component positive.
func fixSign(v []float64) {
	best := 0
	for j := range v {
		if math.Abs(v[j]) > math.Abs(v[best]) {
			best = j
		}
	}
	if len(v) > 0 && v[best] < 0 {
		for j := range v {
			v[j] = -v[j]
		}
	}
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		if i >= len(b) {
			break
		}
		s += a[i] * b[i]
	}
	return s
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
