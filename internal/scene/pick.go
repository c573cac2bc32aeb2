package scene

import "math"

// DefaultPickThreshold is the largest ray-to-point distance that counts as a hit.
const DefaultPickThreshold = 0.5

// pick returns the index of the point nearest the camera among those within
// threshold of the ray from origin along dir, or -1.
func pick(origin, dir Vec3, points []Vec3, threshold float64) int {
	best := -1
	bestT := math.Inf(1)
	for i, p := range points {
		v := p.Sub(origin)
		t := v.Dot(dir)
		if t < 0 {
			continue
		}
		closest := origin.Add(dir.Scale(t))
		if p.Sub(closest).Len() >= threshold {
			continue
		}
		if t < bestT {
			best, bestT = i, t
		}
	}
	return best
}
