package scene

import "math"

// Vec3 is a point or direction in world space.
type Vec3 [3]float64

func (a Vec3) Add(b Vec3) Vec3      { return Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func (a Vec3) Sub(b Vec3) Vec3      { return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a[0] * s, a[1] * s, a[2] * s} }
func (a Vec3) Dot(b Vec3) float64   { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func (a Vec3) Len() float64         { return math.Sqrt(a.Dot(a)) }

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func (a Vec3) Norm() Vec3 {
	l := a.Len()
	if l == 0 {
		return a
	}
	return a.Scale(1 / l)
}

// rotate applies a rotation about X followed by Y, the order used for the
// point cloud group.
func (a Vec3) rotate(rx, ry float64) Vec3 {
	sx, cx := math.Sincos(rx)
	sy, cy := math.Sincos(ry)
	y := a[1]*cx - a[2]*sx
	z := a[1]*sx + a[2]*cx
	x := a[0]
	return Vec3{x*cy + z*sy, y, -x*sy + z*cy}
}

const (
	cameraFOV  = 75.0
	cameraNear = 0.1
	// cellAspect is the width of a terminal cell over its height.
	cellAspect = 0.5
)

var (
	cameraPosition = Vec3{0, 5, 15}
	cameraTarget   = Vec3{0, 0, 0}
	worldUp        = Vec3{0, 1, 0}
)

// Camera is a perspective camera projecting onto a grid of terminal cells.
type Camera struct {
	Position Vec3
	Target   Vec3
	FOV      float64
	Width    int
	Height   int

	right, up, forward Vec3
	tanHalf, aspect    float64
}

func NewCamera(width, height int) Camera {
	c := Camera{
		Position: cameraPosition,
		Target:   cameraTarget,
		FOV:      cameraFOV,
	}
	c.Resize(width, height)
	return c
}

// Resize updates the projection for a surface of width×height cells.
func (c *Camera) Resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	c.Width, c.Height = width, height
	c.forward = c.Target.Sub(c.Position).Norm()
	c.right = c.forward.Cross(worldUp).Norm()
	c.up = c.right.Cross(c.forward)
	c.tanHalf = math.Tan(c.FOV * math.Pi / 360)
	c.aspect = float64(width) * cellAspect / float64(height)
}

// Project maps a world point to a cell. ok is false for points behind the
// near plane or outside the surface.
func (c *Camera) Project(p Vec3) (col, row int, depth float64, ok bool) {
	d := p.Sub(c.Position)
	z := d.Dot(c.forward)
	if z < cameraNear {
		return 0, 0, 0, false
	}
	nx := d.Dot(c.right) / (z * c.tanHalf * c.aspect)
	ny := d.Dot(c.up) / (z * c.tanHalf)
	if nx < -1 || nx > 1 || ny < -1 || ny > 1 {
		return 0, 0, 0, false
	}
	col = int((nx + 1) / 2 * float64(c.Width))
	row = int((1 - ny) / 2 * float64(c.Height))
	if col >= c.Width {
		col = c.Width - 1
	}
	if row >= c.Height {
		row = c.Height - 1
	}
	return col, row, z, true
}

// Ray returns the unit direction from the camera through the centre of a cell.
func (c *Camera) Ray(col, row int) Vec3 {
	nx := (float64(col)+0.5)/float64(c.Width)*2 - 1
	ny := 1 - (float64(row)+0.5)/float64(c.Height)*2
	return c.forward.
		Add(c.right.Scale(nx * c.tanHalf * c.aspect)).
		Add(c.up.Scale(ny * c.tanHalf)).
		Norm()
}
