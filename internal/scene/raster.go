package scene

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	ambientIntensity     = 0.6
	directionalIntensity = 0.4
	axesLength           = 5
	gridSize             = 20
	gridDivisions        = 20
)

var (
	lightDirection = Vec3{5, 10, 7.5}.Norm()

	gridColor  = colorful.Color{R: 0.55, G: 0.55, B: 0.55}
	edgeColor  = colorful.Color{R: 0.4, G: 0.45, B: 0.6}
	axisColors = [3]colorful.Color{{R: 1, G: 0.2, B: 0.2}, {R: 0.2, G: 0.9, B: 0.2}, {R: 0.3, G: 0.4, B: 1}}

	hoverStyle    = lipgloss.NewStyle().Bold(true).Reverse(true)
	selectedStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

type mark int

const (
	markNone mark = iota
	markHover
	markSelected
)

type cell struct {
	ch    rune
	color colorful.Color
	depth float64
	mark  mark
	set   bool
}

// surface is a depth-buffered grid of terminal cells.
type surface struct {
	w, h  int
	cells []cell
}

func newSurface(w, h int) *surface {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return &surface{w: w, h: h, cells: make([]cell, w*h)}
}

func (s *surface) clear() {
	for i := range s.cells {
		s.cells[i] = cell{}
	}
}

// plot writes a cell when it is nearer than what is already there.
func (s *surface) plot(col, row int, depth float64, ch rune, c colorful.Color, m mark) {
	if col < 0 || row < 0 || col >= s.w || row >= s.h {
		return
	}
	i := row*s.w + col
	cur := &s.cells[i]
	if cur.set && cur.depth <= depth && m == markNone {
		return
	}
	*cur = cell{ch: ch, color: c, depth: depth, mark: m, set: true}
}

func (s *surface) String() string {
	var b strings.Builder
	for row := 0; row < s.h; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		for col := 0; col < s.w; col++ {
			c := s.cells[row*s.w+col]
			if !c.set {
				b.WriteByte(' ')
				continue
			}
			style := lipgloss.NewStyle()
			switch c.mark {
			case markHover:
				style = hoverStyle
			case markSelected:
				style = selectedStyle
			}
			b.WriteString(style.Foreground(lipgloss.Color(c.color.Hex())).Render(string(c.ch)))
		}
	}
	return b.String()
}

// render draws the static helpers, then the rotated edges and points.
func render(b *Bundle, rotX, rotY float64, hovered, selected int) {
	s := b.surface
	if s == nil {
		return
	}
	s.clear()
	cam := &b.Camera

	half := float64(gridSize) / 2
	step := float64(gridSize) / gridDivisions
	for i := 0; i <= gridDivisions; i++ {
		o := -half + float64(i)*step
		line(s, cam, Vec3{-half, 0, o}, Vec3{half, 0, o}, '·', gridColor)
		line(s, cam, Vec3{o, 0, -half}, Vec3{o, 0, half}, '·', gridColor)
	}
	for axis := 0; axis < 3; axis++ {
		var end Vec3
		end[axis] = axesLength
		line(s, cam, Vec3{}, end, []rune{'─', '│', '╱'}[axis], axisColors[axis])
	}

	world := make([]Vec3, len(b.Points))
	for i, p := range b.Points {
		world[i] = Vec3(p.Position).rotate(rotX, rotY)
	}
	for i := 1; i < len(world); i++ {
		line(s, cam, world[i-1], world[i], '.', edgeColor)
	}
	for i, p := range b.Points {
		col, row, depth, ok := cam.Project(world[i])
		if !ok {
			continue
		}
		m := markNone
		switch i {
		case selected:
			m = markSelected
		case hovered:
			m = markHover
		}
		s.plot(col, row, depth-0.01, glyph(p.Size), shade(p.Color, world[i], cam.Position), m)
	}
}

// line samples a world-space segment at roughly one sample per cell.
func line(s *surface, cam *Camera, a, b Vec3, ch rune, c colorful.Color) {
	c0, r0, _, ok0 := cam.Project(a)
	c1, r1, _, ok1 := cam.Project(b)
	steps := 32
	if ok0 && ok1 {
		steps = int(math.Max(math.Abs(float64(c1-c0)), math.Abs(float64(r1-r0)))) + 1
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		p := a.Add(b.Sub(a).Scale(t))
		if col, row, depth, ok := cam.Project(p); ok {
			s.plot(col, row, depth, ch, c, markNone)
		}
	}
}

func glyph(size float64) rune {
	switch {
	case size < 0.08:
		return '·'
	case size < 0.2:
		return '•'
	default:
		return '●'
	}
}

// shade lights a point as a sphere facing the camera.
func shade(c colorful.Color, p, eye Vec3) colorful.Color {
	n := eye.Sub(p).Norm()
	f := ambientIntensity + directionalIntensity*math.Max(0, n.Dot(lightDirection))
	if f > 1 {
		f = 1
	}
	return colorful.Color{R: c.R * f, G: c.G * f, B: c.B * f}.Clamped()
}
