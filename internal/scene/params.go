package scene

import (
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorScheme selects how point importance maps to color.
type ColorScheme string

const (
	Rainbow ColorScheme = "rainbow"
	Blue    ColorScheme = "blue"
	Green   ColorScheme = "green"
)

var ColorSchemes = []ColorScheme{Rainbow, Blue, Green}

func ParseColorScheme(s string) (ColorScheme, error) {
	cs := ColorScheme(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ColorSchemes {
		if cs == known {
			return cs, nil
		}
	}
	return "", fmt.Errorf("unknown color scheme %q", s)
}

const (
	MinPointSize     = 0.05
	MaxPointSize     = 0.5
	MinRotationSpeed = 0.0
	MaxRotationSpeed = 2.0
)

// Params are the user-adjustable visual settings of a scene.
type Params struct {
	PointSize     float64     `yaml:"point_size"`
	ColorScheme   ColorScheme `yaml:"color_scheme"`
	RotationSpeed float64     `yaml:"rotation_speed"`
	AutoRotate    bool        `yaml:"auto_rotate"`
}

func DefaultParams() Params {
	return Params{
		PointSize:     0.1,
		ColorScheme:   Rainbow,
		RotationSpeed: 0.5,
		AutoRotate:    true,
	}
}

// Normalize clamps values into their allowed ranges.
func (p Params) Normalize() Params {
	p.PointSize = clamp(p.PointSize, MinPointSize, MaxPointSize)
	p.RotationSpeed = clamp(p.RotationSpeed, MinRotationSpeed, MaxRotationSpeed)
	if _, err := ParseColorScheme(string(p.ColorScheme)); err != nil {
		p.ColorScheme = Rainbow
	}
	return p
}

// NextColorScheme cycles through the known schemes.
func (p Params) NextColorScheme() ColorScheme {
	for i, cs := range ColorSchemes {
		if cs == p.ColorScheme {
			return ColorSchemes[(i+1)%len(ColorSchemes)]
		}
	}
	return Rainbow
}

// PointColor maps importance to a color under scheme.
func PointColor(scheme ColorScheme, importance float64) colorful.Color {
	switch scheme {
	case Blue:
		return hsl(0.6, 0.7*importance, 0.3+0.4*importance)
	case Green:
		return hsl(0.3, 0.7*importance, 0.3+0.4*importance)
	default:
		return hsl(importance, 0.7, 0.5)
	}
}

// PointSize is the rendered size of a point with the given importance.
func PointSize(base, importance float64) float64 {
	return base * (0.5 + importance)
}

// hsl takes hue as a fraction of a turn. Hue wraps, saturation and
// lightness clamp to [0,1].
func hsl(h, s, l float64) colorful.Color {
	h = math.Mod(h, 1)
	if h < 0 {
		h++
	}
	if math.IsNaN(h) {
		h = 0
	}
	return colorful.Hsl(h*360, clamp(s, 0, 1), clamp(l, 0, 1)).Clamped()
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
