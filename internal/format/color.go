package format

import (
	"fmt"
	"math"
	"strconv"
)

// Color is an RGBA colour with a fractional alpha, as used by CSS rgba().
type Color struct {
	R, G, B uint8
	A       float64
}

// Transparent is the zero colour.
var Transparent = Color{}

var (
	green   = Color{R: 16, G: 185, B: 129}
	red     = Color{R: 239, G: 68, B: 68}
	gray    = Color{R: 156, G: 163, B: 175}
	slate   = Color{R: 107, G: 114, B: 128}
	darkRed = Color{R: 185, G: 28, B: 28}
	darkGrn = Color{R: 6, G: 95, B: 70}
	pillGry = Color{R: 229, G: 231, B: 235}
)

func (c Color) alpha(a float64) Color {
	c.A = a
	return c
}

// IsTransparent reports whether the colour paints nothing.
func (c Color) IsTransparent() bool {
	return c.A <= 0
}

// CSS renders the colour as rgba(), or "transparent".
func (c Color) CSS() string {
	if c.IsTransparent() {
		return "transparent"
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", c.R, c.G, c.B, strconv.FormatFloat(round3(c.A), 'f', -1, 64))
}

// Blend returns the opaque RGB obtained by painting c over white.
func (c Color) Blend() (r, g, b int) {
	a := math.Max(0, math.Min(c.A, 1))
	mix := func(ch uint8) int {
		return int(math.Round(255*(1-a) + float64(ch)*a))
	}
	return mix(c.R), mix(c.G), mix(c.B)
}

// Hex renders the blended colour as #rrggbb.
func (c Color) Hex() string {
	r, g, b := c.Blend()
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

// signed picks green for positive, red for negative and transparent for zero.
func signed(v, a float64) Color {
	switch {
	case v > 0:
		return green.alpha(a)
	case v < 0:
		return red.alpha(a)
	}
	return Transparent
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(f, 1))
}
