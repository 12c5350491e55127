package format

import "math"

// The shades below are print variants of the tints: lighter alphas meant to
// be blended over white with Color.Blend.

// RRShade shades a risk/reward cell for print; zero or invalid gives transparent.
func RRShade(v any) Color {
	f, ok := Float(v)
	if !ok {
		return Transparent
	}
	s := math.Min(math.Abs(f)/3.0, 1)
	return signed(f, 0.05+0.14*s)
}

// MMShade shades an MM Score for print with a light gray ±25 band, saturating at 150.
func MMShade(v any) Color {
	f, ok := Float(v)
	if !ok {
		return Transparent
	}
	const limit, band = 150.0, 25.0
	score := math.Max(-limit, math.Min(limit, f))
	if score >= -band && score <= band {
		return gray.alpha(0.10)
	}
	s := clamp01((math.Abs(score) - band) / (limit - band))
	return signed(score, 0.08+0.18*s)
}

// RankShade shades a 0..100 Sharpe Rank for print.
func RankShade(v any) Color {
	f, ok := Float(v)
	if !ok {
		return Transparent
	}
	s := math.Max(0, math.Min(f, 100))
	switch {
	case s >= 70:
		return green.alpha(0.05 + 0.14*clamp01((s-70)/30))
	case s <= 30:
		return red.alpha(0.05 + 0.14*clamp01((30-s)/30))
	}
	return gray.alpha(0.08)
}

// DeltaShade shades a change relative to vmax for print.
func DeltaShade(v any, vmax float64) Color {
	f, ok := Float(v)
	if !ok || vmax <= 0 {
		return Transparent
	}
	s := math.Min(math.Abs(f)/vmax, 1)
	return signed(f, 0.05+0.14*s)
}
