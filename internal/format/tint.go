package format

import (
	"math"
	"sort"
	"strconv"
)

// Tint is a formatted label painted with a background and optional text colour.
type Tint struct {
	Label string
	BG    Color
	FG    string
}

// MMBadge buckets an MM Score into the five badge colours.
func MMBadge(v any) Tint {
	f, ok := Float(v)
	if !ok {
		return Tint{}
	}
	var bg Color
	switch {
	case f <= -100:
		bg = darkRed.alpha(0.35)
	case f < -25:
		bg = red.alpha(0.28)
	case f <= 25:
		bg = pillGry.alpha(1)
	case f < 100:
		bg = green.alpha(0.28)
	default:
		bg = darkGrn.alpha(0.35)
	}
	return Tint{Label: Int(f), BG: bg}
}

// RRTint shades a risk/reward ratio; intensity saturates at |v| = 3.
func RRTint(v any) Tint {
	f, ok := Float(v)
	if !ok {
		return Tint{}
	}
	s := math.Min(math.Abs(f)/3.0, 1)
	return Tint{Label: Num(f, 1), BG: signed(f, 0.12+0.28*s)}
}

// TrendTint shades a trend level or change expressed as a decimal return.
// Values within ±0.05% stay untinted; intensity saturates at 3%.
func TrendTint(v any) Tint {
	f, ok := Float(v)
	if !ok {
		return Tint{}
	}
	label := Pct(f, 1)
	if f >= -0.0005 && f <= 0.0005 {
		return Tint{Label: label}
	}
	s := math.Min(math.Abs(f)/0.03, 1)
	return Tint{Label: label, BG: signed(f, 0.15+0.35*s)}
}

// DeltaTint shades an integer-like change relative to vmax.
func DeltaTint(v any, vmax float64) Tint {
	f, ok := Float(v)
	if !ok || vmax <= 0 {
		return Tint{}
	}
	s := math.Min(math.Abs(f)/vmax, 1)
	return Tint{Label: Int(f), BG: signed(f, 0.12+0.28*s)}
}

// PctDeltaTint shades a decimal return relative to vmax, labelled with two decimals.
func PctDeltaTint(v any, vmax float64) Tint {
	f, ok := Float(v)
	if !ok || vmax <= 0 {
		return Tint{}
	}
	s := math.Min(math.Abs(f)/vmax, 1)
	return Tint{Label: Pct(f, 2), BG: signed(f, 0.12+0.28*s)}
}

// RankTint shades a 0..100 Sharpe Rank: green from 70, red to 30, gray between.
func RankTint(v any) Tint {
	f, ok := Float(v)
	if !ok {
		return Tint{}
	}
	s := math.Max(0, math.Min(f, 100))
	switch {
	case s >= 70:
		return Tint{Label: Int(s), BG: green.alpha(0.12 + 0.28*clamp01((s-70)/30)), FG: "#0b513a"}
	case s <= 30:
		return Tint{Label: Int(s), BG: red.alpha(0.12 + 0.28*clamp01((30-s)/30)), FG: "#641515"}
	}
	return Tint{Label: Int(s), BG: gray.alpha(0.18), FG: "#374151"}
}

// ScoreTint shades an MM Score with a ±25 neutral band, saturating at 105.
func ScoreTint(v any) Tint {
	f, ok := Float(v)
	if !ok {
		return Tint{}
	}
	rel := math.Min(math.Abs(f)/105.0, 1)
	switch {
	case f >= 25:
		return Tint{Label: Int(f), BG: green.alpha(0.12 + 0.28*rel), FG: "#0b513a"}
	case f <= -25:
		return Tint{Label: Int(f), BG: red.alpha(0.12 + 0.28*rel), FG: "#641515"}
	}
	return Tint{Label: Int(f), BG: gray.alpha(0.18), FG: "#374151"}
}

// TapePill returns the pill colour for a Tape Bias label.
func TapePill(label string) Color {
	switch label {
	case "Buy":
		return green.alpha(0.42)
	case "Leaning Bullish":
		return green.alpha(0.12)
	case "Topping", "Bottoming":
		return slate.alpha(0.12)
	case "Leaning Bearish":
		return red.alpha(0.12)
	case "Sell":
		return red.alpha(0.42)
	}
	return Transparent
}

// RobustVmax returns the q-quantile of |values| rounded up to a multiple of
// step and never below floor. Invalid values are ignored.
func RobustVmax(values []any, q, floor, step float64) float64 {
	abs := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := Float(v); ok {
			abs = append(abs, math.Abs(f))
		}
	}
	if len(abs) == 0 {
		return floor
	}
	sort.Float64s(abs)
	vmax := quantile(abs, q)
	if step > 0 {
		vmax = math.Ceil(vmax/step) * step
	}
	return math.Max(floor, vmax)
}

// quantile uses linear interpolation between closest ranks on sorted input.
func quantile(sorted []float64, q float64) float64 {
	q = clamp01(q)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// MaxAbs returns the largest |v| over valid values, or 0.
func MaxAbs(values []any) float64 {
	m := 0.0
	for _, v := range values {
		if f, ok := Float(v); ok && math.Abs(f) > m {
			m = math.Abs(f)
		}
	}
	return m
}

// OneDecimalPct formats an already-scaled percentage such as 42.35 as "42.4%".
func OneDecimalPct(v any) string {
	f, ok := Float(v)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(f, 'f', 1, 64) + "%"
}
