// Package format converts raw table values into display strings and colours.
//
// Every function is total: missing, NaN, infinite or non-numeric input yields
// an empty string (or a transparent colour) and never panics.
package format

import (
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Float coerces v to a finite float64. Strings may carry thousands separators
// or a trailing percent sign.
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(x, ",", ""))
		s = strings.TrimSuffix(s, "%")
		if s == "" || strings.EqualFold(s, "nan") {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case bool:
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Num formats v with nd decimals and a thousands separator.
func Num(v any, nd int) string {
	f, ok := Float(v)
	if !ok {
		return ""
	}
	return grouped(f, nd)
}

// Pct multiplies v by 100 and formats it with nd decimals and a "%" suffix.
func Pct(v any, nd int) string {
	f, ok := Float(v)
	if !ok {
		return ""
	}
	return grouped(f*100, nd) + "%"
}

// Int rounds v to the nearest integer (ties to even) with a thousands separator.
func Int(v any) string {
	f, ok := Float(v)
	if !ok {
		return ""
	}
	return grouped(math.RoundToEven(f), 0)
}

// PctAuto formats fractions (|v| <= 2) as percentages and leaves larger
// values, assumed to already be percentages, unscaled.
func PctAuto(v any) string {
	f, ok := Float(v)
	if !ok {
		return ""
	}
	if math.Abs(f) <= 2.0 {
		f *= 100
	}
	return strconv.FormatFloat(f, 'f', 2, 64) + "%"
}

// grouped renders f with nd decimals and comma thousands grouping.
func grouped(f float64, nd int) string {
	if nd < 0 {
		nd = 0
	}
	s := strconv.FormatFloat(f, 'f', nd, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + frac
	if neg && strings.Trim(out, "0.,") != "" {
		out = "-" + out
	}
	return out
}
