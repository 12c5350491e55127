package format

import (
	"math"
	"strconv"
	"strings"
	"testing"
)

func TestNum(t *testing.T) {
	tests := []struct {
		in   any
		nd   int
		want string
	}{
		{1234.5, 2, "1,234.50"},
		{-1234567.891, 2, "-1,234,567.89"},
		{0.0, 2, "0.00"},
		{999.999, 2, "1,000.00"},
		{"1,234.5", 1, "1,234.5"},
		{42, 0, "42"},
		{-0.001, 2, "0.00"},
	}
	for _, tt := range tests {
		if got := Num(tt.in, tt.nd); got != tt.want {
			t.Errorf("Num(%v, %d) = %q, want %q", tt.in, tt.nd, got, tt.want)
		}
	}
}

func TestPct(t *testing.T) {
	tests := []struct {
		in   any
		nd   int
		want string
	}{
		{0.0123, 2, "1.23%"},
		{-0.5, 1, "-50.0%"},
		{12.3456, 2, "1,234.56%"},
		{"0.1", 0, "10%"},
	}
	for _, tt := range tests {
		if got := Pct(tt.in, tt.nd); got != tt.want {
			t.Errorf("Pct(%v, %d) = %q, want %q", tt.in, tt.nd, got, tt.want)
		}
	}
}

func TestInt(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{1234567.4, "1,234,567"},
		{-25.6, "-26"},
		{2.5, "2"},
		{3.5, "4"},
		{-0.4, "0"},
		{"87", "87"},
	}
	for _, tt := range tests {
		if got := Int(tt.in); got != tt.want {
			t.Errorf("Int(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPctAuto(t *testing.T) {
	if got := PctAuto(0.0043); got != "0.43%" {
		t.Errorf("fraction: got %q", got)
	}
	if got := PctAuto(4.3); got != "4.30%" {
		t.Errorf("already percent: got %q", got)
	}
	if got := PctAuto(nil); got != "" {
		t.Errorf("nil: got %q", got)
	}
}

func TestFormatters_InvalidInputReturnsEmpty(t *testing.T) {
	inputs := []any{nil, math.NaN(), math.Inf(1), math.Inf(-1), "", "abc", "NaN", true, struct{}{}, []int{1}}
	for _, in := range inputs {
		if got := Num(in, 2); got != "" {
			t.Errorf("Num(%v) = %q, want empty", in, got)
		}
		if got := Pct(in, 2); got != "" {
			t.Errorf("Pct(%v) = %q, want empty", in, got)
		}
		if got := Int(in); got != "" {
			t.Errorf("Int(%v) = %q, want empty", in, got)
		}
		if got := MMBadge(in); got.Label != "" || !got.BG.IsTransparent() {
			t.Errorf("MMBadge(%v) = %+v, want zero", in, got)
		}
		if got := RRTint(in); got.Label != "" {
			t.Errorf("RRTint(%v) = %+v, want zero", in, got)
		}
		if got := RankShade(in); !got.IsTransparent() {
			t.Errorf("RankShade(%v) = %+v, want transparent", in, got)
		}
	}
}

func TestNum_RoundTrip(t *testing.T) {
	values := []float64{1234.5, -0.25, 1e6 + 0.125, 3.14159, -98765.4321}
	for _, v := range values {
		s := Num(v, 2)
		back, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if math.Abs(back-v) > 0.005+1e-9 {
			t.Errorf("round trip %v -> %q -> %v exceeds tolerance", v, s, back)
		}
	}
}

func TestPct_RoundTrip(t *testing.T) {
	v := 0.012345
	s := Pct(v, 2)
	back, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(back/100-v) > 0.00005+1e-12 {
		t.Errorf("pct round trip %v -> %q -> %v", v, s, back/100)
	}
}
