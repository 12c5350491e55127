package data

import (
	"testing"
	"time"
)

func TestAsOf(t *testing.T) {
	tbl := NewTable("x", []string{"Date"}, [][]string{{"2026-01-21"}, {"2026-01-23"}, {"bad"}})
	if got := AsOf(tbl); got != "1/23/2026" {
		t.Errorf("expected latest date 1/23/2026, got %q", got)
	}
	if got := AsOf(Empty("x")); got != "" {
		t.Errorf("expected empty as-of for an empty table, got %q", got)
	}
}

func TestPriorBusinessDay(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2026-01-26", "2026-01-23"}, // Monday -> Friday
		{"2026-01-23", "2026-01-22"}, // Friday -> Thursday
		{"2026-01-25", "2026-01-23"}, // Sunday -> Friday
		{"2026-01-27", "2026-01-26"},
	}
	for _, tt := range tests {
		in, _ := time.Parse("2006-01-02", tt.in)
		if got := PriorBusinessDay(in).Format("2006-01-02"); got != tt.want {
			t.Errorf("PriorBusinessDay(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestSessionDates(t *testing.T) {
	tests := []struct {
		in, session, asOf string
	}{
		{"1/26/2026", "1/26/2026", "1/23/2026"},
		{"1/23/2026", "1/23/2026", "1/22/2026"},
		{"", "", ""},
	}
	for _, tt := range tests {
		session, asOf := SessionDates(tt.in)
		if session != tt.session || asOf != tt.asOf {
			t.Errorf("SessionDates(%q) = %q, %q; want %q, %q", tt.in, session, asOf, tt.session, tt.asOf)
		}
	}
}

func TestDateSlug(t *testing.T) {
	if got := DateSlug("1/23/2026"); got != "1-23-2026" {
		t.Errorf("expected 1-23-2026, got %q", got)
	}
	if got := DateSlug(""); got != "" {
		t.Errorf("expected empty slug, got %q", got)
	}
}
