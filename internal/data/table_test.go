package data

import (
	"math"
	"slices"
	"testing"
)

func sampleTable() *Table {
	return NewTable("sample.csv",
		[]string{"Date", "Ticker", "Ticker_name", "Category", "ret"},
		[][]string{
			{"2026-01-22", "SPY", "S&P 500 ETF", "Indices", "0.01"},
			{"2026-01-23", "SPY", "S&P 500 ETF", "Indices", "0.02"},
			{"2026-01-23", "QQQ", "Nasdaq 100 ETF", "Indices", "-0.01"},
			{"2026-01-23", "XLE", "Energy Select", "Sector & Style ETFs", ""},
			{"", "GLD", "Gold", "Commodities", "0.005"},
		})
}

func checkColumn(t *testing.T, tbl *Table, col string, want []string) {
	t.Helper()
	if got := tbl.Column(col); !slices.Equal(got, want) {
		t.Errorf("column %s = %v, want %v", col, got, want)
	}
}

func TestTable_PadsShortRows(t *testing.T) {
	tbl := NewTable("x", []string{"a", "b", "c"}, [][]string{{"1"}})
	if got := tbl.Row(0).String("c"); got != "" {
		t.Errorf("expected padded empty cell, got %q", got)
	}
	if tbl.Len() != 1 {
		t.Errorf("expected 1 row, got %d", tbl.Len())
	}
}

func TestTable_NilSafe(t *testing.T) {
	var tbl *Table
	if tbl.Len() != 0 || !tbl.IsEmpty() {
		t.Error("expected a nil table to be empty")
	}
	if tbl.Has("Ticker") {
		t.Error("expected a nil table to have no columns")
	}
	if got := tbl.FindColumn(func(string) bool { return true }); got != "" {
		t.Errorf("expected no column, got %q", got)
	}
}

func TestTable_Has(t *testing.T) {
	tbl := sampleTable()
	if !tbl.Has("Ticker", "Category") {
		t.Error("expected Ticker and Category")
	}
	if tbl.Has("Ticker", "Missing") {
		t.Error("expected Has to require every column")
	}
	if !tbl.Has() {
		t.Error("expected Has() with no columns to hold")
	}
}

func TestTable_RowAccessors(t *testing.T) {
	tbl := sampleTable()
	r := tbl.Row(1)

	if got := r.String("Ticker"); got != "SPY" {
		t.Errorf("expected SPY, got %q", got)
	}
	f, ok := r.Float("ret")
	if !ok || math.Abs(f-0.02) > 1e-12 {
		t.Errorf("expected ret 0.02, got %v (%v)", f, ok)
	}

	blank := tbl.Row(3)
	if _, ok := blank.Float("ret"); ok {
		t.Error("expected a blank cell not to parse")
	}
	if v := blank.Value("ret"); v != nil {
		t.Errorf("expected nil value, got %v", v)
	}
	if !math.IsNaN(blank.FloatOr("ret")) {
		t.Error("expected NaN for a blank cell")
	}

	d, ok := r.Time("Date")
	if !ok || d.Day() != 23 {
		t.Errorf("expected the 23rd, got %v (%v)", d, ok)
	}
}

func TestTable_ColumnAndDistinct(t *testing.T) {
	tbl := sampleTable()
	if tbl.Column("Missing") != nil {
		t.Error("expected nil for a missing column")
	}
	if got := tbl.Distinct("Category"); !slices.Equal(got, []string{"Indices", "Sector & Style ETFs", "Commodities"}) {
		t.Errorf("unexpected distinct categories %v", got)
	}
	if n := len(tbl.Values("ret")); n != 5 {
		t.Errorf("expected 5 values, got %d", n)
	}
}

func TestTable_FilterHeadSort(t *testing.T) {
	tbl := sampleTable()

	idx := tbl.Filter(func(r Row) bool { return r.String("Category") == "Indices" })
	if idx.Len() != 3 {
		t.Errorf("expected 3 index rows, got %d", idx.Len())
	}
	if tbl.Len() != 5 {
		t.Errorf("filter must not mutate the source, got %d rows", tbl.Len())
	}

	for _, tt := range []struct{ n, want int }{{2, 2}, {50, 5}, {-1, 0}} {
		if got := tbl.Head(tt.n).Len(); got != tt.want {
			t.Errorf("Head(%d) = %d rows, want %d", tt.n, got, tt.want)
		}
	}

	sorted := tbl.SortBy(func(a, b Row) bool { return a.String("Ticker") < b.String("Ticker") })
	checkColumn(t, sorted, "Ticker", []string{"GLD", "QQQ", "SPY", "SPY", "XLE"})
	// stable: the two SPY rows keep file order
	if got := sorted.Row(2).String("Date"); got != "2026-01-22" {
		t.Errorf("expected stable sort, got %s first", got)
	}
}

func TestTable_InOrderAndOnly(t *testing.T) {
	tbl := sampleTable()
	checkColumn(t, tbl.InOrder("Ticker", []string{"XLE", "GLD"}), "Ticker", []string{"XLE", "GLD", "QQQ", "SPY", "SPY"})
	checkColumn(t, tbl.Only("Ticker", []string{"QQQ", "GLD"}), "Ticker", []string{"QQQ", "GLD"})
}

func TestTable_LatestPerTicker(t *testing.T) {
	latest := sampleTable().LatestPerTicker("Date")
	checkColumn(t, latest, "Ticker", []string{"GLD", "QQQ", "SPY", "XLE"})

	spy := latest.Filter(func(r Row) bool { return r.String("Ticker") == "SPY" })
	if spy.Len() != 1 {
		t.Fatalf("expected one SPY row, got %d", spy.Len())
	}
	if got := spy.Row(0).String("Date"); got != "2026-01-23" {
		t.Errorf("expected the latest SPY row, got %s", got)
	}
}

func TestTable_LatestPerTicker_NoTickerColumn(t *testing.T) {
	tbl := NewTable("x", []string{"a"}, [][]string{{"1"}, {"1"}})
	if n := tbl.LatestPerTicker("Date").Len(); n != 2 {
		t.Errorf("expected the table unchanged, got %d rows", n)
	}
}

func TestTable_MaxDate(t *testing.T) {
	d, ok := sampleTable().MaxDate("Date")
	if !ok || FormatDate(d) != "1/23/2026" {
		t.Errorf("expected 1/23/2026, got %v (%v)", d, ok)
	}
	if _, ok := Empty("x").MaxDate("Date"); ok {
		t.Error("expected no max date for an empty table")
	}
}

func TestTable_Rename(t *testing.T) {
	r := sampleTable().Rename(map[string]string{"Ticker_name": "Name"})
	if !r.Has("Name") || r.Has("Ticker_name") {
		t.Errorf("unexpected columns %v", r.Columns())
	}
	if got := r.Row(0).String("Name"); got != "S&P 500 ETF" {
		t.Errorf("unexpected name %q", got)
	}
}

func TestTable_LeftJoin(t *testing.T) {
	base := NewTable("base", []string{"Ticker", "Rank"}, [][]string{{"AAA", "10"}, {"BBB", "20"}, {"CCC", "30"}})
	other := NewTable("other", []string{"Ticker", "WTD", "Rank"}, [][]string{
		{"BBB", "5", "99"},
		{"AAA", "-3", "98"},
		{"AAA", "7", "97"},
	})

	joined := base.LeftJoin(other, "Ticker", "WTD", "Rank", "Missing")

	if got := joined.Columns(); !slices.Equal(got, []string{"Ticker", "Rank", "WTD"}) {
		t.Errorf("unexpected columns %v", got)
	}
	// First match wins and unmatched rows are empty.
	checkColumn(t, joined, "WTD", []string{"-3", "5", ""})
	// Existing columns are not overwritten.
	checkColumn(t, joined, "Rank", []string{"10", "20", "30"})
}

func TestTable_LeftJoin_MissingKey(t *testing.T) {
	base := NewTable("base", []string{"Ticker"}, [][]string{{"AAA"}})
	if base.LeftJoin(Empty("x"), "Ticker", "WTD") != base {
		t.Error("expected the base table back for an empty join")
	}
	if base.LeftJoin(nil, "Ticker", "WTD") != base {
		t.Error("expected the base table back for a nil join")
	}
}

func TestTable_GroupMean(t *testing.T) {
	tbl := NewTable("x", []string{"Category", "a", "b"}, [][]string{
		{"Energy", "1", "x"},
		{"Tech", "4", ""},
		{"Energy", "3", ""},
		{"", "100", "100"},
	})

	g := tbl.GroupMean("Category", "a", "b")

	checkColumn(t, g, "Category", []string{"Energy", "Tech"})
	checkColumn(t, g, "a", []string{"2", "4"})
	checkColumn(t, g, "b", []string{"", ""})
}

func TestTable_FindColumnAndWith(t *testing.T) {
	tbl := NewTable("x", []string{"Ticker", "previous_change", "score_change"}, [][]string{{"A", "1", "2"}})

	col := tbl.FindColumn(func(c string) bool { return c != "previous_change" && len(c) > 7 })
	if col != "score_change" {
		t.Errorf("expected score_change, got %q", col)
	}

	w := tbl.With("doubled", func(r Row) string { return r.String("score_change") + r.String("score_change") })
	if got := w.Row(0).String("doubled"); got != "22" {
		t.Errorf("expected 22, got %q", got)
	}
	if tbl.Has("doubled") {
		t.Error("With must not mutate the source")
	}

	replaced := w.With("Ticker", func(Row) string { return "B" })
	if n := len(replaced.Columns()); n != 4 {
		t.Errorf("expected replacement in place, got %d columns", n)
	}
	if got := replaced.Row(0).String("Ticker"); got != "B" {
		t.Errorf("expected B, got %q", got)
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2026-01-23", "2026-01-23 00:00:00", "1/23/2026", "01/23/2026", "2026/01/23"} {
		d, ok := ParseDate(s)
		if !ok {
			t.Errorf("ParseDate(%q) failed", s)
			continue
		}
		if got := FormatDate(d); got != "1/23/2026" {
			t.Errorf("ParseDate(%q) = %s", s, got)
		}
	}
	for _, s := range []string{"not a date", "   "} {
		if _, ok := ParseDate(s); ok {
			t.Errorf("ParseDate(%q) should fail", s)
		}
	}
}
