package data

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/markmentum-portal/internal/format"
)

// Table is an immutable tabular dataset: ordered column names plus rows of
// raw string values. Typed accessors coerce on read.
type Table struct {
	name  string
	cols  []string
	index map[string]int
	rows  [][]string
}

// NewTable builds a table. Rows shorter than the header are padded.
func NewTable(name string, cols []string, rows [][]string) *Table {
	t := &Table{name: name, cols: append([]string(nil), cols...), index: make(map[string]int, len(cols))}
	for i, c := range t.cols {
		if _, dup := t.index[c]; !dup {
			t.index[c] = i
		}
	}
	t.rows = make([][]string, 0, len(rows))
	for _, r := range rows {
		if len(r) < len(cols) {
			r = append(append([]string(nil), r...), make([]string, len(cols)-len(r))...)
		}
		t.rows = append(t.rows, r)
	}
	return t
}

// Empty returns a table with no columns or rows.
func Empty(name string) *Table {
	return NewTable(name, nil, nil)
}

// Name returns the dataset identifier the table was loaded from.
func (t *Table) Name() string { return t.name }

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// IsEmpty reports whether the table has no rows.
func (t *Table) IsEmpty() bool { return t.Len() == 0 }

// Columns returns the column names in file order.
func (t *Table) Columns() []string { return append([]string(nil), t.cols...) }

// Has reports whether every named column is present.
func (t *Table) Has(cols ...string) bool {
	if t == nil {
		return false
	}
	for _, c := range cols {
		if _, ok := t.index[c]; !ok {
			return false
		}
	}
	return true
}

// Row returns the i-th row.
func (t *Table) Row(i int) Row { return Row{t: t, i: i} }

// Rows returns every row in order.
func (t *Table) Rows() []Row {
	out := make([]Row, t.Len())
	for i := range out {
		out[i] = Row{t: t, i: i}
	}
	return out
}

// Column returns the raw values of col, or nil when absent.
func (t *Table) Column(col string) []string {
	j, ok := t.index[col]
	if !ok {
		return nil
	}
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out
}

// Values returns col as formatter inputs; missing cells are nil.
func (t *Table) Values(col string) []any {
	out := make([]any, 0, t.Len())
	for _, r := range t.Rows() {
		out = append(out, r.Value(col))
	}
	return out
}

// Distinct returns the non-empty values of col in first-seen order.
func (t *Table) Distinct(col string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range t.Column(col) {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Filter returns the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	var rows [][]string
	for _, r := range t.Rows() {
		if keep(r) {
			rows = append(rows, t.rows[r.i])
		}
	}
	return &Table{name: t.name, cols: t.cols, index: t.index, rows: rows}
}

// Head returns at most n leading rows.
func (t *Table) Head(n int) *Table {
	if n > t.Len() {
		n = t.Len()
	}
	if n < 0 {
		n = 0
	}
	return &Table{name: t.name, cols: t.cols, index: t.index, rows: t.rows[:n]}
}

// SortBy returns a stably sorted copy.
func (t *Table) SortBy(less func(a, b Row) bool) *Table {
	rows := t.Rows()
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = t.rows[r.i]
	}
	return &Table{name: t.name, cols: t.cols, index: t.index, rows: out}
}

// InOrder sorts rows by the position of col's value in order; values not in
// order sort last, ties broken by col itself.
func (t *Table) InOrder(col string, order []string) *Table {
	pos := make(map[string]int, len(order))
	for i, v := range order {
		pos[v] = i
	}
	rank := func(r Row) int {
		if p, ok := pos[r.String(col)]; ok {
			return p
		}
		return len(order)
	}
	return t.SortBy(func(a, b Row) bool {
		ra, rb := rank(a), rank(b)
		if ra != rb {
			return ra < rb
		}
		return a.String(col) < b.String(col)
	})
}

// Only keeps the rows whose col value is in keep, ordered as keep lists them.
func (t *Table) Only(col string, keep []string) *Table {
	want := make(map[string]bool, len(keep))
	for _, k := range keep {
		want[k] = true
	}
	return t.Filter(func(r Row) bool { return want[r.String(col)] }).InOrder(col, keep)
}

// LatestPerTicker keeps the most recent row per Ticker by dateCol. The result
// is ordered by ticker.
func (t *Table) LatestPerTicker(dateCol string) *Table {
	if !t.Has("Ticker") {
		return t
	}
	sorted := t.SortBy(func(a, b Row) bool {
		ta, tb := a.String("Ticker"), b.String("Ticker")
		if ta != tb {
			return ta < tb
		}
		da, oka := a.Time(dateCol)
		db, okb := b.Time(dateCol)
		if oka != okb {
			return oka
		}
		return da.After(db)
	})
	seen := make(map[string]bool)
	return sorted.Filter(func(r Row) bool {
		tk := r.String("Ticker")
		if seen[tk] {
			return false
		}
		seen[tk] = true
		return true
	})
}

// MaxDate returns the latest parseable date in col.
func (t *Table) MaxDate(col string) (time.Time, bool) {
	var best time.Time
	found := false
	for _, r := range t.Rows() {
		if d, ok := r.Time(col); ok && (!found || d.After(best)) {
			best, found = d, true
		}
	}
	return best, found
}

// Rename returns a copy with columns renamed by mapping old -> new.
func (t *Table) Rename(mapping map[string]string) *Table {
	cols := make([]string, len(t.cols))
	for i, c := range t.cols {
		if n, ok := mapping[c]; ok {
			cols[i] = n
		} else {
			cols[i] = c
		}
	}
	return NewTable(t.name, cols, t.rows)
}

// LeftJoin appends the named columns of other to t, matching rows on key.
// The first matching row of other wins; unmatched rows get empty cells.
// Columns already present in t are skipped.
func (t *Table) LeftJoin(other *Table, key string, cols ...string) *Table {
	if other == nil || !other.Has(key) || !t.Has(key) {
		return t
	}
	var add []string
	for _, c := range cols {
		if other.Has(c) && !t.Has(c) {
			add = append(add, c)
		}
	}
	if len(add) == 0 {
		return t
	}
	lookup := make(map[string]Row, other.Len())
	for _, r := range other.Rows() {
		k := r.String(key)
		if _, ok := lookup[k]; !ok {
			lookup[k] = r
		}
	}
	rows := make([][]string, 0, t.Len())
	for _, r := range t.Rows() {
		row := append([]string(nil), t.rows[r.i]...)
		match, ok := lookup[r.String(key)]
		for _, c := range add {
			if ok {
				row = append(row, match.String(c))
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	return NewTable(t.name, append(t.Columns(), add...), rows)
}

// GroupMean averages cols per distinct non-empty groupCol value, keeping
// first-seen group order. Invalid cells are skipped; a group with no valid
// value for a column yields an empty cell.
func (t *Table) GroupMean(groupCol string, cols ...string) *Table {
	type acc struct {
		sum []float64
		n   []int
	}
	groups := make(map[string]*acc)
	var order []string
	for _, r := range t.Rows() {
		g := strings.TrimSpace(r.String(groupCol))
		if g == "" {
			continue
		}
		a, ok := groups[g]
		if !ok {
			a = &acc{sum: make([]float64, len(cols)), n: make([]int, len(cols))}
			groups[g] = a
			order = append(order, g)
		}
		for j, c := range cols {
			if f, ok := r.Float(c); ok {
				a.sum[j] += f
				a.n[j]++
			}
		}
	}
	rows := make([][]string, 0, len(order))
	for _, g := range order {
		a := groups[g]
		row := []string{g}
		for j := range cols {
			if a.n[j] == 0 {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(a.sum[j]/float64(a.n[j]), 'g', -1, 64))
		}
		rows = append(rows, row)
	}
	return NewTable(t.name, append([]string{groupCol}, cols...), rows)
}

// FindColumn returns the first column accepted by match, or "".
func (t *Table) FindColumn(match func(col string) bool) string {
	if t == nil {
		return ""
	}
	for _, c := range t.cols {
		if match(c) {
			return c
		}
	}
	return ""
}

// With returns a copy with col set to compute(row) on every row. The column
// is appended when absent.
func (t *Table) With(col string, compute func(Row) string) *Table {
	cols := t.Columns()
	j, ok := t.index[col]
	if !ok {
		cols = append(cols, col)
		j = len(cols) - 1
	}
	rows := make([][]string, len(t.rows))
	for i := range t.rows {
		row := make([]string, len(cols))
		copy(row, t.rows[i])
		row[j] = compute(Row{t: t, i: i})
		rows[i] = row
	}
	return NewTable(t.name, cols, rows)
}

// Row is a view of one table row.
type Row struct {
	t *Table
	i int
}

// String returns the trimmed raw value of col, or "" when absent.
func (r Row) String(col string) string {
	j, ok := r.t.index[col]
	if !ok {
		return ""
	}
	return strings.TrimSpace(r.t.rows[r.i][j])
}

// Float returns col as a finite number.
func (r Row) Float(col string) (float64, bool) {
	return format.Float(r.String(col))
}

// FloatOr returns col as a number, or NaN when missing or invalid.
func (r Row) FloatOr(col string) float64 {
	if f, ok := r.Float(col); ok {
		return f
	}
	return math.NaN()
}

// Value returns col for the formatters: the raw string, or nil when empty.
func (r Row) Value(col string) any {
	s := r.String(col)
	if s == "" {
		return nil
	}
	return s
}

// Time parses col as a date.
func (r Row) Time(col string) (time.Time, bool) {
	return ParseDate(r.String(col))
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"1/2/2006",
	"01/02/2006",
	"1/2/2006 15:04",
	"2006/01/02",
}

// ParseDate accepts the date layouts the nightly exports use.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
