package report

import (
	"slices"
	"strconv"
	"strings"

	"github.com/bobmcallan/markmentum-portal/internal/dashboard"
	"github.com/bobmcallan/markmentum-portal/internal/data"
	"github.com/bobmcallan/markmentum-portal/internal/format"
	"github.com/bobmcallan/markmentum-portal/internal/view"
)

// Source files of the heatmap modules.
const (
	TickerData       = "ticker_data.csv"
	ModelScoreDay    = "model_score_day_change.csv"
	SharpeRankGraph  = 48
	sharpeDailyDelta = "Sharpe_Rank_daily_change"
)

// ModelScorePeriods are the period change exports joined onto ModelScoreDay.
var ModelScorePeriods = []struct{ File, Column string }{
	{"model_score_wtd_change.csv", "WTD"},
	{"model_score_mtd_change.csv", "MTD"},
	{"model_score_qtd_change.csv", "QTD"},
}

var sharpePeriods = []struct {
	Graph  int
	Column string
}{
	{49, "Sharpe_Rank_wtd_change"},
	{50, "Sharpe_Rank_mtd_change"},
	{51, "Sharpe_Rank_qtd_change"},
}

var (
	perfChanges   = []string{"day_pct_change", "week_pct_change", "month_pct_change", "quarter_pct_change"}
	sharpeChanges = []string{sharpeDailyDelta, "Sharpe_Rank_wtd_change", "Sharpe_Rank_mtd_change", "Sharpe_Rank_qtd_change"}
	mmChanges     = []string{"Daily_Change", "WTD", "MTD", "QTD"}
	deltaHeaders  = []string{"Δ Daily", "Δ WTD", "Δ MTD", "Δ QTD"}
)

var heatmapToggles = []Toggle{
	{Name: "macro", Label: "Include Macro Orientation", Default: true},
	{Name: "cat", Label: "Include Category Averages", Default: true},
}

const heatmapCaption = "Note: Per-ticker category breakouts are intentionally excluded from the report pack."

// heatColumn is one value column of a heatmap table.
type heatColumn struct {
	Header string
	Col    string
	Format func(any) string
	Shade  func(any) format.Color
}

// heatTable renders a shaded heatmap: Name left aligned, everything else
// centred. ticker adds the Ticker column.
func heatTable(t *data.Table, nameCol string, ticker bool, cols []heatColumn) *view.Table {
	vcols := []view.Column{{Header: "Name", Align: view.AlignLeft}}
	if ticker {
		vcols = append(vcols, view.Column{Header: "Ticker", Align: view.AlignCenter})
	}
	for _, c := range cols {
		vcols = append(vcols, view.Column{Header: c.Header, Align: view.AlignCenter})
	}
	out := view.New(vcols...)
	for _, r := range t.Rows() {
		name := r.String(nameCol)
		if name == "" {
			name = r.String("Ticker")
		}
		cells := []view.Cell{view.Text(name)}
		if ticker {
			cells = append(cells, view.Text(r.String("Ticker")))
		}
		for _, c := range cols {
			v := r.Value(c.Col)
			cells = append(cells, view.Shaded(c.Format(v), c.Shade(v)))
		}
		out.Add(cells...)
	}
	return out
}

// deltaColumns shades each change column against its own scale.
func deltaColumns(t *data.Table, cols []string, fmtValue func(any) string, vmax func(values []any) float64) []heatColumn {
	out := make([]heatColumn, len(cols))
	for i, c := range cols {
		scale := vmax(t.Values(c))
		out[i] = heatColumn{
			Header: deltaHeaders[i],
			Col:    c,
			Format: fmtValue,
			Shade:  func(v any) format.Color { return format.DeltaShade(v, scale) },
		}
	}
	return out
}

func robustUnit(values []any) float64 {
	return format.RobustVmax(values, 0.98, 1, 1)
}

// categoryAverages groups by Category in preferred order.
func categoryAverages(t *data.Table, cols ...string) *data.Table {
	return t.GroupMean("Category", cols...).InOrder("Category", dashboard.CategoryOrder)
}

type performanceHeatmap struct{ base }

// NewPerformanceHeatmap returns the Performance Heatmap module.
func NewPerformanceHeatmap() Module {
	return &performanceHeatmap{base{
		key:   "performance_heatmap",
		label: "Performance Heatmap",
		form: Form{
			Toggles: append(slices.Clone(heatmapToggles),
				Toggle{Name: "heatmap", Label: "Include Category Heatmap", Default: false}),
			Caption: heatmapCaption,
		},
	}}
}

func (m *performanceHeatmap) Preview(rc *dashboard.Context, _ Options) string {
	return previewLine(m.label, nil, func(string) string { return data.AsOf(rc.Named(TickerData)) })
}

func (m *performanceHeatmap) Build(env *Env, opts Options) ([][]byte, string, error) {
	perf := env.Named(TickerData).LatestPerTicker("Date")
	if perf.IsEmpty() {
		return nil, "performance_heatmap", nil
	}
	d := NewDocument(ContentMargins, true, dashboard.Disclaimer)
	d.Title("Performance Heatmap")

	if opts.On("macro") {
		macro := perf.Only("Ticker", dashboard.MacroList)
		d.H2("Macro Orientation")
		d.Table(heatTable(macro, "Ticker_name", true, deltaColumns(macro, perfChanges, format.PctAuto, format.MaxAbs)))
		d.Space(14)
	}

	if opts.On("cat") && perf.Has("Category") {
		avg := categoryAverages(perf, perfChanges...)
		d.PageBreak()
		d.H2("Category Averages")
		d.Table(heatTable(avg, "Category", false, deltaColumns(avg, perfChanges, format.PctAuto, format.MaxAbs)))
		d.Space(14)

		if opts.On("heatmap") {
			d.PageBreak()
			d.H2("Category Heatmap – Avg % Change")
			cols := deltaColumns(avg, perfChanges, format.PctAuto, format.MaxAbs)
			for i := range cols {
				cols[i].Header = strings.TrimPrefix(cols[i].Header, "Δ ")
			}
			t := heatTable(avg, "Category", false, cols)
			t.Columns[0].Header = "Category"
			d.Table(t)
		}
	}
	return single(d, "performance_heatmap")
}

type sharpeRankHeatmap struct{ base }

// NewSharpeRankHeatmap returns the Sharpe Rank Heatmap module.
func NewSharpeRankHeatmap() Module {
	return &sharpeRankHeatmap{base{
		key:   "sharpe_rank_heatmap",
		label: "Sharpe Rank Heatmap",
		form:  Form{Toggles: heatmapToggles, Caption: heatmapCaption},
	}}
}

func (m *sharpeRankHeatmap) Preview(rc *dashboard.Context, _ Options) string {
	return previewLine(m.label, nil, func(string) string { return data.AsOf(rc.Graph(SharpeRankGraph)) })
}

// SharpeRanks merges the latest Sharpe Rank per ticker with its period
// changes. A missing daily change is derived from the previous rank.
func SharpeRanks(rc *dashboard.Context) *data.Table {
	t := rc.Graph(SharpeRankGraph).LatestPerTicker("Date")
	if t.IsEmpty() {
		return t
	}
	if allMissing(t, sharpeDailyDelta) && t.Has("Sharpe_Rank", "previous_Sharpe_Rank") {
		t = t.With(sharpeDailyDelta, func(r data.Row) string {
			cur, ok1 := r.Float("Sharpe_Rank")
			prev, ok2 := r.Float("previous_Sharpe_Rank")
			if !ok1 || !ok2 {
				return ""
			}
			return strconv.FormatFloat(cur-prev, 'g', -1, 64)
		})
	}
	for _, p := range sharpePeriods {
		t = t.LeftJoin(rc.Graph(p.Graph).LatestPerTicker("Date"), "Ticker", p.Column)
	}
	return t
}

func allMissing(t *data.Table, col string) bool {
	if !t.Has(col) {
		return true
	}
	for _, v := range t.Values(col) {
		if _, ok := format.Float(v); ok {
			return false
		}
	}
	return true
}

func (m *sharpeRankHeatmap) Build(env *Env, opts Options) ([][]byte, string, error) {
	ranks := SharpeRanks(env.Context)
	if ranks.IsEmpty() {
		return nil, "sharpe_rank_heatmap", nil
	}
	d := NewDocument(ContentMargins, true, dashboard.Disclaimer)
	d.Title("Sharpe Rank Heatmap")

	rankCol := heatColumn{Header: "Rank", Col: "Sharpe_Rank", Format: format.Int, Shade: format.RankShade}
	if opts.On("macro") {
		d.H2("Macro Orientation")
		macro := ranks.Only("Ticker", dashboard.MacroList)
		if macro.IsEmpty() {
			d.Note("No macro orientation rows found.")
		} else {
			cols := append([]heatColumn{rankCol}, deltaColumns(macro, sharpeChanges, format.Int, robustUnit)...)
			d.Table(heatTable(macro, "Ticker_name", true, cols))
		}
		d.Space(12)
	}

	if opts.On("cat") {
		d.PageBreak()
		d.H2("Category Averages")
		if !ranks.Has("Category") {
			d.Note("Category data not available (missing 'Category' column).")
		} else {
			avg := categoryAverages(ranks, append([]string{"Sharpe_Rank"}, sharpeChanges...)...)
			cols := append([]heatColumn{rankCol}, deltaColumns(avg, sharpeChanges, format.Int, robustUnit)...)
			d.Table(heatTable(avg, "Category", false, cols))
		}
	}
	return single(d, "sharpe_rank_heatmap")
}

type markmentumHeatmap struct{ base }

// NewMarkmentumHeatmap returns the Markmentum Heatmap module.
func NewMarkmentumHeatmap() Module {
	return &markmentumHeatmap{base{
		key:   "markmentum_heatmap",
		label: "Markmentum Heatmap",
		form:  Form{Toggles: heatmapToggles, Caption: heatmapCaption},
	}}
}

func (m *markmentumHeatmap) Preview(rc *dashboard.Context, _ Options) string {
	return previewLine(m.label, nil, func(string) string { return data.AsOf(rc.Named(ModelScoreDay)) })
}

// ModelScores merges the latest MM Score per ticker with its period changes.
// Each period file contributes its first column mentioning "change" but not
// "previous". Rows are ordered by category preference, Category, Ticker.
func ModelScores(rc *dashboard.Context) *data.Table {
	t := rc.Named(ModelScoreDay).LatestPerTicker("Date")
	if t.IsEmpty() {
		return t
	}
	for _, p := range ModelScorePeriods {
		other := rc.Named(p.File)
		col := other.FindColumn(func(c string) bool {
			low := strings.ToLower(c)
			return strings.Contains(low, "change") && !strings.Contains(low, "previous")
		})
		if col == "" {
			continue
		}
		t = t.LeftJoin(other.Rename(map[string]string{col: p.Column}), "Ticker", p.Column)
	}

	pos := make(map[string]int, len(dashboard.CategoryOrder))
	for i, c := range dashboard.CategoryOrder {
		pos[c] = i
	}
	rank := func(r data.Row) int {
		if p, ok := pos[r.String("Category")]; ok {
			return p
		}
		return len(pos)
	}
	return t.SortBy(func(a, b data.Row) bool {
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra < rb
		}
		if ca, cb := a.String("Category"), b.String("Category"); ca != cb {
			return ca < cb
		}
		return a.String("Ticker") < b.String("Ticker")
	})
}

func (m *markmentumHeatmap) Build(env *Env, opts Options) ([][]byte, string, error) {
	scores := ModelScores(env.Context)
	if scores.IsEmpty() {
		return nil, "markmentum_heatmap", nil
	}
	d := NewDocument(ContentMargins, true, dashboard.Disclaimer)
	d.H1("Markmentum Heatmap")

	scoreCol := heatColumn{Header: "Score", Col: "Score", Format: format.Int, Shade: format.MMShade}
	if opts.On("macro") {
		macro := scores.Only("Ticker", dashboard.MacroList)
		if !macro.IsEmpty() {
			d.H2("Macro Orientation")
			cols := append([]heatColumn{scoreCol}, deltaColumns(macro, mmChanges, format.Int, robustUnit)...)
			d.Table(heatTable(macro, "Ticker_name", true, cols))
			d.Space(10)
			d.PageBreak()
		}
	}

	if opts.On("cat") && len(scores.Distinct("Category")) > 0 {
		avg := categoryAverages(scores, append([]string{"Score"}, mmChanges...)...)
		d.H2("Category Averages")
		cols := append([]heatColumn{scoreCol}, deltaColumns(avg, mmChanges, format.Int, robustUnit)...)
		d.Table(heatTable(avg, "Category", false, cols))
	}
	return single(d, "markmentum_heatmap")
}

// single finishes a one-document module.
func single(d *Document, stub string) ([][]byte, string, error) {
	b, err := d.Bytes()
	if err != nil {
		return nil, "", err
	}
	return [][]byte{b}, stub, nil
}
