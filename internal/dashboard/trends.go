package dashboard

import (
	"io"
	"strings"

	"github.com/bobmcallan/markmentum-portal/internal/data"
	"github.com/bobmcallan/markmentum-portal/internal/format"
	"github.com/bobmcallan/markmentum-portal/internal/tapebias"
	"github.com/bobmcallan/markmentum-portal/internal/view"
)

// TrendsGraph is the single export behind Directional Trends.
const TrendsGraph = 88

// TrendsNote heads the legend under the trend cards.
const TrendsNote = "Ticker links open the Deep Dive Dashboard. Green = positive; Red = negative."

// TrendsPage is the Directional Trends view model.
type TrendsPage struct {
	Title       string
	AsOf        string
	Macro       view.Card
	Categories  []string
	Category    string
	PerCategory view.Card
	All         view.Card
	Query       string
	CSVName     string
}

// TapeBias classifies a directional trends row.
func TapeBias(r data.Row) tapebias.Label {
	st, ok1 := r.Float("st_trend")
	mt, ok2 := r.Float("mt_trend")
	lt, ok3 := r.Float("lt_trend")
	stc, ok4 := r.Float("st_trend_change")
	mtc, ok5 := r.Float("mt_trend_change")
	return tapebias.ClassifyValues(st, mt, lt, stc, mtc, ok1, ok2, ok3, ok4, ok5)
}

// DirectionalTrends builds the page for the category and q query parameters.
func DirectionalTrends(rc *Context) TrendsPage {
	t := rc.Graph(TrendsGraph)
	asOf := data.AsOf(t)
	page := TrendsPage{
		Title:   titled("Directional Trends", asOf),
		AsOf:    asOf,
		Query:   rc.Param("q"),
		CSVName: TrendsCSVName(asOf),
	}

	const macroTitle = "Macro Orientation — Directional Trends by Timeframe & Changes"
	if t.IsEmpty() {
		msg := data.GraphFile(TrendsGraph) + " missing or columns incomplete."
		page.Macro = view.Missing(macroTitle, msg)
		page.PerCategory = view.Missing("Per Ticker Directional Trends", msg)
		page.All = view.Missing("All Tickers — Sortable Table", msg)
		return page
	}

	latest := t.LatestPerTicker("Date")
	page.Macro = view.Card{
		ID:    "macro",
		Title: macroTitle,
		Table: TrendsTable(latest.Only("Ticker", MacroList)),
		Notes: []string{TrendsNote, Legend},
	}

	page.Categories = CategoriesPresent(t)
	page.Category = pick(rc.Param("category"), page.Categories, "Sector & Style ETFs")
	cat := latest.Filter(func(r data.Row) bool { return r.String("Category") == page.Category })
	page.PerCategory = view.Card{
		ID:    "category",
		Title: page.Category + " — Per Ticker Directional Trends by Timeframe & Changes",
		Table: TrendsTable(cat),
		Notes: []string{TrendsNote, Legend},
	}

	page.All = view.Card{
		ID:       "all",
		Title:    "All Tickers — Sortable Table",
		Subtitle: "Current directional trends and timeframe changes across all tickers",
		Table:    AllTickersTable(latest, page.Query),
	}
	return page
}

// TrendsTable renders the tinted nine-column trend table.
func TrendsTable(t *data.Table) *view.Table {
	out := view.New(
		view.Column{Header: "Name", Align: view.AlignLeft, Width: "28ch"},
		view.Column{Header: "Ticker", Align: view.AlignCenter, Width: "8ch"},
		view.Column{Header: "ST", Align: view.AlignRight, Width: "8ch"},
		view.Column{Header: "MT", Align: view.AlignRight, Width: "8ch"},
		view.Column{Header: "LT", Align: view.AlignRight, Width: "8ch"},
		view.Column{Header: "Δ ST", Align: view.AlignRight, Width: "8ch"},
		view.Column{Header: "Δ MT", Align: view.AlignRight, Width: "8ch"},
		view.Column{Header: "Δ LT", Align: view.AlignRight, Width: "8ch"},
		view.Column{Header: "Tape Bias", Align: view.AlignLeft, Width: "18ch"},
	)
	for _, r := range t.Rows() {
		label := string(TapeBias(r))
		out.Add(
			view.Text(r.String("Ticker_name")),
			view.TickerLink(r.String("Ticker")),
			view.Badge(format.TrendTint(r.Value("st_trend"))),
			view.Badge(format.TrendTint(r.Value("mt_trend"))),
			view.Badge(format.TrendTint(r.Value("lt_trend"))),
			view.Badge(format.TrendTint(r.Value("st_trend_change"))),
			view.Badge(format.TrendTint(r.Value("mt_trend_change"))),
			view.Badge(format.TrendTint(r.Value("lt_trend_change"))),
			view.Pill(label, format.TapePill(label)),
		)
	}
	return out
}

// MatchesQuery reports whether a trends row contains q (case-insensitive)
// in its name, ticker or category. An empty q matches everything.
func MatchesQuery(r data.Row, q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, col := range []string{"Ticker_name", "Ticker", "Category"} {
		if strings.Contains(strings.ToLower(r.String(col)), q) {
			return true
		}
	}
	return false
}

// AllTickersTable renders the filterable all-tickers view, sorted by
// Category then Ticker.
func AllTickersTable(latest *data.Table, q string) *view.Table {
	rows := latest.
		Filter(func(r data.Row) bool { return MatchesQuery(r, q) }).
		SortBy(func(a, b data.Row) bool {
			ca, cb := a.String("Category"), b.String("Category")
			if ca != cb {
				return ca < cb
			}
			return a.String("Ticker") < b.String("Ticker")
		})

	out := view.New(
		view.Col("Name", view.AlignLeft),
		view.Col("Ticker", view.AlignCenter),
		view.Col("Category", view.AlignLeft),
		view.Col("ST", view.AlignRight),
		view.Col("MT", view.AlignRight),
		view.Col("LT", view.AlignRight),
		view.Col("ΔST", view.AlignRight),
		view.Col("ΔMT", view.AlignRight),
		view.Col("ΔLT", view.AlignRight),
		view.Col("Tape Bias", view.AlignLeft),
	)
	out.Class = "tbl sortable"
	for _, r := range rows.Rows() {
		out.Add(
			view.Text(r.String("Ticker_name")),
			view.Text(strings.ToUpper(r.String("Ticker"))),
			view.Text(r.String("Category")),
			view.Text(format.Pct(r.Value("st_trend"), 1)),
			view.Text(format.Pct(r.Value("mt_trend"), 1)),
			view.Text(format.Pct(r.Value("lt_trend"), 1)),
			view.Text(format.Pct(r.Value("st_trend_change"), 1)),
			view.Text(format.Pct(r.Value("mt_trend_change"), 1)),
			view.Text(format.Pct(r.Value("lt_trend_change"), 1)),
			view.Text(string(TapeBias(r))),
		)
	}
	return out
}

// TrendsCSVName is the download name of the all-tickers view.
func TrendsCSVName(asOf string) string {
	return "Directional_Trends_" + data.DateSlug(asOf) + ".csv"
}

// WriteTrendsCSV writes the filtered all-tickers view and returns the file
// name to offer.
func WriteTrendsCSV(rc *Context, w io.Writer) (string, error) {
	t := rc.Graph(TrendsGraph)
	name := TrendsCSVName(data.AsOf(t))
	return name, AllTickersTable(t.LatestPerTicker("Date"), rc.Param("q")).WriteCSV(w)
}
