package dashboard

import (
	"fmt"

	"github.com/bobmcallan/markmentum-portal/internal/data"
	"github.com/bobmcallan/markmentum-portal/internal/format"
	"github.com/bobmcallan/markmentum-portal/internal/view"
)

// OverviewTimeframe wires one Market Overview timeframe to its exports.
type OverviewTimeframe struct {
	Name           string
	Gainers        int
	Decliners      int
	Active         int
	ScoreGainers   int
	ScoreDecliners int
	Distribution   int
	MarketRead     string
}

// OverviewTimeframes lists the Market Overview timeframes in selector order.
var OverviewTimeframes = []OverviewTimeframe{
	{Name: "Daily", Gainers: 26, Decliners: 27, Active: 28, ScoreGainers: 70, ScoreDecliners: 71, Distribution: 72, MarketRead: "Market_Read_daily.html"},
	{Name: "Weekly", Gainers: 52, Decliners: 53, Active: 54, ScoreGainers: 55, ScoreDecliners: 56, Distribution: 57, MarketRead: "Market_Read_weekly.html"},
	{Name: "Monthly", Gainers: 58, Decliners: 59, Active: 60, ScoreGainers: 61, ScoreDecliners: 62, Distribution: 63, MarketRead: "Market_Read_monthly.html"},
	{Name: "Quarterly", Gainers: 64, Decliners: 65, Active: 66, ScoreGainers: 67, ScoreDecliners: 68, Distribution: 69, MarketRead: "Market_Read_quarterly.html"},
}

// Daily-only Market Overview exports.
const (
	HighestScoreGraph       = 29
	LowestScoreGraph        = 30
	HistogramGraph          = 31
	OpportunityDensityGraph = 92
)

// OverviewTimeframeFor returns the named timeframe, defaulting to Daily.
func OverviewTimeframeFor(name string) OverviewTimeframe {
	for _, tf := range OverviewTimeframes {
		if tf.Name == name {
			return tf
		}
	}
	return OverviewTimeframes[0]
}

func overviewNames() []string {
	out := make([]string, len(OverviewTimeframes))
	for i, tf := range OverviewTimeframes {
		out[i] = tf.Name
	}
	return out
}

// ScoreBinClass maps a histogram score bin to its classification.
func ScoreBinClass(bin string) string {
	switch bin {
	case "Below -100":
		return "Strong Sell"
	case "-100 to -26":
		return "Sell"
	case "-25 to 25":
		return "Neutral"
	case "26 to 100":
		return "Buy"
	case "Above 100":
		return "Strong Buy"
	}
	return ""
}

// DensityNote explains the Opportunity Density thresholds.
const DensityNote = "Note: Buy classifications require Risk/Reward ≥ 3 and MM Score > 25. " +
	"Sell classifications require Risk/Reward ≤ −3 and MM Score < −25."

// IndicesNote accompanies the Daily Market Read.
const IndicesNote = "Note: Indices are excluded from Highest/Lowest Markmentum Score lists."

// OverviewPage is the Market Overview view model. Rows hold three cards each.
type OverviewPage struct {
	Title      string
	AsOf       string
	Timeframe  string
	Timeframes []string
	Rows       [][]view.Card
	Density    *view.Card
	MarketRead view.Card
}

// MarketOverview builds the Market Overview for the tf query parameter.
func MarketOverview(rc *Context) OverviewPage {
	tf := OverviewTimeframeFor(pick(rc.Param("tf"), overviewNames(), "Daily"))
	prefix := func(s string) string { return tf.Name + " – " + s }

	gainers := rc.Graph(tf.Gainers)
	asOf := data.AsOf(gainers)
	title := tf.Name + " Market Overview"

	page := OverviewPage{
		Title:      titled(title, asOf),
		AsOf:       asOf,
		Timeframe:  tf.Name,
		Timeframes: overviewNames(),
	}

	page.Rows = append(page.Rows, []view.Card{
		listCard(prefix("Top Ten Percentage Gainers"), gainers, "Percent", "Percent", pct2),
		listCard(prefix("Top Ten Percentage Decliners"), rc.Graph(tf.Decliners), "Percent", "Percent", pct2),
		listCard(prefix("Most Active (Shares)"), rc.Graph(tf.Active), "Shares", "Shares", millions),
	})
	page.Rows = append(page.Rows, []view.Card{
		listCard(prefix("Top Ten Markmentum Score Gainers"), rc.Graph(tf.ScoreGainers), "Change", "Change", format.Int),
		listCard(prefix("Top Ten Markmentum Score Decliners"), rc.Graph(tf.ScoreDecliners), "Change", "Change", format.Int),
		distributionCard(prefix("Markmentum Score Change Distribution"), rc.Graph(tf.Distribution)),
	})

	daily := tf.Name == "Daily"
	if daily {
		page.Rows = append(page.Rows, []view.Card{
			listCard(prefix("Highest Markmentum Score"), rc.Graph(HighestScoreGraph), "Score", "Score", format.Int),
			listCard(prefix("Lowest Markmentum Score"), rc.Graph(LowestScoreGraph), "Score", "Score", format.Int),
			histogramCard(prefix("Markmentum Score Histogram"), rc.Graph(HistogramGraph)),
		})
		density := densityCard(rc.Graph(OpportunityDensityGraph))
		page.Density = &density
	}

	page.MarketRead = marketReadCard(rc, tf, daily)
	return page
}

func pct2(v any) string { return format.Pct(v, 2) }

func millions(v any) string {
	s := format.Num(v, 2)
	if s == "" {
		return ""
	}
	return s + " M"
}

func listCard(title string, t *data.Table, valueCol, label string, fmtValue func(any) string) view.Card {
	if t.IsEmpty() || !t.Has(valueCol) {
		return view.Missing(title, "No data for "+title+".")
	}
	valueWidth := "90px"
	if valueCol == "Shares" {
		valueWidth = "120px"
	}
	out := view.New(
		view.Column{Header: "Name", Align: view.AlignLeft, Width: "39ch"},
		view.Column{Header: "Ticker", Align: view.AlignCenter, Width: "74px"},
		view.Column{Header: "Category", Align: view.AlignLeft, Width: "22ch"},
		view.Column{Header: label, Align: view.AlignRight, Width: valueWidth},
	)
	for _, r := range t.Rows() {
		out.Add(
			view.Text(r.String("Ticker_name")),
			view.TickerLink(r.String("Ticker")),
			view.Text(r.String("Category")),
			view.Text(fmtValue(r.Value(valueCol))),
		)
	}
	return view.Card{Title: title, Table: out}
}

func distributionCard(title string, t *data.Table) view.Card {
	if t.IsEmpty() {
		return view.Missing(title, "No data for "+title+".")
	}
	out := view.New(view.Col("Score Bin", view.AlignLeft), view.Col("Ticker Count", view.AlignRight))
	for _, r := range t.Rows() {
		out.Add(view.Text(r.String("Score_Bin")), view.Text(r.String("TickerCount")))
	}
	return view.Card{Title: title, Table: out}
}

func histogramCard(title string, t *data.Table) view.Card {
	if t.IsEmpty() {
		return view.Missing(title, "No data for "+title+".")
	}
	out := view.New(
		view.Col("Classification", view.AlignLeft),
		view.Col("Score Bin", view.AlignLeft),
		view.Col("Ticker Count", view.AlignRight),
	)
	for _, r := range t.Rows() {
		bin := r.String("Score_Bin")
		out.Add(view.Text(ScoreBinClass(bin)), view.Text(bin), view.Text(r.String("TickerCount")))
	}
	return view.Card{Title: title, Table: out}
}

var densityPctCols = map[string]bool{"Buy %": true, "Neutral %": true, "Sell %": true}

// DensityTable renders the Opportunity Density export: the first column is
// the category, the percent columns get one decimal.
func DensityTable(t *data.Table) *view.Table {
	cols := t.Columns()
	vcols := make([]view.Column, len(cols))
	for i, c := range cols {
		if i == 0 {
			vcols[i] = view.Column{Header: c, Align: view.AlignLeft, Width: "220px"}
			continue
		}
		vcols[i] = view.Column{Header: c, Align: view.AlignRight, Width: "50px"}
	}
	out := view.New(vcols...)
	for _, r := range t.Rows() {
		cells := make([]view.Cell, len(cols))
		for i, c := range cols {
			if densityPctCols[c] {
				cells[i] = view.Text(format.OneDecimalPct(r.Value(c)))
			} else {
				cells[i] = view.Text(r.String(c))
			}
		}
		out.Add(cells...)
	}
	return out
}

func densityCard(t *data.Table) view.Card {
	const title = "Opportunity Density"
	if t.IsEmpty() {
		return view.Missing(title, "No data for Opportunity Density.")
	}
	return view.Card{ID: "od_card", Title: title, Table: DensityTable(t), Notes: []string{DensityNote}}
}

func marketReadCard(rc *Context, tf OverviewTimeframe, daily bool) view.Card {
	card := view.Card{ID: "market-read", Title: "Market Read"}
	doc, ok := rc.HTML(tf.MarketRead)
	if !ok {
		card.Empty = fmt.Sprintf("⚠️ Market Read HTML not found: %s", tf.MarketRead)
		return card
	}
	card.Frame = doc
	if daily {
		card.Notes = []string{IndicesNote}
	}
	return card
}
