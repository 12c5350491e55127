package dashboard

import (
	"fmt"

	"github.com/bobmcallan/markmentum-portal/internal/data"
	"github.com/bobmcallan/markmentum-portal/internal/format"
	"github.com/bobmcallan/markmentum-portal/internal/view"
)

// CompassTimeframe wires one Morning Compass timeframe to its exports.
type CompassTimeframe struct {
	Name       string
	Main       int
	Leaders    int
	MM         int
	Category   int
	Delta      int
	BottomLine string
}

// CompassTimeframes lists the Morning Compass timeframes in selector order.
var CompassTimeframes = []CompassTimeframe{
	{Name: "Daily", Main: 73, Leaders: 74, MM: 75, Category: 76, Delta: 77, BottomLine: "bottom_line_daily.txt"},
	{Name: "Weekly", Main: 78, Leaders: 79, MM: 80, Category: 81, Delta: 82, BottomLine: "bottom_line_weekly.txt"},
	{Name: "Monthly", Main: 83, Leaders: 84, MM: 85, Category: 86, Delta: 87, BottomLine: "bottom_line_monthly.txt"},
}

// CompassTimeframeFor returns the named timeframe, defaulting to Daily.
func CompassTimeframeFor(name string) CompassTimeframe {
	for _, tf := range CompassTimeframes {
		if tf.Name == name {
			return tf
		}
	}
	return CompassTimeframes[0]
}

func compassNames() []string {
	out := make([]string, len(CompassTimeframes))
	for i, tf := range CompassTimeframes {
		out[i] = tf.Name
	}
	return out
}

// Correlation describes one cross-asset correlation card.
type Correlation struct {
	Title      string
	Graph      int
	BottomLine string
	Note       string
}

// Correlations are shown on the Daily view only.
var Correlations = []Correlation{
	{
		Title:      "USD Correlations",
		Graph:      93,
		BottomLine: "usd_correlation_bottom_line.docx",
		Note: "Note: USD correlations use the U.S. Dollar Index (DXY), a trade-weighted FX index. " +
			"15D/30D/90D are trading-day windows. Correlation ranges from -1 to +1. " +
			"Negative = tends to move opposite. Positive = tends to move together.",
	},
	{
		Title:      "Rates Correlations",
		Graph:      94,
		BottomLine: "tnx_correlation_bottom_line.docx",
		Note: "Note: Rate correlations use the 10-Year U.S. Treasury yield (TNX) as the rates proxy. " +
			"15D/30D/90D are trading-day windows. Correlation ranges from -1 to +1. " +
			"Negative = tends to move opposite. Positive = tends to move together.",
	},
}

// MMNote explains the MM Score under every compass table.
const MMNote = "Note: MM Score → Rules-based contrarian score designed to avoid chasing stretch, identify crowding, and size conviction sensibly."

// CompassPage is the Morning Compass view model.
type CompassPage struct {
	Title      string
	AsOf       string
	Timeframe  string
	Timeframes []string
	Cards      []view.Card

	Snapshot   bool
	Categories []string
	Category   string
}

// MorningCompass builds the Morning Compass for the tf query parameter. The
// optional category snapshot is shown when snapshot=1.
func MorningCompass(rc *Context) CompassPage {
	tf := CompassTimeframeFor(pick(rc.Param("tf"), compassNames(), "Daily"))
	main := rc.Graph(tf.Main)
	asOf := data.AsOf(main)

	page := CompassPage{
		Title:      titled("Morning Compass", asOf),
		AsOf:       asOf,
		Timeframe:  tf.Name,
		Timeframes: compassNames(),
		Snapshot:   rc.Flag("snapshot"),
	}

	page.Cards = append(page.Cards, macroCard(rc, tf, main))
	if tf.Name == "Daily" {
		for _, c := range Correlations {
			page.Cards = append(page.Cards, correlationCard(rc, c))
		}
	}

	page.Cards = append(page.Cards,
		topFiveCard(rc, tf.Leaders, tf.Name+" Top Five Leaders/Laggards by % Change", "Top Five Leaders/Laggards by % Change"),
		topFiveCard(rc, tf.MM, tf.Name+" Top Five Leaders/Laggards by MM Score", "Top Five Leaders/Laggards by MM Score"),
		topFiveCard(rc, tf.Delta, tf.Name+" Top Five Leaders/Laggards by MM Score Change", "Top Five Leaders/Laggards by MM Score Change"),
	)

	if page.Snapshot {
		cat := rc.Graph(tf.Category)
		page.Categories = CategoriesPresent(cat)
		page.Category = pick(rc.Param("category"), page.Categories, "")
		page.Cards = append(page.Cards, snapshotCard(tf, cat, page.Category))
	}
	return page
}

func macroCard(rc *Context, tf CompassTimeframe, main *data.Table) view.Card {
	title := tf.Name + " Macro Orientation"
	if main.IsEmpty() {
		return view.Missing(title, fmt.Sprintf("Morning Compass: %s is missing or columns are incomplete.", data.GraphFile(tf.Main)))
	}
	text := rc.Text(tf.BottomLine)
	if !rc.Source.Exists(tf.BottomLine) {
		text = "⚠️ Bottom line file not found: " + tf.BottomLine
	}
	return view.Card{
		ID:    "macro",
		Title: title,
		Table: CompassTable(main),
		Text:  text,
		Notes: []string{MMNote},
	}
}

func correlationCard(rc *Context, c Correlation) view.Card {
	t := rc.Graph(c.Graph)
	if t.IsEmpty() {
		return view.Missing(c.Title, fmt.Sprintf("%s: %s not found.", c.Title, data.GraphFile(c.Graph)))
	}
	text := rc.Text(c.BottomLine)
	if !rc.Source.Exists(c.BottomLine) {
		text = "⚠️ Bottom line file not found: " + c.BottomLine
	}
	return view.Card{
		ID:    fmt.Sprintf("corr-%d", c.Graph),
		Title: c.Title,
		Table: CorrelationTable(t),
		Text:  text,
		Notes: []string{c.Note},
	}
}

func topFiveCard(rc *Context, id int, title, label string) view.Card {
	t := rc.Graph(id)
	if t.IsEmpty() {
		return view.Missing(title, fmt.Sprintf("%s: %s is missing or columns are incomplete.", label, data.GraphFile(id)))
	}
	return view.Card{
		ID:    fmt.Sprintf("top-%d", id),
		Title: title,
		Table: CompassTable(t),
		Notes: []string{MMNote},
	}
}

func snapshotCard(tf CompassTimeframe, cat *data.Table, category string) view.Card {
	title := tf.Name + " Category Snapshot"
	if cat.IsEmpty() || category == "" {
		return view.Missing(title, fmt.Sprintf("Category Snapshot: %s is missing or columns are incomplete.", data.GraphFile(tf.Category)))
	}
	rows := cat.Filter(func(r data.Row) bool { return r.String("Category") == category })
	return view.Card{
		ID:    "snapshot",
		Title: title + " – " + category,
		Table: CompassTable(rows),
		Notes: []string{MMNote},
	}
}

// CompassTable renders a compass dataset (canonical columns) as the
// nine-column Morning Compass table.
func CompassTable(t *data.Table) *view.Table {
	out := view.New(
		view.Column{Header: "Name", Align: view.AlignLeft, Width: "28ch"},
		view.Col("Ticker", view.AlignCenter),
		view.Col("Close", view.AlignRight),
		view.Col("% Change", view.AlignRight),
		view.Col("Probable Low", view.AlignRight),
		view.Col("Probable High", view.AlignRight),
		view.Col("Risk / Reward", view.AlignRight),
		view.Col("MM Score", view.AlignRight),
		view.Col("Δ MM Score", view.AlignRight),
	)
	for _, r := range t.Rows() {
		out.Add(
			view.Text(r.String("Ticker_name")),
			view.TickerLink(r.String("Ticker")),
			view.Text(format.Num(r.Value("Close"), 2)),
			view.Text(format.Pct(r.Value("ret"), 2)),
			view.Text(format.Num(r.Value("pr_low"), 2)),
			view.Text(format.Num(r.Value("pr_high"), 2)),
			view.Badge(format.RRTint(r.Value("rr"))),
			view.Badge(format.MMBadge(r.Value("model_score"))),
			view.Text(format.Int(r.Value("model_score_delta"))),
		)
	}
	return out
}

var correlationWindows = map[string]bool{"15D": true, "30D": true, "90D": true}

// CorrelationTable renders a correlation export as-is, with the window
// columns formatted to two decimals.
func CorrelationTable(t *data.Table) *view.Table {
	cols := t.Columns()
	vcols := make([]view.Column, len(cols))
	for i, c := range cols {
		align := view.AlignLeft
		if correlationWindows[c] {
			align = view.AlignRight
		}
		vcols[i] = view.Col(c, align)
	}
	out := view.New(vcols...)
	out.Class = "tbl corr"
	for _, r := range t.Rows() {
		cells := make([]view.Cell, len(cols))
		for i, c := range cols {
			if correlationWindows[c] {
				cells[i] = view.Text(format.Num(r.Value(c), 2))
			} else {
				cells[i] = view.Text(r.String(c))
			}
		}
		out.Add(cells...)
	}
	return out
}
