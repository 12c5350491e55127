package dashboard

import (
	"github.com/bobmcallan/markmentum-portal/internal/data"
	"github.com/bobmcallan/markmentum-portal/internal/format"
	"github.com/bobmcallan/markmentum-portal/internal/view"
)

// SignalBox is the consolidated per-ticker signal export.
const SignalBox = "signal_box.csv"

// VantageTimeframe names the signal box change columns for one timeframe.
type VantageTimeframe struct {
	Name    string
	Return  string
	DSharpe string
	DMM     string
}

// VantageTimeframes lists the Vantage Point timeframes in selector order.
var VantageTimeframes = []VantageTimeframe{
	{Name: "Daily", Return: "day_pct_change", DSharpe: "Sharpe_Rank_daily_change", DMM: "MM_Score_daily_change"},
	{Name: "Weekly", Return: "week_pct_change", DSharpe: "Sharpe_Rank_wtd_change", DMM: "MM_Score_wtd_change"},
	{Name: "Monthly", Return: "month_pct_change", DSharpe: "Sharpe_Rank_mtd_change", DMM: "MM_Score_mtd_change"},
	{Name: "Quarterly", Return: "quarter_pct_change", DSharpe: "Sharpe_Rank_qtd_change", DMM: "MM_Score_qtd_change"},
}

func vantageTimeframeFor(name string) VantageTimeframe {
	for _, tf := range VantageTimeframes {
		if tf.Name == name {
			return tf
		}
	}
	return VantageTimeframes[0]
}

func vantageNames() []string {
	out := make([]string, len(VantageTimeframes))
	for i, tf := range VantageTimeframes {
		out[i] = tf.Name
	}
	return out
}

const vantageNote = "MM Score/Rank cells use green/gray/red tints; Δ columns use independent per-timeframe scales."

// VantagePage is the Vantage Point view model.
type VantagePage struct {
	Title      string
	AsOf       string
	Timeframe  string
	Timeframes []string
	Macro      view.Card
	Averages   view.Card

	Categories        []string
	Category          string
	CategoryTimeframe string
	PerTicker         view.Card
}

// VantagePoint builds the page for the tf, category and cat_tf query
// parameters. cat_tf defaults to tf.
func VantagePoint(rc *Context) VantagePage {
	sb := rc.Named(SignalBox)
	asOf := data.AsOf(sb)
	tf := vantageTimeframeFor(pick(rc.Param("tf"), vantageNames(), "Daily"))
	catTF := vantageTimeframeFor(pick(rc.Param("cat_tf"), vantageNames(), tf.Name))

	page := VantagePage{
		Title:             titled("Vantage Point", asOf),
		AsOf:              asOf,
		Timeframe:         tf.Name,
		Timeframes:        vantageNames(),
		CategoryTimeframe: catTF.Name,
	}

	macroTitle := "Macro Orientation — " + tf.Name + " Changes"
	avgTitle := "Category Averages — " + tf.Name + " Changes"
	if sb.IsEmpty() {
		const msg = SignalBox + " missing or columns incomplete."
		page.Macro = view.Missing(macroTitle, msg)
		page.Averages = view.Missing(avgTitle, msg)
		page.PerTicker = view.Missing("Per Ticker Changes", msg)
		return page
	}

	latest := sb.LatestPerTicker("Date")
	page.Macro = view.Card{
		ID:       "macro",
		Title:    macroTitle,
		Subtitle: "Current MM Score / Sharpe Rank and " + tf.Name + " Changes",
		Table:    VantageTickerTable(latest.Only("Ticker", MacroList), tf, 0.5),
		Notes:    []string{vantageNote + " Tape Bias from Directional Trends page."},
	}
	page.Averages = view.Card{
		ID:       "averages",
		Title:    avgTitle,
		Subtitle: "Avg MM Score / Current Sharpe Rank and " + tf.Name + " Avg Changes",
		Table:    VantageAveragesTable(latest, tf),
		Notes:    []string{vantageNote},
	}

	page.Categories = CategoriesPresent(latest)
	page.Category = pick(rc.Param("category"), page.Categories, "")
	tcat := latest.
		Filter(func(r data.Row) bool { return r.String("Category") == page.Category }).
		SortBy(func(a, b data.Row) bool { return a.String("Ticker") < b.String("Ticker") })
	perTitle := page.Category + " — Per Ticker " + catTF.Name + " Changes"
	if tcat.IsEmpty() {
		page.PerTicker = view.Missing(perTitle, "No tickers found for "+page.Category+".")
		return page
	}
	page.PerTicker = view.Card{
		ID:       "per-ticker",
		Title:    perTitle,
		Subtitle: "Current MM Score / Sharpe Rank and " + catTF.Name + " Changes",
		Table:    VantageTickerTable(tcat, catTF, 1),
		Notes:    []string{vantageNote + " Tape Bias from Directional Trends page."},
	}
	return page
}

// VantageTickerTable renders current scores and tf changes per ticker. The
// return scale floor differs between the macro card and per-ticker cards.
func VantageTickerTable(t *data.Table, tf VantageTimeframe, retFloor float64) *view.Table {
	vmaxRet := format.RobustVmax(t.Values(tf.Return), 0.98, retFloor, retFloor)
	vmaxDSh := format.RobustVmax(t.Values(tf.DSharpe), 0.98, 1, 1)
	vmaxDMM := format.RobustVmax(t.Values(tf.DMM), 0.98, 1, 1)

	out := view.New(
		view.Column{Header: "Name", Align: view.AlignLeft, Width: "35ch"},
		view.Column{Header: "Ticker", Align: view.AlignCenter, Width: "7ch"},
		view.Col("MM Score", view.AlignRight),
		view.Col("Sharpe Rank", view.AlignRight),
		view.Col("Tape Bias", view.AlignLeft),
		view.Column{Width: "8px", Spacer: true},
		view.Col("Δ %", view.AlignRight),
		view.Col("Δ MM Score", view.AlignRight),
		view.Col("Δ Sharpe Rank", view.AlignRight),
	)
	for _, r := range t.Rows() {
		tape := r.String("Tape_Bias")
		out.Add(
			view.Text(r.String("Ticker_name")),
			view.TickerLink(r.String("Ticker")),
			view.Badge(format.ScoreTint(r.Value("MM_Score"))),
			view.Badge(format.RankTint(r.Value("Sharpe_Rank"))),
			view.Pill(tape, format.TapePill(tape)),
			view.Spacer(),
			view.Badge(format.PctDeltaTint(r.Value(tf.Return), vmaxRet)),
			view.Badge(format.DeltaTint(r.Value(tf.DMM), vmaxDMM)),
			view.Badge(format.DeltaTint(r.Value(tf.DSharpe), vmaxDSh)),
		)
	}
	return out
}

// VantageAveragesTable renders category means in preferred order. Rows with
// no category are dropped.
func VantageAveragesTable(latest *data.Table, tf VantageTimeframe) *view.Table {
	grp := latest.GroupMean("Category", "Sharpe_Rank", "MM_Score", tf.Return, tf.DSharpe, tf.DMM).
		InOrder("Category", CategoryOrder)

	vmaxRet := format.RobustVmax(grp.Values(tf.Return), 0.98, 1, 1)
	vmaxDSh := format.RobustVmax(grp.Values(tf.DSharpe), 0.98, 1, 1)
	vmaxDMM := format.RobustVmax(grp.Values(tf.DMM), 0.98, 1, 1)

	out := view.New(
		view.Column{Header: "Name", Align: view.AlignLeft, Width: "35ch"},
		view.Col("Avg MM Score", view.AlignRight),
		view.Col("Avg Sharpe Rank", view.AlignRight),
		view.Column{Width: "8px", Spacer: true},
		view.Col("Δ Avg %", view.AlignRight),
		view.Col("Δ Avg MM Score", view.AlignRight),
		view.Col("Δ Avg Sharpe Rank", view.AlignRight),
	)
	out.Class = "tbl2"
	for _, r := range grp.Rows() {
		out.Add(
			view.Text(r.String("Category")),
			view.Badge(format.ScoreTint(r.Value("MM_Score"))),
			view.Badge(format.RankTint(r.Value("Sharpe_Rank"))),
			view.Spacer(),
			view.Badge(format.PctDeltaTint(r.Value(tf.Return), vmaxRet)),
			view.Badge(format.DeltaTint(r.Value(tf.DMM), vmaxDMM)),
			view.Badge(format.DeltaTint(r.Value(tf.DSharpe), vmaxDSh)),
		)
	}
	return out
}
