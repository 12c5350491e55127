package report

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bobmcallan/markmentum-portal/internal/dashboard"
	"github.com/bobmcallan/markmentum-portal/internal/data"
	"github.com/bobmcallan/markmentum-portal/internal/format"
	"github.com/bobmcallan/markmentum-portal/internal/view"
)

type marketOverview struct{ base }

// NewMarketOverview returns the Market Overview module: one document per
// selected timeframe in Daily, Weekly, Monthly, Quarterly order.
func NewMarketOverview() Module {
	return &marketOverview{base{
		key:   "market_overview",
		label: "Market Overview",
		form: Form{
			Timeframes: []string{"Daily", "Weekly", "Monthly", "Quarterly"},
			Toggles: []Toggle{
				{Name: "top_cards", Label: "Include Top % Gainers / Top % Decliners / Most Active", Default: true},
				{Name: "score_change_cards", Label: "Include MM Score Gainers / Decliners / Change Distribution", Default: true},
				{Name: "daily_extras", Label: "Include Daily extras (Highest/Lowest/Histogram + Opportunity Density)", Default: true, DailyOnly: true},
				{Name: "market_read", Label: "Include Market Read", Default: true},
			},
			Caption: "Select Weekly, Monthly, Quarterly to add them to the report. " +
				"If you select another timeframe, you may uncheck 'Include Daily' to exclude Daily.",
		},
	}}
}

func (m *marketOverview) Preview(rc *dashboard.Context, opts Options) string {
	return previewLine(m.label, opts.Timeframes, func(tf string) string {
		return data.AsOf(rc.Graph(dashboard.OverviewTimeframeFor(tf).Gainers))
	})
}

func (m *marketOverview) Build(env *Env, opts Options) ([][]byte, string, error) {
	var tfs []string
	for _, tf := range m.form.Timeframes {
		if slices.Contains(opts.Timeframes, tf) {
			tfs = append(tfs, tf)
		}
	}
	if len(tfs) == 0 {
		tfs = []string{"Daily"}
	}

	var blobs [][]byte
	for _, name := range tfs {
		tf := dashboard.OverviewTimeframeFor(name)
		if !overviewHasData(env, tf, opts) {
			env.Logger.Debug().Str("timeframe", name).Msg("Market Overview timeframe has no data; skipped")
			continue
		}
		b, err := overviewDocument(env, tf, opts)
		if err != nil {
			return nil, "", err
		}
		blobs = append(blobs, b)
	}
	asOf := data.AsOf(env.Graph(dashboard.OverviewTimeframeFor(tfs[0]).Gainers))
	return blobs, fmt.Sprintf("market_overview_%s_%s", tfSlug(tfs), dateSlug(asOf)), nil
}

// overviewHasData reports whether any enabled section of tf has content.
func overviewHasData(env *Env, tf dashboard.OverviewTimeframe, opts Options) bool {
	var ids []int
	if opts.On("top_cards") {
		ids = append(ids, tf.Gainers, tf.Decliners, tf.Active)
	}
	if opts.On("score_change_cards") {
		ids = append(ids, tf.ScoreGainers, tf.ScoreDecliners, tf.Distribution)
	}
	if tf.Name == "Daily" && opts.On("daily_extras") {
		ids = append(ids, dashboard.HighestScoreGraph, dashboard.LowestScoreGraph,
			dashboard.HistogramGraph, dashboard.OpportunityDensityGraph)
	}
	for _, id := range ids {
		if !env.Graph(id).IsEmpty() {
			return true
		}
	}
	return opts.On("market_read") && env.Text(tf.MarketRead) != ""
}

func overviewDocument(env *Env, tf dashboard.OverviewTimeframe, opts Options) ([]byte, error) {
	d := NewDocument(ContentMargins, true, dashboard.Disclaimer)
	prefix := tf.Name + " – "
	d.H1(tf.Name + " Market Overview")

	if opts.On("top_cards") {
		simpleCard(d, prefix+"Top Ten Percentage Gainers", env.Graph(tf.Gainers), "Percent")
		d.PageBreak()
		simpleCard(d, prefix+"Top Ten Percentage Decliners", env.Graph(tf.Decliners), "Percent")
		d.PageBreak()
		simpleCard(d, prefix+"Most Active (Shares)", env.Graph(tf.Active), "Shares")
		d.PageBreak()
	}

	if opts.On("score_change_cards") {
		simpleCard(d, prefix+"Top Ten Markmentum Score Gainers", env.Graph(tf.ScoreGainers), "Change")
		simpleCard(d, prefix+"Top Ten Markmentum Score Decliners", env.Graph(tf.ScoreDecliners), "Change")
		d.H2(prefix + "Markmentum Score Change Distribution")
		binTable(d, env.Graph(tf.Distribution), false)
		d.Space(10)
		d.PageBreak()
	}

	if tf.Name == "Daily" && opts.On("daily_extras") {
		simpleCard(d, prefix+"Highest Markmentum Score", env.Graph(dashboard.HighestScoreGraph), "Score")
		simpleCard(d, prefix+"Lowest Markmentum Score", env.Graph(dashboard.LowestScoreGraph), "Score")
		d.H2(prefix + "Markmentum Score Histogram")
		binTable(d, env.Graph(dashboard.HistogramGraph), true)
		d.Space(10)
		d.PageBreak()

		d.H2("Opportunity Density")
		od := env.Graph(dashboard.OpportunityDensityGraph)
		if od.IsEmpty() {
			d.Note("No data.")
		} else {
			t := dashboard.DensityTable(od)
			for i := range t.Columns {
				t.Columns[i].Inches = 0.70
			}
			t.Columns[0].Inches = 2.3
			d.Table(t)
			d.Space(6)
			d.Note(dashboard.DensityNote)
		}
		d.Space(10)
		d.PageBreak()
	}

	if opts.On("market_read") {
		text := env.Text(tf.MarketRead)
		if text == "" {
			d.Note("Market Read missing or empty: " + tf.MarketRead)
		} else {
			marketRead(d, text)
		}
	}
	return d.Bytes()
}

// simpleCard writes a Name / Ticker / Category / value list.
func simpleCard(d *Document, title string, t *data.Table, valueCol string) {
	if t.IsEmpty() {
		d.Note(title + " (no data)")
		d.Space(8)
		return
	}
	var fmtValue func(any) string
	switch valueCol {
	case "Percent":
		fmtValue = func(v any) string { return format.Pct(v, 2) }
	case "Change", "Score":
		fmtValue = format.Int
	default:
		fmtValue = func(v any) string { return format.Num(v, 2) }
	}

	out := view.New(
		view.Column{Header: "Name", Align: view.AlignLeft, Inches: 2.8},
		view.Column{Header: "Ticker", Align: view.AlignCenter, Inches: 0.8},
		view.Column{Header: "Category", Align: view.AlignLeft, Inches: 1.7},
		view.Column{Header: valueCol, Align: view.AlignRight, Inches: 1.0},
	)
	for _, r := range t.Rows() {
		out.Add(
			view.Text(r.String("Ticker_name")),
			view.Text(r.String("Ticker")),
			view.Text(r.String("Category")),
			view.Text(fmtValue(r.Value(valueCol))),
		)
	}
	d.H2(title)
	d.Table(out)
	d.Space(10)
}

// binTable writes a score bin distribution, optionally classified.
func binTable(d *Document, t *data.Table, classify bool) {
	if t.IsEmpty() {
		d.Note("No data.")
		return
	}
	if !t.Has("Score_Bin", "TickerCount") {
		if classify {
			d.Note("Missing histogram columns.")
		} else {
			d.Note("Missing Score Bin / Count columns.")
		}
		return
	}
	var out *view.Table
	if classify {
		out = view.New(
			view.Column{Header: "Classification", Align: view.AlignLeft, Inches: 2.2},
			view.Column{Header: "Score Bin", Align: view.AlignLeft, Inches: 1.6},
			view.Column{Header: "Ticker Count", Align: view.AlignRight, Inches: 1.4},
		)
	} else {
		out = view.New(
			view.Column{Header: "Score Bin", Align: view.AlignLeft, Inches: 2.2},
			view.Column{Header: "Ticker Count", Align: view.AlignRight, Inches: 1.4},
		)
	}
	for _, r := range t.Rows() {
		bin := r.String("Score_Bin")
		if classify {
			out.Add(view.Text(dashboard.ScoreBinClass(bin)), view.Text(bin), view.Text(r.String("TickerCount")))
		} else {
			out.Add(view.Text(bin), view.Text(r.String("TickerCount")))
		}
	}
	d.Table(out)
}

var (
	marketReadHeaders = []string{"market read:", "weekly market read:", "monthly market read:", "quarterly market read:"}
	marketReadLists   = []string{
		"the market is saying:",
		"the market is saying (all numbers are wtd % returns):",
		"the market is saying (all numbers are mtd % returns):",
		"the market is saying (all numbers are qtd % returns):",
		"macro levers:",
		"macro levers (wtd % returns):",
		"macro levers (mtd % returns):",
		"macro levers (qtd % returns):",
	}
)

// marketRead lays out Market Read text: headers become sub-headings, the
// "market is saying" and "macro levers" labels open bullet lists, and the
// bottom line closes them.
func marketRead(d *Document, text string) {
	var (
		bullets   []string
		inBullets bool
	)
	flush := func() {
		d.Bullets(bullets)
		bullets = nil
	}
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			continue
		}
		low := strings.ToLower(ln)
		switch {
		case hasAnyPrefix(low, marketReadHeaders):
			flush()
			d.H2(ln)
			inBullets = false
		case slices.Contains(marketReadLists, low):
			flush()
			d.H2(ln)
			inBullets = true
		case strings.HasPrefix(low, "bottom line:"):
			flush()
			d.Space(10)
			d.Para(ln)
			inBullets = false
		case inBullets:
			bullets = append(bullets, strings.TrimLeft(strings.TrimPrefix(ln, "- "), " "))
		default:
			d.Para(ln)
		}
	}
	flush()
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
