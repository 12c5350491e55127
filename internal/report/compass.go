package report

import (
	"fmt"
	"slices"

	"github.com/bobmcallan/markmentum-portal/internal/dashboard"
	"github.com/bobmcallan/markmentum-portal/internal/data"
	"github.com/bobmcallan/markmentum-portal/internal/format"
	"github.com/bobmcallan/markmentum-portal/internal/view"
)

type morningCompass struct{ base }

// NewMorningCompass returns the Morning Compass module: one document per
// selected timeframe, Daily first.
func NewMorningCompass() Module {
	return &morningCompass{base{
		key:   "morning_compass",
		label: "Morning Compass",
		form: Form{
			Timeframes: []string{"Daily", "Weekly", "Monthly"},
			Toggles: []Toggle{
				{Name: "macro", Label: "Macro Orientation (by timeframe)", Default: true},
				{Name: "correlations", Label: "Correlations (USD + Rates) (Daily only)", Default: true, DailyOnly: true},
				{Name: "pct", Label: "Top Five Leaders/Laggards by % Change", Default: true},
				{Name: "mm", Label: "Top Five Leaders/Laggards by MM Score", Default: true},
				{Name: "delta", Label: "Top Five Leaders/Laggards by MM Score Change", Default: true},
			},
			Caption: "Select Weekly and/or Monthly to add them to the report. " +
				"If you select another timeframe, you may uncheck 'Include Daily' to exclude Daily.",
		},
	}}
}

func (m *morningCompass) Preview(rc *dashboard.Context, opts Options) string {
	return previewLine(m.label, opts.Timeframes, func(tf string) string {
		return data.AsOf(rc.Graph(dashboard.CompassTimeframeFor(tf).Main))
	})
}

func (m *morningCompass) Build(env *Env, opts Options) ([][]byte, string, error) {
	tfs := opts.Timeframes
	if len(tfs) == 0 {
		tfs = []string{"Daily"}
	}
	var blobs [][]byte
	for _, name := range tfs {
		tf := dashboard.CompassTimeframeFor(name)
		if !compassHasData(env, tf, opts) {
			env.Logger.Debug().Str("timeframe", name).Msg("Morning Compass timeframe has no data; skipped")
			continue
		}
		b, err := compassDocument(env, tf, opts)
		if err != nil {
			return nil, "", err
		}
		blobs = append(blobs, b)
	}

	dateTF := tfs[0]
	if slices.Contains(tfs, "Daily") {
		dateTF = "Daily"
	}
	asOf := data.AsOf(env.Graph(dashboard.CompassTimeframeFor(dateTF).Main))
	return blobs, fmt.Sprintf("markmentum_morning_compass_%s_%s", tfSlug(tfs), dateSlug(asOf)), nil
}

// compassHasData reports whether any enabled section of tf has a table.
func compassHasData(env *Env, tf dashboard.CompassTimeframe, opts Options) bool {
	ids := make([]int, 0, 6)
	if opts.On("macro") {
		ids = append(ids, tf.Main)
	}
	if tf.Name == "Daily" && opts.On("correlations") {
		for _, c := range dashboard.Correlations {
			ids = append(ids, c.Graph)
		}
	}
	for _, s := range []struct {
		toggle string
		id     int
	}{{"pct", tf.Leaders}, {"mm", tf.MM}, {"delta", tf.Delta}} {
		if opts.On(s.toggle) {
			ids = append(ids, s.id)
		}
	}
	for _, id := range ids {
		if !env.Graph(id).IsEmpty() {
			return true
		}
	}
	return false
}

func compassDocument(env *Env, tf dashboard.CompassTimeframe, opts Options) ([]byte, error) {
	d := NewDocument(ContentMargins, true, dashboard.Disclaimer)
	daily := tf.Name == "Daily"
	correlations := daily && opts.On("correlations")

	if daily {
		d.H1("Morning Compass")
	}
	if opts.On("macro") {
		compassSection(d, env, tf.Main, tf.Name+" Macro Orientation", tf.BottomLine)
		if !correlations {
			d.PageBreak()
		}
	}
	if correlations {
		correlationSections(d, env)
		d.PageBreak()
	}
	sections := []struct {
		toggle string
		id     int
		title  string
	}{
		{"pct", tf.Leaders, tf.Name + " Top Five Leaders/Laggards by % Change"},
		{"mm", tf.MM, tf.Name + " Top Five Leaders/Laggards by MM Score"},
		{"delta", tf.Delta, tf.Name + " Top Five Leaders/Laggards by MM Score Change"},
	}
	for _, s := range sections {
		if opts.On(s.toggle) {
			compassSection(d, env, s.id, s.title, "")
			d.PageBreak()
		}
	}
	return d.Bytes()
}

func compassSection(d *Document, env *Env, id int, title, bottomLine string) {
	t := env.Graph(id)
	if t.IsEmpty() {
		d.Note(fmt.Sprintf("%s (missing or incomplete %s)", title, data.GraphFile(id)))
		d.Space(8)
		return
	}
	d.H2(title)
	d.Table(CompassPDFTable(t))
	if bottomLine != "" {
		if bl := env.Text(bottomLine); bl != "" {
			d.Space(6)
			d.Para(bl)
		}
	}
	d.Space(4)
	d.Note(dashboard.MMNote)
	d.Space(10)
}

// CompassPDFTable is the print layout of a compass dataset: fixed widths,
// two-line headers and shaded Risk/Reward and MM Score columns.
func CompassPDFTable(t *data.Table) *view.Table {
	out := view.New(
		view.Column{Header: "Name", Align: view.AlignLeft, Inches: 2.35},
		view.Column{Header: "Ticker", Align: view.AlignCenter, Inches: 0.70},
		view.Column{Header: "Close", Align: view.AlignRight, Inches: 0.75},
		view.Column{Header: "% Change", Align: view.AlignRight, Inches: 0.80},
		view.Column{Header: "Probable\nLow", Align: view.AlignRight, Inches: 0.85},
		view.Column{Header: "Probable\nHigh", Align: view.AlignRight, Inches: 0.85},
		view.Column{Header: "Risk /\nReward", Align: view.AlignRight, Inches: 0.75},
		view.Column{Header: "MM\nScore", Align: view.AlignRight, Inches: 0.70},
		view.Column{Header: "Δ MM\nScore", Align: view.AlignRight, Inches: 0.85},
	)
	for _, r := range t.Rows() {
		out.Add(
			view.Text(r.String("Ticker_name")),
			view.Text(r.String("Ticker")),
			view.Text(format.Num(r.Value("Close"), 2)),
			view.Text(format.Pct(r.Value("ret"), 2)),
			view.Text(format.Num(r.Value("pr_low"), 2)),
			view.Text(format.Num(r.Value("pr_high"), 2)),
			view.Shaded(format.Num(r.Value("rr"), 1), format.RRShade(r.Value("rr"))),
			view.Shaded(format.Int(r.Value("model_score")), format.MMShade(r.Value("model_score"))),
			view.Text(format.Int(r.Value("model_score_delta"))),
		)
	}
	return out
}

// correlationSections writes the USD and Rates correlation tables. Both
// exports must be present.
func correlationSections(d *Document, env *Env) {
	tables := make([]*data.Table, len(dashboard.Correlations))
	for i, c := range dashboard.Correlations {
		tables[i] = env.Graph(c.Graph)
		if tables[i].IsEmpty() {
			d.Note(fmt.Sprintf("%s (missing %s)", c.Title, data.GraphFile(c.Graph)))
			return
		}
	}
	for i, c := range dashboard.Correlations {
		if i > 0 {
			d.PageBreak()
		}
		d.H2(c.Title)
		d.Table(correlationPDFTable(tables[i]))
		if bl := env.Text(c.BottomLine); bl != "" {
			d.Space(6)
			d.Para(bl)
		}
		d.Space(4)
		d.Note(c.Note)
		d.Space(10)
	}
}

func correlationPDFTable(t *data.Table) *view.Table {
	var cols []string
	for _, c := range []string{"Metric", "15D", "30D", "90D"} {
		if t.Has(c) {
			cols = append(cols, c)
		}
	}
	vcols := make([]view.Column, len(cols))
	for i, c := range cols {
		if c == "Metric" {
			vcols[i] = view.Column{Header: c, Align: view.AlignLeft, Inches: 3.6}
			continue
		}
		vcols[i] = view.Column{Header: c, Align: view.AlignRight, Inches: 1.1}
	}
	out := view.New(vcols...)
	for _, r := range t.Rows() {
		cells := make([]view.Cell, len(cols))
		for i, c := range cols {
			if c == "Metric" {
				cells[i] = view.Text(r.String(c))
			} else {
				cells[i] = view.Text(format.Num(r.Value(c), 2))
			}
		}
		out.Add(cells...)
	}
	return out
}
