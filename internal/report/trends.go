package report

import (
	"github.com/bobmcallan/markmentum-portal/internal/dashboard"
	"github.com/bobmcallan/markmentum-portal/internal/data"
	"github.com/bobmcallan/markmentum-portal/internal/format"
	"github.com/bobmcallan/markmentum-portal/internal/view"
)

type directionalTrends struct{ base }

// NewDirectionalTrends returns the Directional Trends module. It has no
// options and prints the macro orientation only.
func NewDirectionalTrends() Module {
	return &directionalTrends{base{
		key:   "directional_trends",
		label: "Directional Trends",
		form:  Form{Caption: "Macro Orientation only (no options)"},
	}}
}

func (m *directionalTrends) Preview(rc *dashboard.Context, _ Options) string {
	return previewLine(m.label, nil, func(string) string { return data.AsOf(rc.Graph(dashboard.TrendsGraph)) })
}

var trendColumns = []struct {
	Header string
	Col    string
	Inches float64
}{
	{"ST", "st_trend", 0.78},
	{"MT", "mt_trend", 0.78},
	{"LT", "lt_trend", 0.78},
	{"Δ ST", "st_trend_change", 0.90},
	{"Δ MT", "mt_trend_change", 0.90},
	{"Δ LT", "lt_trend_change", 0.90},
}

func (m *directionalTrends) Build(env *Env, _ Options) ([][]byte, string, error) {
	macro := env.Graph(dashboard.TrendsGraph).LatestPerTicker("Date").Only("Ticker", dashboard.MacroList)
	if macro.IsEmpty() {
		return nil, "directional_trends", nil
	}

	d := NewDocument(ContentMargins, true, dashboard.Disclaimer)
	d.H1("Directional Trends")
	d.H2("Macro Orientation")
	d.Table(TrendsPDFTable(macro))
	d.Space(8)
	d.Note(dashboard.Legend)
	return single(d, "directional_trends")
}

// TrendsPDFTable is the print layout of the trend table: every trend
// column shaded against its own robust scale.
func TrendsPDFTable(t *data.Table) *view.Table {
	cols := []view.Column{
		{Header: "Name", Align: view.AlignLeft, Inches: 2.6},
		{Header: "Ticker", Align: view.AlignCenter, Inches: 0.75},
	}
	scales := make([]float64, len(trendColumns))
	for i, c := range trendColumns {
		cols = append(cols, view.Column{Header: c.Header, Align: view.AlignRight, Inches: c.Inches})
		scales[i] = format.RobustVmax(t.Values(c.Col), 0.98, 1e-6, 1e-6)
	}
	cols = append(cols, view.Column{Header: "Tape Bias", Align: view.AlignLeft, Inches: 1.2})

	out := view.New(cols...)
	for _, r := range t.Rows() {
		cells := []view.Cell{view.Text(r.String("Ticker_name")), view.Text(r.String("Ticker"))}
		for i, c := range trendColumns {
			v := r.Value(c.Col)
			cells = append(cells, view.Shaded(format.Pct(v, 1), format.DeltaShade(v, scales[i])))
		}
		cells = append(cells, view.Text(string(dashboard.TapeBias(r))))
		out.Add(cells...)
	}
	return out
}
