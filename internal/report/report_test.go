package report

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/bobmcallan/markmentum-portal/internal/dashboard"
	"github.com/bobmcallan/markmentum-portal/internal/data"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func newEnv(t *testing.T, dir string) *Env {
	t.Helper()
	store, err := data.NewStore(dir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return &Env{Context: dashboard.NewContext(context.Background(), store, nil, nil)}
}

func pages(t *testing.T, doc []byte) int {
	t.Helper()
	n, err := PageCount(doc)
	if err != nil {
		t.Fatalf("failed to count pages: %v", err)
	}
	return n
}

const compassDaily = `Date,Ticker,Ticker_name,Close,daily_Return,day_pr_low,day_pr_high,day_rr_ratio,model_score,model_score_delta
2026-01-23,SPX,S&P 500,6000.5,0.0123,5950,6050,1.5,120,3
2026-01-23,XLE,Energy Select,90.1,-0.02,88,92,-2.4,-40,-5
`

const trendsCSV = `Date,Ticker,Ticker_name,Category,st_trend,mt_trend,lt_trend,st_trend_change,mt_trend_change,lt_trend_change
2026-01-23,SPX,S&P 500,Indices,0.01,0.02,0.03,0.001,0.002,0.0004
2026-01-23,XOM,Exxon Mobil,Energy,0.01,0.01,0.01,0.001,0.002,0.0
`

func macroOnly(tfs ...string) Options {
	return Options{Timeframes: tfs, Include: map[string]bool{"macro": true}}
}

func TestConfigureDefaults(t *testing.T) {
	opts := NewMorningCompass().Configure(nil)
	if !slices.Equal(opts.Timeframes, []string{"Daily"}) {
		t.Errorf("expected Daily, got %v", opts.Timeframes)
	}
	for _, name := range []string{"macro", "correlations", "pct", "mm", "delta"} {
		if !opts.On(name) {
			t.Errorf("expected %s on by default", name)
		}
	}

	heat := NewPerformanceHeatmap().Configure(url.Values{})
	if heat.Timeframes != nil {
		t.Errorf("expected no timeframes, got %v", heat.Timeframes)
	}
	if !heat.On("macro") {
		t.Error("expected macro on")
	}
	if heat.On("heatmap") {
		t.Error("expected heatmap off")
	}
}

func TestConfigureSubmitted(t *testing.T) {
	m := NewMorningCompass()
	tests := []struct {
		name     string
		form     url.Values
		wantTF   []string
		wantCorr bool
		wantPct  bool
	}{
		{
			name:   "nothing checked falls back to daily",
			form:   url.Values{"morning_compass.set": {"1"}},
			wantTF: []string{"Daily"},
		},
		{
			name: "daily dropped forces correlations off",
			form: url.Values{
				"morning_compass.set":          {"1"},
				"morning_compass.tf":           {"Monthly", "Weekly"},
				"morning_compass.correlations": {"on"},
				"morning_compass.pct":          {"on"},
			},
			wantTF:  []string{"Weekly", "Monthly"},
			wantPct: true,
		},
		{
			name: "daily is always first",
			form: url.Values{
				"morning_compass.set":          {"1"},
				"morning_compass.tf":           {"Weekly", "Daily", "Bogus"},
				"morning_compass.correlations": {"on"},
			},
			wantTF:   []string{"Daily", "Weekly"},
			wantCorr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := m.Configure(tt.form)
			if !slices.Equal(opts.Timeframes, tt.wantTF) {
				t.Errorf("timeframes = %v, want %v", opts.Timeframes, tt.wantTF)
			}
			if got := opts.On("correlations"); got != tt.wantCorr {
				t.Errorf("correlations = %v, want %v", got, tt.wantCorr)
			}
			if got := opts.On("pct"); got != tt.wantPct {
				t.Errorf("pct = %v, want %v", got, tt.wantPct)
			}
		})
	}
}

func TestRegistrySelected(t *testing.T) {
	r := NewRegistry(nil, DefaultModules(nil, nil)...)
	if got := r.Selected(nil); !slices.Equal(got, []string{"morning_compass"}) {
		t.Errorf("expected default selection, got %v", got)
	}
	if got := r.Selected(url.Values{"submitted": {"1"}}); len(got) != 0 {
		t.Errorf("expected empty selection, got %v", got)
	}
	got := r.Selected(url.Values{"submitted": {"1"}, "module": {"directional_trends", "unknown", "morning_compass"}})
	if !slices.Equal(got, []string{"morning_compass", "directional_trends"}) {
		t.Errorf("expected registry order, got %v", got)
	}
}

func TestPreview(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "qry_graph_data_73.csv", compassDaily)
	env := newEnv(t, dir)

	got := NewMorningCompass().Preview(env.Context, Options{Timeframes: []string{"Daily", "Weekly"}})
	if want := "Preview: Morning Compass – Daily: 1/23/2026 | Weekly: (date not found)"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if got := NewDirectionalTrends().Preview(env.Context, Options{}); got != "" {
		t.Errorf("expected no preview without data, got %q", got)
	}
	writeFile(t, dir, "qry_graph_data_88.csv", trendsCSV)
	env = newEnv(t, dir)
	if got := NewDirectionalTrends().Preview(env.Context, Options{}); got != "Preview: Directional Trends – 1/23/2026" {
		t.Errorf("unexpected preview %q", got)
	}
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "qry_graph_data_73.csv", compassDaily)
	writeFile(t, dir, "qry_graph_data_88.csv", trendsCSV)
	env := newEnv(t, dir)

	r := NewRegistry(nil, DefaultModules(nil, nil)...)
	pack, err := r.Generate(env,
		[]string{"vantage_point", "directional_trends", "morning_compass"},
		map[string]Options{"morning_compass": macroOnly("Daily")})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if pack.Filename != "Markmentum Research Pack - 1-23-2026.pdf" {
		t.Errorf("unexpected filename %q", pack.Filename)
	}
	if want := []string{"markmentum_morning_compass_daily_1-23-2026", "directional_trends"}; !slices.Equal(pack.Stubs, want) {
		t.Errorf("stubs = %v, want %v", pack.Stubs, want)
	}
	if !slices.Equal(pack.Skipped, []string{"vantage_point"}) {
		t.Errorf("skipped = %v", pack.Skipped)
	}
	if n := pages(t, pack.PDF); n != 3 {
		t.Errorf("expected cover, compass and trends pages, got %d", n)
	}
}

func TestGenerateMultipleTimeframes(t *testing.T) {
	dir := t.TempDir()
	for _, tf := range dashboard.CompassTimeframes {
		writeFile(t, dir, data.GraphFile(tf.Main), compassDaily)
	}
	env := newEnv(t, dir)

	m := NewMorningCompass()
	blobs, stub, err := m.Build(env, macroOnly("Daily", "Weekly", "Monthly"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(blobs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(blobs))
	}
	if stub != "markmentum_morning_compass_daily-weekly-monthly_1-23-2026" {
		t.Errorf("unexpected stub %q", stub)
	}

	merged, err := Merge(blobs)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if n := pages(t, merged); n != 3 {
		t.Errorf("expected 3 pages, got %d", n)
	}
}

func TestBuildDropsEmptyTimeframes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "qry_graph_data_73.csv", compassDaily)
	env := newEnv(t, dir)

	blobs, _, err := NewMorningCompass().Build(env, macroOnly("Daily", "Weekly", "Monthly"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(blobs) != 1 {
		t.Errorf("expected only the Daily document, got %d", len(blobs))
	}

	blobs, _, err = NewMarketOverview().Build(env, Options{Timeframes: []string{"Daily", "Weekly"}, Include: map[string]bool{"top_cards": true}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(blobs) != 0 {
		t.Errorf("expected no overview documents, got %d", len(blobs))
	}
}

func TestGenerateNothing(t *testing.T) {
	env := newEnv(t, t.TempDir())
	r := NewRegistry(nil, DefaultModules(nil, nil)...)

	if _, err := r.Generate(env, nil, nil); !errors.Is(err, ErrNoModules) {
		t.Errorf("expected ErrNoModules, got %v", err)
	}
	if _, err := r.Generate(env, []string{"vantage_point"}, nil); !errors.Is(err, ErrNothingGenerated) {
		t.Errorf("expected ErrNothingGenerated, got %v", err)
	}
}

func TestGenerateAllModulesWithoutData(t *testing.T) {
	env := newEnv(t, t.TempDir())
	r := NewRegistry(nil, DefaultModules(nil, nil)...)

	var all []string
	for _, m := range r.Modules() {
		all = append(all, m.Key())
	}
	pack, err := r.Generate(env, all, nil)
	if !errors.Is(err, ErrNothingGenerated) {
		t.Fatalf("expected ErrNothingGenerated, got %v", err)
	}
	if pack != nil {
		t.Error("expected no pack")
	}
}

func TestGenerateSkipsModulesWithoutData(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "qry_graph_data_88.csv", trendsCSV)
	env := newEnv(t, dir)

	trends, _, err := NewDirectionalTrends().Build(env, Options{})
	if err != nil || len(trends) != 1 {
		t.Fatalf("expected one trends document, got %d (%v)", len(trends), err)
	}

	// Five selected, four without data.
	r := NewRegistry(nil, DefaultModules(nil, nil)...)
	selected := []string{"market_overview", "performance_heatmap", "sharpe_rank_heatmap", "markmentum_heatmap", "directional_trends"}
	pack, err := r.Generate(env, selected, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !slices.Equal(pack.Stubs, []string{"directional_trends"}) {
		t.Errorf("stubs = %v", pack.Stubs)
	}
	if len(pack.Skipped) != 4 {
		t.Errorf("expected 4 skipped modules, got %v", pack.Skipped)
	}
	if got, want := pages(t, pack.PDF), 1+pages(t, trends[0]); got != want {
		t.Errorf("expected cover plus trends (%d pages), got %d", want, got)
	}
}

func TestModulesWithoutDataContributeNothing(t *testing.T) {
	env := newEnv(t, t.TempDir())
	for _, m := range DefaultModules(nil, nil) {
		t.Run(m.Key(), func(t *testing.T) {
			blobs, _, err := m.Build(env, m.Configure(nil))
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if len(blobs) != 0 {
				t.Errorf("expected no documents, got %d", len(blobs))
			}
		})
	}
}

type panicModule struct{ base }

func (panicModule) Preview(*dashboard.Context, Options) string { return "" }
func (panicModule) Build(*Env, Options) ([][]byte, string, error) {
	panic("boom")
}

type failModule struct{ base }

func (failModule) Preview(*dashboard.Context, Options) string { return "" }
func (failModule) Build(*Env, Options) ([][]byte, string, error) {
	return nil, "", errors.New("no luck")
}

type recordingObserver struct {
	modules []string
	errs    int
}

func (o *recordingObserver) ObserveBuild(module string, _ int, _ time.Duration, err error) {
	o.modules = append(o.modules, module)
	if err != nil {
		o.errs++
	}
}

func TestGenerateSkipsFailingModules(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "qry_graph_data_88.csv", trendsCSV)
	env := newEnv(t, dir)

	obs := &recordingObserver{}
	r := NewRegistry(nil,
		panicModule{base{key: "panics"}},
		failModule{base{key: "fails"}},
		NewDirectionalTrends(),
	)
	r.SetObserver(obs)

	pack, err := r.Generate(env, []string{"panics", "fails", "directional_trends"}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !slices.Equal(pack.Skipped, []string{"panics", "fails"}) {
		t.Errorf("skipped = %v", pack.Skipped)
	}
	if !slices.Equal(pack.Stubs, []string{"directional_trends"}) {
		t.Errorf("stubs = %v", pack.Stubs)
	}
	if pack.Filename != "Markmentum Research Pack - report.pdf" {
		t.Errorf("expected fallback filename without a compass date, got %q", pack.Filename)
	}
	if !slices.Equal(obs.modules, []string{"panics", "fails", "directional_trends"}) {
		t.Errorf("observed = %v", obs.modules)
	}
	if obs.errs != 2 {
		t.Errorf("expected 2 errors observed, got %d", obs.errs)
	}
}

func TestSharpeRanksDerivesDailyChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "qry_graph_data_48.csv", `Date,Ticker,Ticker_name,Category,Sharpe_Rank,previous_Sharpe_Rank
2026-01-22,SPX,S&P 500,Indices,50,40
2026-01-23,SPX,S&P 500,Indices,55,50
2026-01-23,XLE,Energy Select,Sector & Style ETFs,80,
`)
	writeFile(t, dir, "qry_graph_data_49.csv", "Ticker,Sharpe_Rank_wtd_change\nSPX,7\n")
	env := newEnv(t, dir)

	ranks := SharpeRanks(env.Context)
	if ranks.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", ranks.Len())
	}
	spx := ranks.Only("Ticker", []string{"SPX"}).Row(0)
	if got := spx.FloatOr(sharpeDailyDelta); got != 5.0 {
		t.Errorf("expected derived daily change 5, got %v", got)
	}
	if got := spx.FloatOr("Sharpe_Rank_wtd_change"); got != 7.0 {
		t.Errorf("expected wtd change 7, got %v", got)
	}
	xle := ranks.Only("Ticker", []string{"XLE"}).Row(0)
	if v := xle.Value(sharpeDailyDelta); v != nil {
		t.Errorf("expected missing daily change, got %v", v)
	}
	if v := xle.Value("Sharpe_Rank_wtd_change"); v != nil {
		t.Errorf("expected missing wtd change, got %v", v)
	}
}

func TestModelScoresJoinsPeriods(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "model_score_day_change.csv", `Date,Ticker,Ticker_name,Category,current_model_score,model_score_daily_change
2026-01-23,XOM,Exxon Mobil,Energy,40,2
2026-01-23,SPX,S&P 500,Indices,120,-3
2026-01-23,XLE,Energy Select,Sector & Style ETFs,-30,1
2026-01-23,ZZZ,Unknown,Misc,5,0
`)
	writeFile(t, dir, "model_score_wtd_change.csv", "Ticker,previous_score_change,model_score_wtd_change\nSPX,1,-12\n")
	env := newEnv(t, dir)

	scores := ModelScores(env.Context)
	if got := scores.Column("Ticker"); !slices.Equal(got, []string{"XLE", "SPX", "XOM", "ZZZ"}) {
		t.Errorf("unexpected order %v", got)
	}
	spx := scores.Only("Ticker", []string{"SPX"}).Row(0)
	for col, want := range map[string]float64{"Score": 120, "Daily_Change": -3, "WTD": -12} {
		if got := spx.FloatOr(col); got != want {
			t.Errorf("%s = %v, want %v", col, got, want)
		}
	}
	if scores.Has("MTD") {
		t.Error("expected no MTD column without its export")
	}
}

func TestTrendsPDFTable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "qry_graph_data_88.csv", trendsCSV)
	env := newEnv(t, dir)

	tbl := TrendsPDFTable(env.Graph(dashboard.TrendsGraph))
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Len())
	}
	if got := tbl.Rows[0][2].Text; got != "1.0%" {
		t.Errorf("expected 1.0%%, got %s", got)
	}
	if tbl.Rows[0][2].BG.IsTransparent() {
		t.Error("expected a shaded trend cell")
	}
	if got := tbl.Rows[1][7].Text; got != "0.0%" {
		t.Errorf("expected 0.0%%, got %s", got)
	}
	if !tbl.Rows[1][7].BG.IsTransparent() {
		t.Error("expected zero change to be unshaded")
	}
	if tbl.Columns[0].Inches != 2.6 {
		t.Errorf("unexpected name width %v", tbl.Columns[0].Inches)
	}
}

func TestCompassPDFTable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "qry_graph_data_73.csv", compassDaily)
	env := newEnv(t, dir)

	tbl := CompassPDFTable(env.Graph(73))
	if tbl.Columns[6].Header != "Risk /\nReward" {
		t.Errorf("unexpected header %q", tbl.Columns[6].Header)
	}
	if got := tbl.Rows[1][6].Text; got != "-2.4" {
		t.Errorf("expected -2.4, got %s", got)
	}
	if tbl.Rows[1][6].BG.IsTransparent() {
		t.Error("expected shaded risk/reward")
	}
	if got := tbl.Rows[0][7].Text; got != "120" {
		t.Errorf("expected 120, got %s", got)
	}
	if got := tbl.Rows[0][1].Text; got != "SPX" {
		t.Errorf("expected SPX, got %s", got)
	}
}

func TestFilename(t *testing.T) {
	if got := Filename("1/5/2026"); got != "Markmentum Research Pack - 1-5-2026.pdf" {
		t.Errorf("unexpected filename %q", got)
	}
	if got := Filename(""); got != "Markmentum Research Pack - report.pdf" {
		t.Errorf("unexpected fallback %q", got)
	}
}
