// Package report assembles the Research Pack: a cover page followed by the
// PDF fragments of each selected module, in registry order.
package report

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/bobmcallan/markmentum-portal/internal/common"
	"github.com/bobmcallan/markmentum-portal/internal/dashboard"
	"github.com/bobmcallan/markmentum-portal/internal/data"
)

// ErrNothingGenerated is returned when no selected module produced a page.
var ErrNothingGenerated = errors.New("no PDFs were generated (selected modules are placeholders or missing data)")

// ErrNoModules is returned when the selection is empty.
var ErrNoModules = errors.New("no report modules selected")

// NothingGeneratedWarning is the user-facing text for ErrNothingGenerated.
const NothingGeneratedWarning = "No PDFs were generated (selected modules are placeholders or missing data)."

// DefaultSelection is the module set checked when the form is first shown.
var DefaultSelection = []string{"morning_compass"}

// LogoFile is looked up in the assets directory for the cover page.
const LogoFile = "markmentum_logo.png"

// Options are the parsed settings of one module.
type Options struct {
	Timeframes []string
	Include    map[string]bool
}

// On reports whether the named toggle is enabled.
func (o Options) On(name string) bool {
	return o.Include[name]
}

// Toggle is a checkbox on a module's option form.
type Toggle struct {
	Name    string
	Label   string
	Default bool
	// DailyOnly toggles are forced off when Daily is not selected.
	DailyOnly bool
}

// Form describes the option controls of a module.
type Form struct {
	// Timeframes are the selectable timeframes in build order. Daily, when
	// offered, is the default and may only be dropped if another is picked.
	Timeframes []string
	Toggles    []Toggle
	Caption    string
}

// Module is one selectable section of the pack.
type Module interface {
	Key() string
	Label() string
	Form() Form
	// Configure parses the module options from submitted form values.
	Configure(form url.Values) Options
	// Preview returns the as-of line shown under the module options.
	Preview(rc *dashboard.Context, opts Options) string
	// Build returns complete PDF documents in order plus a file name stub.
	// Zero documents means the module has nothing to contribute.
	Build(env *Env, opts Options) ([][]byte, string, error)
}

// Env is what a module needs to build: the render context plus assets.
type Env struct {
	*dashboard.Context
	AssetsDir string
}

// FieldName is the form field of a module setting.
func FieldName(key, name string) string {
	return key + "." + name
}

// base implements the descriptor half of Module.
type base struct {
	key   string
	label string
	form  Form
}

func (b base) Key() string   { return b.key }
func (b base) Label() string { return b.label }
func (b base) Form() Form    { return b.form }

// Configure reads "{key}.tf" and "{key}.{toggle}" fields. A form without
// the hidden "{key}.set" field has not been submitted and yields defaults.
func (b base) Configure(form url.Values) Options {
	return configure(b.key, b.form, form)
}

func configure(key string, f Form, form url.Values) Options {
	opts := Options{Include: make(map[string]bool, len(f.Toggles))}
	submitted := form != nil && form.Has(FieldName(key, "set"))

	if len(f.Timeframes) > 0 {
		var picked []string
		if submitted {
			chosen := form[FieldName(key, "tf")]
			for _, tf := range f.Timeframes {
				if slices.Contains(chosen, tf) {
					picked = append(picked, tf)
				}
			}
		}
		if len(picked) == 0 {
			picked = []string{f.Timeframes[0]}
		}
		opts.Timeframes = picked
	}

	daily := len(f.Timeframes) == 0 || slices.Contains(opts.Timeframes, "Daily")
	for _, t := range f.Toggles {
		on := t.Default
		if submitted {
			on = truthy(form.Get(FieldName(key, t.Name)))
		}
		if t.DailyOnly && !daily {
			on = false
		}
		opts.Include[t.Name] = on
	}
	return opts
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// previewLine renders "Preview: {label} – {as-of}" or per timeframe
// "Preview: {label} – Daily: 1/2/2026 | Weekly: (date not found)".
func previewLine(label string, tfs []string, asOf func(tf string) string) string {
	if len(tfs) == 0 {
		d := asOf("")
		if d == "" {
			return ""
		}
		return "Preview: " + label + " – " + d
	}
	parts := make([]string, len(tfs))
	for i, tf := range tfs {
		d := asOf(tf)
		if d == "" {
			d = "(date not found)"
		}
		parts[i] = tf + ": " + d
	}
	return "Preview: " + label + " – " + strings.Join(parts, " | ")
}

// Observer receives one call per module build.
type Observer interface {
	ObserveBuild(module string, fragments int, elapsed time.Duration, err error)
}

// Registry holds the modules in pack order.
type Registry struct {
	modules  []Module
	logger   *common.Logger
	observer Observer
}

// NewRegistry creates a registry over modules, in the given order.
func NewRegistry(logger *common.Logger, modules ...Module) *Registry {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Registry{modules: modules, logger: logger}
}

// DefaultModules returns every module in pack order. Vantage Point yields
// nothing unless printer is set.
func DefaultModules(printer Printer, render PageRenderer) []Module {
	return []Module{
		NewMorningCompass(),
		NewMarketOverview(),
		NewPerformanceHeatmap(),
		NewSharpeRankHeatmap(),
		NewMarkmentumHeatmap(),
		NewDirectionalTrends(),
		NewVantagePoint(printer, render),
	}
}

// SetObserver registers a build observer.
func (r *Registry) SetObserver(obs Observer) {
	r.observer = obs
}

// Modules returns the modules in pack order.
func (r *Registry) Modules() []Module {
	return append([]Module(nil), r.modules...)
}

// Get returns the module with key.
func (r *Registry) Get(key string) (Module, bool) {
	for _, m := range r.modules {
		if m.Key() == key {
			return m, true
		}
	}
	return nil, false
}

// Selected returns the keys checked in form, in pack order. A form that was
// never submitted selects DefaultSelection.
func (r *Registry) Selected(form url.Values) []string {
	want := DefaultSelection
	if form != nil && form.Has("submitted") {
		want = form["module"]
	}
	var out []string
	for _, m := range r.modules {
		if slices.Contains(want, m.Key()) {
			out = append(out, m.Key())
		}
	}
	return out
}

// Pack is a generated Research Pack.
type Pack struct {
	Filename string
	PDF      []byte
	// Stubs are the file name stubs of the modules that contributed, in order.
	Stubs []string
	// Skipped lists selected modules that produced nothing or failed.
	Skipped []string
}

// Generate builds the selected modules in registry order, prepends the
// cover page and merges everything into one document. Module failures and
// panics are logged and the module is skipped.
func (r *Registry) Generate(env *Env, selected []string, opts map[string]Options) (*Pack, error) {
	if len(selected) == 0 {
		return nil, ErrNoModules
	}

	pack := &Pack{}
	var parts [][]byte
	for _, m := range r.modules {
		if !slices.Contains(selected, m.Key()) {
			continue
		}
		o, ok := opts[m.Key()]
		if !ok {
			o = m.Configure(nil)
		}
		blobs, stub, err := r.build(env, m, o)
		if err != nil || len(blobs) == 0 {
			pack.Skipped = append(pack.Skipped, m.Key())
			continue
		}
		parts = append(parts, blobs...)
		pack.Stubs = append(pack.Stubs, stub)
	}
	if len(parts) == 0 {
		return nil, ErrNothingGenerated
	}

	session, asOf := data.SessionDates(data.AsOf(env.Graph(dashboard.CompassTimeframes[0].Main)))
	logo := ""
	if env.AssetsDir != "" {
		logo = filepath.Join(env.AssetsDir, LogoFile)
	}
	cover, err := Cover(session, asOf, logo)
	if err != nil {
		return nil, fmt.Errorf("failed to build cover page: %w", err)
	}

	merged, err := Merge(append([][]byte{cover}, parts...))
	if err != nil {
		return nil, err
	}
	pack.PDF = merged
	pack.Filename = Filename(session)

	r.logger.Info().
		Strs("modules", pack.Stubs).
		Int("fragments", len(parts)).
		Int("bytes", len(merged)).
		Msg("Research pack generated")
	return pack, nil
}

// build runs one module, converting a panic into an error.
func (r *Registry) build(env *Env, m Module, o Options) (blobs [][]byte, stub string, err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("module %s panicked: %v", m.Key(), rec)
			r.logger.Error().Str("module", m.Key()).Str("stack", string(debug.Stack())).Msg("Report module panicked")
			blobs = nil
		}
		if err != nil {
			r.logger.Warn().Str("module", m.Key()).Err(err).Msg("Report module skipped")
		}
		if r.observer != nil {
			r.observer.ObserveBuild(m.Key(), len(blobs), time.Since(start), err)
		}
	}()

	blobs, stub, err = m.Build(env, o)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build %s: %w", m.Key(), err)
	}
	r.logger.Debug().Str("module", m.Key()).Int("fragments", len(blobs)).Dur("elapsed", time.Since(start)).Msg("Report module built")
	return blobs, stub, nil
}

// Filename names the pack after its trading session date.
func Filename(tradingSession string) string {
	slug := data.DateSlug(tradingSession)
	if slug == "" {
		slug = "report"
	}
	return "Markmentum Research Pack - " + slug + ".pdf"
}

// tfSlug joins timeframes for a file name stub.
func tfSlug(tfs []string) string {
	return strings.ToLower(strings.Join(tfs, "-"))
}

// dateSlug is the file name form of an as-of date, or "report".
func dateSlug(asOf string) string {
	if asOf == "" {
		return "report"
	}
	return data.DateSlug(asOf)
}
