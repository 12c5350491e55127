// Command markmentum-pack builds Research Packs from an artifact directory
// without running the portal.
package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/markmentum-portal/internal/common"
	"github.com/bobmcallan/markmentum-portal/internal/config"
	"github.com/bobmcallan/markmentum-portal/internal/dashboard"
	"github.com/bobmcallan/markmentum-portal/internal/data"
	"github.com/bobmcallan/markmentum-portal/internal/handlers"
	"github.com/bobmcallan/markmentum-portal/internal/report"
)

const appName = "markmentum-pack"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globals are the flags shared by every subcommand.
type globals struct {
	configFiles []string
	dataDir     string
	logLevel    string
}

func rootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Build Markmentum Research Packs from nightly artifacts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringArrayVarP(&g.configFiles, "config", "c", nil, "Config file path (TOML, repeatable)")
	cmd.PersistentFlags().StringVar(&g.dataDir, "data", "", "Artifact directory (overrides config)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(buildCmd(g), modulesCmd(), asOfCmd(g), versionCmd())
	return cmd
}

func buildCmd(g *globals) *cobra.Command {
	var (
		out     string
		modules []string
		tfs     []string
		options []string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate a Research Pack PDF",
		Long: `Generate a Research Pack PDF from the artifact directory.

Modules are given by key (see "modules"); the default is the Morning Compass.
--tf picks timeframes for every module that offers them, and --option sets
module toggles as key.name=value, for example morning_compass.correlations=0.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.load()
			if err != nil {
				return err
			}
			return runBuild(cmd.Context(), env, out, modules, tfs, options, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", ".", "Output file or directory")
	cmd.Flags().StringArrayVarP(&modules, "module", "m", nil, "Module key (repeatable)")
	cmd.Flags().StringArrayVar(&tfs, "tf", nil, "Timeframe (repeatable): Daily, Weekly, Monthly, Quarterly")
	cmd.Flags().StringArrayVar(&options, "option", nil, "Module toggle key.name=value (repeatable)")
	return cmd
}

func modulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List report modules in pack order",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := report.NewRegistry(nil, report.DefaultModules(nil, nil)...)
			writeModules(cmd.OutOrStdout(), registry)
			return nil
		},
	}
}

func asOfCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "asof",
		Short: "Print the as-of preview line of every module",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.load()
			if err != nil {
				return err
			}
			rc := env.context(cmd.Context())
			for _, m := range env.registry.Modules() {
				line := m.Preview(rc, m.Configure(nil))
				if line == "" {
					line = "Preview: " + m.Label() + " – (date not found)"
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s, commit: %s)\n",
				appName, config.GetVersion(), config.GetBuild(), config.GetGitCommit())
		},
	}
}

// packEnv is everything a build needs, resolved from config and flags.
type packEnv struct {
	cfg      *config.Config
	logger   *common.Logger
	store    *data.Store
	location *time.Location
	registry *report.Registry
}

func (g *globals) load() (*packEnv, error) {
	cfg, err := config.LoadFromFiles(g.configFiles...)
	if err != nil {
		return nil, err
	}
	config.ApplyFlagOverrides(cfg, 0, "", g.dataDir)

	logger := common.NewLogger(g.logLevel)

	loc, err := time.LoadLocation(cfg.Downloads.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Downloads.Timezone, err)
	}

	store, err := data.NewStore(cfg.Data.Dir,
		data.WithLogger(logger),
		data.WithStrict(cfg.Data.Strict),
		data.WithMaxEntries(cfg.Cache.MaxEntries),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open data store: %w", err)
	}

	env := &packEnv{cfg: cfg, logger: logger, store: store, location: loc}

	// Vantage Point needs the page templates and a browser.
	var printer report.Printer
	var render report.PageRenderer
	if cfg.Report.BrowserURL != "" {
		dash := handlers.NewDashboardHandler(handlers.NewPageHandler(logger, false), store, loc, logger)
		printer = report.NewBrowserPrinter(cfg.Report.BrowserURL, 60*time.Second)
		render = dash.RenderVantage
	}
	env.registry = report.NewRegistry(logger, report.DefaultModules(printer, render)...)
	return env, nil
}

func (e *packEnv) context(ctx context.Context) *dashboard.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	rc := dashboard.NewContext(ctx, e.store, nil, e.logger)
	rc.Location = e.location
	return rc
}

// packForm turns CLI selections into the values the Research Pack form
// would submit.
func packForm(registry *report.Registry, modules, tfs, options []string) (url.Values, error) {
	form := url.Values{"submitted": {"1"}}
	if len(modules) == 0 {
		modules = report.DefaultSelection
	}
	for _, key := range modules {
		m, ok := registry.Get(key)
		if !ok {
			return nil, fmt.Errorf("unknown module %q (see %s modules)", key, appName)
		}
		form.Add("module", key)
		form.Set(report.FieldName(key, "set"), "1")
		for _, tf := range tfs {
			form.Add(report.FieldName(key, "tf"), tf)
		}
		for _, tg := range m.Form().Toggles {
			if tg.Default {
				form.Set(report.FieldName(key, tg.Name), "1")
			}
		}
	}
	for _, opt := range options {
		name, value, ok := strings.Cut(opt, "=")
		key, toggle, dotted := strings.Cut(name, ".")
		if !ok || !dotted {
			return nil, fmt.Errorf("option %q must be key.name=value", opt)
		}
		m, found := registry.Get(key)
		if !found {
			return nil, fmt.Errorf("option %q: unknown module %q", opt, key)
		}
		if !hasToggle(m.Form(), toggle) {
			return nil, fmt.Errorf("option %q: %s has no option %q", opt, key, toggle)
		}
		form.Set(name, value)
	}
	return form, nil
}

func hasToggle(f report.Form, name string) bool {
	for _, tg := range f.Toggles {
		if tg.Name == name {
			return true
		}
	}
	return false
}

func runBuild(ctx context.Context, env *packEnv, out string, modules, tfs, options []string, w io.Writer) error {
	form, err := packForm(env.registry, modules, tfs, options)
	if err != nil {
		return err
	}
	selected := env.registry.Selected(form)
	opts := make(map[string]report.Options, len(selected))
	for _, key := range selected {
		m, _ := env.registry.Get(key)
		opts[key] = m.Configure(form)
	}

	pack, err := env.registry.Generate(&report.Env{Context: env.context(ctx), AssetsDir: env.cfg.Data.AssetsDir}, selected, opts)
	if err != nil {
		return err
	}

	path := out
	if fi, err := os.Stat(out); err == nil && fi.IsDir() {
		path = filepath.Join(out, pack.Filename)
	}
	if err := os.WriteFile(path, pack.PDF, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(w, "Wrote %s (%d bytes)\n", path, len(pack.PDF))
	if len(pack.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped: %s\n", strings.Join(pack.Skipped, ", "))
	}
	return nil
}

func writeModules(w io.Writer, registry *report.Registry) {
	for _, m := range registry.Modules() {
		f := m.Form()
		line := fmt.Sprintf("%-22s %s", m.Key(), m.Label())
		if len(f.Timeframes) > 0 {
			line += " [" + strings.Join(f.Timeframes, ", ") + "]"
		}
		fmt.Fprintln(w, line)
	}
}
