package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/markmentum-portal/internal/auth"
	"github.com/bobmcallan/markmentum-portal/internal/common"
	"github.com/bobmcallan/markmentum-portal/internal/config"
	"github.com/bobmcallan/markmentum-portal/internal/data"
	"github.com/bobmcallan/markmentum-portal/internal/handlers"
	"github.com/bobmcallan/markmentum-portal/internal/mcp"
	"github.com/bobmcallan/markmentum-portal/internal/metrics"
	"github.com/bobmcallan/markmentum-portal/internal/report"
)

// sweepSchedule runs the TTL sweeps of the in-memory stores.
const sweepSchedule = "@every 1m"

// App holds all application components and dependencies.
type App struct {
	Config   *config.Config
	Logger   *common.Logger
	Location *time.Location

	Store    *data.Store
	Metrics  *metrics.Metrics
	Sessions *auth.SessionStore
	Pending  auth.PendingStore
	Gate     *auth.Gate
	Registry *report.Registry

	// HTTP handlers
	PageHandler         *handlers.PageHandler
	HealthHandler       *handlers.HealthHandler
	VersionHandler      *handlers.VersionHandler
	DashboardHandler    *handlers.DashboardHandler
	DownloadsHandler    *handlers.DownloadsHandler
	ResearchPackHandler *handlers.ResearchPackHandler
	AccountHandler      *handlers.AccountHandler
	MCPHandler          *mcp.Handler

	watcher *data.Watcher
	cron    *cron.Cron

	mu     sync.Mutex
	sweeps map[string]func() int
}

// New initializes the application with all dependencies.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	a := &App{
		Config: cfg,
		Logger: logger,
		sweeps: make(map[string]func() int),
	}

	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.IsDevMode() {
		logger.Warn().Msg("RUNNING IN DEV MODE - do not use in production")
	} else if env != "prod" && env != "" {
		logger.Warn().
			Str("environment", cfg.Environment).
			Msg("unrecognized environment value, defaulting to prod behavior")
	}

	loc, err := time.LoadLocation(cfg.Downloads.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Downloads.Timezone, err)
	}
	a.Location = loc

	a.Metrics = metrics.New()

	if err := a.initStore(); err != nil {
		return nil, err
	}
	if err := a.initAuth(); err != nil {
		return nil, err
	}
	a.initHandlers()
	if err := a.initSchedule(); err != nil {
		a.Close()
		return nil, err
	}

	logger.Info().
		Str("data_dir", cfg.Data.Dir).
		Str("export_dir", cfg.ExportDir()).
		Str("pending_store", cfg.Auth.PendingStore).
		Msg("application initialization complete")

	return a, nil
}

func (a *App) initStore() error {
	store, err := data.NewStore(a.Config.Data.Dir,
		data.WithLogger(a.Logger),
		// Schema violations fail loudly in dev.
		data.WithStrict(a.Config.Data.Strict || a.Config.IsDevMode()),
		data.WithMaxEntries(a.Config.Cache.MaxEntries),
		data.WithObserver(a.Metrics),
	)
	if err != nil {
		return fmt.Errorf("failed to open data store: %w", err)
	}
	a.Store = store
	a.Metrics.RegisterCache(store.Stats)

	if _, err := os.Stat(a.Config.Data.Dir); err != nil {
		a.Logger.Warn().Str("dir", a.Config.Data.Dir).Err(err).Msg("data directory not available; pages will show empty states")
	}
	return nil
}

func (a *App) initAuth() error {
	cfg := a.Config.Auth

	secret := cfg.CookieSecret
	if secret == "" {
		if !a.Config.IsDevMode() {
			return fmt.Errorf("auth.cookie_secret is required")
		}
		secret = strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
		a.Logger.Warn().Msg("MR_AUTH_COOKIE_SECRET not set; using an ephemeral secret, cookies will not survive restarts")
	}

	a.Sessions = auth.NewSessionStore(cfg.GetSessionTTL())
	a.AddSweep("sessions", a.Sessions.Cleanup)

	switch cfg.PendingStore {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rs, err := auth.DialRedisPendingStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("failed to connect pending store: %w", err)
		}
		a.Pending = rs
	default:
		ms := auth.NewMemoryPendingStore()
		a.AddSweep("pending", ms.Cleanup)
		a.Pending = ms
	}

	verifier := auth.NewMemberstackVerifier(cfg.MemberstackURL, cfg.MemberstackSecretKey, cfg.MemberstackAppID)
	a.Gate = auth.NewGate(auth.GateConfig{
		CookieSecret: secret,
		CookieTTL:    cfg.GetCookieTTL(),
		HomeURL:      cfg.HomeURL,
	}, a.Sessions, a.Pending, verifier, a.Logger)
	a.Gate.SetObserver(a.Metrics)
	return nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	cfg := a.Config

	a.PageHandler = handlers.NewPageHandler(a.Logger, cfg.IsDevMode())
	a.HealthHandler = handlers.NewHealthHandler(a.Logger, a.dataReady)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)

	a.DashboardHandler = handlers.NewDashboardHandler(a.PageHandler, a.Store, a.Location, a.Logger)
	if cfg.Cache.ClearOnRender {
		a.DashboardHandler.SetClearOnRender(a.Store)
	}

	a.DownloadsHandler = handlers.NewDownloadsHandler(a.PageHandler, cfg.ExportDir(), a.Location, cfg.Downloads.ExtraPatterns, a.Logger)

	// Without a browser the Vantage Point module is listed but skipped.
	var printer report.Printer
	var render report.PageRenderer
	if cfg.Report.BrowserURL != "" {
		printer = report.NewBrowserPrinter(cfg.Report.BrowserURL, 60*time.Second)
		render = a.DashboardHandler.RenderVantage
	}
	a.Registry = report.NewRegistry(a.Logger, report.DefaultModules(printer, render)...)
	a.Registry.SetObserver(a.Metrics)

	a.ResearchPackHandler = handlers.NewResearchPackHandler(a.DashboardHandler, a.Registry, cfg.Data.AssetsDir, a.Logger)
	a.ResearchPackHandler.SetObserver(a.Metrics)

	a.AccountHandler = handlers.NewAccountHandler(a.PageHandler, a.Gate, cfg.Auth.AccountURL, a.Logger)

	a.MCPHandler = mcp.NewHandler(a.Store, a.Registry, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// initSchedule registers the cache flush and the store sweeps. Jobs run
// once Start is called.
func (a *App) initSchedule() error {
	a.cron = cron.New()

	if spec := a.Config.Cache.FlushSchedule; spec != "" {
		_, err := a.cron.AddFunc(spec, func() {
			n := a.Store.Invalidate()
			a.Logger.Info().Int("tables", n).Msg("Scheduled cache flush")
		})
		if err != nil {
			return fmt.Errorf("invalid cache.flush_schedule %q: %w", spec, err)
		}
	}

	if _, err := a.cron.AddFunc(sweepSchedule, a.sweep); err != nil {
		return fmt.Errorf("failed to schedule sweeps: %w", err)
	}
	return nil
}

// AddSweep registers a periodic cleanup. fn returns how many entries it removed.
func (a *App) AddSweep(name string, fn func() int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sweeps[name] = fn
}

func (a *App) sweep() {
	a.mu.Lock()
	jobs := make(map[string]func() int, len(a.sweeps))
	for k, v := range a.sweeps {
		jobs[k] = v
	}
	a.mu.Unlock()

	for name, fn := range jobs {
		if n := fn(); n > 0 {
			a.Logger.Debug().Str("store", name).Int("removed", n).Msg("Expired entries swept")
		}
	}
}

func (a *App) dataReady() bool {
	fi, err := os.Stat(a.Config.Data.Dir)
	return err == nil && fi.IsDir()
}

// Start launches the background jobs: the data watcher and the scheduler.
func (a *App) Start(ctx context.Context) error {
	if a.Config.Cache.Watch && a.dataReady() {
		w, err := data.NewWatcher(a.Config.Data.Dir, a.Config.Cache.GetDebounce(), a.Store, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create data watcher: %w", err)
		}
		w.OnFlush(func(n int) {
			a.Logger.Info().Int("tables", n).Msg("Data changed; cache flushed")
		})
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("failed to start data watcher: %w", err)
		}
		a.watcher = w
	}
	a.cron.Start()
	return nil
}

// Close closes all application resources.
func (a *App) Close() error {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to stop data watcher")
		}
		a.watcher = nil
	}
	if c, ok := a.Pending.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
