// Package metrics exposes portal metrics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bobmcallan/markmentum-portal/internal/cache"
)

const namespace = "markmentum"

// Metrics holds the portal collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	loads        *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec
	loadRows     *prometheus.GaugeVec

	builds        *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
	packs         *prometheus.CounterVec

	auth *prometheus.CounterVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"method", "path"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "data",
			Name:      "loads_total",
			Help:      "Artifact files read from disk.",
		}, []string{"file", "status"}),
		loadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "data",
			Name:      "load_duration_seconds",
			Help:      "Time to read and parse an artifact file.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"file"}),
		loadRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "data",
			Name:      "rows",
			Help:      "Rows in the last load of each artifact file.",
		}, []string{"file"}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "module_builds_total",
			Help:      "Research Pack module builds.",
		}, []string{"module", "status"}),
		buildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "module_build_duration_seconds",
			Help:      "Duration of Research Pack module builds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}, []string{"module"}),
		packs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "packs_total",
			Help:      "Research Pack generation requests by outcome.",
		}, []string{"outcome"}),
		auth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "requests_total",
			Help:      "Gated requests by auth outcome.",
		}, []string{"outcome"}),
	}
	m.Registry.MustRegister(
		m.httpInFlight, m.httpRequests, m.httpDuration,
		m.loads, m.loadDuration, m.loadRows,
		m.builds, m.buildDuration, m.packs,
		m.auth,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// RegisterCache exports the table cache counters read from stats.
func (m *Metrics) RegisterCache(stats func() cache.Stats) {
	m.Registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "hits_total",
			Help: "Table cache hits.",
		}, func() float64 { return float64(stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "misses_total",
			Help: "Table cache misses.",
		}, func() float64 { return float64(stats().Misses) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "cache", Name: "entries",
			Help: "Tables currently cached.",
		}, func() float64 { return float64(stats().Entries) }),
	)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveLoad records one artifact read.
func (m *Metrics) ObserveLoad(file string, rows int, elapsed time.Duration, err error) {
	m.loads.WithLabelValues(file, status(err)).Inc()
	m.loadDuration.WithLabelValues(file).Observe(elapsed.Seconds())
	m.loadRows.WithLabelValues(file).Set(float64(rows))
}

// ObserveBuild records one report module build.
func (m *Metrics) ObserveBuild(module string, fragments int, elapsed time.Duration, err error) {
	st := status(err)
	if err == nil && fragments == 0 {
		st = "empty"
	}
	m.builds.WithLabelValues(module, st).Inc()
	m.buildDuration.WithLabelValues(module).Observe(elapsed.Seconds())
}

// ObservePack records a Research Pack request outcome.
func (m *Metrics) ObservePack(outcome string) {
	m.packs.WithLabelValues(outcome).Inc()
}

// ObserveAuth records one gate outcome.
func (m *Metrics) ObserveAuth(outcome string) {
	m.auth.WithLabelValues(outcome).Inc()
}

// InstrumentHandler wraps next with HTTP request metrics.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)
		m.httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// knownPaths are reported as-is; everything else collapses to keep label
// cardinality bounded.
var knownPaths = map[string]bool{
	"/": true, "/market-overview": true, "/directional-trends": true,
	"/directional-trends.csv": true, "/vantage-point": true, "/about": true,
	"/downloads": true, "/downloads/file": true, "/downloads/all.zip": true,
	"/research-pack": true, "/account": true, "/debug": true,
	"/api/health": true, "/api/version": true, "/mcp": true,
}

func canonicalPath(p string) string {
	switch {
	case knownPaths[p]:
		return p
	case strings.HasPrefix(p, "/static/"):
		return "/static"
	}
	return "other"
}
