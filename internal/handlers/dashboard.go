package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/bobmcallan/markmentum-portal/internal/common"
	"github.com/bobmcallan/markmentum-portal/internal/dashboard"
)

// Flusher drops cached tables.
type Flusher interface {
	Invalidate() int
}

// DashboardHandler serves the data-driven pages.
type DashboardHandler struct {
	pages         *PageHandler
	logger        *common.Logger
	source        dashboard.Source
	location      *time.Location
	flusher       Flusher
	clearOnRender bool
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(pages *PageHandler, source dashboard.Source, location *time.Location, logger *common.Logger) *DashboardHandler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if location == nil {
		location = time.UTC
	}
	return &DashboardHandler{
		pages:    pages,
		logger:   logger,
		source:   source,
		location: location,
	}
}

// SetClearOnRender makes every page render start from an empty table cache.
func (h *DashboardHandler) SetClearOnRender(f Flusher) {
	h.flusher = f
	h.clearOnRender = f != nil
}

// renderContext builds the per-request render context.
func (h *DashboardHandler) renderContext(r *http.Request) *dashboard.Context {
	if h.clearOnRender {
		h.flusher.Invalidate()
	}
	rc := dashboard.NewContext(r.Context(), h.source, r.URL.Query(), h.logger)
	rc.Location = h.location
	return rc
}

func (h *DashboardHandler) serve(w http.ResponseWriter, r *http.Request, tmpl, page, title string, view interface{}) {
	data := h.pages.pageData(r, page, title)
	data["View"] = view
	h.pages.render(w, r, http.StatusOK, tmpl, data)
}

// HandleCompass serves GET / (Morning Compass).
func (h *DashboardHandler) HandleCompass(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	v := dashboard.MorningCompass(h.renderContext(r))
	h.serve(w, r, "compass.html", "compass", v.Title, v)
}

// HandleOverview serves GET /market-overview.
func (h *DashboardHandler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	v := dashboard.MarketOverview(h.renderContext(r))
	h.serve(w, r, "overview.html", "overview", v.Title, v)
}

// HandleTrends serves GET /directional-trends.
func (h *DashboardHandler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	v := dashboard.DirectionalTrends(h.renderContext(r))
	h.serve(w, r, "trends.html", "trends", v.Title, v)
}

// HandleTrendsCSV serves GET /directional-trends.csv, the filtered
// all-tickers view.
func (h *DashboardHandler) HandleTrendsCSV(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	var buf bytes.Buffer
	name, err := dashboard.WriteTrendsCSV(h.renderContext(r), &buf)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to write directional trends csv")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	setAttachment(w, "text/csv; charset=utf-8", name)
	w.Write(buf.Bytes())
}

// HandleVantage serves GET /vantage-point.
func (h *DashboardHandler) HandleVantage(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	v := dashboard.VantagePoint(h.renderContext(r))
	h.serve(w, r, "vantage.html", "vantage", v.Title, v)
}

// RenderVantage renders the printable Vantage Point document for rc. It is
// the page renderer behind the Vantage Point report module.
func (h *DashboardHandler) RenderVantage(rc *dashboard.Context) (string, error) {
	v := dashboard.VantagePoint(rc)
	return h.pages.execute("vantage_print.html", map[string]interface{}{
		"Title":      v.Title,
		"View":       v,
		"Disclaimer": dashboard.Disclaimer,
	})
}
