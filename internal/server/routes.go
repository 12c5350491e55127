package server

import (
	"net/http"

	"github.com/bobmcallan/markmentum-portal/internal/handlers"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	a := s.app

	// Member pages (gated)
	mux.Handle("/", s.gated(a.DashboardHandler.HandleCompass))
	mux.Handle("/market-overview", s.gated(a.DashboardHandler.HandleOverview))
	mux.Handle("/directional-trends", s.gated(a.DashboardHandler.HandleTrends))
	mux.Handle("/directional-trends.csv", s.gated(a.DashboardHandler.HandleTrendsCSV))
	mux.Handle("/vantage-point", s.gated(a.DashboardHandler.HandleVantage))
	mux.Handle("/downloads", s.gated(a.DownloadsHandler.HandleList))
	mux.Handle("/downloads/file", s.gated(a.DownloadsHandler.HandleFile))
	mux.Handle("/downloads/all.zip", s.gated(a.DownloadsHandler.HandleZip))
	mux.Handle("/research-pack", s.gated(s.handleResearchPack))
	mux.Handle("/account", s.gated(a.AccountHandler.HandleAccount))
	mux.Handle("/debug", s.gated(a.AccountHandler.HandleDebug))

	// Public pages
	mux.Handle("/about", s.deepLinkMiddleware(http.HandlerFunc(a.PageHandler.ServePage("about.html", "about", "About"))))

	// Static files (CSS, JS, images)
	mux.HandleFunc("/static/", a.PageHandler.StaticFileHandler)

	// MCP endpoint (JSON-RPC over HTTP); the handler answers 401 itself.
	if a.MCPHandler != nil {
		mux.Handle("/mcp", a.Gate.Identify(a.MCPHandler))
	}

	// Metrics
	if a.Metrics != nil {
		mux.Handle("/metrics", a.Metrics.Handler())
	}

	// API routes
	mux.HandleFunc("/api/health", a.HealthHandler.ServeHTTP)
	mux.HandleFunc("/api/version", a.VersionHandler.ServeHTTP)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

// gated puts a page behind the auth gate. Deep links are resolved once the
// member is known so a login token is never lost to the redirect.
func (s *Server) gated(h http.HandlerFunc) http.Handler {
	return s.app.Gate.Middleware(s.deepLinkMiddleware(h))
}

// handleResearchPack serves the form and rate-limits generation. Previews
// do not count against the limit.
func (s *Server) handleResearchPack(w http.ResponseWriter, r *http.Request) {
	rp := s.app.ResearchPackHandler
	RouteResourceCollection(w, r, rp.ServeHTTP, RouteHandler(s.packLimiter.Wrap(rp.ServeHTTP, isPreview)))
}

func isPreview(r *http.Request) bool {
	return r.PostFormValue("action") == "preview"
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	handlers.WriteError(w, http.StatusNotFound, "The requested endpoint does not exist")
}
