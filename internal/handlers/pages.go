package handlers

import (
	"bytes"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bobmcallan/markmentum-portal/internal/common"
	"github.com/bobmcallan/markmentum-portal/internal/config"
	"github.com/bobmcallan/markmentum-portal/internal/dashboard"
)

// PageHandler renders the portal templates and serves static assets. The
// page-specific handlers share one PageHandler.
type PageHandler struct {
	logger    *common.Logger
	templates *template.Template
	devMode   bool
}

var templateFuncs = template.FuncMap{
	"join":  strings.Join,
	"lower": strings.ToLower,
}

// NewPageHandler creates a new page handler that loads templates from the pages directory.
func NewPageHandler(logger *common.Logger, devMode bool) *PageHandler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	pagesDir := FindPagesDir()

	templates := template.Must(template.New("pages").Funcs(templateFuncs).ParseGlob(filepath.Join(pagesDir, "*.html")))
	template.Must(templates.ParseGlob(filepath.Join(pagesDir, "partials", "*.html")))

	return &PageHandler{
		logger:    logger,
		templates: templates,
		devMode:   devMode,
	}
}

// FindPagesDir locates the pages directory.
func FindPagesDir() string {
	dirs := []string{
		"./pages",
		"../pages",
		"../../pages",
	}

	for _, dir := range dirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			abs, _ := filepath.Abs(dir)
			return abs
		}
	}

	return "."
}

// pageData returns the fields every layout reads.
func (h *PageHandler) pageData(r *http.Request, page, title string) map[string]interface{} {
	return map[string]interface{}{
		"Page":          page,
		"Title":         title,
		"DevMode":       h.devMode,
		"MemberID":      common.MemberID(r.Context()),
		"CSRFToken":     common.CSRFToken(r.Context()),
		"PortalVersion": config.GetVersion(),
		"Disclaimer":    dashboard.Disclaimer,
	}
}

// execute renders a template into a string.
func (h *PageHandler) execute(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// render writes a template with the given status. A template failure is
// logged and answered with 500 before anything reaches the client.
func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	out, err := h.execute(name, data)
	if err != nil {
		h.logger.Error().
			Str("template", name).
			Str("correlation_id", common.CorrelationID(r.Context())).
			Str("error", err.Error()).
			Msg("failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(out))
}

// ServePage creates a handler function for serving a template without a
// view model.
func (h *PageHandler) ServePage(templateName, pageName, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !RequireMethod(w, r, http.MethodGet) {
			return
		}
		h.render(w, r, http.StatusOK, templateName, h.pageData(r, pageName, title))
	}
}

// StaticFileHandler serves static files (CSS, JS, images).
func (h *PageHandler) StaticFileHandler(w http.ResponseWriter, r *http.Request) {
	staticDir := filepath.Join(FindPagesDir(), "static")

	rel := strings.TrimPrefix(r.URL.Path, "/static/")
	fullPath := filepath.Join(staticDir, filepath.FromSlash(rel))

	absStaticDir, _ := filepath.Abs(staticDir)
	absFullPath, _ := filepath.Abs(fullPath)
	if !strings.HasPrefix(absFullPath, absStaticDir+string(filepath.Separator)) {
		http.NotFound(w, r)
		return
	}
	if info, err := os.Stat(absFullPath); err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, absFullPath)
}
