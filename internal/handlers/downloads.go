package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/bobmcallan/markmentum-portal/internal/common"
	"github.com/bobmcallan/markmentum-portal/internal/dashboard"
)

// DownloadsHandler serves the export catalog and its files.
type DownloadsHandler struct {
	pages         *PageHandler
	logger        *common.Logger
	dir           string
	location      *time.Location
	extraPatterns []string
}

// NewDownloadsHandler creates a downloads handler over the export directory.
func NewDownloadsHandler(pages *PageHandler, dir string, location *time.Location, extraPatterns []string, logger *common.Logger) *DownloadsHandler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &DownloadsHandler{
		pages:         pages,
		logger:        logger,
		dir:           dir,
		location:      location,
		extraPatterns: extraPatterns,
	}
}

func (h *DownloadsHandler) catalog(w http.ResponseWriter) ([]dashboard.Download, bool) {
	items, err := dashboard.Downloads(h.dir, h.location, h.extraPatterns)
	if err != nil {
		h.logger.Error().Str("dir", h.dir).Err(err).Msg("failed to read downloads")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	return items, true
}

// HandleList serves GET /downloads.
func (h *DownloadsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	items, ok := h.catalog(w)
	if !ok {
		return
	}
	data := h.pages.pageData(r, "downloads", "Downloads")
	data["Items"] = items
	data["Available"] = dashboard.AnyAvailable(items)
	data["ZipName"] = dashboard.ZipName
	h.pages.render(w, r, http.StatusOK, "downloads.html", data)
}

// HandleFile serves GET /downloads/file?name= for one catalog file.
func (h *DownloadsHandler) HandleFile(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	items, ok := h.catalog(w)
	if !ok {
		return
	}
	d, found := dashboard.Lookup(items, r.URL.Query().Get("name"))
	if !found {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(d.Path)
	if err != nil {
		h.logger.Warn().Str("file", d.File).Err(err).Msg("download unavailable")
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	setAttachment(w, "text/csv; charset=utf-8", d.OutName)
	fi, err := f.Stat()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, d.OutName, fi.ModTime(), f)
}

// HandleZip serves GET /downloads/all.zip with every available export.
func (h *DownloadsHandler) HandleZip(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	items, ok := h.catalog(w)
	if !ok {
		return
	}
	if !dashboard.AnyAvailable(items) {
		http.NotFound(w, r)
		return
	}
	setAttachment(w, "application/zip", dashboard.ZipName)
	if err := dashboard.WriteZip(w, items); err != nil {
		// Headers are gone; the truncated archive is all we can signal.
		h.logger.Error().Err(err).Msg("failed to stream downloads zip")
	}
}
