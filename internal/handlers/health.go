package handlers

import (
	"net/http"

	"github.com/bobmcallan/markmentum-portal/internal/common"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	logger    *common.Logger
	dataReady func() bool
}

// NewHealthHandler creates a new health handler. dataReady, when set,
// reports whether the data directory is readable.
func NewHealthHandler(logger *common.Logger, dataReady func() bool) *HealthHandler {
	return &HealthHandler{logger: logger, dataReady: dataReady}
}

// ServeHTTP handles GET /api/health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	data := "ok"
	if h.dataReady != nil && !h.dataReady() {
		data = "missing"
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"data":   data,
	})
}
