package mcp

import (
	"encoding/json"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/markmentum-portal/internal/common"
	"github.com/bobmcallan/markmentum-portal/internal/config"
	"github.com/bobmcallan/markmentum-portal/internal/dashboard"
	"github.com/bobmcallan/markmentum-portal/internal/report"
)

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
}

// NewHandler creates the MCP handler with the analytics tools registered.
func NewHandler(src dashboard.Source, registry *report.Registry, logger *common.Logger) *Handler {
	mcpSrv := mcpserver.NewMCPServer(
		"markmentum-portal",
		config.GetVersion(),
		mcpserver.WithToolCapabilities(true),
	)
	n := RegisterTools(mcpSrv, src, registry, logger)

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithStateLess(true),
	)

	logger.Info().Int("tools", n).Msg("MCP handler initialized")

	return &Handler{streamable: streamable, logger: logger}
}

// ServeHTTP requires an authenticated member (set by the auth gate) and
// delegates to the StreamableHTTPServer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if common.MemberID(r.Context()) == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "unauthorized",
			"error_description": "Authentication required to access MCP endpoint",
		})
		return
	}
	h.streamable.ServeHTTP(w, r)
}
