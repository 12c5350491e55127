package handlers

import (
	"fmt"
	"net/http"

	"github.com/bobmcallan/markmentum-portal/internal/auth"
	"github.com/bobmcallan/markmentum-portal/internal/common"
)

// AccountRedirectSeconds is how long the account page waits before leaving.
const AccountRedirectSeconds = 5

// AccountHandler serves the account hand-off and the auth debug page.
type AccountHandler struct {
	pages      *PageHandler
	logger     *common.Logger
	gate       *auth.Gate
	accountURL string
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(pages *PageHandler, gate *auth.Gate, accountURL string, logger *common.Logger) *AccountHandler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &AccountHandler{
		pages:      pages,
		logger:     logger,
		gate:       gate,
		accountURL: accountURL,
	}
}

// HandleAccount serves GET /account: it ends the portal session and sends
// the member to the account site after a short pause.
func (h *AccountHandler) HandleAccount(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	h.gate.Logout(w, r)
	h.logger.Info().Str("member_id", common.MemberID(r.Context())).Msg("Member signed out for account page")

	data := h.pages.pageData(r, "account", "Account")
	data["AccountURL"] = h.accountURL
	data["Seconds"] = AccountRedirectSeconds
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Refresh", fmt.Sprintf("%d; url=%s", AccountRedirectSeconds, h.accountURL))
	h.pages.render(w, r, http.StatusOK, "account.html", data)
}

// HandleDebug serves GET /debug with the masked auth state.
func (h *AccountHandler) HandleDebug(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	data := h.pages.pageData(r, "debug", "Debug")
	data["Auth"] = h.gate.Inspect(r)
	data["Member"] = common.MemberFromContext(r.Context())
	w.Header().Set("Cache-Control", "no-store")
	h.pages.render(w, r, http.StatusOK, "debug.html", data)
}
