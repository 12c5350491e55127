package auth

import (
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/markmentum-portal/internal/common"
)

// DefaultHomeURL is where unauthenticated visitors are sent.
const DefaultHomeURL = "https://www.markmentumresearch.com"

// TokenParam is the query parameter the marketing site appends after login.
const TokenParam = "ms_session"

// Outcomes reported to a GateObserver.
const (
	OutcomeSession  = "session"
	OutcomeExchange = "exchange"
	OutcomeRestore  = "restore"
	OutcomeStash    = "stash"
	OutcomeRejected = "rejected"
	OutcomeDenied   = "denied"
)

// GateObserver receives one outcome per gated request.
type GateObserver interface {
	ObserveAuth(outcome string)
}

// GateConfig configures the auth gate.
type GateConfig struct {
	CookieSecret string
	CookieTTL    time.Duration
	HomeURL      string
}

// Gate guards pages. A request passes with a live server session, a
// redeemed token exchange or a valid mr_auth cookie; anything else is
// redirected to the home URL.
type Gate struct {
	cfg      GateConfig
	sessions *SessionStore
	pending  PendingStore
	verifier Verifier
	logger   *common.Logger
	observer GateObserver
	now      func() time.Time
}

// NewGate creates a gate.
func NewGate(cfg GateConfig, sessions *SessionStore, pending PendingStore, verifier Verifier, logger *common.Logger) *Gate {
	if cfg.CookieTTL <= 0 {
		cfg.CookieTTL = DefaultCookieTTL
	}
	if cfg.HomeURL == "" {
		cfg.HomeURL = DefaultHomeURL
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Gate{cfg: cfg, sessions: sessions, pending: pending, verifier: verifier, logger: logger, now: time.Now}
}

// SetObserver registers an outcome observer.
func (g *Gate) SetObserver(obs GateObserver) {
	g.observer = obs
}

func (g *Gate) observe(outcome string) {
	if g.observer != nil {
		g.observer.ObserveAuth(outcome)
	}
}

// Middleware wraps protected handlers.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := r.URL.Query().Get(TokenParam); token != "" {
			g.stash(w, r, token)
			return
		}

		if sess, ok := g.session(r); ok {
			if _, err := r.Cookie(PendingCookie); err == nil {
				g.discardPending(w, r)
			}
			g.observe(OutcomeSession)
			next.ServeHTTP(w, withSession(r, sess))
			return
		}

		if c, err := r.Cookie(PendingCookie); err == nil {
			sess, ok := g.redeem(w, r, c.Value)
			if !ok {
				g.observe(OutcomeRejected)
				http.Redirect(w, r, g.cfg.HomeURL, http.StatusSeeOther)
				return
			}
			g.observe(OutcomeExchange)
			next.ServeHTTP(w, withSession(r, sess))
			return
		}

		if sess, ok := g.Restore(w, r); ok {
			g.observe(OutcomeRestore)
			next.ServeHTTP(w, withSession(r, sess))
			return
		}

		g.observe(OutcomeDenied)
		http.Redirect(w, r, g.cfg.HomeURL, http.StatusSeeOther)
	})
}

// Identify attaches the member when a session or signed cookie is present
// and otherwise passes the request through unchanged. It never redirects,
// so API handlers can answer 401 themselves.
func (g *Gate) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess, ok := g.session(r); ok {
			next.ServeHTTP(w, withSession(r, sess))
			return
		}
		if sess, ok := g.Restore(w, r); ok {
			g.observe(OutcomeRestore)
			next.ServeHTTP(w, withSession(r, sess))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// stash parks an external token under a fresh nonce and redirects to the
// same URL without the token.
func (g *Gate) stash(w http.ResponseWriter, r *http.Request, token string) {
	nonce := uuid.NewString()
	proof, err := MintProof(g.cfg.CookieSecret, nonce, g.now())
	if err == nil {
		err = g.pending.Put(r.Context(), nonce, token, PendingTTL)
	}
	if err != nil {
		g.logger.Error().Err(err).Msg("Failed to stash member token")
	} else {
		SetCookie(w, PendingCookie, proof, ProofTTL)
		g.observe(OutcomeStash)
	}
	http.Redirect(w, r, StripToken(r.URL), http.StatusSeeOther)
}

// redeem exchanges the proof cookie for a verified member session.
func (g *Gate) redeem(w http.ResponseWriter, r *http.Request, proof string) (*Session, bool) {
	ClearCookie(w, PendingCookie)
	nonce, err := ParseProof(g.cfg.CookieSecret, proof, g.now())
	if err != nil {
		g.logger.Warn().Err(err).Msg("Pending proof rejected")
		return nil, false
	}
	token, err := g.pending.Pop(r.Context(), nonce)
	if err != nil {
		g.logger.Warn().Err(err).Msg("Pending token unavailable")
		return nil, false
	}
	memberID, err := g.verifier.Verify(r.Context(), token)
	if err != nil {
		g.logger.Warn().Err(err).Msg("Member token rejected")
		return nil, false
	}

	SetCookie(w, AuthCookie, MakeCookieValue(g.cfg.CookieSecret, memberID, g.cfg.CookieTTL, g.now()), g.cfg.CookieTTL)
	sess := g.sessions.Create(memberID, false)
	SetCookie(w, SessionCookie, sess.ID, g.cfg.CookieTTL)
	g.logger.Info().Str("member_id", memberID).Msg("Member authenticated")
	return sess, true
}

func (g *Gate) discardPending(w http.ResponseWriter, r *http.Request) {
	c, _ := r.Cookie(PendingCookie)
	ClearCookie(w, PendingCookie)
	if nonce, err := ParseProof(g.cfg.CookieSecret, c.Value, g.now()); err == nil {
		_, _ = g.pending.Pop(r.Context(), nonce)
	}
}

func (g *Gate) session(r *http.Request) (*Session, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return nil, false
	}
	return g.sessions.Get(c.Value)
}

// Restore rebuilds a server session from a valid mr_auth cookie.
func (g *Gate) Restore(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	c, err := r.Cookie(AuthCookie)
	if err != nil {
		return nil, false
	}
	memberID := VerifyCookieValue(g.cfg.CookieSecret, c.Value, g.now())
	if memberID == "" {
		return nil, false
	}
	sess := g.sessions.Create(memberID, true)
	SetCookie(w, SessionCookie, sess.ID, g.cfg.CookieTTL)
	g.logger.Debug().Str("member_id", memberID).Msg("Session restored from cookie")
	return sess, true
}

// Logout ends the server session and clears both auth cookies.
func (g *Gate) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		g.sessions.Delete(c.Value)
	}
	ClearCookie(w, AuthCookie)
	ClearCookie(w, SessionCookie)
}

// Inspection is the auth state shown on the debug page.
type Inspection struct {
	CookieName    string
	CookiePresent bool
	MaskedCookie  string
	// VerifiedMember is the member id the cookie verifies to, or "".
	VerifiedMember string
	Session        *Session
}

// Inspect reports the auth state of r without changing it.
func (g *Gate) Inspect(r *http.Request) Inspection {
	in := Inspection{CookieName: AuthCookie}
	if c, err := r.Cookie(AuthCookie); err == nil && c.Value != "" {
		in.CookiePresent = true
		in.MaskedCookie = Mask(c.Value, 10)
		in.VerifiedMember = VerifyCookieValue(g.cfg.CookieSecret, c.Value, g.now())
	}
	if sess, ok := g.session(r); ok {
		in.Session = sess
	}
	return in
}

// StripToken returns u as a request URI without the ms_session parameter.
func StripToken(u *url.URL) string {
	q := u.Query()
	q.Del(TokenParam)
	out := url.URL{Path: u.Path, RawQuery: q.Encode()}
	if out.Path == "" {
		out.Path = "/"
	}
	return out.String()
}

func withSession(r *http.Request, sess *Session) *http.Request {
	m := &common.Member{
		ID:              sess.MemberID,
		SessionID:       sess.ID,
		AuthenticatedAt: sess.AuthenticatedAt,
		Restored:        sess.Restored(),
	}
	return r.WithContext(common.WithMember(r.Context(), m))
}

