// Package auth bridges the Memberstack login on the marketing site to
// portal sessions: a one-shot token exchange, a signed restore cookie and an
// in-process session store.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Cookie names.
const (
	AuthCookie    = "mr_auth"
	SessionCookie = "mr_sid"
	PendingCookie = "mr_pending"
)

// DefaultCookieTTL is the lifetime of the signed restore cookie.
const DefaultCookieTTL = 12 * time.Hour

func sign(secret, payload string) string {
	if secret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// MakeCookieValue returns "member_id|exp|sig" where sig is the unpadded
// base64url HMAC-SHA256 of "member_id|exp".
func MakeCookieValue(secret, memberID string, ttl time.Duration, now time.Time) string {
	payload := strings.TrimSpace(memberID) + "|" + strconv.FormatInt(now.Add(ttl).Unix(), 10)
	return payload + "|" + sign(secret, payload)
}

// VerifyCookieValue returns the member id of a valid cookie value, or "".
func VerifyCookieValue(secret, value string, now time.Time) string {
	if secret == "" || value == "" {
		return ""
	}
	parts := strings.Split(value, "|")
	if len(parts) != 3 {
		return ""
	}
	memberID := parts[0]
	if memberID == "" || strings.TrimSpace(memberID) != memberID {
		return ""
	}
	// Only the canonical exp form is accepted, so the signed bytes are unique.
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || strconv.FormatInt(exp, 10) != parts[1] {
		return ""
	}
	if exp < now.Unix() {
		return ""
	}
	expected := sign(secret, parts[0]+"|"+parts[1])
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return ""
	}
	return memberID
}

// SetCookie writes a cross-site cookie readable on every path.
func SetCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}

// ClearCookie expires a cookie set with SetCookie.
func ClearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}

// Mask shortens a secret for display, keeping keep characters at each end.
func Mask(s string, keep int) string {
	if len(s) <= keep*2 {
		return s
	}
	return s[:keep] + "..." + s[len(s)-keep:]
}
