package common

import (
	"context"
	"time"
)

// Member identifies the authenticated subscriber for a request.
type Member struct {
	ID              string
	SessionID       string
	AuthenticatedAt time.Time
	// Restored is true when the session was rebuilt from the signed cookie
	// rather than a fresh token exchange.
	Restored bool
}

type contextKey int

const (
	memberKey contextKey = iota
	correlationKey
	csrfKey
)

// WithMember stores the authenticated member in the request context.
func WithMember(ctx context.Context, m *Member) context.Context {
	return context.WithValue(ctx, memberKey, m)
}

// MemberFromContext returns the authenticated member, or nil if absent.
func MemberFromContext(ctx context.Context) *Member {
	m, _ := ctx.Value(memberKey).(*Member)
	return m
}

// MemberID returns the member id from context, or "" when unauthenticated.
func MemberID(ctx context.Context) string {
	if m := MemberFromContext(ctx); m != nil {
		return m.ID
	}
	return ""
}

// WithCorrelationID stores the request correlation id in the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey, id)
}

// CorrelationID returns the request correlation id, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey).(string)
	return id
}

// WithCSRFToken stores the form token issued for this request.
func WithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfKey, token)
}

// CSRFToken returns the form token for the request, or "".
func CSRFToken(ctx context.Context) string {
	t, _ := ctx.Value(csrfKey).(string)
	return t
}
