package common

import (
	"context"
	"testing"
)

func TestMemberContext_RoundTrip(t *testing.T) {
	ctx := WithMember(context.Background(), &Member{ID: "mem_123", SessionID: "sid"})

	m := MemberFromContext(ctx)
	if m == nil {
		t.Fatal("expected member in context")
	}
	if m.ID != "mem_123" {
		t.Errorf("expected mem_123, got %s", m.ID)
	}
	if MemberID(ctx) != "mem_123" {
		t.Errorf("MemberID mismatch: %s", MemberID(ctx))
	}
}

func TestMemberContext_Absent(t *testing.T) {
	if MemberFromContext(context.Background()) != nil {
		t.Error("expected nil member")
	}
	if MemberID(context.Background()) != "" {
		t.Error("expected empty member id")
	}
}

func TestCorrelationID(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "req-1")
	if CorrelationID(ctx) != "req-1" {
		t.Errorf("expected req-1, got %q", CorrelationID(ctx))
	}
	if CorrelationID(context.Background()) != "" {
		t.Error("expected empty correlation id")
	}
}

func TestCSRFToken(t *testing.T) {
	if got := CSRFToken(context.Background()); got != "" {
		t.Errorf("expected empty token, got %q", got)
	}
	ctx := WithCSRFToken(context.Background(), "tok")
	if got := CSRFToken(ctx); got != "tok" {
		t.Errorf("expected tok, got %q", got)
	}
}
