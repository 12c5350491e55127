package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bobmcallan/markmentum-portal/internal/common"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func memberRequest(id string) *http.Request {
	req := httptest.NewRequest("POST", "/research-pack", nil)
	return req.WithContext(common.WithMember(req.Context(), &common.Member{ID: id}))
}

func TestRateLimiter_RejectsAfterBurst(t *testing.T) {
	rl := NewRateLimiter(1, 2, nil)
	limited := 0
	rl.OnLimit(func() { limited++ })
	h := rl.Wrap(okHandler, nil)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h(w, memberRequest("mem_1"))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}

	w := httptest.NewRecorder()
	h(w, memberRequest("mem_1"))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected a Retry-After header")
	}
	if limited != 1 {
		t.Errorf("expected 1 limit callback, got %d", limited)
	}
}

func TestRateLimiter_KeysByMember(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	h := rl.Wrap(okHandler, nil)

	w := httptest.NewRecorder()
	h(w, memberRequest("mem_1"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h(w, memberRequest("mem_2"))
	if w.Code != http.StatusOK {
		t.Errorf("expected a separate bucket for mem_2, got %d", w.Code)
	}
	if n := rl.Len(); n != 2 {
		t.Errorf("expected 2 limiters, got %d", n)
	}
}

func TestRateLimiter_SkipExempts(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	h := rl.Wrap(okHandler, func(*http.Request) bool { return true })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		h(w, memberRequest("mem_1"))
		if w.Code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i, w.Code)
		}
	}
	if n := rl.Len(); n != 0 {
		t.Errorf("expected no limiters, got %d", n)
	}
}

func TestRateLimiter_DisabledWhenZero(t *testing.T) {
	rl := NewRateLimiter(0, 0, nil)
	h := rl.Wrap(okHandler, nil)

	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		h(w, memberRequest("mem_1"))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
}

func TestRateLimiter_CleanupRemovesIdle(t *testing.T) {
	rl := NewRateLimiter(6, 1, nil)
	now := time.Now()
	rl.now = func() time.Time { return now }

	rl.getLimiter("old")
	now = now.Add(limiterIdle + time.Minute)
	rl.getLimiter("fresh")

	if n := rl.Cleanup(); n != 1 {
		t.Errorf("expected 1 idle limiter removed, got %d", n)
	}
	if n := rl.Len(); n != 1 {
		t.Errorf("expected 1 limiter left, got %d", n)
	}
}
