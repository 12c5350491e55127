package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeMemberstack answers verify-token with the response for the posted token.
func fakeMemberstack(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/members/verify-token" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-API-KEY") != "sk_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		resp, ok := responses[body.Token]
		if !ok {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMemberstackVerifier(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	srv := fakeMemberstack(t, map[string]string{
		"good":     `{"data":{"id":"mem_abc","type":"member","aud":"app_1","exp":1700003600}}`,
		"no-exp":   `{"data":{"id":"mem_abc","aud":"app_1"}}`,
		"expired":  `{"data":{"id":"mem_abc","aud":"app_1","exp":1699990000}}`,
		"wrongaud": `{"data":{"id":"mem_abc","aud":"app_2","exp":1700003600}}`,
		"noid":     `{"data":{"aud":"app_1","exp":1700003600}}`,
		"nodata":   `{"error":"nope"}`,
	})

	tests := []struct {
		name   string
		appID  string
		token  string
		wantID string
	}{
		{"valid", "app_1", "good", "mem_abc"},
		{"missing exp accepted", "app_1", "no-exp", "mem_abc"},
		{"audience unchecked without app id", "", "wrongaud", "mem_abc"},
		{"expired", "app_1", "expired", ""},
		{"audience mismatch", "app_1", "wrongaud", ""},
		{"no member id", "app_1", "noid", ""},
		{"no data", "app_1", "nodata", ""},
		{"non-200", "app_1", "unknown", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewMemberstackVerifier(srv.URL, "sk_test", tt.appID)
			v.now = func() time.Time { return now }
			id, err := v.Verify(context.Background(), tt.token)
			if tt.wantID == "" {
				if !errors.Is(err, ErrInvalidToken) {
					t.Errorf("expected ErrInvalidToken, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tt.wantID {
				t.Errorf("expected %s, got %s", tt.wantID, id)
			}
		})
	}
}

func TestMemberstackVerifier_NoSecret(t *testing.T) {
	v := NewMemberstackVerifier("http://127.0.0.1:1", "", "")
	if _, err := v.Verify(context.Background(), "x"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestMemberstackVerifier_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	v := NewMemberstackVerifier(url, "sk_test", "")
	if _, err := v.Verify(context.Background(), "x"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestProof_RoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tok, err := MintProof(testSecret, "nonce-1", now)
	if err != nil {
		t.Fatalf("MintProof: %v", err)
	}
	nonce, err := ParseProof(testSecret, tok, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("ParseProof: %v", err)
	}
	if nonce != "nonce-1" {
		t.Errorf("expected nonce-1, got %s", nonce)
	}
}

func TestProof_Rejects(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tok, err := MintProof(testSecret, "nonce-1", now)
	if err != nil {
		t.Fatalf("MintProof: %v", err)
	}
	if _, err := ParseProof(testSecret, tok, now.Add(3*time.Minute)); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected expired proof to fail, got %v", err)
	}
	if _, err := ParseProof("other", tok, now); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected wrong secret to fail, got %v", err)
	}
	if _, err := ParseProof(testSecret, "garbage", now); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected garbage to fail, got %v", err)
	}
	if _, err := MintProof("", "n", now); err == nil {
		t.Error("expected error without secret")
	}
}
