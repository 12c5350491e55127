package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ErrInvalidToken is returned for any token that does not authenticate a
// member. Callers treat every cause the same way.
var ErrInvalidToken = errors.New("invalid token")

// DefaultMemberstackURL is the Memberstack admin API base.
const DefaultMemberstackURL = "https://admin.memberstack.com"

const verifyTimeout = 10 * time.Second

// Verifier checks Memberstack session tokens.
type Verifier interface {
	Verify(ctx context.Context, token string) (memberID string, err error)
}

// MemberstackVerifier calls POST {baseURL}/members/verify-token.
type MemberstackVerifier struct {
	baseURL   string
	secretKey string
	appID     string
	client    *http.Client
	now       func() time.Time
}

// NewMemberstackVerifier creates a verifier. When appID is set the token
// audience must match it.
func NewMemberstackVerifier(baseURL, secretKey, appID string) *MemberstackVerifier {
	if baseURL == "" {
		baseURL = DefaultMemberstackURL
	}
	return &MemberstackVerifier{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		appID:     appID,
		client:    &http.Client{Timeout: verifyTimeout},
		now:       time.Now,
	}
}

// Verify returns the member id for a valid token. The call is not retried.
func (v *MemberstackVerifier) Verify(ctx context.Context, token string) (string, error) {
	if v.secretKey == "" {
		return "", fmt.Errorf("%w: memberstack secret key not configured", ErrInvalidToken)
	}
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return "", fmt.Errorf("failed to encode verify request: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/members/verify-token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("X-API-KEY", v.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: verify returned status %d", ErrInvalidToken, resp.StatusCode)
	}

	data := gjson.GetBytes(raw, "data")
	if !data.IsObject() {
		return "", fmt.Errorf("%w: response has no data", ErrInvalidToken)
	}
	if v.appID != "" && data.Get("aud").String() != v.appID {
		return "", fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	}
	if exp := data.Get("exp"); exp.Type == gjson.Number && exp.Int() < v.now().Unix() {
		return "", fmt.Errorf("%w: token expired", ErrInvalidToken)
	}
	id := strings.TrimSpace(data.Get("id").String())
	if id == "" {
		return "", fmt.Errorf("%w: no member id", ErrInvalidToken)
	}
	return id, nil
}
