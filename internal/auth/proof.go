package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ProofTTL bounds the redirect between stashing a token and redeeming it.
const ProofTTL = 2 * time.Minute

const proofIssuer = "markmentum-portal"

// MintProof signs a short-lived HS256 token whose subject is the pending
// nonce. The browser carries it in the mr_pending cookie.
func MintProof(secret, nonce string, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("cookie secret not configured")
	}
	claims := jwt.RegisteredClaims{
		Issuer:    proofIssuer,
		Subject:   nonce,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ProofTTL)),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign proof: %w", err)
	}
	return s, nil
}

// ParseProof verifies a proof token and returns its nonce.
func ParseProof(secret, token string, now time.Time) (string, error) {
	if secret == "" || token == "" {
		return "", ErrInvalidToken
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(proofIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
