package oidc

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const randomEntropyByteCount = 32

var errInvalidState = errors.New("invalid flow state")

// flowClaims is the signed state carried in a cookie between Start and Exchange.
type flowClaims struct {
	jwt.RegisteredClaims
	State        string `json:"st"`
	Nonce        string `json:"nonce"`
	CodeVerifier string `json:"cv"`
}

func encodeState(secret []byte, claims flowClaims, ttl time.Duration, now time.Time) (string, error) {
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign flow state: %w", err)
	}
	return signed, nil
}

func decodeState(secret []byte, raw string, now time.Time) (*flowClaims, error) {
	claims := &flowClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidState, err)
	}
	if !token.Valid || claims.State == "" || claims.Nonce == "" || claims.CodeVerifier == "" {
		return nil, errInvalidState
	}
	return claims, nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func pkceChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
