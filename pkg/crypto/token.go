package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

var (
	ErrEmptyToken = errors.New("token and hash cannot be empty")
)

const (
	DefaultTokenLength = 32 // 256 bits
)

type TokenPair struct {
	Token string // value returned to client
	Hash  string // value in storage
}

func generateToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = DefaultTokenLength
	}

	bytes := make([]byte, byteLength)

	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// GenerateHashedToken returns a random URL-safe token and the SHA-256 hex
// digest that is persisted in its place.
func GenerateHashedToken(byteLength int) (*TokenPair, error) {
	token, err := generateToken(byteLength)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		Token: token,
		Hash:  HashToken(token),
	}, nil
}

// WellFormedToken reports whether token could have been produced by
// GenerateHashedToken with the given byte length.
func WellFormedToken(token string, byteLength int) bool {
	if byteLength <= 0 {
		byteLength = DefaultTokenLength
	}
	if len(token) != base64.RawURLEncoding.EncodedLen(byteLength) {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(token)
	return err == nil
}

func VerifyToken(token, storedHash string) (bool, error) {
	if token == "" || storedHash == "" {
		return false, ErrEmptyToken
	}

	tokenHash := HashToken(token)

	// Constant-time comparison to prevent timing attacks
	return subtle.ConstantTimeCompare([]byte(tokenHash), []byte(storedHash)) == 1, nil
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
