package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	refreshTokenBytes = 32
	sessionIDBytes    = 18
)

// NewOpaqueToken returns byteLen random bytes as unpadded base64url.
func NewOpaqueToken(byteLen int) (string, error) {
	if byteLen <= 0 {
		return "", fmt.Errorf("invalid token size")
	}

	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

func NewRefreshToken() (string, error) {
	return NewOpaqueToken(refreshTokenBytes)
}

func NewSessionID() (string, error) {
	return NewOpaqueToken(sessionIDBytes)
}
