package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const sealedPrefix = "enc:v1:"

var ErrInvalidSecretKey = errors.New("invalid secret cipher key")

// SecretCipher seals TOTP secrets before they are written to admin_users.
type SecretCipher struct {
	aead cipher.AEAD
}

// NewSecretCipher derives an AES-256 key from passphrase.
func NewSecretCipher(passphrase string) (*SecretCipher, error) {
	passphrase = strings.TrimSpace(passphrase)
	if passphrase == "" {
		return nil, ErrInvalidSecretKey
	}
	key := sha256.Sum256([]byte(passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("create aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &SecretCipher{aead: aead}, nil
}

func (c *SecretCipher) Seal(plain string) (string, error) {
	if c == nil || c.aead == nil {
		return "", ErrInvalidSecretKey
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *SecretCipher) Open(value string) (string, error) {
	if c == nil || c.aead == nil {
		return "", ErrInvalidSecretKey
	}
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, sealedPrefix) {
		return "", fmt.Errorf("secret is not sealed")
	}

	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("decode sealed secret: %w", err)
	}
	nonceSize := c.aead.NonceSize()
	if len(payload) <= nonceSize {
		return "", fmt.Errorf("sealed secret is truncated")
	}
	plain, err := c.aead.Open(nil, payload[:nonceSize], payload[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("open sealed secret: %w", err)
	}
	return string(plain), nil
}
