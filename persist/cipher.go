package persist

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	apperrors "github.com/jrsteele09/go-bookstore-client/internal/errors"
)

const (
	keyLength        = 32
	pbkdf2Iterations = 100000
)

// keySalt is fixed so every process derives the same key from the shared secret.
var keySalt = []byte("bookstore-client-session-store")

// Cipher seals session snapshots with AES-256-GCM under a key derived from a
// shared secret.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives the key from secret with PBKDF2-SHA256.
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, fmt.Errorf("[persist NewCipher] secret is required")
	}
	key := pbkdf2.Key([]byte(secret), keySalt, pbkdf2Iterations, keyLength, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("[persist NewCipher] %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("[persist NewCipher] %w", err)
	}
	return &Cipher{aead: gcm}, nil
}

// Encrypt returns base64(nonce || ciphertext).
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("[persist Encrypt] nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any failure wraps ErrSessionCorrupt.
func (c *Cipher) Decrypt(ciphertext string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrSessionCorrupt, "decode: %v", err)
	}

	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, apperrors.Wrapf(apperrors.ErrSessionCorrupt, "ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrSessionCorrupt, "decrypt: %v", err)
	}
	return plaintext, nil
}
