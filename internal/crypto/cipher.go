package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
)

var (
	// ErrKeyUnavailable is returned when no valid 256-bit key was configured.
	ErrKeyUnavailable = errors.New("encryption key missing or not 32 bytes")
	// ErrAuthenticationFailed is returned when a blob is truncated, tampered
	// with, or was produced under a different key.
	ErrAuthenticationFailed = errors.New("ciphertext authentication failed")
)

const (
	nonceSize = 12
	tagSize   = 16
)

// Cipher performs AES-256-GCM encryption of credential strings. Blobs are
// stored as base64(nonce || tag || ciphertext).
type Cipher struct {
	key []byte
}

// NewCipher builds a Cipher from a hex-encoded 256-bit key. An empty or
// malformed key yields a Cipher whose operations all fail with
// ErrKeyUnavailable rather than a construction error, so a relay without a
// key still starts and rejects only the operations that need one.
func NewCipher(hexKey string) *Cipher {
	if hexKey == "" {
		return &Cipher{}
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != 32 {
		return &Cipher{}
	}
	return &Cipher{key: key}
}

// Ready reports whether a usable key is loaded.
func (c *Cipher) Ready() bool {
	return len(c.key) == 32
}

func (c *Cipher) aead() (cipher.AEAD, error) {
	if !c.Ready() {
		return nil, ErrKeyUnavailable
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under a fresh nonce and returns the encoded blob.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	aead, err := c.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	// Seal appends the tag after the ciphertext; the stored layout keeps the
	// tag in front so it must be reordered here and in Decrypt.
	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	blob := make([]byte, 0, nonceSize+tagSize+len(ct))
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ct...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens a blob produced by Encrypt.
func (c *Cipher) Decrypt(blob string) (string, error) {
	aead, err := c.aead()
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", ErrAuthenticationFailed
	}
	if len(raw) < nonceSize+tagSize {
		return "", ErrAuthenticationFailed
	}

	nonce := raw[:nonceSize]
	tag := raw[nonceSize : nonceSize+tagSize]
	ct := raw[nonceSize+tagSize:]

	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrAuthenticationFailed
	}
	return string(plaintext), nil
}
