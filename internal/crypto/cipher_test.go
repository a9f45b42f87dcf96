package crypto

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "5b9f5c9b6f2d4e8a1c3b7a9d0e6f4a2c8b1d3f5a7c9e0b2d4f6a8c1e3b5d7f9a"

func TestCipher_RoundTrip(t *testing.T) {
	c := NewCipher(testKey)
	require.True(t, c.Ready())

	tests := []struct {
		name      string
		plaintext string
	}{
		{"simple key", "sk-abc123"},
		{"unicode", "秘密のキー"},
		{"long", strings.Repeat("x", 4096)},
		{"json", `{"k":"v"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := c.Encrypt(tt.plaintext)
			require.NoError(t, err)
			assert.NotEqual(t, tt.plaintext, blob)

			got, err := c.Decrypt(blob)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, got)
		})
	}
}

func TestCipher_FreshNoncePerEncryption(t *testing.T) {
	c := NewCipher(testKey)

	first, err := c.Encrypt("same secret")
	require.NoError(t, err)
	second, err := c.Encrypt("same secret")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestCipher_BlobLayout(t *testing.T) {
	c := NewCipher(testKey)

	blob, err := c.Encrypt("abc")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)
	// nonce(12) + tag(16) + ciphertext(len(plaintext))
	assert.Len(t, raw, 12+16+3)
}

func TestCipher_KeyUnavailable(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"not hex", "zz"},
		{"too short", "deadbeef"},
		{"wrong length", strings.Repeat("ab", 16)}, // 16 bytes, not 32
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCipher(tt.key)
			assert.False(t, c.Ready())

			_, err := c.Encrypt("x")
			assert.ErrorIs(t, err, ErrKeyUnavailable)

			_, err = c.Decrypt("AAAA")
			assert.ErrorIs(t, err, ErrKeyUnavailable)
		})
	}
}

func TestCipher_TamperedBlob(t *testing.T) {
	c := NewCipher(testKey)

	blob, err := c.Encrypt("tamper target")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)

	// Flipping any single byte must break authentication.
	for i := range raw {
		mutated := make([]byte, len(raw))
		copy(mutated, raw)
		mutated[i] ^= 0x01

		_, err := c.Decrypt(base64.StdEncoding.EncodeToString(mutated))
		assert.ErrorIs(t, err, ErrAuthenticationFailed, "byte %d", i)
	}
}

func TestCipher_ShortAndGarbageBlobs(t *testing.T) {
	c := NewCipher(testKey)

	for _, blob := range []string{"", "YWJj", "!!!not base64!!!"} {
		_, err := c.Decrypt(blob)
		assert.ErrorIs(t, err, ErrAuthenticationFailed)
	}
}

func TestCipher_WrongKey(t *testing.T) {
	c1 := NewCipher(testKey)

	otherKey := hex.EncodeToString([]byte(strings.Repeat("k", 32)))
	c2 := NewCipher(otherKey)
	require.True(t, c2.Ready())

	blob, err := c1.Encrypt("secret")
	require.NoError(t, err)

	_, err = c2.Decrypt(blob)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}
