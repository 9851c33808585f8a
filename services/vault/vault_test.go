package vault

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteapp/ai-broker/services"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	copy(key, "0123456789abcdef0123456789abcdef")
	return key
}

func TestNew_KeySizes(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"AES-128", 16, false},
		{"AES-192", 24, false},
		{"AES-256", 32, false},
		{"too short", 8, true},
		{"odd size", 20, true},
		{"empty", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(make([]byte, tt.size))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVault_RoundTrip(t *testing.T) {
	v, err := New(testKey(t))
	require.NoError(t, err)

	plaintexts := []string{
		"sk-1234567890abcdef",
		"a",
		strings.Repeat("x", 4096),
		"ключ с юникодом 🔑",
	}

	for _, plaintext := range plaintexts {
		ciphertext, err := v.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, ciphertext)

		decrypted, err := v.Decrypt(ciphertext)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestVault_EmptyPassthrough(t *testing.T) {
	v, err := New(testKey(t))
	require.NoError(t, err)

	ciphertext, err := v.Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", ciphertext)

	plaintext, err := v.Decrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", plaintext)
}

func TestVault_EncryptIsNonDeterministic(t *testing.T) {
	v, err := New(testKey(t))
	require.NoError(t, err)

	first, err := v.Encrypt("secret")
	require.NoError(t, err)
	second, err := v.Encrypt("secret")
	require.NoError(t, err)

	// Random nonce per call; identical plaintexts must not share ciphertext.
	assert.NotEqual(t, first, second)
}

func TestVault_DecryptMalformed(t *testing.T) {
	v, err := New(testKey(t))
	require.NoError(t, err)

	tests := []struct {
		name       string
		ciphertext string
	}{
		{"not base64", "%%%not-base64%%%"},
		{"too short", base64.StdEncoding.EncodeToString([]byte("tiny"))},
		{"garbage payload", base64.StdEncoding.EncodeToString(make([]byte, 64))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Decrypt(tt.ciphertext)
			require.Error(t, err)
			assert.True(t, services.IsCredentialError(err))
		})
	}
}

func TestVault_DecryptWithWrongKey(t *testing.T) {
	v1, err := New(testKey(t))
	require.NoError(t, err)

	otherKey := make([]byte, 32)
	copy(otherKey, "fedcba9876543210fedcba9876543210")
	v2, err := New(otherKey)
	require.NoError(t, err)

	ciphertext, err := v1.Encrypt("sk-secret")
	require.NoError(t, err)

	_, err = v2.Decrypt(ciphertext)
	require.Error(t, err)
	assert.True(t, services.IsCredentialError(err))
}

func TestNewFromBase64(t *testing.T) {
	t.Run("valid generated key", func(t *testing.T) {
		encoded, err := GenerateKey(32)
		require.NoError(t, err)

		v, err := NewFromBase64(encoded)
		require.NoError(t, err)

		ciphertext, err := v.Encrypt("payload")
		require.NoError(t, err)
		decrypted, err := v.Decrypt(ciphertext)
		require.NoError(t, err)
		assert.Equal(t, "payload", decrypted)
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := NewFromBase64("")
		assert.Error(t, err)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := NewFromBase64("!!!")
		assert.Error(t, err)
	})
}

func TestGenerateKey_InvalidSize(t *testing.T) {
	_, err := GenerateKey(17)
	assert.Error(t, err)
}
