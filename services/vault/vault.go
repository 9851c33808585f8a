// Package vault encrypts provider credentials at rest. Networks store their
// API keys as vault ciphertext; adapters decrypt them immediately before
// authenticating an upstream call and never persist the plaintext.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/noteapp/ai-broker/services"
)

// Vault provides AES-GCM encryption/decryption with a process-wide key.
// The key is injected at construction so tests can supply their own.
type Vault struct {
	key []byte
}

// New creates a vault with the given key.
// The key must be 16, 24, or 32 bytes for AES-128, AES-192, or AES-256.
func New(key []byte) (*Vault, error) {
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return nil, fmt.Errorf("invalid key size: must be 16, 24, or 32 bytes, got %d", len(key))
	}
	return &Vault{key: key}, nil
}

// NewFromBase64 creates a vault from a base64-encoded key, the form the key
// takes in configuration.
func NewFromBase64(encodedKey string) (*Vault, error) {
	if encodedKey == "" {
		return nil, fmt.Errorf("vault key cannot be empty")
	}
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 vault key: %w", err)
	}
	return New(key)
}

// GenerateKey generates a random key of the given size, base64-encoded for
// storage in an environment variable.
func GenerateKey(keySize int) (string, error) {
	if keySize != 16 && keySize != 24 && keySize != 32 {
		return "", fmt.Errorf("invalid key size: must be 16, 24, or 32 bytes")
	}
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate random key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// Encrypt encrypts plaintext with AES-GCM and returns base64 ciphertext with
// the nonce prepended. Empty input passes through unchanged.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", services.NewDomainError(services.ErrorTypeCredential, "failed to create cipher", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", services.NewDomainError(services.ErrorTypeCredential, "failed to create GCM", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", services.NewDomainError(services.ErrorTypeCredential, "failed to generate nonce", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts base64 AES-GCM ciphertext produced by Encrypt. Empty input
// passes through unchanged. Malformed or tampered ciphertext yields a
// credential error that callers must propagate, never swallow.
func (v *Vault) Decrypt(ciphertextBase64 string) (string, error) {
	if ciphertextBase64 == "" {
		return "", nil
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextBase64)
	if err != nil {
		return "", services.NewDomainError(services.ErrorTypeCredential, "ciphertext is not valid base64", err)
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", services.NewDomainError(services.ErrorTypeCredential, "failed to create cipher", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", services.NewDomainError(services.ErrorTypeCredential, "failed to create GCM", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", services.NewDomainError(services.ErrorTypeCredential, "ciphertext too short", nil)
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", services.NewDomainError(services.ErrorTypeCredential, "failed to decrypt credential", err)
	}

	return string(plaintext), nil
}
