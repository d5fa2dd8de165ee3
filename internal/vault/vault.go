// Package vault seals API credentials at rest. Keys derive from a passphrase
// via Argon2id; values are sealed with ChaCha20-Poly1305.
package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

type Vault struct {
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
}

// New derives the sealing key from the passphrase. The salt is deterministic
// (SHA-256 of the passphrase) so the same passphrase yields the same key
// across restarts.
func New(passphrase string) (*Vault, error) {
	salt := sha256.Sum256([]byte(passphrase))
	key := argon2.IDKey([]byte(passphrase), salt[:16], 1, 64*1024, 4, chacha20poly1305.KeySize)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create aead: %w", err)
	}
	return &Vault{aead: aead}, nil
}

func (v *Vault) Seal(plaintext []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("generate nonce: %w", err)
	}
	return v.aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

func (v *Vault) Open(ciphertext, nonce []byte) ([]byte, error) {
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open sealed value: %w", err)
	}
	return plaintext, nil
}

// Lookup fetches a sealed value and nonce by name; a nil value means the
// secret does not exist.
type Lookup func(name string) (value, nonce []byte, err error)

const refPrefix = "secret:"

// IsRef reports whether a config value is a secret reference.
func IsRef(value string) bool {
	return strings.HasPrefix(value, refPrefix)
}

// Resolve returns the plaintext for a "secret:<name>" reference, or the value
// unchanged when it is not a reference.
func (v *Vault) Resolve(lookup Lookup, value string) (string, error) {
	if !IsRef(value) {
		return value, nil
	}
	if v == nil {
		return "", fmt.Errorf("vault not configured for reference %q", value)
	}

	name := strings.TrimPrefix(value, refPrefix)
	sealed, nonce, err := lookup(name)
	if err != nil {
		return "", fmt.Errorf("load secret %q: %w", name, err)
	}
	if sealed == nil {
		return "", fmt.Errorf("secret %q not found", name)
	}
	plaintext, err := v.Open(sealed, nonce)
	if err != nil {
		return "", fmt.Errorf("unseal secret %q: %w", name, err)
	}
	return string(plaintext), nil
}
