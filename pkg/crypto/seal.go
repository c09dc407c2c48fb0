// Package crypto seals short secrets, such as provider API keys, for storage.
//
// A sealed value is a printable string: a fixed prefix followed by
// base64(salt | nonce | AES-256-GCM ciphertext). The AES key is derived from
// a passphrase with Argon2id and the per-value salt.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

const (
	// Prefix marks a sealed value and its format version.
	Prefix = "sealed:v1:"

	// Argon2id parameters (OWASP recommended)
	Argon2Time    = 3
	Argon2Memory  = 64 * 1024 // 64 MB
	Argon2Threads = 4
	Argon2KeyLen  = 32 // AES-256

	SaltSize  = 16
	NonceSize = 12 // GCM standard nonce size
)

var (
	ErrEmptySecret   = errors.New("secret must not be empty")
	ErrNotSealed     = errors.New("value is not sealed")
	ErrMalformed     = errors.New("sealed value is malformed")
	ErrDecryptFailed = errors.New("decryption failed: wrong secret or corrupted data")
)

// DeriveKey derives an AES-256 key from a passphrase using Argon2id.
func DeriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey(
		[]byte(passphrase),
		salt,
		Argon2Time,
		Argon2Memory,
		Argon2Threads,
		Argon2KeyLen,
	)
}

// Box seals and opens values with one passphrase. Derived keys are cached
// per salt, so repeated opens of the same value skip the key derivation.
// A Box is safe for concurrent use.
type Box struct {
	passphrase string

	mu   sync.Mutex
	keys map[string][]byte
}

// NewBox creates a Box for passphrase.
func NewBox(passphrase string) (*Box, error) {
	if passphrase == "" {
		return nil, ErrEmptySecret
	}
	return &Box{
		passphrase: passphrase,
		keys:       make(map[string][]byte),
	}, nil
}

func (b *Box) key(salt []byte) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if k, ok := b.keys[string(salt)]; ok {
		return k
	}
	k := DeriveKey(b.passphrase, salt)
	b.keys[string(salt)] = k
	return k
}

func (b *Box) gcm(salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(b.key(salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext and returns a printable sealed value.
func (b *Box) Seal(plaintext string) (string, error) {
	buf := make([]byte, SaltSize+NonceSize)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	salt, nonce := buf[:SaltSize], buf[SaltSize:]

	gcm, err := b.gcm(salt)
	if err != nil {
		return "", err
	}

	out := gcm.Seal(buf, nonce, []byte(plaintext), nil)
	return Prefix + base64.RawStdEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal.
func (b *Box) Open(sealed string) (string, error) {
	if !IsSealed(sealed) {
		return "", ErrNotSealed
	}

	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(sealed, Prefix))
	if err != nil || len(raw) < SaltSize+NonceSize {
		return "", ErrMalformed
	}
	salt, nonce, ciphertext := raw[:SaltSize], raw[SaltSize:SaltSize+NonceSize], raw[SaltSize+NonceSize:]

	gcm, err := b.gcm(salt)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}

// IsSealed reports whether s carries the sealed-value prefix.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, Prefix)
}
