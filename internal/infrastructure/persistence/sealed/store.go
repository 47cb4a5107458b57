// Package sealed encrypts values at rest on top of any key-value store.
package sealed

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/alchemorsel/client/internal/ports/outbound"
)

// Key derivation parameters (Argon2id)
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	keySalt      = "alchemorsel-client-storage"
)

// ErrTampered is returned when a stored value fails authentication.
var ErrTampered = errors.New("sealed store: value cannot be decrypted")

// Store seals values with XChaCha20-Poly1305. The key is bound into the
// additional data so a value cannot be replayed under another key.
type Store struct {
	next outbound.KeyValueStore
	aead interface {
		NonceSize() int
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
}

// NewStore derives the encryption key from passphrase.
func NewStore(next outbound.KeyValueStore, passphrase string) (*Store, error) {
	if passphrase == "" {
		return nil, errors.New("sealed store: passphrase is required")
	}
	key := argon2.IDKey([]byte(passphrase), []byte(keySalt), argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("sealed store: init cipher: %w", err)
	}
	return &Store{next: next, aead: aead}, nil
}

// Get decrypts a stored value
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	encoded, found, err := s.next.Get(ctx, key)
	if err != nil || !found {
		return "", found, err
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) < s.aead.NonceSize() {
		return "", false, ErrTampered
	}
	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return "", false, ErrTampered
	}
	return string(plaintext), true, nil
}

// Set encrypts and stores a value
func (s *Store) Set(ctx context.Context, key, value string) error {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("sealed store: generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return s.next.Set(ctx, key, base64.StdEncoding.EncodeToString(sealed))
}

// Delete removes a key
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.next.Delete(ctx, key)
}

// Close closes the wrapped store
func (s *Store) Close() error {
	return s.next.Close()
}

var _ outbound.KeyValueStore = (*Store)(nil)
