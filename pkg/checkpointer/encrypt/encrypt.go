// Package encrypt provides the pluggable encryption-at-rest strategies applied
// to serialized checkpoints.
//
// Three strategies are available:
//   - Null: identity, for checkpoints that need no confidentiality
//   - FixedKey: deterministic AES-CBC with a caller key and IV, authenticated with HMAC-SHA256
//   - Password: AEAD with a key derived per call from a password and a random salt
//
// Every non-null strategy emits standard base64 text so a checkpoint file
// stays printable regardless of which strategy wrote it.
package encrypt

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Encryption errors.
var (
	ErrInvalidKeySize      = errors.New("encrypt: key must be 16, 24, or 32 bytes")
	ErrInvalidIVSize       = errors.New("encrypt: iv must be 16 bytes")
	ErrEmptyPassword       = errors.New("encrypt: password must not be empty")
	ErrMalformedCiphertext = errors.New("encrypt: malformed ciphertext")
	ErrDecryptionFailed    = errors.New("encrypt: decryption failed - wrong key or corrupted data")
	ErrUnknownStrategy     = errors.New("encrypt: unknown strategy")
)

// Strategy names accepted by FromConfig.
const (
	StrategyNone     = "none"
	StrategyFixed    = "fixed"
	StrategyPassword = "password"
)

// Encryptor transforms serialized checkpoints to and from their stored form.
// Decrypt(Encrypt(x)) must return x for matching key material.
type Encryptor interface {
	// Name returns the strategy name.
	Name() string

	// Encrypt transforms plaintext into its stored form.
	Encrypt(plaintext []byte) ([]byte, error)

	// Decrypt reverses Encrypt. Wrong key material yields ErrDecryptionFailed.
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Null is the identity strategy.
type Null struct{}

var _ Encryptor = Null{}

// Name implements Encryptor.
func (Null) Name() string { return StrategyNone }

// Encrypt returns a copy of plaintext.
func (Null) Encrypt(plaintext []byte) ([]byte, error) {
	out := make([]byte, len(plaintext))
	copy(out, plaintext)
	return out, nil
}

// Decrypt returns a copy of ciphertext.
func (Null) Decrypt(ciphertext []byte) ([]byte, error) {
	out := make([]byte, len(ciphertext))
	copy(out, ciphertext)
	return out, nil
}

// Config selects and parameterizes a strategy.
type Config struct {
	// Strategy is one of "none" (default), "fixed", or "password".
	Strategy string

	// Key and IV are used by the fixed strategy.
	Key []byte
	IV  []byte

	// Password is used by the password strategy.
	Password []byte

	// KDF, Iterations and Cipher tune the password strategy.
	// Zero values select PasswordDefaults.
	KDF        string
	Iterations int
	Cipher     string
}

// FromConfig builds the Encryptor described by cfg.
func FromConfig(cfg Config) (Encryptor, error) {
	switch strings.ToLower(cfg.Strategy) {
	case "", StrategyNone:
		return Null{}, nil
	case StrategyFixed:
		return NewFixedKey(cfg.Key, cfg.IV)
	case StrategyPassword:
		return NewPassword(cfg.Password, PasswordOptions{
			KDF:        cfg.KDF,
			Iterations: cfg.Iterations,
			Cipher:     cfg.Cipher,
		})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, cfg.Strategy)
	}
}

// GenerateKey returns length random bytes suitable for NewFixedKey.
func GenerateKey(length int) ([]byte, error) {
	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("encrypt: generate key: %w", err)
	}
	return key, nil
}

// ZeroKey overwrites key material in memory.
func ZeroKey(key []byte) {
	for i := range key {
		key[i] = 0
	}
}

func armor(raw []byte) []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return out
}

func unarmor(text []byte) ([]byte, error) {
	trimmed := strings.TrimSpace(string(text))
	raw, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	return raw, nil
}
