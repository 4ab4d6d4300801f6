package encrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

// Key derivation functions and AEAD ciphers accepted by NewPassword.
const (
	KDFPBKDF2   = "pbkdf2"
	KDFArgon2ID = "argon2id"

	CipherAESGCM   = "aes-gcm"
	CipherChaCha20 = "chacha20-poly1305"
)

const (
	// SaltLength is the random salt length stored with every ciphertext.
	SaltLength = 16

	// DefaultPBKDF2Iterations is the PBKDF2-SHA256 work factor.
	DefaultPBKDF2Iterations = 100_000

	derivedKeyLen = 32

	// Argon2id parameters for key derivation from a password.
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
)

// PasswordOptions tunes the Password strategy.
type PasswordOptions struct {
	// KDF is "pbkdf2" (default) or "argon2id".
	KDF string

	// Iterations is the PBKDF2 iteration count or the Argon2id time cost.
	Iterations int

	// Cipher is "aes-gcm" (default) or "chacha20-poly1305".
	Cipher string
}

// PasswordDefaults returns the default options.
func PasswordDefaults() PasswordOptions {
	return PasswordOptions{
		KDF:        KDFPBKDF2,
		Iterations: DefaultPBKDF2Iterations,
		Cipher:     CipherAESGCM,
	}
}

// Password derives a fresh key for every Encrypt from the password and a
// random salt, and seals the plaintext with a random nonce. The stored blob
// carries everything but the password:
//
//	base64(nonce || salt || sealed)
//
// Encrypting the same plaintext twice yields different output.
type Password struct {
	password []byte
	opts     PasswordOptions
}

var _ Encryptor = (*Password)(nil)

// NewPassword creates a Password strategy.
func NewPassword(password []byte, opts PasswordOptions) (*Password, error) {
	if len(password) == 0 {
		return nil, ErrEmptyPassword
	}

	defaults := PasswordDefaults()
	opts.KDF = strings.ToLower(opts.KDF)
	opts.Cipher = strings.ToLower(opts.Cipher)
	if opts.KDF == "" {
		opts.KDF = defaults.KDF
	}
	if opts.Cipher == "" {
		opts.Cipher = defaults.Cipher
	}
	switch opts.KDF {
	case KDFPBKDF2:
		if opts.Iterations <= 0 {
			opts.Iterations = DefaultPBKDF2Iterations
		}
	case KDFArgon2ID:
		if opts.Iterations <= 0 {
			opts.Iterations = argon2Time
		}
	default:
		return nil, fmt.Errorf("encrypt: unsupported kdf: %s", opts.KDF)
	}
	switch opts.Cipher {
	case CipherAESGCM, CipherChaCha20:
	default:
		return nil, fmt.Errorf("encrypt: unsupported cipher: %s", opts.Cipher)
	}

	pw := make([]byte, len(password))
	copy(pw, password)
	return &Password{password: pw, opts: opts}, nil
}

// Name implements Encryptor.
func (p *Password) Name() string { return StrategyPassword }

// Options returns the effective options.
func (p *Password) Options() PasswordOptions { return p.opts }

// Encrypt implements Encryptor.
func (p *Password) Encrypt(plaintext []byte) ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("encrypt: salt: %w", err)
	}

	aead, err := p.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("encrypt: nonce: %w", err)
	}

	out := make([]byte, 0, len(nonce)+len(salt)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	out = append(out, salt...)
	out = aead.Seal(out, nonce, plaintext, nil)
	return armor(out), nil
}

// Decrypt implements Encryptor.
func (p *Password) Decrypt(ciphertext []byte) ([]byte, error) {
	raw, err := unarmor(ciphertext)
	if err != nil {
		return nil, err
	}

	nonceSize := p.nonceSize()
	if len(raw) < nonceSize+SaltLength {
		return nil, fmt.Errorf("%w: length %d", ErrMalformedCiphertext, len(raw))
	}
	nonce := raw[:nonceSize]
	salt := raw[nonceSize : nonceSize+SaltLength]
	sealed := raw[nonceSize+SaltLength:]

	aead, err := p.aead(salt)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plain, nil
}

func (p *Password) nonceSize() int {
	if p.opts.Cipher == CipherChaCha20 {
		return chacha20poly1305.NonceSize
	}
	return 12
}

func (p *Password) aead(salt []byte) (cipher.AEAD, error) {
	key := p.deriveKey(salt)
	defer ZeroKey(key)

	switch p.opts.Cipher {
	case CipherChaCha20:
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, fmt.Errorf("encrypt: chacha20-poly1305: %w", err)
		}
		return aead, nil
	default:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("encrypt: aes: %w", err)
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("encrypt: gcm: %w", err)
		}
		return aead, nil
	}
}

func (p *Password) deriveKey(salt []byte) []byte {
	if p.opts.KDF == KDFArgon2ID {
		return argon2.IDKey(p.password, salt, uint32(p.opts.Iterations), argon2Memory, argon2Threads, derivedKeyLen)
	}
	return pbkdf2.Key(p.password, salt, p.opts.Iterations, derivedKeyLen, sha256.New)
}
