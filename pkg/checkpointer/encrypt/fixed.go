package encrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	macSize = sha256.Size

	hkdfInfoEnc = "checkpointer/fixed-key/enc"
	hkdfInfoMAC = "checkpointer/fixed-key/mac"
)

// FixedKey encrypts with AES-CBC under a caller key and IV, then appends an
// HMAC-SHA256 tag. The same plaintext always yields the same ciphertext, so
// repeated identical saves are observable in the stored file.
//
// Stored form: base64(ciphertext || tag).
type FixedKey struct {
	block  cipher.Block
	iv     []byte
	macKey []byte
}

var _ Encryptor = (*FixedKey)(nil)

// NewFixedKey creates a FixedKey strategy.
// Key must be 16, 24, or 32 bytes and IV exactly 16 bytes; other sizes are
// rejected rather than padded or truncated.
func NewFixedKey(key, iv []byte) (*FixedKey, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeySize, len(key))
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidIVSize, len(iv))
	}

	encKey, err := subkey(key, hkdfInfoEnc, len(key))
	if err != nil {
		return nil, err
	}
	macKey, err := subkey(key, hkdfInfoMAC, macSize)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt: aes: %w", err)
	}

	ivCopy := make([]byte, len(iv))
	copy(ivCopy, iv)
	return &FixedKey{block: block, iv: ivCopy, macKey: macKey}, nil
}

// Name implements Encryptor.
func (f *FixedKey) Name() string { return StrategyFixed }

// Encrypt implements Encryptor.
func (f *FixedKey) Encrypt(plaintext []byte) ([]byte, error) {
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded), len(padded)+macSize)
	cipher.NewCBCEncrypter(f.block, f.iv).CryptBlocks(out, padded)
	out = append(out, f.tag(out)...)
	return armor(out), nil
}

// Decrypt implements Encryptor.
func (f *FixedKey) Decrypt(ciphertext []byte) ([]byte, error) {
	raw, err := unarmor(ciphertext)
	if err != nil {
		return nil, err
	}
	if len(raw) < aes.BlockSize+macSize || (len(raw)-macSize)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: length %d", ErrMalformedCiphertext, len(raw))
	}

	body, tag := raw[:len(raw)-macSize], raw[len(raw)-macSize:]
	if !hmac.Equal(tag, f.tag(body)) {
		return nil, ErrDecryptionFailed
	}

	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(f.block, f.iv).CryptBlocks(plain, body)
	unpadded, err := pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return unpadded, nil
}

func (f *FixedKey) tag(body []byte) []byte {
	mac := hmac.New(sha256.New, f.macKey)
	mac.Write(f.iv)
	mac.Write(body)
	return mac.Sum(nil)
}

// subkey derives a purpose-bound key from master using HKDF-SHA256.
func subkey(master []byte, info string, length int) ([]byte, error) {
	reader := hkdf.New(sha256.New, master, nil, []byte(info))
	key := make([]byte, length)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("encrypt: derive subkey: %w", err)
	}
	return key, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrMalformedCiphertext
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, ErrMalformedCiphertext
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrMalformedCiphertext
		}
	}
	return data[:len(data)-n], nil
}
