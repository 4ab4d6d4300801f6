package encrypt

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samples = [][]byte{
	[]byte(""),
	[]byte("a"),
	[]byte("exactly sixteen!"),
	[]byte(`{"id":"x","version":1,"fragments":[{"kind":"Inventory","data":{"items":["sword"]}}]}`),
	[]byte("unicode ✓ ünïcødé 🗝"),
	bytes.Repeat([]byte{0, 1, 2, 255}, 1000),
}

func fixedKey(t *testing.T) *FixedKey {
	t.Helper()
	f, err := NewFixedKey(bytes.Repeat([]byte{7}, 32), bytes.Repeat([]byte{9}, 16))
	require.NoError(t, err)
	return f
}

// fastPassword keeps PBKDF2 cheap so tests stay quick.
func fastPassword(t *testing.T, pw string, cipherName string) *Password {
	t.Helper()
	p, err := NewPassword([]byte(pw), PasswordOptions{Iterations: 1000, Cipher: cipherName})
	require.NoError(t, err)
	return p
}

func TestRoundTrip(t *testing.T) {
	encryptors := map[string]Encryptor{
		"null":                       Null{},
		"fixed":                      fixedKey(t),
		"password/aes-gcm":           fastPassword(t, "correct horse", CipherAESGCM),
		"password/chacha20-poly1305": fastPassword(t, "correct horse", CipherChaCha20),
	}

	for name, enc := range encryptors {
		t.Run(name, func(t *testing.T) {
			for _, p := range samples {
				ct, err := enc.Encrypt(p)
				require.NoError(t, err)

				got, err := enc.Decrypt(ct)
				require.NoError(t, err)
				assert.True(t, bytes.Equal(p, got), "round trip mismatch for %d bytes", len(p))
			}
		})
	}
}

func TestNullIsIdentity(t *testing.T) {
	in := []byte("plain")
	out, err := Null{}.Encrypt(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	out[0] = 'X'
	assert.Equal(t, byte('p'), in[0], "Encrypt must not alias its input")
}

func TestFixedKeyDeterministic(t *testing.T) {
	f := fixedKey(t)
	for _, p := range samples {
		a, err := f.Encrypt(p)
		require.NoError(t, err)
		b, err := f.Encrypt(p)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestFixedKeyOutputIsBase64(t *testing.T) {
	ct, err := fixedKey(t).Encrypt([]byte("hello"))
	require.NoError(t, err)
	_, err = base64.StdEncoding.DecodeString(string(ct))
	assert.NoError(t, err)
}

func TestFixedKeyWrongKey(t *testing.T) {
	ct, err := fixedKey(t).Encrypt([]byte("secret state"))
	require.NoError(t, err)

	other, err := NewFixedKey(bytes.Repeat([]byte{8}, 32), bytes.Repeat([]byte{9}, 16))
	require.NoError(t, err)

	_, err = other.Decrypt(ct)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestFixedKeyWrongIV(t *testing.T) {
	ct, err := fixedKey(t).Encrypt([]byte("secret state"))
	require.NoError(t, err)

	other, err := NewFixedKey(bytes.Repeat([]byte{7}, 32), bytes.Repeat([]byte{1}, 16))
	require.NoError(t, err)

	_, err = other.Decrypt(ct)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestFixedKeyTamperDetected(t *testing.T) {
	f := fixedKey(t)
	ct, err := f.Encrypt([]byte("secret state that spans blocks......"))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(string(ct))
	require.NoError(t, err)
	raw[0] ^= 0xFF

	_, err = f.Decrypt([]byte(base64.StdEncoding.EncodeToString(raw)))
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestFixedKeySizes(t *testing.T) {
	tests := []struct {
		name    string
		keyLen  int
		ivLen   int
		wantErr error
	}{
		{name: "aes-128", keyLen: 16, ivLen: 16},
		{name: "aes-192", keyLen: 24, ivLen: 16},
		{name: "aes-256", keyLen: 32, ivLen: 16},
		{name: "short key rejected", keyLen: 10, ivLen: 16, wantErr: ErrInvalidKeySize},
		{name: "long key rejected", keyLen: 40, ivLen: 16, wantErr: ErrInvalidKeySize},
		{name: "short iv rejected", keyLen: 32, ivLen: 8, wantErr: ErrInvalidIVSize},
		{name: "long iv rejected", keyLen: 32, ivLen: 32, wantErr: ErrInvalidIVSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFixedKey(make([]byte, tt.keyLen), make([]byte, tt.ivLen))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFixedKeyMalformed(t *testing.T) {
	f := fixedKey(t)

	_, err := f.Decrypt([]byte("!!! not base64 !!!"))
	assert.ErrorIs(t, err, ErrMalformedCiphertext)

	_, err = f.Decrypt([]byte(base64.StdEncoding.EncodeToString([]byte("short"))))
	assert.ErrorIs(t, err, ErrMalformedCiphertext)
}

func TestPasswordNonDeterministic(t *testing.T) {
	p := fastPassword(t, "hunter22", "")
	plain := []byte("same plaintext")

	a, err := p.Encrypt(plain)
	require.NoError(t, err)
	b, err := p.Encrypt(plain)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	for _, ct := range [][]byte{a, b} {
		got, err := p.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}
}

func TestPasswordSelfDescribing(t *testing.T) {
	ct, err := fastPassword(t, "hunter22", "").Encrypt([]byte("state"))
	require.NoError(t, err)

	// A new instance holding only the password can decrypt.
	got, err := fastPassword(t, "hunter22", "").Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, []byte("state"), got)
}

func TestPasswordWrongPassword(t *testing.T) {
	ct, err := fastPassword(t, "hunter22", "").Encrypt([]byte("state"))
	require.NoError(t, err)

	_, err = fastPassword(t, "hunter23", "").Decrypt(ct)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestPasswordCipherMismatchFails(t *testing.T) {
	ct, err := fastPassword(t, "hunter22", CipherAESGCM).Encrypt([]byte("state"))
	require.NoError(t, err)

	_, err = fastPassword(t, "hunter22", CipherChaCha20).Decrypt(ct)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestPasswordArgon2ID(t *testing.T) {
	p, err := NewPassword([]byte("hunter22"), PasswordOptions{KDF: KDFArgon2ID, Iterations: 1})
	require.NoError(t, err)

	ct, err := p.Encrypt([]byte("argon state"))
	require.NoError(t, err)
	got, err := p.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, []byte("argon state"), got)
}

func TestPasswordTruncated(t *testing.T) {
	p := fastPassword(t, "hunter22", "")
	_, err := p.Decrypt([]byte(base64.StdEncoding.EncodeToString(make([]byte, 10))))
	assert.ErrorIs(t, err, ErrMalformedCiphertext)
}

func TestNewPasswordValidation(t *testing.T) {
	_, err := NewPassword(nil, PasswordOptions{})
	assert.ErrorIs(t, err, ErrEmptyPassword)

	_, err = NewPassword([]byte("pw"), PasswordOptions{KDF: "scrypt"})
	assert.Error(t, err)

	_, err = NewPassword([]byte("pw"), PasswordOptions{Cipher: "des"})
	assert.Error(t, err)

	p, err := NewPassword([]byte("pw"), PasswordOptions{})
	require.NoError(t, err)
	assert.Equal(t, PasswordDefaults(), p.Options())
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantName string
		wantErr  error
	}{
		{name: "empty is none", cfg: Config{}, wantName: StrategyNone},
		{name: "none", cfg: Config{Strategy: "none"}, wantName: StrategyNone},
		{
			name:     "fixed",
			cfg:      Config{Strategy: "fixed", Key: make([]byte, 32), IV: make([]byte, 16)},
			wantName: StrategyFixed,
		},
		{
			name:    "fixed with bad key",
			cfg:     Config{Strategy: "fixed", Key: make([]byte, 5), IV: make([]byte, 16)},
			wantErr: ErrInvalidKeySize,
		},
		{
			name:     "password",
			cfg:      Config{Strategy: "PASSWORD", Password: []byte("pw"), Iterations: 1000},
			wantName: StrategyPassword,
		},
		{
			name:    "password missing",
			cfg:     Config{Strategy: "password"},
			wantErr: ErrEmptyPassword,
		},
		{
			name:    "unknown",
			cfg:     Config{Strategy: "rot13"},
			wantErr: ErrUnknownStrategy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := FromConfig(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, enc.Name())
		})
	}
}

func TestGenerateKey(t *testing.T) {
	a, err := GenerateKey(32)
	require.NoError(t, err)
	b, err := GenerateKey(32)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)

	_, err = NewFixedKey(a, b[:16])
	assert.NoError(t, err)
}

func TestZeroKey(t *testing.T) {
	key := []byte{1, 2, 3, 4}
	ZeroKey(key)
	assert.Equal(t, []byte{0, 0, 0, 0}, key)
}
