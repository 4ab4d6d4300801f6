package config

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/randalmurphal/checkpointer/pkg/checkpointer"
	"github.com/randalmurphal/checkpointer/pkg/checkpointer/codec"
	"github.com/randalmurphal/checkpointer/pkg/checkpointer/encrypt"
	ckerrors "github.com/randalmurphal/checkpointer/pkg/checkpointer/errors"
	"github.com/randalmurphal/checkpointer/pkg/checkpointer/store"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Default storage paths per backend.
const (
	DefaultFileDir    = ".checkpoints"
	DefaultSQLitePath = "checkpoints.db"
)

// Sentinel errors for settings.
var (
	// ErrUnknownBackend indicates store.backend is not a known backend.
	ErrUnknownBackend = errors.New("config: unknown store backend")

	// ErrInvalidSecret indicates a secret value could not be resolved.
	ErrInvalidSecret = errors.New("config: invalid secret")
)

// Settings is the validated form of a checkpointer Config.
type Settings struct {
	Backend       string
	Path          string
	Slot          string
	Codec         string
	SortFragments bool
	Retry         ckerrors.RetryConfig
	Encryption    encrypt.Config
}

// Decode reads Settings from cfg and resolves secrets.
func Decode(cfg Config) (Settings, error) {
	s := Settings{
		Backend:       strings.ToLower(cfg.String("store.backend", BackendFile)),
		Path:          cfg.String("store.path", ""),
		Slot:          cfg.String("store.slot", checkpointer.DefaultSlot),
		Codec:         cfg.String("codec", "json"),
		SortFragments: cfg.Bool("sort_fragments", false),
	}

	switch s.Backend {
	case BackendFile:
		if s.Path == "" {
			s.Path = DefaultFileDir
		}
	case BackendSQLite:
		if s.Path == "" {
			s.Path = DefaultSQLitePath
		}
	case BackendMemory:
	default:
		return Settings{}, fmt.Errorf("%w: %q", ErrUnknownBackend, s.Backend)
	}

	if err := store.ValidateSlot(s.Slot); err != nil {
		return Settings{}, err
	}
	if _, err := codec.ByName(s.Codec); err != nil {
		return Settings{}, err
	}

	s.Retry = ckerrors.NoRetry
	if attempts := cfg.Int("retry.max_attempts", 1); attempts > 1 {
		s.Retry = ckerrors.NewRetryConfig(
			ckerrors.WithMaxAttempts(attempts),
			ckerrors.WithInitialBackoff(cfg.Duration("retry.initial_backoff", 50*time.Millisecond)),
		)
	}

	enc := encrypt.Config{
		Strategy:   strings.ToLower(cfg.String("encryption.strategy", encrypt.StrategyNone)),
		KDF:        cfg.String("encryption.kdf", ""),
		Iterations: cfg.Int("encryption.iterations", 0),
		Cipher:     cfg.String("encryption.cipher", ""),
	}
	var err error
	if enc.Key, err = secret(cfg, "encryption.key"); err != nil {
		return Settings{}, err
	}
	if enc.IV, err = secret(cfg, "encryption.iv"); err != nil {
		return Settings{}, err
	}
	if enc.Password, err = secret(cfg, "encryption.password"); err != nil {
		return Settings{}, err
	}
	s.Encryption = enc

	return s, nil
}

// Load reads and decodes a settings file.
func Load(path string) (Settings, error) {
	cfg, err := FromFile(path)
	if err != nil {
		return Settings{}, err
	}
	return Decode(cfg)
}

// OpenStore opens the configured backend.
func (s Settings) OpenStore() (store.Store, error) {
	switch s.Backend {
	case BackendFile:
		return store.NewFileStore(s.Path)
	case BackendSQLite:
		return store.NewSQLiteStore(s.Path)
	case BackendMemory:
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, s.Backend)
	}
}

// Encryptor builds the configured encryption strategy.
func (s Settings) Encryptor() (encrypt.Encryptor, error) {
	return encrypt.FromConfig(s.Encryption)
}

// NewCodec returns the configured codec.
func (s Settings) NewCodec() (codec.Codec, error) {
	return codec.ByName(s.Codec)
}

// Options returns Manager options for everything except the store.
func (s Settings) Options() ([]checkpointer.Option, error) {
	enc, err := s.Encryptor()
	if err != nil {
		return nil, err
	}
	c, err := s.NewCodec()
	if err != nil {
		return nil, err
	}
	return []checkpointer.Option{
		checkpointer.WithEncryptor(enc),
		checkpointer.WithCodec(c),
		checkpointer.WithSlot(s.Slot),
		checkpointer.WithSortedFragments(s.SortFragments),
		checkpointer.WithRetry(s.Retry),
	}, nil
}

// Open builds a Manager from the settings. The caller owns the returned
// store and must close it.
func (s Settings) Open(logger *slog.Logger, extra ...checkpointer.Option) (*checkpointer.Manager, store.Store, error) {
	opts, err := s.Options()
	if err != nil {
		return nil, nil, err
	}
	st, err := s.OpenStore()
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, checkpointer.WithLogger(logger))
	opts = append(opts, extra...)
	return checkpointer.New(st, opts...), st, nil
}

// secret resolves a secret value. Missing keys yield nil.
//
//	env:NAME     environment variable NAME
//	base64:DATA  standard base64
//	hex:DATA     hexadecimal
//	anything     the literal bytes
func secret(cfg Config, key string) ([]byte, error) {
	raw := cfg.String(key, "")
	if raw == "" {
		return nil, nil
	}
	prefix, rest, found := strings.Cut(raw, ":")
	if !found {
		return []byte(raw), nil
	}
	switch prefix {
	case "env":
		v, ok := os.LookupEnv(rest)
		if !ok {
			return nil, fmt.Errorf("%w: %s: environment variable %s not set", ErrInvalidSecret, key, rest)
		}
		return []byte(v), nil
	case "base64":
		b, err := base64.StdEncoding.DecodeString(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSecret, key, err)
		}
		return b, nil
	case "hex":
		b, err := hex.DecodeString(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSecret, key, err)
		}
		return b, nil
	default:
		return []byte(raw), nil
	}
}
