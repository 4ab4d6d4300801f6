package benchmarks

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/randalmurphal/checkpointer/pkg/checkpointer"
	"github.com/randalmurphal/checkpointer/pkg/checkpointer/codec"
	"github.com/randalmurphal/checkpointer/pkg/checkpointer/encrypt"
	"github.com/randalmurphal/checkpointer/pkg/checkpointer/store"
)

// LargeState represents a larger fragment for realistic benchmarks.
type LargeState struct {
	ID       string
	Values   []int
	Metadata map[string]string
	Nested   struct {
		A string
		B int
		C []string
	}
}

// BenchmarkSave_Memory measures a save of 10 fragments to memory.
func BenchmarkSave_Memory(b *testing.B) {
	mgr := newManager(b, store.NewMemoryStore(), 10)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = mgr.Save(ctx)
	}
}

// BenchmarkLoad_Memory measures a load of 10 fragments from memory.
func BenchmarkLoad_Memory(b *testing.B) {
	mgr := newManager(b, store.NewMemoryStore(), 10)
	ctx := context.Background()
	_, _ = mgr.Save(ctx)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = mgr.Load(ctx)
	}
}

// BenchmarkSave_File measures an atomic file save.
func BenchmarkSave_File(b *testing.B) {
	st, err := store.NewFileStore(b.TempDir())
	if err != nil {
		b.Fatal(err)
	}
	mgr := newManager(b, st, 10)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = mgr.Save(ctx)
	}
}

// BenchmarkSave_SQLite measures a SQLite save.
func BenchmarkSave_SQLite(b *testing.B) {
	st, cleanup := createSQLiteStore(b)
	defer cleanup()
	mgr := newManager(b, st, 10)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = mgr.Save(ctx)
	}
}

// BenchmarkLoad_SQLite measures a SQLite load.
func BenchmarkLoad_SQLite(b *testing.B) {
	st, cleanup := createSQLiteStore(b)
	defer cleanup()
	mgr := newManager(b, st, 10)
	ctx := context.Background()
	_, _ = mgr.Save(ctx)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = mgr.Load(ctx)
	}
}

// BenchmarkSave_Codecs compares envelope codecs.
func BenchmarkSave_Codecs(b *testing.B) {
	for _, c := range []codec.Codec{codec.JSON{}, codec.YAML{}} {
		b.Run(c.Name(), func(b *testing.B) {
			mgr := newManager(b, store.NewMemoryStore(), 10, checkpointer.WithCodec(c))
			ctx := context.Background()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = mgr.Save(ctx)
			}
		})
	}
}

// BenchmarkSave_Encryptors compares encryption strategies.
// The password strategy is dominated by key derivation.
func BenchmarkSave_Encryptors(b *testing.B) {
	fixed, err := encrypt.NewFixedKey([]byte("0123456789abcdef0123456789abcdef"), []byte("fedcba9876543210"))
	if err != nil {
		b.Fatal(err)
	}
	pbkdf2, err := encrypt.NewPassword([]byte("bench"), encrypt.PasswordDefaults())
	if err != nil {
		b.Fatal(err)
	}
	argon, err := encrypt.NewPassword([]byte("bench"), encrypt.PasswordOptions{KDF: encrypt.KDFArgon2ID})
	if err != nil {
		b.Fatal(err)
	}

	encryptors := []struct {
		name string
		enc  encrypt.Encryptor
	}{
		{"null", encrypt.Null{}},
		{"fixed", fixed},
		{"pbkdf2", pbkdf2},
		{"argon2id", argon},
	}

	for _, e := range encryptors {
		b.Run(e.name, func(b *testing.B) {
			mgr := newManager(b, store.NewMemoryStore(), 10, checkpointer.WithEncryptor(e.enc))
			ctx := context.Background()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = mgr.Save(ctx)
			}
		})
	}
}

// BenchmarkSave_FragmentCount shows how save cost grows with registered kinds.
func BenchmarkSave_FragmentCount(b *testing.B) {
	for _, n := range []int{1, 10, 100} {
		b.Run(fmt.Sprintf("kinds-%d", n), func(b *testing.B) {
			mgr := newManager(b, store.NewMemoryStore(), n)
			ctx := context.Background()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = mgr.Save(ctx)
			}
		})
	}
}

// Helper functions

func newManager(b *testing.B, st store.Store, kinds int, opts ...checkpointer.Option) *checkpointer.Manager {
	b.Helper()
	opts = append([]checkpointer.Option{checkpointer.WithLogger(nil)}, opts...)
	mgr := checkpointer.New(st, opts...)
	for i := 0; i < kinds; i++ {
		state := createLargeState()
		err := checkpointer.Register(mgr, fmt.Sprintf("kind-%03d", i),
			func() (*LargeState, error) { return &state, nil },
			func(s LargeState) error { state = s; return nil },
			func() error { state = LargeState{}; return nil },
		)
		if err != nil {
			b.Fatal(err)
		}
	}
	return mgr
}

func createLargeState() LargeState {
	return LargeState{
		ID:     "test-id",
		Values: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		Metadata: map[string]string{
			"key1": "value1",
			"key2": "value2",
			"key3": "value3",
		},
		Nested: struct {
			A string
			B int
			C []string
		}{
			A: "nested-a",
			B: 42,
			C: []string{"c1", "c2", "c3"},
		},
	}
}

func createSQLiteStore(b *testing.B) (*store.SQLiteStore, func()) {
	b.Helper()
	tmpFile, err := os.CreateTemp("", "bench-*.db")
	if err != nil {
		b.Fatal(err)
	}
	tmpFile.Close()

	st, err := store.NewSQLiteStore(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		b.Fatal(err)
	}

	return st, func() {
		st.Close()
		os.Remove(tmpFile.Name())
	}
}
